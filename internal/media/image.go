// Package media prepares event images and stores them in object storage.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	TypeJPEG = "image/jpeg"
	TypePNG  = "image/png"
	TypeWebP = "image/webp"
	TypeHEIC = "image/heic"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrEmptyFile       = errors.New("image file is empty")
	ErrTooLarge        = errors.New("image file is too large")
	ErrDimensions      = errors.New("image dimensions are too large")
	ErrHEICUnsupported = errors.New("HEIC/HEIF images cannot be converted on this server, please upload a JPEG or PNG")
)

// File is an uploaded file as received from the operator.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// HEICConverter turns HEIC/HEIF bytes into JPEG bytes.
type HEICConverter interface {
	ToJPEG(data []byte) ([]byte, error)
}

var magic = map[string][]byte{
	TypeJPEG: {0xFF, 0xD8, 0xFF},
	TypePNG:  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	TypeWebP: {0x52, 0x49, 0x46, 0x46},
}

var heifBrands = map[string]bool{
	"heic": true, "heix": true, "hevc": true, "hevx": true,
	"heim": true, "heis": true, "mif1": true, "msf1": true,
}

// DetectType sniffs the image type from magic bytes, never from the name.
func DetectType(data []byte) (string, error) {
	if len(data) < 12 {
		return "", ErrUnsupportedType
	}

	switch {
	case bytes.HasPrefix(data, magic[TypeJPEG]):
		return TypeJPEG, nil
	case bytes.HasPrefix(data, magic[TypePNG]):
		return TypePNG, nil
	case bytes.HasPrefix(data, magic[TypeWebP]) && string(data[8:12]) == "WEBP":
		return TypeWebP, nil
	case string(data[4:8]) == "ftyp" && heifBrands[string(data[8:12])]:
		return TypeHEIC, nil
	}

	return "", ErrUnsupportedType
}

// DefaultMaxSourceDimension bounds either side of an upload before it is decoded.
const DefaultMaxSourceDimension = 12000

func decodeConfig(data []byte, mimeType string) (image.Config, error) {
	r := bytes.NewReader(data)

	switch mimeType {
	case TypeJPEG:
		return jpeg.DecodeConfig(r)
	case TypePNG:
		return png.DecodeConfig(r)
	case TypeWebP:
		return webp.DecodeConfig(r)
	default:
		return image.Config{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
}

func decode(data []byte, mimeType string) (image.Image, error) {
	r := bytes.NewReader(data)

	switch mimeType {
	case TypeJPEG:
		return jpeg.Decode(r)
	case TypePNG:
		return png.Decode(r)
	case TypeWebP:
		return webp.Decode(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
}

// fitWidth scales img down to maxWidth keeping its aspect ratio. It never upscales.
func fitWidth(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}

	h := int(float64(b.Dy()) * float64(maxWidth) / float64(b.Dx()))
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Processor normalizes uploads into a bounded-width JPEG.
type Processor struct {
	MaxWidth int
	MaxBytes int64
	Quality  int
	HEIC     HEICConverter

	// MaxSourceDimension rejects uploads wider or taller than this before
	// the pixels are decoded. Zero means DefaultMaxSourceDimension.
	MaxSourceDimension int
}

func (p Processor) Process(f File) (File, error) {
	if len(f.Data) == 0 {
		return File{}, ErrEmptyFile
	}
	if p.MaxBytes > 0 && int64(len(f.Data)) > p.MaxBytes {
		return File{}, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(f.Data), p.MaxBytes)
	}

	data := f.Data
	mimeType, err := DetectType(data)
	if err != nil {
		return File{}, err
	}

	if mimeType == TypeHEIC {
		if p.HEIC == nil {
			return File{}, ErrHEICUnsupported
		}
		data, err = p.HEIC.ToJPEG(data)
		if err != nil {
			return File{}, fmt.Errorf("convert heic: %w", err)
		}
		mimeType = TypeJPEG
	}

	cfg, err := decodeConfig(data, mimeType)
	if err != nil {
		return File{}, fmt.Errorf("decode image: %w", err)
	}
	limit := p.MaxSourceDimension
	if limit <= 0 {
		limit = DefaultMaxSourceDimension
	}
	if cfg.Width > limit || cfg.Height > limit {
		return File{}, fmt.Errorf("%w: %dx%d (max %dx%d)", ErrDimensions, cfg.Width, cfg.Height, limit, limit)
	}

	img, err := decode(data, mimeType)
	if err != nil {
		return File{}, fmt.Errorf("decode image: %w", err)
	}

	quality := p.Quality
	if quality <= 0 {
		quality = 85
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fitWidth(img, p.MaxWidth), &jpeg.Options{Quality: quality}); err != nil {
		return File{}, fmt.Errorf("encode image: %w", err)
	}

	return File{
		Name:        jpegName(f.Name),
		ContentType: TypeJPEG,
		Data:        buf.Bytes(),
	}, nil
}

func jpegName(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "image"
	}
	return base + ".jpg"
}
