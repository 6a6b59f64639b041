package media

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ObjectStore is where processed images end up.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	URL(key string) string
}

// Uploader processes an image and stores it, returning its public URL.
type Uploader struct {
	proc  Processor
	store ObjectStore
	now   func() time.Time
}

func NewUploader(proc Processor, store ObjectStore) *Uploader {
	return &Uploader{proc: proc, store: store, now: time.Now}
}

func (u *Uploader) Upload(ctx context.Context, f File) (string, error) {
	out, err := u.proc.Process(f)
	if err != nil {
		return "", err
	}

	key := "events/" + u.now().UTC().Format("2006/01") + "/" + uuid.NewString() + ".jpg"
	if err := u.store.Put(ctx, key, out.Data, out.ContentType); err != nil {
		return "", err
	}
	return u.store.URL(key), nil
}
