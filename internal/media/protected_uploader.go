package media

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("image storage unavailable, try again shortly")

type ImageUploader interface {
	Upload(ctx context.Context, f File) (string, error)
}

type ProtectedUploaderConfig struct {
	Timeout          time.Duration // hard timeout per upload
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open
}

// ProtectedUploader bounds each upload with a timeout and stops calling a
// failing store for a cooldown period. Processing errors (bad input) do not
// count as store failures.
type ProtectedUploader struct {
	inner ImageUploader
	cfg   ProtectedUploaderConfig
	now   func() time.Time
	mu    sync.Mutex

	state string // "closed" | "open" | "half_open"

	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtectedUploader(inner ImageUploader, cfg ProtectedUploaderConfig) *ProtectedUploader {
	//defaults
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedUploader{
		inner: inner,
		cfg:   cfg,
		now:   time.Now,
		state: "closed",
	}
}

func (u *ProtectedUploader) Upload(ctx context.Context, f File) (string, error) {
	if !u.allowRequest() {
		return "", ErrCircuitOpen
	}

	upCtx, cancel := context.WithTimeout(ctx, u.cfg.Timeout)
	defer cancel()

	url, err := u.inner.Upload(upCtx, f)

	u.afterRequest(err)

	return url, err
}

func (u *ProtectedUploader) State() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

func (u *ProtectedUploader) allowRequest() bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch u.state {
	case "closed":
		return true
	case "open":
		if u.now().Sub(u.openedAt) >= u.cfg.Cooldown {
			u.state = "half_open"
			u.halfOpenInFlight = 1
			return true
		}
		return false
	case "half_open":
		if u.halfOpenInFlight >= u.cfg.HalfOpenMaxCalls {
			return false
		}
		u.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (u *ProtectedUploader) afterRequest(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state == "half_open" && u.halfOpenInFlight > 0 {
		u.halfOpenInFlight--
	}

	if err != nil && isInputError(err) {
		return
	}

	if err == nil {
		u.consecutiveFailures = 0
		u.state = "closed"
		return
	}

	u.consecutiveFailures++

	// a failed trial call reopens immediately
	if u.state == "half_open" {
		u.state = "open"
		u.openedAt = u.now()
		return
	}

	if u.consecutiveFailures >= u.cfg.FailureThreshold {
		u.state = "open"
		u.openedAt = u.now()
	}
}

func isInputError(err error) bool {
	return errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrDimensions) ||
		errors.Is(err, ErrHEICUnsupported)
}
