package identity

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
)

const defaultWriteTimeout = 2 * time.Second

// LoginWriter persists the last-login timestamp.
type LoginWriter interface {
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
}

// Debouncer admits at most one caller per key inside a window.
type Debouncer interface {
	Once(ctx context.Context, key string, window time.Duration) (bool, error)
}

// LastLoginRecorder writes last-login timestamps in the background.
type LastLoginRecorder struct {
	writer       LoginWriter
	debouncer    Debouncer
	window       time.Duration
	writeTimeout time.Duration
	log          *slog.Logger
	now          func() time.Time
	keyFn        func(userID string) string
}

// NewLastLoginRecorder creates a recorder. debouncer may be nil, in which
// case every sign-in is written.
func NewLastLoginRecorder(writer LoginWriter, debouncer Debouncer, window time.Duration, keyFn func(string) string, log *slog.Logger) *LastLoginRecorder {
	return &LastLoginRecorder{
		writer:       writer,
		debouncer:    debouncer,
		window:       window,
		writeTimeout: defaultWriteTimeout,
		log:          log,
		now:          time.Now,
		keyFn:        keyFn,
	}
}

// Track schedules a write and returns immediately.
func (r *LastLoginRecorder) Track(userID string) {
	at := r.now().UTC()
	go r.record(userID, at)
}

func (r *LastLoginRecorder) record(userID string, at time.Time) {
	const op = "identity.LastLoginRecorder.record"
	log := r.log.With(slog.String("op", op), sl.User(userID))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("last login write panicked", slog.Any("panic", rec))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if r.debouncer != nil && r.window > 0 {
		first, err := r.debouncer.Once(ctx, r.keyFn(userID), r.window)
		if err != nil {
			log.Warn("last login debounce failed", sl.Err(err))
		} else if !first {
			return
		}
	}

	if err := r.writer.UpdateLastLogin(ctx, userID, at); err != nil {
		log.Warn("last login write failed", sl.Err(err))
	}
}
