// Package sl holds small helpers for building slog attributes.
package sl

import (
	"log/slog"
	"os"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

// New builds the process logger. Local runs get debug text output, anything
// else gets JSON at info level.
func New(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

// Err returns an "error" attribute carrying the error text. A nil error
// yields an empty value so call sites never have to guard it.
//
//	log.Error("failed to load user", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{Key: "error", Value: slog.StringValue("")}
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Tenant returns the "tenant_id" attribute used by every tenant-scoped log line.
func Tenant(tenantID string) slog.Attr {
	return slog.String("tenant_id", tenantID)
}

// User returns the "user_id" attribute.
func User(userID string) slog.Attr {
	return slog.String("user_id", userID)
}
