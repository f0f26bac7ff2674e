package monitoring

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds error reporting settings
type Config struct {
	DSN         string
	Environment string
	Release     string
}

var enabled atomic.Bool

// Init sets up Sentry. An empty DSN disables reporting.
func Init(cfg Config) error {
	if cfg.DSN == "" {
		log.Printf("Warning: Sentry DSN not configured - error reporting disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			// Uploaded photos and notes never leave the machine
			if event.Request != nil {
				event.Request.Data = ""
				delete(event.Request.Headers, "Cookie")
				delete(event.Request.Headers, "Authorization")
			}
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}

	enabled.Store(true)
	log.Printf("Sentry initialized (environment %q, release %q)", cfg.Environment, cfg.Release)
	return nil
}

// Enabled reports whether Init configured a client
func Enabled() bool {
	return enabled.Load()
}

// CaptureException reports err with tags. It is a no-op when reporting is off.
func CaptureException(err error, tags map[string]string) {
	if err == nil || !Enabled() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush waits for queued events to be sent
func Flush(timeout time.Duration) bool {
	if !Enabled() {
		return true
	}
	return sentry.Flush(timeout)
}
