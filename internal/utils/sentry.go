package utils

import (
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/bizdoc-services-backend/internal/config"
)

// InitSentry initializes Sentry for error tracking. An empty DSN leaves the
// SDK disabled, so CaptureError becomes a no-op.
func InitSentry(cfg config.SentryConfig) error {
	if cfg.DSN == "" {
		logrus.Info("Sentry DSN not configured, error reporting disabled")
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
		AttachStacktrace: true,
	})
	if err != nil {
		return err
	}
	logrus.Infof("Sentry initialized for environment %q", cfg.Environment)
	return nil
}

// CaptureError reports err with extra tags
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}
