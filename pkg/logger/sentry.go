package logger

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/course-intake-bot/pkg/config"
)

// InitSentry configures the global Sentry hub used by the error handler and the
// slog Sentry handler. The returned function flushes buffered events.
func InitSentry(cfg config.SentryConfig, appEnv string) (func(time.Duration), error) {
	if !cfg.Enabled {
		return func(time.Duration) {}, nil
	}

	environment := cfg.Environment
	if environment == "" {
		environment = appEnv
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      environment,
		SampleRate:       cfg.SampleRate,
		AttachStacktrace: true,
	}); err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}

	return func(timeout time.Duration) { sentry.Flush(timeout) }, nil
}
