package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/course-intake-bot/internal/i18n"
	"github.com/Proton-105/course-intake-bot/pkg/logger"
	"github.com/Proton-105/course-intake-bot/pkg/metrics"
)

const codeUnknown = "unknown"

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithTranslator localizes user messages. A code is looked up under
// errors.codes.<code>; errors.internal replaces the built-in fallback.
func WithTranslator(t i18n.Translator) HandlerOption {
	return func(h *Handler) {
		h.translator = t
	}
}

type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
	translator    i18n.Translator
}

func NewHandler(log *slog.Logger, sentryEnabled bool, opts ...HandlerOption) *Handler {
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle logs err, reports serious failures to Sentry and returns the message
// to show the user together with the retryable flag.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}

	if ctx == nil {
		ctx = context.Background()
	}

	appErr, known := classify(err)

	attrs := []slog.Attr{
		slog.String("code", appErr.Code),
		slog.String("message", appErr.Message),
		slog.String("severity", string(appErr.Severity)),
		slog.Bool("retryable", appErr.Retryable),
	}

	correlationID := logger.CorrelationIDFromContext(ctx)
	if correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	msg := "application error"
	if !known {
		msg = "unknown error"
	}

	h.log.LogAttrs(ctx, logLevel(appErr.Severity), msg, attrs...)
	metrics.RecordError(appErr.Code, string(appErr.Severity))

	if h.sentryEnabled && (appErr.Severity == SeverityCritical || appErr.Severity == SeverityHigh) {
		h.sendToSentry(err, appErr, correlationID)
	}

	return h.userMessage(appErr), appErr.Retryable
}

// classify returns the AppError in err's chain or a high severity stand-in.
func classify(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}

	return &AppError{
		Code:     codeUnknown,
		Message:  err.Error(),
		Severity: SeverityHigh,
		cause:    err,
	}, false
}

func logLevel(severity Severity) slog.Level {
	switch severity {
	case SeverityLow, SeverityMedium:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func (h *Handler) userMessage(appErr *AppError) string {
	if h.translator != nil && appErr.Code != codeUnknown {
		key := "errors.codes." + appErr.Code
		if text := h.translator.T(key); text != "" && text != key {
			return text
		}
	}

	if appErr.UserMessage != "" {
		return appErr.UserMessage
	}

	if h.translator != nil {
		if text := h.translator.T("errors.internal"); text != "" && text != "errors.internal" {
			return text
		}
	}

	return defaultUserMessage
}

func (h *Handler) sendToSentry(err error, appErr *AppError, correlationID string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", appErr.Code)
		scope.SetTag("severity", string(appErr.Severity))
		if correlationID != "" {
			scope.SetTag("correlation_id", correlationID)
		}

		sentry.CaptureException(err)
	})
}
