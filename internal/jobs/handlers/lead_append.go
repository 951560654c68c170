// Package handlers contains asynq task handlers run by the background worker.
package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	apperrors "github.com/Proton-105/course-intake-bot/internal/errors"
	"github.com/Proton-105/course-intake-bot/internal/jobs"
	"github.com/Proton-105/course-intake-bot/internal/lead"
)

// LeadAppendHandler delivers queued leads to the configured sink.
type LeadAppendHandler struct {
	sink lead.Sink
	log  *slog.Logger
}

func NewLeadAppendHandler(sink lead.Sink, log *slog.Logger) *LeadAppendHandler {
	if log == nil {
		log = slog.Default()
	}
	return &LeadAppendHandler{sink: sink, log: log}
}

// ProcessTask implements asynq.Handler. Malformed payloads are not retried.
func (h *LeadAppendHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := jobs.DecodeLeadAppendPayload(t)
	if err != nil {
		h.log.ErrorContext(ctx, "lead append: failed to decode payload", slog.String("task_type", t.Type()), slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	l := lead.Lead{FIO: payload.FIO, Phone: payload.Phone, Direction: payload.Direction}
	if !l.Valid() {
		h.log.WarnContext(ctx, "lead append: incomplete lead dropped", slog.String("task_type", t.Type()))
		return fmt.Errorf("%w: incomplete lead", asynq.SkipRetry)
	}

	if err := h.sink.Append(ctx, l); err != nil {
		h.log.WarnContext(ctx, "lead append: sink write failed",
			slog.String("sink", h.sink.Name()),
			slog.Bool("retryable", apperrors.IsRetryable(err)),
			slog.Any("error", err),
		)
		return err
	}

	h.log.InfoContext(ctx, "lead append: delivered", slog.String("sink", h.sink.Name()), slog.String("direction", l.Direction))
	return nil
}
