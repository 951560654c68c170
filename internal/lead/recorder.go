package lead

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Proton-105/course-intake-bot/internal/errors"
	"github.com/Proton-105/course-intake-bot/internal/jobs"
	"github.com/Proton-105/course-intake-bot/pkg/metrics"
)

// Policy selects how a lead write failure is handled.
type Policy string

const (
	// PolicyBestEffort makes a single attempt and reports the failure.
	PolicyBestEffort Policy = "best_effort"
	// PolicyRetry retries retryable failures with exponential backoff behind a circuit breaker.
	PolicyRetry Policy = "retry"
	// PolicyQueue hands the lead to the background worker.
	PolicyQueue Policy = "queue"
)

// ParsePolicy converts a config value into a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(value) {
	case PolicyBestEffort, PolicyRetry, PolicyQueue:
		return Policy(value), nil
	case "":
		return PolicyBestEffort, nil
	default:
		return "", fmt.Errorf("unknown lead policy %q", value)
	}
}

// Options configures a Recorder.
type Options struct {
	Policy  Policy
	Timeout time.Duration
	Retry   apperrors.RetryConfig
	Breaker *apperrors.CircuitBreaker
	// Queue and MaxRetry apply to PolicyQueue.
	Queue    string
	MaxRetry int
}

// Recorder writes leads according to the configured policy.
type Recorder struct {
	sink  Sink
	queue jobs.Manager
	opts  Options
	log   *slog.Logger
}

// NewRecorder creates a Recorder. queue is required only for PolicyQueue.
func NewRecorder(sink Sink, queue jobs.Manager, opts Options, log *slog.Logger) (*Recorder, error) {
	if log == nil {
		log = slog.Default()
	}
	if opts.Policy == "" {
		opts.Policy = PolicyBestEffort
	}
	if opts.Policy != PolicyQueue && sink == nil {
		return nil, fmt.Errorf("lead recorder: sink is required for policy %s", opts.Policy)
	}
	if opts.Policy == PolicyQueue && queue == nil {
		return nil, fmt.Errorf("lead recorder: queue policy requires a job manager")
	}
	if opts.Policy == PolicyRetry && opts.Breaker == nil {
		opts.Breaker = apperrors.NewCircuitBreaker(apperrors.DefaultBreakerConfig())
	}

	return &Recorder{sink: sink, queue: queue, opts: opts, log: log}, nil
}

// Record stores l. The returned error is a lead write AppError; callers decide whether
// the conversation continues.
func (r *Recorder) Record(ctx context.Context, l Lead) error {
	start := time.Now()
	sinkName := r.sinkName()

	err := r.record(ctx, l)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordLeadWrite(sinkName, string(r.opts.Policy), status, time.Since(start))

	if err != nil {
		return apperrors.NewLeadWriteError(sinkName, err)
	}

	r.log.InfoContext(ctx, "lead recorded",
		slog.String("sink", sinkName),
		slog.String("policy", string(r.opts.Policy)),
		slog.String("direction", l.Direction),
	)
	return nil
}

func (r *Recorder) record(ctx context.Context, l Lead) error {
	switch r.opts.Policy {
	case PolicyQueue:
		return r.enqueue(ctx, l)
	case PolicyRetry:
		return apperrors.WithRetryConfig(ctx, r.opts.Retry, func() error {
			return r.opts.Breaker.Call(func() error {
				return r.append(ctx, l)
			})
		})
	default:
		return r.append(ctx, l)
	}
}

func (r *Recorder) append(ctx context.Context, l Lead) error {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}
	return r.sink.Append(ctx, l)
}

func (r *Recorder) enqueue(ctx context.Context, l Lead) error {
	task, err := jobs.NewLeadAppendTask(jobs.LeadAppendPayload{
		FIO:       l.FIO,
		Phone:     l.Phone,
		Direction: l.Direction,
	}, r.opts.Queue, r.opts.MaxRetry)
	if err != nil {
		return err
	}

	if _, err := r.queue.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("enqueue lead: %w", err)
	}
	return nil
}

func (r *Recorder) sinkName() string {
	if r.opts.Policy == PolicyQueue {
		return "queue"
	}
	return r.sink.Name()
}
