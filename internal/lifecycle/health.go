package lifecycle

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Proton-105/course-intake-bot/internal/health"
)

// ErrDraining is returned by Readiness once shutdown has begun.
var ErrDraining = errors.New("service is shutting down")

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes answers liveness and readiness from the dependency checker and the
// shutdown coordinator.
type Probes struct {
	checker  *health.Checker
	shutdown *Shutdown
	log      *slog.Logger
}

var _ HealthChecker = (*Probes)(nil)

// NewProbes creates a new Probes instance. Both collaborators are optional.
func NewProbes(checker *health.Checker, shutdown *Shutdown, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{checker: checker, shutdown: shutdown, log: log}
}

// Liveness reports success while the process is able to serve requests.
func (p *Probes) Liveness(context.Context) error {
	p.log.Debug("liveness probe called")
	return nil
}

// Readiness fails while draining or when a critical dependency is down.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.shutdown != nil && p.shutdown.Draining() {
		return ErrDraining
	}

	if report := p.Report(ctx); !report.Healthy() {
		return errors.New("critical dependency is down")
	}
	return nil
}

// Report returns the detailed dependency report.
func (p *Probes) Report(ctx context.Context) health.Report {
	if p.checker == nil {
		return health.Report{Status: health.StatusOK, Components: map[string]string{}}
	}
	return p.checker.Check(ctx)
}
