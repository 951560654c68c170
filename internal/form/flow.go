// Package form implements the intake conversation as a finite state machine.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Proton-105/course-intake-bot/internal/catalog"
	apperrors "github.com/Proton-105/course-intake-bot/internal/errors"
	"github.com/Proton-105/course-intake-bot/internal/i18n"
	"github.com/Proton-105/course-intake-bot/internal/lead"
	"github.com/Proton-105/course-intake-bot/internal/state"
)

// DefaultMaxCourseOptions caps the number of offered courses.
const DefaultMaxCourseOptions = 5

// LeadRecorder stores the lead captured at the direction step.
type LeadRecorder interface {
	Record(ctx context.Context, l lead.Lead) error
}

// ErrorReporter receives failures that do not interrupt the conversation.
type ErrorReporter interface {
	Handle(ctx context.Context, err error) (string, bool)
}

// Options tunes a Flow.
type Options struct {
	Labels           catalog.Labels
	MaxCourseOptions int
	Errors           ErrorReporter
}

type step func(ctx context.Context, s state.Session, input string) (state.Session, Reply)

// Flow drives every user session through the intake form.
type Flow struct {
	catalog  *catalog.Catalog
	sessions state.Storage
	leads    LeadRecorder
	t        i18n.Translator
	opts     Options
	log      *slog.Logger
	steps    map[state.State]step
}

// New builds a Flow over an immutable catalog. leads may be nil to skip lead recording.
func New(cat *catalog.Catalog, sessions state.Storage, leads LeadRecorder, t i18n.Translator, opts Options, log *slog.Logger) *Flow {
	if cat == nil {
		cat = catalog.Empty()
	}
	if sessions == nil {
		sessions = state.NewMemoryStorage()
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.MaxCourseOptions <= 0 {
		opts.MaxCourseOptions = DefaultMaxCourseOptions
	}

	f := &Flow{
		catalog:  cat,
		sessions: sessions,
		leads:    leads,
		t:        t,
		opts:     opts,
		log:      log,
	}

	f.steps = map[state.State]step{
		state.StateAwaitingConsent:         f.consent,
		state.StateAwaitingFio:             f.fio,
		state.StateAwaitingPhone:           f.phone,
		state.StateAwaitingDirection:       f.direction,
		state.StateAwaitingCourseType:      f.courseType,
		state.StateAwaitingCourseSelection: f.courseSelection,
	}

	return f
}

// Start discards any session of userID and asks for consent.
func (f *Flow) Start(ctx context.Context, userID int64) (Reply, error) {
	previous, err := f.sessions.Get(ctx, userID)
	if err != nil && !errors.Is(err, state.ErrSessionNotFound) {
		return Reply{}, storageError("load session", err)
	}
	restarted := err == nil

	if err := f.sessions.Save(ctx, state.NewSession(userID)); err != nil {
		return Reply{}, storageError("save session", err)
	}

	if restarted {
		state.RecordTransition(previous.State, state.StateAwaitingConsent)
		f.log.InfoContext(ctx, "session restarted", slog.Int64("user_id", userID), slog.String("from", string(previous.State)))
	} else {
		f.log.InfoContext(ctx, "session started", slog.Int64("user_id", userID))
	}

	return prompt(f.text("form.consent_prompt"), f.consentToken()), nil
}

// Cancel drops the session of userID.
func (f *Flow) Cancel(ctx context.Context, userID int64) (Reply, error) {
	current, err := f.sessions.Get(ctx, userID)
	if err != nil && !errors.Is(err, state.ErrSessionNotFound) {
		return Reply{}, storageError("load session", err)
	}

	if err == nil {
		if err := f.sessions.Delete(ctx, userID); err != nil {
			return Reply{}, storageError("delete session", err)
		}
		state.RecordTransition(current.State, state.StateTerminal)
	}

	return final(f.text("form.cancelled")), nil
}

// Help returns the usage hint.
func (f *Flow) Help() Reply {
	return Reply{Text: f.text("help.text")}
}

// Handle advances the session of userID with text. Without a session the user is
// pointed at the start command and nothing is stored.
func (f *Flow) Handle(ctx context.Context, userID int64, text string) (Reply, error) {
	current, err := f.sessions.Get(ctx, userID)
	if errors.Is(err, state.ErrSessionNotFound) {
		return Reply{Text: f.text("form.start_hint")}, nil
	}
	if err != nil {
		return Reply{}, storageError("load session", err)
	}

	run, ok := f.steps[current.State]
	if !ok {
		f.log.WarnContext(ctx, "session in unexpected state dropped", slog.Int64("user_id", userID), slog.String("state", string(current.State)))
		if err := f.sessions.Delete(ctx, userID); err != nil {
			return Reply{}, storageError("delete session", err)
		}
		return Reply{Text: f.text("form.start_hint")}, nil
	}

	next, reply := run(ctx, current, strings.TrimSpace(text))

	if !state.IsTransitionAllowed(current.State, next.State) {
		return Reply{}, apperrors.NewStateError(fmt.Sprintf("transition %s -> %s is not allowed", current.State, next.State))
	}
	if err := next.Validate(); err != nil {
		return Reply{}, apperrors.NewStateError(fmt.Sprintf("invalid session: %v", err))
	}

	if next.State == state.StateTerminal {
		if err := f.sessions.Delete(ctx, userID); err != nil {
			return Reply{}, storageError("delete session", err)
		}
	} else if err := f.sessions.Save(ctx, next); err != nil {
		return Reply{}, storageError("save session", err)
	}

	if capturesLead(current.State, next.State) {
		f.record(ctx, next)
	}

	if next.State != current.State {
		state.RecordTransition(current.State, next.State)
		f.log.DebugContext(ctx, "form transition",
			slog.Int64("user_id", userID),
			slog.String("from", string(current.State)),
			slog.String("to", string(next.State)),
		)
	}

	return reply, nil
}

func (f *Flow) record(ctx context.Context, s state.Session) {
	if f.leads == nil {
		return
	}

	err := f.leads.Record(ctx, lead.Lead{FIO: s.FIO, Phone: s.Phone, Direction: s.Direction})
	if err == nil {
		return
	}

	if f.opts.Errors != nil {
		f.opts.Errors.Handle(ctx, err)
		return
	}
	f.log.ErrorContext(ctx, "lead write failed, continuing", slog.Int64("user_id", s.UserID), slog.Any("error", err))
}

func (f *Flow) text(key string) string {
	return i18n.Format(f.t, key, nil)
}

func (f *Flow) format(key string, vars map[string]string) string {
	return i18n.Format(f.t, key, vars)
}

func (f *Flow) consentToken() string {
	return f.text("form.consent_button")
}

func storageError(op string, err error) error {
	return apperrors.NewStateError(fmt.Sprintf("session storage: %s: %v", op, err))
}
