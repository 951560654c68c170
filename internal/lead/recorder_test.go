package lead

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Proton-105/course-intake-bot/internal/errors"
	"github.com/Proton-105/course-intake-bot/internal/jobs"
)

var testLead = Lead{FIO: "Jane Doe", Phone: "555-0100", Direction: "Data"}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type scriptedSink struct {
	errs  []error
	calls int
	got   []Lead
}

func (s *scriptedSink) Name() string { return "scripted" }

func (s *scriptedSink) Append(_ context.Context, l Lead) error {
	s.calls++
	s.got = append(s.got, l)
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "1", Queue: jobs.QueueLeads}, nil
}

func (q *fakeQueue) Close() error { return nil }

func fastRetry() apperrors.RetryConfig {
	return apperrors.RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRecorder_BestEffortSingleAttempt(t *testing.T) {
	sink := &scriptedSink{errs: []error{apperrors.NewExternalAPIError("sheets", errors.New("503"))}}
	rec, err := NewRecorder(sink, nil, Options{Timeout: time.Second}, testLogger())
	require.NoError(t, err)

	err = rec.Record(context.Background(), testLead)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeLeadWrite, appErr.Code)
	assert.Equal(t, 1, sink.calls)
}

func TestRecorder_RetryPolicy(t *testing.T) {
	t.Run("recovers after transient failures", func(t *testing.T) {
		transient := apperrors.NewExternalAPIError("sheets", errors.New("503"))
		sink := &scriptedSink{errs: []error{transient, transient}}
		rec, err := NewRecorder(sink, nil, Options{Policy: PolicyRetry, Retry: fastRetry()}, testLogger())
		require.NoError(t, err)

		require.NoError(t, rec.Record(context.Background(), testLead))
		assert.Equal(t, 3, sink.calls)
		assert.Equal(t, testLead, sink.got[2])
	})

	t.Run("permanent failure is not retried", func(t *testing.T) {
		sink := &scriptedSink{errs: []error{errors.New("permission denied")}}
		rec, err := NewRecorder(sink, nil, Options{Policy: PolicyRetry, Retry: fastRetry()}, testLogger())
		require.NoError(t, err)

		assert.Error(t, rec.Record(context.Background(), testLead))
		assert.Equal(t, 1, sink.calls)
	})

	t.Run("open breaker short-circuits", func(t *testing.T) {
		breaker := apperrors.NewCircuitBreaker(apperrors.BreakerConfig{
			ErrorThreshold:      0.5,
			MinRequests:         1,
			OpenTimeout:         time.Hour,
			HalfOpenMaxRequests: 1,
		})
		sink := &scriptedSink{errs: []error{errors.New("down")}}
		rec, err := NewRecorder(sink, nil, Options{Policy: PolicyRetry, Retry: fastRetry(), Breaker: breaker}, testLogger())
		require.NoError(t, err)

		require.Error(t, rec.Record(context.Background(), testLead))
		err = rec.Record(context.Background(), testLead)
		assert.ErrorIs(t, err, apperrors.ErrCircuitOpen)
		assert.Equal(t, 1, sink.calls)
	})
}

func TestRecorder_QueuePolicy(t *testing.T) {
	queue := &fakeQueue{}
	rec, err := NewRecorder(nil, queue, Options{Policy: PolicyQueue, Queue: "leads", MaxRetry: 5}, testLogger())
	require.NoError(t, err)

	require.NoError(t, rec.Record(context.Background(), testLead))
	require.Len(t, queue.tasks, 1)

	payload, err := jobs.DecodeLeadAppendPayload(queue.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, jobs.LeadAppendPayload{FIO: "Jane Doe", Phone: "555-0100", Direction: "Data"}, payload)

	queue.err = errors.New("redis down")
	assert.Error(t, rec.Record(context.Background(), testLead))
}

func TestNewRecorder_Validation(t *testing.T) {
	_, err := NewRecorder(nil, nil, Options{Policy: PolicyBestEffort}, nil)
	assert.Error(t, err)

	_, err = NewRecorder(&scriptedSink{}, nil, Options{Policy: PolicyQueue}, nil)
	assert.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	policy, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyBestEffort, policy)

	policy, err = ParsePolicy("retry")
	require.NoError(t, err)
	assert.Equal(t, PolicyRetry, policy)

	_, err = ParsePolicy("drop")
	assert.Error(t, err)
}

func TestLead_Valid(t *testing.T) {
	assert.True(t, testLead.Valid())
	assert.False(t, Lead{FIO: "Jane", Phone: " "}.Valid())
}

func TestRecorder_UnavailableSink(t *testing.T) {
	cause := errors.New("open credentials.json: no such file or directory")

	recorder, err := NewRecorder(Unavailable("sheets", cause), nil, Options{Policy: PolicyBestEffort}, testLogger())
	require.NoError(t, err)

	err = recorder.Record(context.Background(), testLead)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeLeadWrite, appErr.Code)
	assert.False(t, appErr.Retryable)
	assert.ErrorIs(t, err, cause)
}
