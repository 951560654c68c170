package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/course-intake-bot/internal/state"
)

func TestRecordStateTransition_ViaStateHook(t *testing.T) {
	before := testutil.ToFloat64(stateTransitionsTotal.WithLabelValues("awaiting_fio", "awaiting_phone"))

	state.RecordTransition(state.StateAwaitingFio, state.StateAwaitingPhone)

	after := testutil.ToFloat64(stateTransitionsTotal.WithLabelValues("awaiting_fio", "awaiting_phone"))
	assert.Equal(t, before+1, after)
}

func TestRecordLeadWrite(t *testing.T) {
	RecordLeadWrite("sheets", "retry", "error", 10*time.Millisecond)
	RecordLeadWrite("sheets", "retry", "error", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(leadWritesTotal.WithLabelValues("sheets", "retry", "error")))
}

func TestRecordError_UnknownLabels(t *testing.T) {
	RecordError("", "")
	assert.GreaterOrEqual(t, testutil.ToFloat64(errorsTotal.WithLabelValues("unknown", "unknown")), 1.0)
}

func TestSetCatalogSize(t *testing.T) {
	SetCatalogSize(3, 12)
	assert.Equal(t, 3.0, testutil.ToFloat64(catalogDirections))
	assert.Equal(t, 12.0, testutil.ToFloat64(catalogCourses))
}

func TestSessionCollector_Collect(t *testing.T) {
	ctx := context.Background()
	storage := state.NewMemoryStorage()
	require.NoError(t, storage.Save(ctx, state.NewSession(1)))
	require.NoError(t, storage.Save(ctx, state.NewSession(2)))
	require.NoError(t, storage.Save(ctx, state.Session{UserID: 3, State: state.StateAwaitingPhone, FIO: "Jane"}))

	require.NoError(t, NewSessionCollector(storage, 0).Collect(ctx))

	assert.Equal(t, 3.0, testutil.ToFloat64(activeSessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(sessionsByState.WithLabelValues(string(state.StateAwaitingConsent))))
	assert.Equal(t, 1.0, testutil.ToFloat64(sessionsByState.WithLabelValues(string(state.StateAwaitingPhone))))
	assert.Equal(t, 0.0, testutil.ToFloat64(sessionsByState.WithLabelValues(string(state.StateTerminal))))
}
