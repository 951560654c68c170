package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/course-intake-bot/pkg/config"
)

func TestMaskingHandler_MasksPersonalData(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil)))

	log.With(slog.String("token", "123:abc")).Info("lead recorded",
		slog.String("fio", "Jane Doe"),
		slog.String("phone", "555-0100"),
		slog.String("direction", "Data"),
		slog.Group("lead", slog.String("phone", "555-0100")),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, maskedValue, entry["token"])
	assert.Equal(t, maskedValue, entry["fio"])
	assert.Equal(t, maskedValue, entry["phone"])
	assert.Equal(t, "Data", entry["direction"])
	assert.Equal(t, map[string]any{"phone": maskedValue}, entry["lead"])
}

func TestBuild_LevelIsAdjustable(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "test", Logger: config.LoggerConfig{Level: "warn", Format: "text"}}

	log, level := Build(cfg, &buf)
	log.Info("hidden")
	assert.Empty(t, buf.String())

	level.Set(slog.LevelDebug)
	log.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "service=course-intake-bot")
}

func TestParseLevel(t *testing.T) {
	testCases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for input, want := range testCases {
		assert.Equal(t, want, ParseLevel(input), input)
	}
}

func TestCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "")
	assert.NotEmpty(t, CorrelationIDFromContext(ctx))

	ctx = WithCorrelationID(context.Background(), "fixed")
	assert.Equal(t, "fixed", CorrelationIDFromContext(ctx))

	assert.Empty(t, CorrelationIDFromContext(context.Background()))
}

func TestMiddleware_PropagatesRequestID(t *testing.T) {
	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(correlationHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get(correlationHeader))
}

func TestInitSentry_Disabled(t *testing.T) {
	flush, err := InitSentry(config.SentryConfig{}, "test")
	require.NoError(t, err)
	require.NotNil(t, flush)
	flush(0)
}

func TestInitSentry_InvalidDSN(t *testing.T) {
	_, err := InitSentry(config.SentryConfig{Enabled: true, DSN: "not a dsn", SampleRate: 1}, "test")
	assert.Error(t, err)
}
