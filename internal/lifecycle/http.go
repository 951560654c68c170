package lifecycle

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/course-intake-bot/internal/health"
	"github.com/Proton-105/course-intake-bot/internal/middleware"
	"github.com/Proton-105/course-intake-bot/pkg/logger"
)

// NewHTTPHandler serves the probes and the Prometheus metrics.
//
//	/livez    liveness
//	/readyz   readiness
//	/healthz  detailed dependency report
//	/metrics  Prometheus exposition
func NewHTTPHandler(probes *Probes, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		writeProbe(w, probes.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeProbe(w, probes.Readiness(r.Context()))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		report := probes.Report(r.Context())

		status := http.StatusOK
		if report.Status == health.StatusDown {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(report); err != nil {
			log.Warn("failed to encode health report", slog.Any("error", err))
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	return logger.Middleware(middleware.HTTPLogging(log)(mux))
}

func writeProbe(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(err.Error()))
		return
	}
	_, _ = w.Write([]byte("ok"))
}
