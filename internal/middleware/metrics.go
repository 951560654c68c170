package middleware

import (
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/course-intake-bot/internal/bot/handlers"
	"github.com/Proton-105/course-intake-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordUpdate(commandLabel(c), status, time.Since(start))

		return err
	}
}

// commandLabel names commands and folds free text into "text". Message bodies
// carry personal data and must never become label values.
func commandLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	text := c.Text()
	if text == "" {
		return "unknown"
	}

	if strings.HasPrefix(text, "/") {
		name, _, _ := strings.Cut(strings.Fields(text)[0], "@")
		return name
	}

	return "text"
}
