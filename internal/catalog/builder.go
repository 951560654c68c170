package catalog

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/Proton-105/course-intake-bot/internal/errors"
)

// Source returns catalog rows in source order.
type Source interface {
	Rows(ctx context.Context) ([]Row, error)
}

// Build groups rows by direction and course type preserving row order.
// Rows with an empty field after trimming or an unknown course type are skipped.
func Build(rows []Row, labels Labels, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}

	cat := Empty()
	skipped := 0

	for i, raw := range rows {
		row := raw.Trimmed()
		if err := row.Validate(); err != nil {
			skipped++
			log.Warn("catalog row skipped", slog.Int("row", i), slog.String("reason", "missing field"), slog.Any("error", err))
			continue
		}

		courseType, ok := labels.Parse(row.CourseType)
		if !ok {
			skipped++
			log.Warn("catalog row skipped", slog.Int("row", i), slog.String("reason", "unknown course type"), slog.String("course_type", row.CourseType))
			continue
		}

		cat.add(row.Direction, courseType, Course{Name: row.CourseName, Link: row.CourseLink})
	}

	log.Info("catalog built",
		slog.Int("directions", len(cat.directions)),
		slog.Int("courses", cat.size),
		slog.Int("skipped", skipped),
	)

	return cat
}

// Load reads src and builds the catalog. When the source fails it returns an empty
// catalog together with a catalog unavailable error; the caller decides how to report it.
func Load(ctx context.Context, src Source, labels Labels, log *slog.Logger) (*Catalog, error) {
	if src == nil {
		return Empty(), apperrors.NewCatalogUnavailableError(fmt.Errorf("catalog source is not configured"))
	}

	rows, err := src.Rows(ctx)
	if err != nil {
		return Empty(), apperrors.NewCatalogUnavailableError(fmt.Errorf("read catalog rows: %w", err))
	}

	return Build(rows, labels, log), nil
}
