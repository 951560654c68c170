package lead

import (
	"context"
	"database/sql"

	apperrors "github.com/Proton-105/course-intake-bot/internal/errors"
)

const insertLeadQuery = `INSERT INTO leads (fio, phone, direction) VALUES ($1, $2, $3)`

// PostgresSink appends leads to the leads table.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink wraps an open database handle.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Name() string {
	return "postgres"
}

// Append inserts l as a new row.
func (s *PostgresSink) Append(ctx context.Context, l Lead) error {
	if _, err := s.db.ExecContext(ctx, insertLeadQuery, l.FIO, l.Phone, l.Direction); err != nil {
		return apperrors.NewDatabaseError(err)
	}
	return nil
}
