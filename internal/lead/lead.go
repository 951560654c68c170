// Package lead records the contact captured by the intake form into a durable sink.
package lead

import (
	"context"
	"strings"
)

// Lead is a captured contact together with the chosen direction.
type Lead struct {
	FIO       string `json:"fio"`
	Phone     string `json:"phone"`
	Direction string `json:"direction"`
}

// Valid reports whether every field is set.
func (l Lead) Valid() bool {
	return strings.TrimSpace(l.FIO) != "" &&
		strings.TrimSpace(l.Phone) != "" &&
		strings.TrimSpace(l.Direction) != ""
}

// Sink appends leads to an append-only store.
type Sink interface {
	Append(ctx context.Context, l Lead) error
	Name() string
}
