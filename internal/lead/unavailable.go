package lead

import (
	"context"
	"fmt"
)

type unavailableSink struct {
	name  string
	cause error
}

// Unavailable returns a sink that could not be connected. Every append fails with cause
// so the recorder reports it like any other write failure.
func Unavailable(name string, cause error) Sink {
	return unavailableSink{name: name, cause: cause}
}

func (s unavailableSink) Append(context.Context, Lead) error {
	return fmt.Errorf("%s sink unavailable: %w", s.name, s.cause)
}

func (s unavailableSink) Name() string {
	return s.name
}
