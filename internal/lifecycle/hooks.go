package lifecycle

import "context"

// Shutdown phases run in ascending order; hooks within a phase run concurrently.
const (
	// PhaseIngress stops accepting updates and HTTP traffic.
	PhaseIngress = iota
	// PhaseWorkers drains background work such as the lead queue.
	PhaseWorkers
	// PhaseStorage closes connections to external stores.
	PhaseStorage
)

// Hook describes a named shutdown hook.
type Hook struct {
	Name  string
	Phase int
	Fn    func(ctx context.Context) error
}
