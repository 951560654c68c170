package state

import "sync/atomic"

// validTransitions lists the forward moves and re-prompt self loops of the form.
var validTransitions = map[State][]State{
	StateAwaitingConsent:         {StateAwaitingFio},
	StateAwaitingFio:             {StateAwaitingFio, StateAwaitingPhone},
	StateAwaitingPhone:           {StateAwaitingPhone, StateAwaitingDirection},
	StateAwaitingDirection:       {StateAwaitingDirection, StateAwaitingCourseType},
	StateAwaitingCourseType:      {StateAwaitingCourseType, StateAwaitingCourseSelection},
	StateAwaitingCourseSelection: {StateAwaitingCourseSelection},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
// Terminal is reachable from every state and the start command may reset any state
// to AwaitingConsent.
func IsTransitionAllowed(from, to State) bool {
	if to == StateTerminal || to == StateAwaitingConsent {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}

type recorderFunc func(from, to string)

var transitionRecorder atomic.Value

func init() {
	transitionRecorder.Store(recorderFunc(func(string, string) {}))
}

// RegisterTransitionRecorder allows external packages to observe state transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		recorder = func(string, string) {}
	}
	transitionRecorder.Store(recorderFunc(recorder))
}

// RecordTransition notifies the registered recorder about a completed transition.
func RecordTransition(from, to State) {
	transitionRecorder.Load().(recorderFunc)(string(from), string(to))
}
