package state

import (
	"fmt"
	"time"
)

// State represents a step of the intake form.
type State string

const (
	// StateAwaitingConsent waits for the personal data consent answer.
	StateAwaitingConsent State = "awaiting_consent"
	// StateAwaitingFio waits for the user's full name.
	StateAwaitingFio State = "awaiting_fio"
	// StateAwaitingPhone waits for the phone number.
	StateAwaitingPhone State = "awaiting_phone"
	// StateAwaitingDirection waits for a direction from the catalog.
	StateAwaitingDirection State = "awaiting_direction"
	// StateAwaitingCourseType waits for the free or paid label.
	StateAwaitingCourseType State = "awaiting_course_type"
	// StateAwaitingCourseSelection waits for a course name from the offered list.
	StateAwaitingCourseSelection State = "awaiting_course_selection"
	// StateTerminal ends the conversation. Sessions in this state are deleted.
	StateTerminal State = "terminal"
)

// All lists the states in form order.
func All() []State {
	return []State{
		StateAwaitingConsent,
		StateAwaitingFio,
		StateAwaitingPhone,
		StateAwaitingDirection,
		StateAwaitingCourseType,
		StateAwaitingCourseSelection,
		StateTerminal,
	}
}

// Session is the per-user progress through the form.
type Session struct {
	UserID     int64     `json:"user_id"`
	State      State     `json:"state"`
	FIO        string    `json:"fio,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Direction  string    `json:"direction,omitempty"`
	CourseType string    `json:"course_type,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewSession returns a fresh session at AwaitingConsent.
func NewSession(userID int64) Session {
	return Session{UserID: userID, State: StateAwaitingConsent}
}

// requiredFields is the number of leading fields (fio, phone, direction, course type)
// that must be set in each state.
var requiredFields = map[State]int{
	StateAwaitingConsent:         0,
	StateAwaitingFio:             0,
	StateAwaitingPhone:           1,
	StateAwaitingDirection:       2,
	StateAwaitingCourseType:      3,
	StateAwaitingCourseSelection: 4,
}

// Validate checks that fields are populated strictly in form order for the current state.
func (s Session) Validate() error {
	if s.State == StateTerminal {
		return nil
	}

	want, ok := requiredFields[s.State]
	if !ok {
		return fmt.Errorf("unknown state %q", s.State)
	}

	fields := []struct {
		name  string
		value string
	}{
		{"fio", s.FIO},
		{"phone", s.Phone},
		{"direction", s.Direction},
		{"course_type", s.CourseType},
	}

	for i, field := range fields {
		set := field.value != ""
		if i < want && !set {
			return fmt.Errorf("state %s requires %s", s.State, field.name)
		}
		if i >= want && set {
			return fmt.Errorf("state %s must not have %s set", s.State, field.name)
		}
	}

	return nil
}
