package form

import (
	"context"

	"github.com/Proton-105/course-intake-bot/internal/catalog"
	"github.com/Proton-105/course-intake-bot/internal/state"
)

func (f *Flow) consent(_ context.Context, s state.Session, input string) (state.Session, Reply) {
	if input != f.consentToken() {
		return terminal(s), final(f.text("form.consent_refused"))
	}

	s.State = state.StateAwaitingFio
	return s, final(f.text("form.fio_prompt"))
}

func (f *Flow) fio(_ context.Context, s state.Session, input string) (state.Session, Reply) {
	if input == "" {
		return s, Reply{Text: f.text("form.fio_empty")}
	}

	s.FIO = input
	s.State = state.StateAwaitingPhone
	return s, final(f.text("form.phone_prompt"))
}

func (f *Flow) phone(_ context.Context, s state.Session, input string) (state.Session, Reply) {
	if input == "" {
		return s, Reply{Text: f.text("form.phone_empty")}
	}

	s.Phone = input
	s.State = state.StateAwaitingDirection
	return s, prompt(f.text("form.direction_prompt"), f.catalog.Directions()...)
}

func (f *Flow) direction(_ context.Context, s state.Session, input string) (state.Session, Reply) {
	if !f.catalog.HasDirection(input) {
		return s, prompt(f.text("form.direction_invalid"), f.catalog.Directions()...)
	}

	s.Direction = input
	s.State = state.StateAwaitingCourseType
	return s, prompt(f.text("form.course_type_prompt"), f.courseTypeOptions(input)...)
}

func (f *Flow) courseType(_ context.Context, s state.Session, input string) (state.Session, Reply) {
	courseType, ok := f.opts.Labels.Parse(input)
	if !ok {
		text := f.format("form.course_type_invalid", map[string]string{
			"Free": f.opts.Labels.Label(catalog.CourseTypeFree),
			"Paid": f.opts.Labels.Label(catalog.CourseTypePaid),
		})
		return s, prompt(text, f.courseTypeOptions(s.Direction)...)
	}

	courses := f.offered(s.Direction, courseType)
	if len(courses) == 0 {
		return terminal(s), final(f.text("form.courses_not_found"))
	}

	s.CourseType = string(courseType)
	s.State = state.StateAwaitingCourseSelection
	return s, prompt(f.text("form.course_prompt"), courseNames(courses)...)
}

func (f *Flow) courseSelection(_ context.Context, s state.Session, input string) (state.Session, Reply) {
	courses := f.offered(s.Direction, catalog.CourseType(s.CourseType))

	for _, course := range courses {
		if course.Name == input {
			text := f.format("form.course_selected", map[string]string{
				"Name": course.Name,
				"Link": course.Link,
			})
			return terminal(s), final(text)
		}
	}

	return s, prompt(f.text("form.course_invalid"), courseNames(courses)...)
}

// offered returns at most MaxCourseOptions courses in catalog order.
func (f *Flow) offered(direction string, courseType catalog.CourseType) []catalog.Course {
	courses := f.catalog.Courses(direction, courseType)
	if len(courses) > f.opts.MaxCourseOptions {
		courses = courses[:f.opts.MaxCourseOptions]
	}
	return courses
}

func (f *Flow) courseTypeOptions(direction string) []string {
	types := f.catalog.CourseTypes(direction)
	options := make([]string, 0, len(types))
	for _, t := range types {
		options = append(options, f.opts.Labels.Label(t))
	}
	return options
}

func courseNames(courses []catalog.Course) []string {
	names := make([]string, len(courses))
	for i, course := range courses {
		names[i] = course.Name
	}
	return names
}

// capturesLead reports whether a transition commits the direction selection,
// the point where the lead is complete.
func capturesLead(from, to state.State) bool {
	return from == state.StateAwaitingDirection && to == state.StateAwaitingCourseType
}

func terminal(s state.Session) state.Session {
	return state.Session{UserID: s.UserID, State: state.StateTerminal}
}
