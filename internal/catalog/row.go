// Package catalog builds the read-only course lookup consulted by the intake form.
package catalog

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var rowValidator = validator.New(validator.WithRequiredStructEnabled())

// Row is a single record of the tabular catalog source.
type Row struct {
	Direction  string `validate:"required"`
	CourseType string `validate:"required"`
	CourseName string `validate:"required"`
	CourseLink string `validate:"required"`
}

// Trimmed returns a copy of the row with surrounding whitespace removed from every field.
func (r Row) Trimmed() Row {
	return Row{
		Direction:  strings.TrimSpace(r.Direction),
		CourseType: strings.TrimSpace(r.CourseType),
		CourseName: strings.TrimSpace(r.CourseName),
		CourseLink: strings.TrimSpace(r.CourseLink),
	}
}

// Validate reports missing fields. Call it on a trimmed row.
func (r Row) Validate() error {
	return rowValidator.Struct(r)
}

// CourseType is the enumerated course subcategory.
type CourseType string

const (
	CourseTypeFree CourseType = "free"
	CourseTypePaid CourseType = "paid"
)

const (
	DefaultFreeLabel = "Бесплатные"
	DefaultPaidLabel = "Платные"
)

// Labels maps the human-facing course type labels to the enum.
type Labels struct {
	Free string
	Paid string
}

// DefaultLabels returns the labels used by the course spreadsheet.
func DefaultLabels() Labels {
	return Labels{Free: DefaultFreeLabel, Paid: DefaultPaidLabel}
}

func (l Labels) orDefault() Labels {
	if l.Free == "" || l.Paid == "" {
		return DefaultLabels()
	}
	return l
}

// Parse resolves text to a course type using exact equality after trimming.
func (l Labels) Parse(text string) (CourseType, bool) {
	l = l.orDefault()
	switch strings.TrimSpace(text) {
	case l.Free:
		return CourseTypeFree, true
	case l.Paid:
		return CourseTypePaid, true
	default:
		return "", false
	}
}

// Label returns the human label of t, or an empty string for an unknown type.
func (l Labels) Label(t CourseType) string {
	l = l.orDefault()
	switch t {
	case CourseTypeFree:
		return l.Free
	case CourseTypePaid:
		return l.Paid
	default:
		return ""
	}
}

// All returns both labels, free first.
func (l Labels) All() []string {
	l = l.orDefault()
	return []string{l.Free, l.Paid}
}

// Course is an offered course.
type Course struct {
	Name string
	Link string
}
