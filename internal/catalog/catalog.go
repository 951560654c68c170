package catalog

// Catalog is an immutable direction -> course type -> courses lookup.
// The zero value is not usable; build one with Build or Empty.
type Catalog struct {
	directions []string
	entries    map[string]*directionEntry
	size       int
}

type directionEntry struct {
	types   []CourseType
	courses map[CourseType][]Course
}

// Empty returns a catalog without directions.
func Empty() *Catalog {
	return &Catalog{entries: make(map[string]*directionEntry)}
}

// Directions returns direction names in first-seen order.
func (c *Catalog) Directions() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.directions))
	copy(out, c.directions)
	return out
}

// HasDirection reports whether direction is a catalog key.
func (c *Catalog) HasDirection(direction string) bool {
	if c == nil {
		return false
	}
	_, ok := c.entries[direction]
	return ok
}

// CourseTypes returns the course types present under direction in first-seen order.
func (c *Catalog) CourseTypes(direction string) []CourseType {
	if c == nil {
		return nil
	}
	entry, ok := c.entries[direction]
	if !ok {
		return nil
	}
	out := make([]CourseType, len(entry.types))
	copy(out, entry.types)
	return out
}

// Courses returns the courses for the pair in row order. The slice is a copy.
func (c *Catalog) Courses(direction string, courseType CourseType) []Course {
	if c == nil {
		return nil
	}
	entry, ok := c.entries[direction]
	if !ok {
		return nil
	}
	list := entry.courses[courseType]
	if len(list) == 0 {
		return nil
	}
	out := make([]Course, len(list))
	copy(out, list)
	return out
}

// Len returns the total number of courses.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return c.size
}

func (c *Catalog) add(direction string, courseType CourseType, course Course) {
	entry, ok := c.entries[direction]
	if !ok {
		entry = &directionEntry{courses: make(map[CourseType][]Course)}
		c.entries[direction] = entry
		c.directions = append(c.directions, direction)
	}
	if _, ok := entry.courses[courseType]; !ok {
		entry.types = append(entry.types, courseType)
	}
	entry.courses[courseType] = append(entry.courses[courseType], course)
	c.size++
}
