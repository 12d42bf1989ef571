package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownOperation is returned by Execute for operations without a handler.
var ErrUnknownOperation = errors.New("catalog: unknown operation")

// Query carries the slot values for one catalog question. Empty or
// whitespace-only fields count as absent.
type Query struct {
	Category   string
	CourseName string
}

// Response is either a formatted Text or a Signal. Subject holds the
// user-supplied value a signal refers to, if any.
type Response struct {
	Text    string
	Signal  Signal
	Subject string
}

// IsSignal reports whether the response carries a signal instead of text.
func (r Response) IsSignal() bool {
	return r.Signal != SignalNone
}

type handlerFunc func(Query) Response

// Matcher answers catalog questions. It never mutates the catalog and is
// safe for concurrent use.
type Matcher struct {
	catalog  *Catalog
	handlers map[Operation]handlerFunc
}

// NewMatcher binds a matcher to c.
func NewMatcher(c *Catalog) *Matcher {
	m := &Matcher{catalog: c}
	m.handlers = map[Operation]handlerFunc{
		OpListCategories: func(Query) Response { return m.ListCategories() },
		OpListCourses:    m.ListCourses,
		OpGetPrice:       m.GetPrice,
		OpGetLink:        m.GetLink,
		OpGetFullInfo:    m.GetFullInfo,
	}
	return m
}

// Catalog returns the underlying catalog.
func (m *Matcher) Catalog() *Catalog {
	return m.catalog
}

// Execute dispatches q to the handler bound to op.
func (m *Matcher) Execute(op Operation, q Query) (Response, error) {
	h, ok := m.handlers[op]
	if !ok {
		return Response{}, fmt.Errorf("%w: %d", ErrUnknownOperation, int(op))
	}
	return h(q), nil
}

// ListCategories lists every category, title-cased, in definition order.
func (m *Matcher) ListCategories() Response {
	keys := m.catalog.Categories()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = TitleCase(k)
	}
	return Response{
		Text: fmt.Sprintf("Ofrecemos cursos en las siguientes categorías: %s.", strings.Join(names, ", ")),
	}
}

// ListCourses searches by course-name fragment when one is given, otherwise
// lists the courses of the given category.
func (m *Matcher) ListCourses(q Query) Response {
	if fragment := strings.TrimSpace(q.CourseName); fragment != "" {
		var found []string
		if key := Normalize(fragment); key != "" {
			found = m.catalog.Search(key)
		}
		if len(found) == 0 {
			return Response{Signal: SignalNoCourseFound, Subject: fragment}
		}
		return Response{
			Text: fmt.Sprintf("Hemos encontrado los siguientes cursos relacionados con '%s': %s.",
				TitleCase(fragment), joinTitled(found)),
		}
	}

	category := strings.TrimSpace(q.Category)
	if category == "" {
		return Response{Signal: SignalAskCategoryName}
	}
	courses, ok := m.catalog.Courses(Normalize(category))
	if !ok {
		return Response{Signal: SignalNoCategoryFound, Subject: category}
	}
	names := make([]string, len(courses))
	for i, c := range courses {
		names[i] = c.Name
	}
	return Response{
		Text: fmt.Sprintf("En la categoría de %s tenemos los siguientes cursos: %s.",
			Capitalize(category), joinTitled(names)),
	}
}

// GetPrice answers with the price of an exactly named course.
func (m *Matcher) GetPrice(q Query) Response {
	return m.withCourse(q, func(name string, c Course) string {
		return fmt.Sprintf("El curso de %s tiene un precio de %s.", name, c.Price)
	})
}

// GetLink answers with the link of an exactly named course.
func (m *Matcher) GetLink(q Query) Response {
	return m.withCourse(q, func(name string, c Course) string {
		return fmt.Sprintf("Puedes encontrar más información sobre el curso de %s en este enlace: %s", name, c.Link)
	})
}

// GetFullInfo answers with both price and link of an exactly named course.
func (m *Matcher) GetFullInfo(q Query) Response {
	return m.withCourse(q, func(name string, c Course) string {
		return fmt.Sprintf("El curso de %s tiene un precio de %s y puedes encontrar más detalles aquí: %s",
			name, c.Price, c.Link)
	})
}

// withCourse resolves q.CourseName by exact key and formats the hit.
func (m *Matcher) withCourse(q Query, format func(name string, c Course) string) Response {
	name := strings.TrimSpace(q.CourseName)
	if name == "" {
		return Response{Signal: SignalAskCourseName}
	}
	course, _, ok := m.catalog.Lookup(Normalize(name))
	if !ok {
		return Response{Signal: SignalNoCourseFound, Subject: name}
	}
	return Response{Text: format(TitleCase(name), course)}
}

func joinTitled(keys []string) string {
	titled := make([]string, len(keys))
	for i, k := range keys {
		titled[i] = TitleCase(k)
	}
	return strings.Join(titled, ", ")
}
