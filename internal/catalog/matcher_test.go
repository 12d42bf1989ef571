package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	return NewMatcher(Default())
}

func TestListCategories(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	resp := m.ListCategories()

	assert.False(t, resp.IsSignal())
	assert.Equal(t,
		"Ofrecemos cursos en las siguientes categorías: Ofimatica, Programacion, Diseno Grafico, Edicion De Video, Videojuegos.",
		resp.Text)
}

func TestListCoursesByFragment(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	resp := m.ListCourses(Query{CourseName: "excel"})

	require.False(t, resp.IsSignal())
	assert.Equal(t,
		"Hemos encontrado los siguientes cursos relacionados con 'Excel': Excel Basico, Excel Intermedio, Excel Avanzado.",
		resp.Text)
}

func TestListCoursesFragmentAcrossCategories(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	// "basico" appears in three categories; order follows the catalog.
	resp := m.ListCourses(Query{CourseName: "Básico"})

	require.False(t, resp.IsSignal())
	assert.Contains(t, resp.Text,
		"Microsoft Word Basico, Excel Basico, Python Basico, C# Basico, Photoshop Basico, Godot Basico.")
}

func TestListCoursesFragmentTakesPriorityOverCategory(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	resp := m.ListCourses(Query{Category: "videojuegos", CourseName: "python"})

	require.False(t, resp.IsSignal())
	assert.Contains(t, resp.Text, "Python Basico, Python Intermedio, Python Avanzado")
	assert.NotContains(t, resp.Text, "Unity")
}

func TestListCoursesFragmentNotFound(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	resp := m.ListCourses(Query{CourseName: "cocina"})

	assert.Equal(t, SignalNoCourseFound, resp.Signal)
	assert.Equal(t, "cocina", resp.Subject)
	assert.Empty(t, resp.Text)
}

func TestListCoursesFragmentWithoutASCII(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	resp := m.ListCourses(Query{CourseName: "日本語"})

	assert.Equal(t, SignalNoCourseFound, resp.Signal)
}

func TestListCoursesByCategory(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	resp := m.ListCourses(Query{Category: "Diseño Gráfico"})

	require.False(t, resp.IsSignal())
	assert.Equal(t,
		"En la categoría de Diseño gráfico tenemos los siguientes cursos: Photoshop Basico, Illustrator.",
		resp.Text)
}

func TestListCoursesCategoryNotFound(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	resp := m.ListCourses(Query{Category: "categoria rara"})

	assert.Equal(t, SignalNoCategoryFound, resp.Signal)
	assert.Equal(t, "categoria rara", resp.Subject)
}

func TestListCoursesCategoryIsExactMatch(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	resp := m.ListCourses(Query{Category: "diseno"})

	assert.Equal(t, SignalNoCategoryFound, resp.Signal)
}

func TestListCoursesWithoutInput(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	assert.Equal(t, SignalAskCategoryName, m.ListCourses(Query{}).Signal)
	assert.Equal(t, SignalAskCategoryName, m.ListCourses(Query{Category: "   ", CourseName: "\t"}).Signal)
}

func TestGetPriceEveryCourse(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	for _, cat := range m.Catalog().Snapshot() {
		for _, course := range cat.Courses {
			for _, input := range []string{course.Name, strings.ToUpper(course.Name), TitleCase(course.Name)} {
				resp := m.GetPrice(Query{CourseName: input})
				require.False(t, resp.IsSignal(), "input %q", input)
				assert.True(t, strings.HasSuffix(resp.Text, "tiene un precio de "+course.Price+"."), resp.Text)
			}
		}
	}
}

func TestGetPriceDiacriticInsensitive(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	resp := m.GetPrice(Query{CourseName: "PYTHON Básico"})

	assert.Equal(t, "El curso de Python Basico tiene un precio de $100.", resp.Text)
}

func TestGetPriceIsExactMatch(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	// A listing query for "excel" matches three courses, a price query does not.
	resp := m.GetPrice(Query{CourseName: "excel"})

	assert.Equal(t, SignalNoCourseFound, resp.Signal)
	assert.Equal(t, "excel", resp.Subject)
}

func TestGetPriceSignals(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	assert.Equal(t, SignalNoCourseFound, m.GetPrice(Query{CourseName: "curso inexistente"}).Signal)
	assert.Equal(t, SignalAskCourseName, m.GetPrice(Query{}).Signal)
	assert.Equal(t, SignalAskCourseName, m.GetPrice(Query{Category: "programacion"}).Signal)
}

func TestGetLink(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	resp := m.GetLink(Query{CourseName: "after effects"})

	assert.Equal(t,
		"Puedes encontrar más información sobre el curso de After Effects en este enlace: https://tucurso.com/after-effects",
		resp.Text)
	assert.Equal(t, SignalAskCourseName, m.GetLink(Query{}).Signal)
	assert.Equal(t, SignalNoCourseFound, m.GetLink(Query{CourseName: "after"}).Signal)
}

func TestGetFullInfo(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	resp := m.GetFullInfo(Query{CourseName: "unity 2d"})

	require.False(t, resp.IsSignal())
	assert.Contains(t, resp.Text, "$90")
	assert.Contains(t, resp.Text, "https://tucurso.com/unity2d")
	assert.Equal(t,
		"El curso de Unity 2D tiene un precio de $90 y puedes encontrar más detalles aquí: https://tucurso.com/unity2d",
		resp.Text)
}

func TestFirstMatchInCatalogOrderWins(t *testing.T) {
	t.Parallel()

	c, err := New([]Category{
		{Name: "a", Courses: []Course{{Name: "shared", Price: "$1", Link: "https://example.com/a"}}},
		{Name: "b", Courses: []Course{{Name: "shared", Price: "$2", Link: "https://example.com/b"}}},
	})
	require.NoError(t, err)
	m := NewMatcher(c)

	assert.Equal(t, "El curso de Shared tiene un precio de $1.", m.GetPrice(Query{CourseName: "shared"}).Text)
	assert.Equal(t, []string{"shared"}, c.Duplicates())
}

func TestExecuteDispatch(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	tests := []struct {
		op     Operation
		query  Query
		signal Signal
		text   string
	}{
		{OpListCategories, Query{}, SignalNone, "Ofrecemos cursos"},
		{OpListCourses, Query{}, SignalAskCategoryName, ""},
		{OpListCourses, Query{Category: "videojuegos"}, SignalNone, "Unity 2D, Unity 3D"},
		{OpGetPrice, Query{CourseName: "illustrator"}, SignalNone, "$95"},
		{OpGetLink, Query{CourseName: "adobe premiere"}, SignalNone, "https://tucurso.com/premier"},
		{OpGetFullInfo, Query{}, SignalAskCourseName, ""},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			resp, err := m.Execute(tt.op, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.signal, resp.Signal)
			if tt.text != "" {
				assert.Contains(t, resp.Text, tt.text)
			}
		})
	}

	_, err := m.Execute(Operation(0), Query{})
	require.ErrorIs(t, err, ErrUnknownOperation)
}

func TestMatcherIsPure(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t)

	q := Query{CourseName: "python"}
	first := m.ListCourses(q)
	second := m.ListCourses(q)

	assert.Equal(t, first, second)
	assert.Equal(t, 21, m.Catalog().Len())
}
