package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyellow/tucurso-bot/internal/catalog"
	"github.com/garyellow/tucurso-bot/internal/storage"
)

func TestSanitize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"  hola   mundo \n", 0, "hola mundo"},
		{"\t", 10, ""},
		{"programación", 8, "programa"},
		{"abc def", 4, "abc"},
		{"ñandú", 5, "ñandú"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in, tt.max), "Sanitize(%q, %d)", tt.in, tt.max)
	}
}

func TestDomain_ActionFor(t *testing.T) {
	t.Parallel()
	d := testDomain()
	assert.Equal(t, "utter_saludar", d.ActionFor("saludar"))
	assert.Equal(t, ResponseDefault, d.ActionFor("desconocido"))
	assert.True(t, IsResponse("utter_saludar"))
	assert.False(t, IsResponse(catalog.ActionGetPrice))
	assert.True(t, IsCatalogAction(catalog.ActionGetPrice))
	assert.False(t, IsCatalogAction("action_inexistente"))
}

func TestRender(t *testing.T) {
	t.Parallel()
	slots := storage.Slots{Category: "diseño", CourseName: "illustrator"}
	assert.Equal(t, "Curso illustrator en diseño", render("Curso {nombre_curso} en {categoria}", slots))
	assert.Equal(t, "sin marcas", render("sin marcas", slots))
	assert.Equal(t, "Curso ''", render("Curso '{nombre_curso}'", storage.Slots{}))

	resp := catalog.Response{Signal: catalog.SignalNoCourseFound, Subject: "Cocina"}
	assert.Equal(t, "Cocina", signalSlots(slots, resp).CourseName)
	assert.Equal(t, "diseño", signalSlots(slots, resp).Category)
}
