package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"accent", "Programación", "programacion"},
		{"mixed case", "PYTHON Básico", "python basico"},
		{"tilde n", "Diseño Gráfico", "diseno grafico"},
		{"edicion", "Edición de Vídeo", "edicion de video"},
		{"ascii symbols kept", "C# Básico", "c# basico"},
		{"digits kept", "Unity 2D", "unity 2d"},
		{"non latin dropped", "日本語 excel", " excel"},
		{"emoji dropped", "excel 🚀", "excel "},
		{"umlaut", "Über", "uber"},
		{"cedilla", "Façade", "facade"},
		{"empty", "", ""},
		{"already normalized", "excel basico", "excel basico"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Programación",
		"PYTHON Básico",
		"ÀÉÎÕÜ ñ ç",
		"Ελληνικά mixed",
		"  spaced   out  ",
		"c# / c++",
		"ﬁ ligature",
		"é", // e + combining acute
	}
	for _, s := range inputs {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "input %q", s)
	}
}

func TestTitleCase(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"diseno grafico":   "Diseno Grafico",
		"edicion de video": "Edicion De Video",
		"unity 2d":         "Unity 2D",
		"c# basico":        "C# Basico",
		"EXCEL basico":     "Excel Basico",
		"":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, TitleCase(in), "input %q", in)
	}
}

func TestCapitalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Programación", Capitalize("programación"))
	assert.Equal(t, "Diseño gráfico", Capitalize("DISEÑO GRÁFICO"))
	assert.Equal(t, "", Capitalize(""))
}
