// This file contains the function declarations offered to the model.
//
// functions.go says WHAT each function means; prompts.go says WHEN to pick it.
//
// Declarations use genai.Type* constants (genai.TypeString = "STRING").
// buildOpenAITools lowercases them for JSON Schema.
package genai

import (
	"google.golang.org/genai"

	"github.com/garyellow/tucurso-bot/internal/nlu"
)

// Function argument names. They match the dialogue slot names.
const (
	ParamCategory   = "categoria"
	ParamCourseName = "nombre_curso"
)

// Function names, one per dialogue intent.
const (
	FuncListCategories = "consultar_categorias"
	FuncListCourses    = "consultar_cursos"
	FuncGetPrice       = "consultar_precio"
	FuncGetLink        = "consultar_link"
	FuncGetInfo        = "consultar_info"
	FuncGreet          = "saludar"
	FuncGoodbye        = "despedir"
	FuncThank          = "agradecer"
	FuncOutOfScope     = "fuera_de_alcance"
)

var categoryParam = &genai.Schema{
	Type:        genai.TypeString,
	Description: "Categoría del catálogo tal como la escribió el usuario. Ejemplos: \"programación\", \"diseño gráfico\", \"videojuegos\".",
}

var courseParam = &genai.Schema{
	Type:        genai.TypeString,
	Description: "Nombre o parte del nombre del curso tal como lo escribió el usuario. Ejemplos: \"excel básico\", \"python\", \"unity 2d\".",
}

func noParams() *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
}

// BuildIntentFunctions returns the function declarations for intent parsing.
// Arguments are optional: the dialogue asks for anything missing.
func BuildIntentFunctions() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        FuncListCategories,
			Description: "Lista las categorías de cursos disponibles.",
			Parameters:  noParams(),
		},
		{
			Name:        FuncListCourses,
			Description: "Lista los cursos de una categoría, o los cursos cuyo nombre contiene un término.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					ParamCategory:   categoryParam,
					ParamCourseName: courseParam,
				},
			},
		},
		{
			Name:        FuncGetPrice,
			Description: "Consulta el precio de un curso.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{ParamCourseName: courseParam},
			},
		},
		{
			Name:        FuncGetLink,
			Description: "Consulta el enlace de inscripción o más información de un curso.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{ParamCourseName: courseParam},
			},
		},
		{
			Name:        FuncGetInfo,
			Description: "Consulta toda la información de un curso: precio y enlace.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{ParamCourseName: courseParam},
			},
		},
		{
			Name:        FuncGreet,
			Description: "El usuario saluda.",
			Parameters:  noParams(),
		},
		{
			Name:        FuncGoodbye,
			Description: "El usuario se despide.",
			Parameters:  noParams(),
		},
		{
			Name:        FuncThank,
			Description: "El usuario agradece.",
			Parameters:  noParams(),
		},
		{
			Name:        FuncOutOfScope,
			Description: "El mensaje no trata sobre el catálogo de cursos ni es un saludo, despedida o agradecimiento.",
			Parameters:  noParams(),
		},
	}
}

// FunctionIntentMap maps function names to dialogue intents.
var FunctionIntentMap = map[string]string{
	FuncListCategories: "consultar_categorias",
	FuncListCourses:    "consultar_cursos",
	FuncGetPrice:       "consultar_precio",
	FuncGetLink:        "consultar_link",
	FuncGetInfo:        "consultar_info",
	FuncGreet:          "saludar",
	FuncGoodbye:        "despedir",
	FuncThank:          "agradecer",
	FuncOutOfScope:     nlu.IntentFallback,
}

// ParamKeysMap lists the arguments each function accepts.
// Functions without arguments are absent.
var ParamKeysMap = map[string][]string{
	FuncListCourses: {ParamCategory, ParamCourseName},
	FuncGetPrice:    {ParamCourseName},
	FuncGetLink:     {ParamCourseName},
	FuncGetInfo:     {ParamCourseName},
}

// newParseResult validates a function call and keeps the known string
// arguments. Unknown or non-string arguments are errors; empty strings are
// dropped.
func newParseResult(funcName string, args map[string]any) (*ParseResult, error) {
	intent, ok := FunctionIntentMap[funcName]
	if !ok {
		return nil, &unknownFunctionError{name: funcName}
	}
	params := make(map[string]string)
	for _, key := range ParamKeysMap[funcName] {
		value, exists := args[key]
		if !exists || value == nil {
			continue
		}
		s, ok := value.(string)
		if !ok {
			return nil, &paramTypeError{function: funcName, param: key, value: value}
		}
		if s != "" {
			params[key] = s
		}
	}
	return &ParseResult{Intent: intent, Params: params, FunctionName: funcName}, nil
}
