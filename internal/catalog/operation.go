package catalog

// Operation selects one of the catalog questions.
type Operation int

// Catalog operations. The zero value is invalid.
const (
	OpListCategories Operation = iota + 1
	OpListCourses
	OpGetPrice
	OpGetLink
	OpGetFullInfo
)

// Action names as referenced by dialogue rules.
const (
	ActionListCategories = "action_consultar_categorias"
	ActionListCourses    = "action_consultar_cursos_por_categoria"
	ActionGetPrice       = "action_consultar_precio_curso"
	ActionGetLink        = "action_consultar_link_curso"
	ActionGetFullInfo    = "action_consultar_info_curso"
)

var operationActions = map[Operation]string{
	OpListCategories: ActionListCategories,
	OpListCourses:    ActionListCourses,
	OpGetPrice:       ActionGetPrice,
	OpGetLink:        ActionGetLink,
	OpGetFullInfo:    ActionGetFullInfo,
}

var actionOperations = func() map[string]Operation {
	m := make(map[string]Operation, len(operationActions))
	for op, name := range operationActions {
		m[name] = op
	}
	return m
}()

// Operations returns all operations in declaration order.
func Operations() []Operation {
	return []Operation{OpListCategories, OpListCourses, OpGetPrice, OpGetLink, OpGetFullInfo}
}

// ActionName returns the dialogue action name bound to the operation.
func (op Operation) ActionName() string {
	return operationActions[op]
}

// String implements fmt.Stringer.
func (op Operation) String() string {
	switch op {
	case OpListCategories:
		return "list_categories"
	case OpListCourses:
		return "list_courses"
	case OpGetPrice:
		return "get_price"
	case OpGetLink:
		return "get_link"
	case OpGetFullInfo:
		return "get_full_info"
	default:
		return "unknown"
	}
}

// ParseOperation maps a dialogue action name to its operation.
func ParseOperation(action string) (Operation, bool) {
	op, ok := actionOperations[action]
	return op, ok
}

// Signal is a not-found or input-required outcome. Callers render signals
// through their own templates.
type Signal string

// Signals returned instead of text.
const (
	SignalNone            Signal = ""
	SignalNoCategoryFound Signal = "no_category_found"
	SignalNoCourseFound   Signal = "no_course_found"
	SignalAskCategoryName Signal = "ask_category_name"
	SignalAskCourseName   Signal = "ask_course_name"
)

// Signals returns the four catalog signals.
func Signals() []Signal {
	return []Signal{SignalNoCategoryFound, SignalNoCourseFound, SignalAskCategoryName, SignalAskCourseName}
}

// Template returns the response template name for the signal.
func (s Signal) Template() string {
	if s == SignalNone {
		return ""
	}
	return "utter_" + string(s)
}
