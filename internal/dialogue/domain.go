// Package dialogue turns a user message into replies: it interprets the
// text, tracks slots across turns, picks the next action from the model's
// rules and renders catalog answers or response templates.
package dialogue

import (
	"strings"

	"github.com/garyellow/tucurso-bot/internal/catalog"
	"github.com/garyellow/tucurso-bot/internal/storage"
)

// Response names the agent relies on.
const (
	ResponseDefault = "utter_default"
	ResponseRestart = "utter_restart"
)

// Action name prefixes.
const (
	PrefixResponse = "utter_"
	PrefixAction   = "action_"
)

// RestartCommand clears the conversation when sent as the whole message.
const RestartCommand = "/restart"

// ActionRestart is recorded as the last action after RestartCommand.
const ActionRestart = "action_restart"

// Template placeholders.
const (
	placeholderCategory   = "{categoria}"
	placeholderCourseName = "{nombre_curso}"
)

// Domain is the response and rule part of a model.
type Domain struct {
	// Responses maps utter_* names to template variants.
	Responses map[string][]string
	// Rules maps an intent to the action_* or utter_* to run.
	Rules map[string]string
}

// HasResponse reports whether name has at least one template.
func (d *Domain) HasResponse(name string) bool {
	return len(d.Responses[name]) > 0
}

// ActionFor returns the action bound to intent, or ResponseDefault.
func (d *Domain) ActionFor(intent string) string {
	if action, ok := d.Rules[intent]; ok && action != "" {
		return action
	}
	return ResponseDefault
}

// IsResponse reports whether action renders a template.
func IsResponse(action string) bool {
	return strings.HasPrefix(action, PrefixResponse)
}

// IsCatalogAction reports whether action resolves to a catalog operation.
func IsCatalogAction(action string) bool {
	_, ok := catalog.ParseOperation(action)
	return ok
}

// render fills the slot placeholders of tmpl.
func render(tmpl string, slots storage.Slots) string {
	if !strings.Contains(tmpl, "{") {
		return tmpl
	}
	return strings.NewReplacer(
		placeholderCategory, slots.Category,
		placeholderCourseName, slots.CourseName,
	).Replace(tmpl)
}

// signalSlots returns the values a signal template should see. The value the
// user actually typed wins over the stored slot.
func signalSlots(slots storage.Slots, resp catalog.Response) storage.Slots {
	if resp.Subject == "" {
		return slots
	}
	switch resp.Signal {
	case catalog.SignalNoCategoryFound:
		slots.Category = resp.Subject
	case catalog.SignalNoCourseFound:
		slots.CourseName = resp.Subject
	}
	return slots
}
