// Package model loads dialogue model bundles and keeps the active agent.
//
// A bundle carries everything the agent needs besides the catalog: training
// examples for the local classifier, entity synonyms, response templates
// and the intent → action rules. Bundles come from the binary, a local file
// or an R2 object and can be swapped at runtime without dropping requests.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/garyellow/tucurso-bot/internal/catalog"
	"github.com/garyellow/tucurso-bot/internal/dialogue"
	"github.com/garyellow/tucurso-bot/internal/nlu"
)

// Bundle is the on-disk model document.
type Bundle struct {
	Version           string              `json:"version" yaml:"version" validate:"required"`
	Language          string              `json:"language,omitempty" yaml:"language,omitempty" validate:"omitempty,oneof=es"`
	FallbackThreshold float64             `json:"fallback_threshold,omitempty" yaml:"fallback_threshold,omitempty" validate:"gte=0,lte=1"`
	Intents           map[string][]string `json:"intents" yaml:"intents" validate:"required,min=1,dive,keys,required,endkeys,min=1,dive,required"`
	Synonyms          map[string]string   `json:"synonyms,omitempty" yaml:"synonyms,omitempty" validate:"omitempty,dive,keys,required,endkeys,required"`
	Responses         map[string][]string `json:"responses" yaml:"responses" validate:"required,dive,keys,startswith=utter_,endkeys,min=1,dive,required"`
	Rules             map[string]string   `json:"rules" yaml:"rules" validate:"required,min=1,dive,keys,required,endkeys,required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseBundle decodes and validates a bundle. ext selects the decoder:
// ".json" uses encoding/json, anything else YAML.
func ParseBundle(data []byte, ext string) (*Bundle, error) {
	var b Bundle
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("decode bundle json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("decode bundle yaml: %w", err)
		}
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bundle: %w", err)
	}
	return &b, nil
}

// Validate checks field constraints and cross references between rules,
// intents and responses.
func (b *Bundle) Validate() error {
	var errs []error
	if err := validate.Struct(b); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("%s: failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	for _, intent := range sortedKeys(b.Rules) {
		action := b.Rules[intent]
		if _, ok := b.Intents[intent]; !ok && intent != nlu.IntentFallback {
			errs = append(errs, fmt.Errorf("rule %q: unknown intent", intent))
		}
		switch {
		case dialogue.IsResponse(action):
			if len(b.Responses[action]) == 0 {
				errs = append(errs, fmt.Errorf("rule %q: unknown response %q", intent, action))
			}
		case dialogue.IsCatalogAction(action):
		default:
			errs = append(errs, fmt.Errorf("rule %q: unknown action %q", intent, action))
		}
	}

	for _, s := range catalog.Signals() {
		if len(b.Responses[s.Template()]) == 0 {
			errs = append(errs, fmt.Errorf("missing response %q for signal %s", s.Template(), s))
		}
	}
	if len(b.Responses[dialogue.ResponseDefault]) == 0 {
		errs = append(errs, fmt.Errorf("missing response %q", dialogue.ResponseDefault))
	}

	return errors.Join(errs...)
}

// Threshold returns the fallback threshold, or the pipeline default when unset.
func (b *Bundle) Threshold() float64 {
	if b.FallbackThreshold <= 0 {
		return nlu.DefaultThreshold
	}
	return b.FallbackThreshold
}

// Domain returns the response and rule part of the bundle.
func (b *Bundle) Domain() *dialogue.Domain {
	responses := make(map[string][]string, len(b.Responses))
	for k, v := range b.Responses {
		responses[k] = slices.Clone(v)
	}
	rules := make(map[string]string, len(b.Rules))
	for k, v := range b.Rules {
		rules[k] = v
	}
	return &dialogue.Domain{Responses: responses, Rules: rules}
}

// Marshal encodes the bundle as YAML.
func (b *Bundle) Marshal() ([]byte, error) {
	return yaml.Marshal(b)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
