// Package rules provides the workflow rule table: states, the actions legal in each
// state, who may run them, the fields they submit and the state they lead to.
package rules

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dukex/gradflow/pkg/models"
)

// ErrInvalidTable is returned when a rule definition is not self-consistent.
var ErrInvalidTable = errors.New("invalid rule table")

// FieldType is the declared input type of a submission field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldRichText FieldType = "richtext"
	FieldTextArea FieldType = "textarea"
	FieldInt      FieldType = "int"
)

// IsString reports whether values of the type are strings.
func (t FieldType) IsString() bool {
	return t == FieldText || t == FieldRichText || t == FieldTextArea
}

// FieldSpec declares one field an action expects in its submission.
type FieldSpec struct {
	Name      string    `json:"name"                       yaml:"name"`
	Type      FieldType `json:"type"                       yaml:"type"`
	StringLen []int     `json:"check_string_len,omitempty" yaml:"check_string_len,omitempty"`
	IntRange  []int     `json:"check_int_range,omitempty"  yaml:"check_int_range,omitempty"`

	// Value pre-populates the field when actions are offered to a client.
	Value any `json:"value,omitempty" yaml:"-"`
}

func (f FieldSpec) clone() FieldSpec {
	f.StringLen = slices.Clone(f.StringLen)
	f.IntRange = slices.Clone(f.IntRange)

	return f
}

// Action is a transition available from a state.
type Action struct {
	Key        string            `json:"key"                   yaml:"key"`
	Name       string            `json:"name"                  yaml:"name"`
	WhoCan     models.Permission `json:"whocan"                yaml:"whocan"`
	Next       string            `json:"next"                  yaml:"next"`
	EditsTitle bool              `json:"edits_title,omitempty" yaml:"edits_title,omitempty"`
	SubmitData []FieldSpec       `json:"submitdata"            yaml:"submitdata"`
}

// Clone returns a deep copy of the action.
func (a Action) Clone() Action {
	fields := make([]FieldSpec, len(a.SubmitData))
	for i, field := range a.SubmitData {
		fields[i] = field.clone()
	}

	a.SubmitData = fields

	return a
}

// StateDefinition lists the actions of one state in declaration order.
type StateDefinition struct {
	Name    string   `json:"name"    yaml:"name"`
	Actions []Action `json:"actions" yaml:"actions"`
}

// Definition is the serialized form of a rule table.
type Definition struct {
	Initial      string            `json:"initial"       yaml:"initial"`
	TitleField   string            `json:"title_field"   yaml:"title_field"`
	DefaultTitle string            `json:"default_title" yaml:"default_title"`
	States       []StateDefinition `json:"states"        yaml:"states"`
}

// Validate ensures the definition is self-consistent. Every problem found is reported.
func (def Definition) Validate() error {
	var problems []error

	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if def.Initial == "" {
		fail("initial state is required")
	}

	if def.TitleField == "" {
		fail("title_field is required")
	}

	states := make(map[string]struct{}, len(def.States))

	for _, state := range def.States {
		if state.Name == "" {
			fail("state without name")

			continue
		}

		if _, exists := states[state.Name]; exists {
			fail("duplicate state %q", state.Name)
		}

		states[state.Name] = struct{}{}
	}

	if _, ok := states[def.Initial]; def.Initial != "" && !ok {
		fail("initial state %q is not declared", def.Initial)
	}

	for _, state := range def.States {
		keys := make(map[string]struct{}, len(state.Actions))

		for _, action := range state.Actions {
			where := fmt.Sprintf("state %q action %q", state.Name, action.Key)

			if action.Key == "" {
				fail("state %q: action without key", state.Name)

				continue
			}

			if _, exists := keys[action.Key]; exists {
				fail("%s: duplicate key", where)
			}

			keys[action.Key] = struct{}{}

			if action.Name == "" {
				fail("%s: name is required", where)
			}

			if action.WhoCan == models.PermissionUnknown {
				fail("%s: whocan is required", where)
			}

			if _, ok := states[action.Next]; !ok {
				fail("%s: next state %q is not declared", where, action.Next)
			}

			if action.Next == def.Initial {
				fail("%s: cannot lead back to the initial state", where)
			}

			for _, field := range action.SubmitData {
				if err := field.validate(); err != nil {
					fail("%s: %w", where, err)
				}
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTable, errors.Join(problems...))
	}

	return nil
}

func (f FieldSpec) validate() error {
	if f.Name == "" {
		return errors.New("field without name")
	}

	switch f.Type {
	case FieldText, FieldRichText, FieldTextArea:
		if f.IntRange != nil {
			return fmt.Errorf("field %q: check_int_range on %s field", f.Name, f.Type)
		}

		return checkBounds(f.Name, "check_string_len", f.StringLen, 0)
	case FieldInt:
		if f.StringLen != nil {
			return fmt.Errorf("field %q: check_string_len on int field", f.Name)
		}

		return checkBounds(f.Name, "check_int_range", f.IntRange, -1<<31)
	default:
		return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
	}
}

func checkBounds(field, rule string, bounds []int, floor int) error {
	if bounds == nil {
		return nil
	}

	if len(bounds) != 2 {
		return fmt.Errorf("field %q: %s needs [min, max]", field, rule)
	}

	if bounds[0] < floor || bounds[0] > bounds[1] {
		return fmt.Errorf("field %q: %s [%d, %d] is not a valid range", field, rule, bounds[0], bounds[1])
	}

	return nil
}
