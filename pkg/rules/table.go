package rules

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Table is the compiled, read-only rule table. It is safe for concurrent use.
type Table struct {
	definition Definition
	states     map[string]*state
}

type state struct {
	actions []Action
	byKey   map[string]int
	schemas map[string]*gojsonschema.Schema
}

// New validates def and compiles it into a Table.
func New(def Definition) (*Table, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	table := &Table{
		definition: cloneDefinition(def),
		states:     make(map[string]*state, len(def.States)),
	}

	for _, sd := range table.definition.States {
		st := &state{
			actions: sd.Actions,
			byKey:   make(map[string]int, len(sd.Actions)),
			schemas: make(map[string]*gojsonschema.Schema, len(sd.Actions)),
		}

		for i, action := range sd.Actions {
			st.byKey[action.Key] = i

			schema, err := compileSchema(action)
			if err != nil {
				return nil, fmt.Errorf("%w: state %q action %q: %w", ErrInvalidTable, sd.Name, action.Key, err)
			}

			st.schemas[action.Key] = schema
		}

		table.states[sd.Name] = st
	}

	return table, nil
}

// Initial returns the virtual state used before a record exists.
func (t *Table) Initial() string {
	return t.definition.Initial
}

// TitleField returns the name of the submission field holding the record title.
func (t *Table) TitleField() string {
	return t.definition.TitleField
}

// DefaultTitle returns the title given to records created without one.
func (t *Table) DefaultTitle() string {
	if t.definition.DefaultTitle == "" {
		return "Untitled"
	}

	return t.definition.DefaultTitle
}

// HasState reports whether name is a declared state.
func (t *Table) HasState(name string) bool {
	_, ok := t.states[name]

	return ok
}

// States returns the declared state names in declaration order.
func (t *Table) States() []string {
	names := make([]string, 0, len(t.definition.States))
	for _, sd := range t.definition.States {
		names = append(names, sd.Name)
	}

	return names
}

// Actions returns copies of the actions legal in stateName, in declaration order.
// The boolean is false when the state is not declared. A terminal state returns an empty slice.
func (t *Table) Actions(stateName string) ([]Action, bool) {
	st, ok := t.states[stateName]
	if !ok {
		return nil, false
	}

	actions := make([]Action, len(st.actions))
	for i, action := range st.actions {
		actions[i] = action.Clone()
	}

	return actions, true
}

// Action returns a copy of the action key in stateName.
func (t *Table) Action(stateName, key string) (Action, bool) {
	st, ok := t.states[stateName]
	if !ok {
		return Action{}, false
	}

	i, ok := st.byKey[key]
	if !ok {
		return Action{}, false
	}

	return st.actions[i].Clone(), true
}

// IsTerminal reports whether stateName has no outgoing actions.
func (t *Table) IsTerminal(stateName string) bool {
	st, ok := t.states[stateName]

	return ok && len(st.actions) == 0
}

// Definition returns a copy of the definition the table was built from.
func (t *Table) Definition() Definition {
	return cloneDefinition(t.definition)
}

func cloneDefinition(def Definition) Definition {
	states := make([]StateDefinition, len(def.States))

	for i, sd := range def.States {
		actions := make([]Action, len(sd.Actions))
		for j, action := range sd.Actions {
			actions[j] = action.Clone()
		}

		states[i] = StateDefinition{Name: sd.Name, Actions: actions}
	}

	def.States = states

	return def
}
