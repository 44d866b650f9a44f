package models

// SubmitField is one named value of a submission, in the order the client sent it.
type SubmitField struct {
	Name  string `json:"name"  validate:"required"`
	Value any    `json:"value"`
}

// Submission is the ordered list of fields submitted with an action.
type Submission []SubmitField

// Lookup returns the value of the first field called name.
func (s Submission) Lookup(name string) (any, bool) {
	for _, field := range s {
		if field.Name == name {
			return field.Value, true
		}
	}

	return nil, false
}

// LookupString returns the first field called name when its value is a string.
func (s Submission) LookupString(name string) (string, bool) {
	value, ok := s.Lookup(name)
	if !ok {
		return "", false
	}

	str, ok := value.(string)

	return str, ok
}

// Object flattens the submission into a name to value map. The first occurrence of a name wins.
func (s Submission) Object() map[string]any {
	object := make(map[string]any, len(s))

	for _, field := range s {
		if _, exists := object[field.Name]; exists {
			continue
		}

		object[field.Name] = field.Value
	}

	return object
}
