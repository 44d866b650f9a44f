package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/gradflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// FieldError describes one submission field that broke its declared rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field of a submission that failed validation.
type ValidationError struct {
	Action string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, field := range e.Fields {
		parts[i] = field.Field + ": " + field.Message
	}

	return fmt.Sprintf("submission for %s is invalid: %s", e.Action, strings.Join(parts, "; "))
}

// compileSchema turns the field specs of an action into a JSON schema over the
// submission object. Fields are optional and unknown fields are allowed.
func compileSchema(action Action) (*gojsonschema.Schema, error) {
	properties := make(map[string]any, len(action.SubmitData))

	for _, field := range action.SubmitData {
		property := map[string]any{}

		switch {
		case field.Type.IsString():
			property["type"] = "string"
			if len(field.StringLen) == 2 {
				property["minLength"] = field.StringLen[0]
				property["maxLength"] = field.StringLen[1]
			}
		case field.Type == FieldInt:
			property["type"] = "integer"
			if len(field.IntRange) == 2 {
				property["minimum"] = field.IntRange[0]
				property["maximum"] = field.IntRange[1]
			}
		}

		properties[field.Name] = property
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
}

// ValidateSubmission checks submission against the field rules of action key in stateName.
// It returns a *ValidationError when a submitted value breaks its rule.
func (t *Table) ValidateSubmission(stateName, key string, submission models.Submission) error {
	st, ok := t.states[stateName]
	if !ok {
		return fmt.Errorf("state %q is not declared", stateName)
	}

	i, ok := st.byKey[key]
	if !ok {
		return fmt.Errorf("action %q is not declared in state %q", key, stateName)
	}

	action := st.actions[i]
	document := normalizeSubmission(action, submission)

	result, err := st.schemas[key].Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return fmt.Errorf("failed to validate submission: %w", err)
	}

	if result.Valid() {
		return nil
	}

	fields := make([]FieldError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		fields = append(fields, FieldError{
			Field:   strings.TrimPrefix(desc.Field(), "(root)."),
			Message: desc.Description(),
		})
	}

	return &ValidationError{Action: key, Fields: fields}
}

// normalizeSubmission builds the object to validate. Integer fields sent as
// numeric strings are converted so clients posting form values are accepted.
func normalizeSubmission(action Action, submission models.Submission) map[string]any {
	document := submission.Object()

	for _, field := range action.SubmitData {
		if field.Type != FieldInt {
			continue
		}

		str, ok := document[field.Name].(string)
		if !ok {
			continue
		}

		if n, err := strconv.ParseInt(strings.TrimSpace(str), 10, 64); err == nil {
			document[field.Name] = n
		}
	}

	return document
}
