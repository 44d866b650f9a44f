package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/gradflow/pkg/models"
	"github.com/gofiber/fiber/v3"
)

// params reads request parameters from the query string of a GET or the JSON
// object body of a POST. JSON strings, numbers and booleans are all accepted.
type params struct {
	query func(key string, defaultValue ...string) string
	body  map[string]json.RawMessage
}

func readParams(c fiber.Ctx) (*params, error) {
	if c.Method() != fiber.MethodPost {
		return &params{query: c.Query}, nil
	}

	p := &params{body: map[string]json.RawMessage{}}

	if len(bytes.TrimSpace(c.Body())) == 0 {
		return p, nil
	}

	if err := json.Unmarshal(c.Body(), &p.body); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	return p, nil
}

// raw returns the parameter text and whether it was sent at all.
func (p *params) raw(name string) (string, bool) {
	if p.query != nil {
		value := p.query(name)

		return value, value != ""
	}

	value, ok := p.body[name]
	if !ok || string(value) == "null" {
		return "", false
	}

	if len(value) > 0 && value[0] == '"' {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			return s, true
		}
	}

	return string(value), true
}

func (p *params) String(name string) string {
	value, _ := p.raw(name)

	return value
}

func (p *params) Int(name string, defaultValue int64) (int64, error) {
	value, ok := p.raw(name)
	if !ok || strings.TrimSpace(value) == "" {
		return defaultValue, nil
	}

	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}

	return n, nil
}

// Bool is true only for a JSON true or the string "true" in any case.
func (p *params) Bool(name string) bool {
	value, _ := p.raw(name)

	return strings.EqualFold(strings.TrimSpace(value), "true")
}

// Submission decodes a list of {name, value} pairs. In a query string the list is JSON encoded.
func (p *params) Submission(name string) (models.Submission, error) {
	var data []byte

	if p.query != nil {
		value := p.query(name)
		if value == "" {
			return models.Submission{}, nil
		}

		data = []byte(value)
	} else {
		value, ok := p.body[name]
		if !ok || string(value) == "null" {
			return models.Submission{}, nil
		}

		data = value
	}

	var submission models.Submission
	if err := json.Unmarshal(data, &submission); err != nil {
		return nil, fmt.Errorf("%s must be a list of {name, value} objects", name)
	}

	return submission, nil
}
