package rules

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed graduate_design.yaml
var graduateDesignYAML []byte

// Load decodes a YAML rule definition from r and compiles it.
func Load(r io.Reader) (*Table, error) {
	var def Definition

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	if err := decoder.Decode(&def); err != nil {
		return nil, fmt.Errorf("%w: failed to decode rules: %w", ErrInvalidTable, err)
	}

	return New(def)
}

// LoadFile loads the rule definition stored at path.
func LoadFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer file.Close()

	return Load(file)
}

// Default returns the built-in graduate design rule table.
func Default() (*Table, error) {
	return Load(bytes.NewReader(graduateDesignYAML))
}

// FromPath loads path, or the built-in table when path is empty.
func FromPath(path string) (*Table, error) {
	if path == "" {
		return Default()
	}

	return LoadFile(path)
}
