package directory

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dukex/gradflow/pkg/models"
	"gopkg.in/yaml.v3"
)

// Static is an in-memory directory loaded once.
type Static struct {
	users map[int64]*models.User
}

// NewStatic builds a directory from entries. IDs must be unique.
func NewStatic(entries []Entry) (*Static, error) {
	users := make(map[int64]*models.User, len(entries))

	for _, entry := range entries {
		if _, exists := users[entry.ID]; exists {
			return nil, fmt.Errorf("duplicate user id %d", entry.ID)
		}

		user, err := entry.User()
		if err != nil {
			return nil, err
		}

		users[entry.ID] = user
	}

	return &Static{users: users}, nil
}

// Load decodes a YAML list of entries.
func Load(r io.Reader) (*Static, error) {
	var entries []Entry

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	if err := decoder.Decode(&entries); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode user directory: %w", err)
	}

	return NewStatic(entries)
}

// LoadFile loads the YAML user list stored at path.
func LoadFile(path string) (*Static, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open user directory: %w", err)
	}
	defer file.Close()

	return Load(file)
}

func (s *Static) UserByID(_ context.Context, id int64) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}

	clone := *user

	return &clone, nil
}

func (s *Static) Close() error {
	return nil
}
