// Package directory resolves caller identities into workflow users. Authentication
// happens upstream; the directory only maps an authenticated user ID to a user.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/gradflow/pkg/models"
)

// ErrUserNotFound indicates the directory has no user with the given ID.
var ErrUserNotFound = errors.New("user not found")

type Directory interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
	Close() error
}

// Entry is a user as stored by the campus user directory.
type Entry struct {
	ID       int64  `yaml:"id"`
	Username string `yaml:"username"`
	RealName string `yaml:"realname"`
	UserType int    `yaml:"usertype"`
	IsStaff  bool   `yaml:"is_staff"`
}

// User converts the entry, mapping its legacy user type to a role.
func (e Entry) User() (*models.User, error) {
	role, err := models.RoleFromUserType(e.UserType, e.IsStaff)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", e.ID, err)
	}

	return &models.User{
		ID:          e.ID,
		Username:    e.Username,
		DisplayName: e.RealName,
		Role:        role,
	}, nil
}

// Open returns the directory named by url: file:///path/users.yaml or redis://host:port/db.
func Open(ctx context.Context, url string) (Directory, error) {
	switch {
	case strings.HasPrefix(url, "file://"):
		return LoadFile(strings.TrimPrefix(url, "file://"))
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		return DialRedis(ctx, url)
	default:
		return nil, fmt.Errorf("unsupported user directory %q", url)
	}
}
