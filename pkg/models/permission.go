package models

import "fmt"

// Permission is the abstract requirement an action places on the acting user.
type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionStudent
	PermissionCreator
	PermissionCreatorSupervisor
	PermissionAdmin
)

var permissionNames = map[Permission]string{
	PermissionStudent:           "student",
	PermissionCreator:           "creator",
	PermissionCreatorSupervisor: "creator_supervisor",
	PermissionAdmin:             "admin",
}

func (p Permission) String() string {
	if name, ok := permissionNames[p]; ok {
		return name
	}

	return "unknown"
}

// ParsePermission returns the permission called name.
func ParsePermission(name string) (Permission, error) {
	for p, n := range permissionNames {
		if n == name {
			return p, nil
		}
	}

	return PermissionUnknown, fmt.Errorf("unknown permission class %q", name)
}

func (p Permission) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Permission) UnmarshalText(text []byte) error {
	parsed, err := ParsePermission(string(text))
	if err != nil {
		return err
	}

	*p = parsed

	return nil
}
