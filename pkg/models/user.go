package models

import "fmt"

// Role is the campus role of a user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Legacy user type codes stored by the campus user directory.
const (
	UserTypeSuperAdmin = 1
	UserTypeAdmin      = 1000
	UserTypeStudent    = 2000
	UserTypeTeacher    = 3000
)

// User is the acting identity resolved from the user directory.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"realname"`
	Role        Role   `json:"role"`
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// RoleFromUserType maps a legacy user type code to a role. Staff accounts are always administrators.
func RoleFromUserType(userType int, staff bool) (Role, error) {
	if staff {
		return RoleAdmin, nil
	}

	switch userType {
	case UserTypeSuperAdmin, UserTypeAdmin:
		return RoleAdmin, nil
	case UserTypeStudent:
		return RoleStudent, nil
	case UserTypeTeacher:
		return RoleTeacher, nil
	default:
		return "", fmt.Errorf("unknown user type %d", userType)
	}
}
