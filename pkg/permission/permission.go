// Package permission resolves the abstract permission class of a workflow action
// against a concrete user and, when one exists, the record being acted on.
package permission

import "github.com/dukex/gradflow/pkg/models"

// Check reports whether user satisfies required for record. record is nil before a record exists.
//
// Administrators pass every class. The creator's supervisor is any teacher: the
// student to teacher assignment is not consulted.
func Check(required models.Permission, user *models.User, record *models.Record) bool {
	if user == nil {
		return false
	}

	if user.IsAdmin() {
		return true
	}

	switch required {
	case models.PermissionStudent:
		return user.Role == models.RoleStudent
	case models.PermissionCreator:
		return record != nil && record.CreatorID == user.ID
	case models.PermissionCreatorSupervisor:
		return user.Role == models.RoleTeacher
	case models.PermissionAdmin:
		return false
	case models.PermissionUnknown:
		return false
	default:
		return false
	}
}
