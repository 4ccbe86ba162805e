package authority

import (
	"strings"
)

// SystemAdminPermissionID is the single canonical admin role claim.
const SystemAdminPermissionID = "system:admin"

type Permissions []string

func (c Permissions) HasRole(role string) bool {
	for _, v := range c {
		if strings.EqualFold(v, role) {
			return true
		}
	}
	return false
}

func (c Permissions) HasRolePrefix(prefix string) bool {
	for _, v := range c {
		if strings.HasPrefix(strings.ToLower(v), strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

func (c Permissions) HasSystemRole() bool {
	return c.HasRolePrefix("system:")
}
