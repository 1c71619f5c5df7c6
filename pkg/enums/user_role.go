package enums

import "fmt"

// UserRole is the account-level role carried in access tokens.
type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"
	UserRoleLibrarian UserRole = "librarian"
	UserRoleStudent   UserRole = "student"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleLibrarian,
	UserRoleStudent,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role may manage the catalogue.
func (r UserRole) IsStaff() bool {
	return r == UserRoleAdmin || r == UserRoleLibrarian
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
