package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/library-backend/pkg/enums"
)

// Principal is the authenticated caller resolved from a bearer token.
type Principal struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsStaff reports whether the caller is a librarian or admin.
func (p Principal) IsStaff() bool {
	return p.Role.IsStaff()
}

// IsAdmin reports whether the caller is an admin.
func (p Principal) IsAdmin() bool {
	return p.Role == enums.UserRoleAdmin
}

// CanActOn reports whether the caller may act on resources owned by userID.
func (p Principal) CanActOn(userID uuid.UUID) bool {
	return p.UserID == userID || p.IsStaff()
}
