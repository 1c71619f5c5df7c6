package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/library-backend/pkg/enums"
)

func TestPrincipalRoles(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	student := Principal{UserID: self, Role: enums.UserRoleStudent}
	assert.False(t, student.IsStaff())
	assert.False(t, student.IsAdmin())
	assert.True(t, student.CanActOn(self))
	assert.False(t, student.CanActOn(other))

	librarian := Principal{UserID: self, Role: enums.UserRoleLibrarian}
	assert.True(t, librarian.IsStaff())
	assert.False(t, librarian.IsAdmin())
	assert.True(t, librarian.CanActOn(other))

	admin := Principal{UserID: self, Role: enums.UserRoleAdmin}
	assert.True(t, admin.IsStaff())
	assert.True(t, admin.IsAdmin())
}
