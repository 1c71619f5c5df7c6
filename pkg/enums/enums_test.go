package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("librarian")
	require.NoError(t, err)
	assert.Equal(t, UserRoleLibrarian, role)
	assert.True(t, role.IsStaff())
	assert.False(t, UserRoleStudent.IsStaff())

	_, err = ParseUserRole("superuser")
	require.Error(t, err)
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, LoanStatusOutstanding.IsValid())
	assert.False(t, LoanStatus("lost").IsValid())
	assert.True(t, ContentTypeThesis.IsValid())
	assert.False(t, ContentType("video").IsValid())
	assert.True(t, AccessLevelPrivate.IsValid())
	assert.False(t, AccessLevel("secret").IsValid())
	assert.True(t, LibrarianPermissionManageFines.IsValid())
	for _, p := range DefaultLibrarianPermissions {
		assert.True(t, p.IsValid(), p.String())
	}
}

func TestParseContentTypeAndAccessLevel(t *testing.T) {
	ct, err := ParseContentType("journal")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeJournal, ct)

	_, err = ParseAccessLevel("PUBLIC")
	assert.Error(t, err)
}
