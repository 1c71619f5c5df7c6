package enums

import "fmt"

// LibrarianPermission names an action a librarian profile is allowed to take.
type LibrarianPermission string

const (
	LibrarianPermissionIssueBook     LibrarianPermission = "issue_book"
	LibrarianPermissionReturnBook    LibrarianPermission = "return_book"
	LibrarianPermissionManageStock   LibrarianPermission = "manage_stock"
	LibrarianPermissionManageContent LibrarianPermission = "manage_content"
	LibrarianPermissionManageFines   LibrarianPermission = "manage_fines"
)

var validLibrarianPermissions = []LibrarianPermission{
	LibrarianPermissionIssueBook,
	LibrarianPermissionReturnBook,
	LibrarianPermissionManageStock,
	LibrarianPermissionManageContent,
	LibrarianPermissionManageFines,
}

// DefaultLibrarianPermissions is granted to new librarian profiles.
var DefaultLibrarianPermissions = []LibrarianPermission{
	LibrarianPermissionIssueBook,
	LibrarianPermissionReturnBook,
	LibrarianPermissionManageStock,
}

func (p LibrarianPermission) String() string {
	return string(p)
}

func (p LibrarianPermission) IsValid() bool {
	for _, candidate := range validLibrarianPermissions {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseLibrarianPermission converts raw input into a LibrarianPermission.
func ParseLibrarianPermission(value string) (LibrarianPermission, error) {
	for _, candidate := range validLibrarianPermissions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid librarian permission %q", value)
}
