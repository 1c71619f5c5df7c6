package borrowers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/library-backend/internal/lending"
	pkgAuth "github.com/angelmondragon/library-backend/pkg/auth"
	"github.com/angelmondragon/library-backend/pkg/db"
	"github.com/angelmondragon/library-backend/pkg/db/dbtest"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/angelmondragon/library-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/pagination"
)

type stubLoans struct {
	calls []uuid.UUID
	loans []lending.LoanDTO
}

func (s *stubLoans) BorrowerLoans(_ context.Context, borrowerID uuid.UUID) ([]lending.LoanDTO, error) {
	s.calls = append(s.calls, borrowerID)
	return s.loans, nil
}

func newTestService(t *testing.T) (Service, *stubLoans, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	loans := &stubLoans{loans: []lending.LoanDTO{}}
	svc, err := NewService(NewRepository(conn), db.FromGorm(conn), loans)
	require.NoError(t, err)
	return svc, loans, conn
}

func seedUser(t *testing.T, conn *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: uuid.NewString() + "@example.com", PasswordHash: "hash", Role: enums.UserRoleStudent, IsActive: true}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func as(user *models.User) pkgAuth.Principal {
	return pkgAuth.Principal{UserID: user.ID, Role: user.Role}
}

var librarian = pkgAuth.Principal{UserID: uuid.New(), Role: enums.UserRoleLibrarian}

func TestCreateForSelf(t *testing.T) {
	svc, _, conn := newTestService(t)
	user := seedUser(t, conn, "Ada")

	dto, err := svc.Create(context.Background(), as(user), CreateBorrowerRequest{RollNumber: " CS-01 ", Department: "CS", Semester: 3})
	require.NoError(t, err)
	assert.Equal(t, user.ID, dto.UserID)
	require.NotNil(t, dto.RollNumber)
	assert.Equal(t, "CS-01", *dto.RollNumber)
	require.NotNil(t, dto.User)
	assert.Equal(t, "Ada", dto.User.Name)
	assert.Zero(t, dto.Fine)
}

func TestCreateRejectsDuplicatesAndStrangers(t *testing.T) {
	svc, _, conn := newTestService(t)
	user := seedUser(t, conn, "Ada")
	other := seedUser(t, conn, "Bob")
	ctx := context.Background()
	req := CreateBorrowerRequest{UserID: user.ID, RollNumber: "CS-01", Department: "CS", Semester: 3}

	_, err := svc.Create(ctx, as(other), req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Create(ctx, librarian, req)
	require.NoError(t, err)

	_, err = svc.Create(ctx, librarian, req)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, "Student profile already exists", pkgerrors.As(err).Message())

	_, err = svc.Create(ctx, librarian, CreateBorrowerRequest{UserID: uuid.New(), RollNumber: "X", Department: "CS", Semester: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Create(ctx, as(other), CreateBorrowerRequest{Department: "CS", Semester: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetIncludesLoansAndChecksOwner(t *testing.T) {
	svc, loans, conn := newTestService(t)
	owner := seedUser(t, conn, "Ada")
	stranger := seedUser(t, conn, "Bob")
	borrower := models.Borrower{UserID: owner.ID, FineBalance: decimal.RequireFromString("12.5")}
	require.NoError(t, conn.Create(&borrower).Error)
	loans.loans = []lending.LoanDTO{{ID: uuid.New(), BorrowerID: borrower.ID}}
	ctx := context.Background()

	dto, err := svc.Get(ctx, as(owner), borrower.ID)
	require.NoError(t, err)
	assert.Equal(t, 12.5, dto.Fine)
	assert.Len(t, dto.BorrowedBooks, 1)
	assert.Equal(t, []uuid.UUID{borrower.ID}, loans.calls)

	_, err = svc.Get(ctx, as(stranger), borrower.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Get(ctx, librarian, uuid.New())
	require.Error(t, err)
	assert.Equal(t, "Student not found", pkgerrors.As(err).Message())
}

func TestUpdateKeepsUnsetFields(t *testing.T) {
	svc, _, conn := newTestService(t)
	owner := seedUser(t, conn, "Ada")
	ctx := context.Background()
	created, err := svc.Create(ctx, as(owner), CreateBorrowerRequest{RollNumber: "CS-01", Department: "CS", Semester: 3})
	require.NoError(t, err)

	semester := 4
	blank := "  "
	dto, err := svc.Update(ctx, as(owner), created.ID, UpdateBorrowerRequest{Semester: &semester, Department: &blank})
	require.NoError(t, err)
	assert.Equal(t, 4, *dto.Semester)
	assert.Equal(t, "CS", *dto.Department)
	assert.Equal(t, "CS-01", *dto.RollNumber)
}

func TestListRequiresStaff(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()
	for _, name := range []string{"Ada", "Bob", "Cleo"} {
		user := seedUser(t, conn, name)
		_, err := svc.Create(ctx, as(user), CreateBorrowerRequest{RollNumber: name + "-1", Department: "Physics", Semester: 2})
		require.NoError(t, err)
	}

	_, err := svc.List(ctx, pkgAuth.Principal{UserID: uuid.New(), Role: enums.UserRoleStudent}, Filters{}, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	res, err := svc.List(ctx, librarian, Filters{}, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Borrowers, 2)
	assert.Equal(t, int64(3), res.Meta.Total)
	assert.Equal(t, 2, res.Meta.Pages)

	res, err = svc.List(ctx, librarian, Filters{Search: "cle"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, res.Borrowers, 1)
	assert.Equal(t, "Cleo", res.Borrowers[0].User.Name)
}

func TestDeleteRemovesLoans(t *testing.T) {
	svc, _, conn := newTestService(t)
	owner := seedUser(t, conn, "Ada")
	borrower := models.Borrower{UserID: owner.ID}
	require.NoError(t, conn.Create(&borrower).Error)
	require.NoError(t, conn.Create(&models.Loan{BorrowerID: borrower.ID, BookID: uuid.New(), Status: enums.LoanStatusReturned}).Error)
	ctx := context.Background()

	err := svc.Delete(ctx, librarian, borrower.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	admin := pkgAuth.Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	require.NoError(t, svc.Delete(ctx, admin, borrower.ID))

	var count int64
	require.NoError(t, conn.Model(&models.Loan{}).Count(&count).Error)
	assert.Zero(t, count)

	err = svc.Delete(ctx, admin, borrower.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
