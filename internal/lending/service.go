package lending

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/library-backend/internal/books"
	"github.com/angelmondragon/library-backend/internal/librarians"
	pkgAuth "github.com/angelmondragon/library-backend/pkg/auth"
	"github.com/angelmondragon/library-backend/pkg/db"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/angelmondragon/library-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
	"github.com/angelmondragon/library-backend/pkg/metrics"
)

// Service exposes the borrow/return lifecycle and the borrower ledger.
type Service interface {
	Borrow(ctx context.Context, actor pkgAuth.Principal, bookID uuid.UUID) (*BorrowResult, error)
	Return(ctx context.Context, actor pkgAuth.Principal, bookID uuid.UUID) (*ReturnResult, error)
	IssueOnBehalf(ctx context.Context, actor pkgAuth.Principal, borrowerID uuid.UUID, req IssueRequest) (*BorrowResult, error)
	ReturnOnBehalf(ctx context.Context, actor pkgAuth.Principal, borrowerID uuid.UUID, req ReturnRequest) (*ReturnResult, error)
	SettleFine(ctx context.Context, actor pkgAuth.Principal, borrowerID uuid.UUID, req SettleFineRequest) (*FineBalance, error)
	MyLoans(ctx context.Context, userID uuid.UUID, status *enums.LoanStatus) ([]LoanDTO, error)
	BorrowerLoans(ctx context.Context, borrowerID uuid.UUID) ([]LoanDTO, error)
}

// IssueRequest is a staff issue on behalf of a borrower.
type IssueRequest struct {
	BookID  uuid.UUID  `json:"bookId" validate:"required"`
	DueDate *time.Time `json:"dueDate,omitempty"`
}

// ReturnRequest is a staff return on behalf of a borrower.
type ReturnRequest struct {
	BookID uuid.UUID `json:"bookId" validate:"required"`
}

// SettleFineRequest pays down part or all of a borrower's fine balance.
type SettleFineRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the lending dependencies.
type ServiceParams struct {
	DB      txRunner
	Logger  *logger.Logger
	Metrics *metrics.LibraryMetrics
	Clock   func() time.Time
}

type service struct {
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.LibraryMetrics
	now     func() time.Time
}

// NewService constructs the lending service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{tx: params.DB, logg: logg, metrics: params.Metrics, now: clock}, nil
}

type issueSpec struct {
	bookID   uuid.UUID
	userID   uuid.UUID
	borrower *uuid.UUID
	dueAt    *time.Time
	issuedBy *uuid.UUID
}

type returnSpec struct {
	bookID     uuid.UUID
	userID     uuid.UUID
	borrower   *uuid.UUID
	returnedBy *uuid.UUID
}

func (s *service) Borrow(ctx context.Context, actor pkgAuth.Principal, bookID uuid.UUID) (*BorrowResult, error) {
	return s.issue(ctx, issueSpec{bookID: bookID, userID: actor.UserID})
}

func (s *service) IssueOnBehalf(ctx context.Context, actor pkgAuth.Principal, borrowerID uuid.UUID, req IssueRequest) (*BorrowResult, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Only librarian can access this route")
	}
	if req.BookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bookId is required")
	}
	if req.DueDate != nil && !req.DueDate.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dueDate must be in the future")
	}
	staff := actor.UserID
	return s.issue(ctx, issueSpec{bookID: req.BookID, borrower: &borrowerID, dueAt: req.DueDate, issuedBy: &staff})
}

func (s *service) issue(ctx context.Context, spec issueSpec) (*BorrowResult, error) {
	now := s.now().UTC()
	var result *BorrowResult

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		bookRepo := books.NewRepository(tx)
		ledger := NewLedger(tx)

		book, err := bookRepo.FindByID(ctx, spec.bookID)
		if err != nil {
			return books.MapLookupError(err)
		}
		if !book.IsAvailable() {
			return errUnavailable()
		}

		var borrower *models.Borrower
		if spec.borrower != nil {
			borrower, err = ledger.FindBorrower(ctx, *spec.borrower)
			if err != nil {
				return mapBorrowerError(err)
			}
		} else {
			borrower, err = ledger.EnsureBorrower(ctx, spec.userID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve borrower")
			}
		}

		outstanding, err := ledger.HasOutstanding(ctx, borrower.ID, book.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check loans")
		}
		if outstanding {
			return errAlreadyBorrowed()
		}

		taken, err := bookRepo.TakeCopy(ctx, book.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement availability")
		}
		if !taken {
			return errUnavailable()
		}

		dueAt := DueDate(now)
		if spec.dueAt != nil {
			dueAt = spec.dueAt.UTC()
		}
		loan := &models.Loan{
			BorrowerID:   borrower.ID,
			BookID:       book.ID,
			Status:       enums.LoanStatusOutstanding,
			BorrowedAt:   now,
			DueAt:        dueAt,
			FineAssessed: decimal.Zero,
			IssuedBy:     spec.issuedBy,
		}
		if err := ledger.CreateLoan(ctx, loan); err != nil {
			if db.IsUniqueViolation(err, "") {
				return errAlreadyBorrowed()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create loan")
		}
		if err := ledger.IncrementIssued(ctx, borrower.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment issued")
		}
		if spec.issuedBy != nil {
			if _, err := librarians.NewRepository(tx).IncrementIssued(ctx, *spec.issuedBy); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment librarian issued")
			}
		}

		book, err = bookRepo.FindByID(ctx, book.ID)
		if err != nil {
			return books.MapLookupError(err)
		}
		result = &BorrowResult{
			Book:              books.FromModel(book),
			BorrowerID:        borrower.ID,
			LoanID:            loan.ID,
			BorrowDate:        loan.BorrowedAt,
			DueDate:           loan.DueAt,
			AvailableQuantity: book.AvailableQuantity,
		}
		return nil
	})
	if err != nil {
		s.record(metrics.LoanBorrow, err)
		return nil, err
	}

	s.record(metrics.LoanBorrow, nil)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"book_id":     spec.bookID.String(),
		"borrower_id": result.BorrowerID.String(),
		"due_at":      result.DueDate,
	})
	s.logg.Info(logCtx, "lending.borrowed")
	return result, nil
}

func (s *service) Return(ctx context.Context, actor pkgAuth.Principal, bookID uuid.UUID) (*ReturnResult, error) {
	return s.close(ctx, returnSpec{bookID: bookID, userID: actor.UserID})
}

func (s *service) ReturnOnBehalf(ctx context.Context, actor pkgAuth.Principal, borrowerID uuid.UUID, req ReturnRequest) (*ReturnResult, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Only librarian can access this route")
	}
	if req.BookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bookId is required")
	}
	staff := actor.UserID
	return s.close(ctx, returnSpec{bookID: req.BookID, borrower: &borrowerID, returnedBy: &staff})
}

func (s *service) close(ctx context.Context, spec returnSpec) (*ReturnResult, error) {
	now := s.now().UTC()
	var result *ReturnResult
	var fine decimal.Decimal

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		bookRepo := books.NewRepository(tx)
		ledger := NewLedger(tx)

		var (
			borrower *models.Borrower
			err      error
		)
		if spec.borrower != nil {
			borrower, err = ledger.FindBorrower(ctx, *spec.borrower)
		} else {
			borrower, err = ledger.FindBorrowerByUser(ctx, spec.userID)
		}
		if err != nil {
			return mapBorrowerError(err)
		}

		loan, err := ledger.FindOutstanding(ctx, borrower.ID, spec.bookID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Book not found in your records")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
		}

		if _, err := bookRepo.FindByID(ctx, spec.bookID); err != nil {
			return books.MapLookupError(err)
		}

		fine = ComputeFine(loan.DueAt, now)
		closed, err := ledger.MarkReturned(ctx, loan.ID, now, fine)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close loan")
		}
		if !closed {
			return pkgerrors.New(pkgerrors.CodeConflict, "Book already returned")
		}
		if fine.IsPositive() {
			if err := ledger.AddFine(ctx, borrower.ID, fine); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accrue fine")
			}
		}
		if _, err := bookRepo.ReturnCopy(ctx, spec.bookID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment availability")
		}
		if spec.returnedBy != nil {
			if _, err := librarians.NewRepository(tx).IncrementReturned(ctx, *spec.returnedBy); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment librarian returned")
			}
		}

		borrower, err = ledger.FindBorrower(ctx, borrower.ID)
		if err != nil {
			return mapBorrowerError(err)
		}
		result = &ReturnResult{
			BookID:     spec.bookID,
			BorrowerID: borrower.ID,
			ReturnDate: now,
			Fine:       money(fine),
			TotalFine:  money(borrower.FineBalance),
		}
		return nil
	})
	if err != nil {
		s.record(metrics.LoanReturn, err)
		return nil, err
	}

	s.record(metrics.LoanReturn, nil)
	s.metrics.AddFine(fine.InexactFloat64())
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"book_id":     spec.bookID.String(),
		"borrower_id": result.BorrowerID.String(),
		"fine":        fine.String(),
	})
	s.logg.Info(logCtx, "lending.returned")
	return result, nil
}

func (s *service) SettleFine(ctx context.Context, actor pkgAuth.Principal, borrowerID uuid.UUID, req SettleFineRequest) (*FineBalance, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Only librarian can access this route")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	amount := req.Amount.Round(2)

	var result *FineBalance
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledger := NewLedger(tx)
		borrower, err := ledger.FindBorrower(ctx, borrowerID)
		if err != nil {
			return mapBorrowerError(err)
		}
		if amount.GreaterThan(borrower.FineBalance) {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount exceeds the outstanding fine").
				WithDetails(map[string]float64{"totalFine": money(borrower.FineBalance)})
		}
		ok, err := ledger.DeductFine(ctx, borrower.ID, amount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle fine")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount exceeds the outstanding fine")
		}
		borrower, err = ledger.FindBorrower(ctx, borrower.ID)
		if err != nil {
			return mapBorrowerError(err)
		}
		result = &FineBalance{BorrowerID: borrower.ID, Settled: money(amount), TotalFine: money(borrower.FineBalance)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"borrower_id": borrowerID.String(),
		"amount":      amount.String(),
		"actor_id":    actor.UserID.String(),
	})
	s.logg.Info(logCtx, "lending.fine_settled")
	return result, nil
}

func (s *service) MyLoans(ctx context.Context, userID uuid.UUID, status *enums.LoanStatus) ([]LoanDTO, error) {
	var out []LoanDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		borrower, err := NewLedger(tx).FindBorrowerByUser(ctx, userID)
		if err != nil {
			if db.IsNotFound(err) {
				out = []LoanDTO{}
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load borrower")
		}
		out, err = s.loans(ctx, tx, borrower.ID, status)
		return err
	})
	return out, err
}

func (s *service) BorrowerLoans(ctx context.Context, borrowerID uuid.UUID) ([]LoanDTO, error) {
	var out []LoanDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		out, err = s.loans(ctx, tx, borrowerID, nil)
		return err
	})
	return out, err
}

func (s *service) loans(ctx context.Context, tx *gorm.DB, borrowerID uuid.UUID, status *enums.LoanStatus) ([]LoanDTO, error) {
	list, err := NewLedger(tx).ListLoans(ctx, borrowerID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list loans")
	}
	ids := make([]uuid.UUID, 0, len(list))
	for _, loan := range list {
		ids = append(ids, loan.BookID)
	}
	byID, err := books.NewRepository(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load books")
	}

	now := s.now().UTC()
	out := make([]LoanDTO, 0, len(list))
	for _, loan := range list {
		var book *models.Book
		if b, ok := byID[loan.BookID]; ok {
			book = &b
		}
		out = append(out, newLoanDTO(loan, book, now))
	}
	return out, nil
}

func (s *service) record(operation string, err error) {
	switch {
	case err == nil:
		s.metrics.RecordLoan(operation, metrics.OutcomeOK)
	case pkgerrors.MetadataFor(codeOf(err)).HTTPStatus < 500:
		s.metrics.RecordLoan(operation, metrics.OutcomeRejected)
	default:
		s.metrics.RecordLoan(operation, metrics.OutcomeError)
	}
}

func codeOf(err error) pkgerrors.Code {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code()
	}
	return pkgerrors.CodeInternal
}

func mapBorrowerError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Borrower profile not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load borrower")
}

func errUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeUnavailable, "Book is not available")
}

func errAlreadyBorrowed() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "You have already borrowed this book")
}
