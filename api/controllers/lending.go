package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/library-backend/api/responses"
	"github.com/angelmondragon/library-backend/api/validators"
	"github.com/angelmondragon/library-backend/internal/lending"
	"github.com/angelmondragon/library-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
)

// BorrowBook lends one copy of the book to the caller.
func BorrowBook(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("lending"))
			return
		}
		actor, ok := principal(w, r, logg)
		if !ok {
			return
		}
		bookID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Borrow(r.Context(), actor, bookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Book borrowed successfully", result)
	}
}

// ReturnBook closes the caller's outstanding loan of the book.
func ReturnBook(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("lending"))
			return
		}
		actor, ok := principal(w, r, logg)
		if !ok {
			return
		}
		bookID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Return(r.Context(), actor, bookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Book returned successfully", result)
	}
}

func IssueBook(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("lending"))
			return
		}
		actor, ok := principal(w, r, logg)
		if !ok {
			return
		}
		borrowerID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body lending.IssueRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.IssueOnBehalf(r.Context(), actor, borrowerID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Book issued successfully", result)
	}
}

func ReturnIssuedBook(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("lending"))
			return
		}
		actor, ok := principal(w, r, logg)
		if !ok {
			return
		}
		borrowerID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body lending.ReturnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ReturnOnBehalf(r.Context(), actor, borrowerID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Book returned successfully", result)
	}
}

func SettleFine(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("lending"))
			return
		}
		actor, ok := principal(w, r, logg)
		if !ok {
			return
		}
		borrowerID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body lending.SettleFineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.SettleFine(r.Context(), actor, borrowerID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Fine settled successfully", balance)
	}
}

// MyBorrowedBooks lists the caller's loans, optionally filtered by ?status=.
func MyBorrowedBooks(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("lending"))
			return
		}
		actor, ok := principal(w, r, logg)
		if !ok {
			return
		}

		var status *enums.LoanStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseLoanStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			status = &parsed
		}

		loans, err := svc.MyLoans(r.Context(), actor.UserID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, loans, len(loans), nil)
	}
}
