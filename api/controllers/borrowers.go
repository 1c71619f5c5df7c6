package controllers

import (
	"net/http"

	"github.com/angelmondragon/library-backend/api/responses"
	"github.com/angelmondragon/library-backend/api/validators"
	"github.com/angelmondragon/library-backend/internal/borrowers"
	"github.com/angelmondragon/library-backend/pkg/logger"
)

func CreateBorrower(svc borrowers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("borrower"))
			return
		}
		actor, ok := principal(w, r, logg)
		if !ok {
			return
		}
		var body borrowers.CreateBorrowerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Create(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "Student profile created successfully", dto)
	}
}

func ListBorrowers(svc borrowers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("borrower"))
			return
		}
		actor, ok := principal(w, r, logg)
		if !ok {
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		result, err := svc.List(r.Context(), actor, borrowers.Filters{
			Department: q.Get("department"),
			Search:     q.Get("search"),
		}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, result.Borrowers, len(result.Borrowers), &result.Meta)
	}
}

func GetBorrower(svc borrowers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("borrower"))
			return
		}
		actor, ok := principal(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", dto)
	}
}

func UpdateBorrower(svc borrowers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("borrower"))
			return
		}
		actor, ok := principal(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body borrowers.UpdateBorrowerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Update(r.Context(), actor, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Student updated successfully", dto)
	}
}

func DeleteBorrower(svc borrowers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("borrower"))
			return
		}
		actor, ok := principal(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Student deleted successfully", nil)
	}
}
