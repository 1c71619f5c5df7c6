package controllers

import (
	"net/http"

	"github.com/angelmondragon/library-backend/api/responses"
	"github.com/angelmondragon/library-backend/api/validators"
	"github.com/angelmondragon/library-backend/internal/books"
	"github.com/angelmondragon/library-backend/pkg/logger"
)

// ListBooks serves the public catalog with optional category, author,
// availability and free-text filters.
func ListBooks(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("book"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		availableOnly, err := validators.ParseQueryBool(r, "isAvailable")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		q := r.URL.Query()
		result, err := svc.List(r.Context(), books.ListInput{
			Filters: books.Filters{
				Category:      q.Get("category"),
				Author:        q.Get("author"),
				Search:        q.Get("search"),
				AvailableOnly: availableOnly,
			},
			Pagination: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, result.Books, len(result.Books), &result.Meta)
	}
}

func SearchBooks(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("book"))
			return
		}
		list, err := svc.Search(r.Context(), r.URL.Query().Get("query"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, list, len(list), nil)
	}
}

func GetBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("book"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		book, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", book)
	}
}

func CreateBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("book"))
			return
		}
		var body books.CreateBookRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		book, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "Book created successfully", book)
	}
}

func UpdateBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("book"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body books.UpdateBookRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		book, err := svc.Update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Book updated successfully", book)
	}
}

func DeleteBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("book"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Book deleted successfully", nil)
	}
}
