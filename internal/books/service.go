package books

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/library-backend/pkg/db"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/pagination"
)

// SearchLimit caps the number of rows a catalog search returns.
const SearchLimit = 50

// Service exposes catalog browsing and editing.
type Service interface {
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Search(ctx context.Context, query string) ([]BookDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*BookDTO, error)
	Create(ctx context.Context, req CreateBookRequest) (*BookDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateBookRequest) (*BookDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ListInput captures catalog filters and paging.
type ListInput struct {
	Filters    Filters
	Pagination pagination.Params
}

// ListResult is one page of books.
type ListResult struct {
	Books []BookDTO
	Meta  pagination.Meta
}

type service struct {
	repo *Repository
}

// NewService constructs the catalog service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("book repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	params := input.Pagination.Normalize()
	list, total, err := s.repo.List(ctx, input.Filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list books")
	}
	return &ListResult{Books: FromModels(list), Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) Search(ctx context.Context, query string) ([]BookDTO, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Please provide a search query")
	}
	list, err := s.repo.Search(ctx, query, SearchLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search books")
	}
	return FromModels(list), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*BookDTO, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, MapLookupError(err)
	}
	return FromModel(book), nil
}

func (s *service) Create(ctx context.Context, req CreateBookRequest) (*BookDTO, error) {
	isbn := strings.TrimSpace(req.ISBN)
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Author) == "" || isbn == "" ||
		strings.TrimSpace(req.Category) == "" || req.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Please provide all required fields")
	}

	if _, err := s.repo.FindByISBN(ctx, isbn); err == nil {
		return nil, duplicateISBN()
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check isbn")
	}

	book := &models.Book{
		Title:             strings.TrimSpace(req.Title),
		Author:            strings.TrimSpace(req.Author),
		ISBN:              isbn,
		Description:       req.Description,
		Category:          strings.TrimSpace(req.Category),
		Quantity:          req.Quantity,
		AvailableQuantity: req.Quantity,
		PublishedYear:     req.PublicationYear,
		Publisher:         req.Publisher,
		CoverImage:        req.CoverImage,
	}
	if err := s.repo.Create(ctx, book); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, duplicateISBN()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create book")
	}
	return FromModel(book), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateBookRequest) (*BookDTO, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, MapLookupError(err)
	}

	fields := map[string]any{}
	setString := func(column string, value *string) {
		if value != nil && strings.TrimSpace(*value) != "" {
			fields[column] = strings.TrimSpace(*value)
		}
	}
	setString("title", req.Title)
	setString("author", req.Author)
	setString("category", req.Category)
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.PublicationYear != nil {
		fields["published_year"] = *req.PublicationYear
	}
	if req.Publisher != nil {
		fields["publisher"] = *req.Publisher
	}
	if req.CoverImage != nil {
		fields["cover_image"] = *req.CoverImage
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update book")
		}
	}

	if req.Quantity != nil && *req.Quantity != book.Quantity {
		ok, err := s.repo.SetQuantity(ctx, id, *req.Quantity)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update quantity")
		}
		if !ok {
			current, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return nil, MapLookupError(err)
			}
			return nil, pkgerrors.New(
				pkgerrors.CodeStateConflict,
				fmt.Sprintf("Quantity cannot be less than the %d copies currently on loan", current.OnLoan()),
			).WithDetails(map[string]int{"onLoan": current.OnLoan()})
		}
	}

	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete book")
	}
	if !ok {
		return errNotFound()
	}
	return nil
}

// MapLookupError translates a repository lookup failure for a book.
func MapLookupError(err error) error {
	if db.IsNotFound(err) {
		return errNotFound()
	}
	var typed *pkgerrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
}

func errNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "Book not found")
}

func duplicateISBN() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "Book with this ISBN already exists")
}
