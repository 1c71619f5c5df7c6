package controllers

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/library-backend/api/responses"
	"github.com/angelmondragon/library-backend/api/validators"
	"github.com/angelmondragon/library-backend/internal/content"
	"github.com/angelmondragon/library-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
)

// UploadContent accepts a multipart form with a "file" part and descriptive fields.
func UploadContent(svc content.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("content"))
			return
		}
		actor, ok := principal(w, r, logg)
		if !ok {
			return
		}

		upload, err := validators.ParseMultipartFile(w, r, "file", maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer func() {
			if cerr := upload.Close(r); cerr != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", cerr.Error()), "content.upload.cleanup_failed")
			}
		}()

		meta, err := uploadMetadata(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Upload(r.Context(), actor, content.UploadInput{
			Metadata: meta,
			FileName: upload.Header.Filename,
			Size:     upload.Header.Size,
			File:     upload.File,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "Content uploaded successfully", dto)
	}
}

func uploadMetadata(r *http.Request) (content.Metadata, error) {
	year, err := validators.FormIntPtr(r, "publicationYear")
	if err != nil {
		return content.Metadata{}, err
	}
	pages, err := validators.FormIntPtr(r, "pages")
	if err != nil {
		return content.Metadata{}, err
	}
	return content.Metadata{
		Title:           validators.FormString(r, "title"),
		Author:          validators.FormString(r, "author"),
		Type:            validators.FormString(r, "type"),
		Subject:         validators.FormString(r, "subject"),
		Category:        validators.FormString(r, "category"),
		Keywords:        content.SplitList(r.FormValue("keywords")),
		Tags:            content.SplitList(r.FormValue("tags")),
		Description:     validators.FormStringPtr(r, "description"),
		Publisher:       validators.FormStringPtr(r, "publisher"),
		PublicationYear: year,
		ISBN:            validators.FormStringPtr(r, "isbn"),
		ISSN:            validators.FormStringPtr(r, "issn"),
		Language:        validators.FormString(r, "language"),
		Pages:           pages,
		AccessLevel:     validators.FormString(r, "accessLevel"),
	}, nil
}

// ListContent pages the published catalogue.
func ListContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("content"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		result, err := svc.List(r.Context(), content.ListInput{
			Filters: content.Filters{
				Type:     enums.ContentType(strings.TrimSpace(q.Get("type"))),
				Category: q.Get("category"),
				Author:   q.Get("author"),
				Subject:  q.Get("subject"),
				Keyword:  q.Get("keyword"),
			},
			SortBy:     q.Get("sortBy"),
			Pagination: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, result.Items, len(result.Items), &result.Meta)
	}
}

// SearchContent runs a free-text query. ?filters= carries optional JSON filters.
func SearchContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("content"))
			return
		}
		q := r.URL.Query()
		in := content.SearchInput{Query: q.Get("query"), SortBy: q.Get("sortBy")}
		if raw := strings.TrimSpace(q.Get("filters")); raw != "" {
			var filters content.SearchFilters
			if err := json.Unmarshal([]byte(raw), &filters); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "filters must be a JSON object"))
				return
			}
			in.Filters = &filters
		}

		items, err := svc.Search(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, items, len(items), nil)
	}
}

func GetContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("content"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", dto)
	}
}

// DownloadContent streams the stored file under its original name.
func DownloadContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("content"))
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

		dl, err := svc.Download(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer dl.Body.Close()

		file := dl.Content.File
		contentType := file.MimeType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.OriginalName}))
		if file.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
		}
		w.WriteHeader(http.StatusOK)

		if _, err := io.Copy(w, dl.Body); err != nil && logg != nil {
			logg.Error(r.Context(), "content.download.stream_failed", err)
		}
	}
}

func UpdateContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("content"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body content.UpdateContentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Content updated successfully", dto)
	}
}

func DeleteContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("content"))
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
		responses.WriteSuccess(w, "Content deleted successfully", nil)
	}
}

func ReviewContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("content"))
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
		var body content.ReviewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Review(r.Context(), actor, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "Review added successfully", dto)
	}
}

func StorageInfo(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("content"))
			return
		}
		report, err := svc.StorageInfo(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", report)
	}
}

func TrendingContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("content"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", content.DefaultTopLimit, 1, content.MaxTopLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.Trending(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, items, len(items), nil)
	}
}

func RecommendedContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("content"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", content.DefaultTopLimit, 1, content.MaxTopLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.Recommended(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, items, len(items), nil)
	}
}

func BrowseContentByCategory(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("content"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", content.DefaultCategoryLimit, 1, content.MaxTopLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category := chi.URLParam(r, "category")
		if unescaped, err := url.PathUnescape(category); err == nil {
			category = unescaped
		}
		category = strings.TrimSpace(category)
		items, err := svc.ByCategory(r.Context(), category, r.URL.Query().Get("sortBy"), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, items, len(items), nil)
	}
}

func MyDownloads(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("content"))
			return
		}
		actor, ok := principal(w, r, logg)
		if !ok {
			return
		}
		list, err := svc.MyDownloads(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, list, len(list), nil)
	}
}
