package controllers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/library-backend/internal/content"
	pkgAuth "github.com/angelmondragon/library-backend/pkg/auth"
	"github.com/angelmondragon/library-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/pagination"
)

type stubContent struct {
	content.Service
	upload   content.UploadInput
	body     []byte
	list     content.ListInput
	search   content.SearchInput
	category string
	limit    int
	err      error
}

func (s *stubContent) Upload(ctx context.Context, actor pkgAuth.Principal, in content.UploadInput) (*content.ContentDTO, error) {
	s.upload = in
	data, err := io.ReadAll(in.File)
	if err != nil {
		return nil, err
	}
	s.body = data
	if s.err != nil {
		return nil, s.err
	}
	return &content.ContentDTO{ID: uuid.New(), Title: in.Metadata.Title}, nil
}

func (s *stubContent) List(ctx context.Context, in content.ListInput) (*content.ListResult, error) {
	s.list = in
	return &content.ListResult{
		Items: []content.ContentDTO{{Title: "a"}, {Title: "b"}},
		Meta:  pagination.Meta{Total: 12, Pages: 6, CurrentPage: 2},
	}, s.err
}

func (s *stubContent) Search(ctx context.Context, in content.SearchInput) ([]content.ContentDTO, error) {
	s.search = in
	return []content.ContentDTO{}, s.err
}

func (s *stubContent) Download(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID) (*content.Download, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &content.Download{
		Content: &content.ContentDTO{ID: id, File: content.FileDTO{OriginalName: "lecture notes.pdf", MimeType: "application/pdf", Size: 4}},
		Body:    io.NopCloser(bytes.NewReader([]byte("%PDF"))),
	}, nil
}

func (s *stubContent) ByCategory(ctx context.Context, category, sortBy string, limit int) ([]content.ContentDTO, error) {
	s.category, s.limit = category, limit
	return nil, s.err
}

func multipartUpload(t *testing.T, fields map[string]string, fileName string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := newRequest(http.MethodPost, "/api/digital-content/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadContentPassesFormFields(t *testing.T) {
	svc := &stubContent{}
	req := multipartUpload(t, map[string]string{
		"title":           "Algorithms",
		"author":          "Knuth",
		"type":            "ebook",
		"subject":         "CS",
		"category":        "Textbooks",
		"keywords":        "Sorting, Trees",
		"publicationYear": "1968",
	}, "taocp.pdf", []byte("%PDF-1.4 body"))
	req, _ = as(req, enums.UserRoleLibrarian)

	rec := serve(UploadContent(svc, 1<<20, nil), req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Content uploaded successfully", decodeEnvelope(t, rec).Message)

	assert.Equal(t, "Algorithms", svc.upload.Metadata.Title)
	assert.Equal(t, []string{"Sorting", " Trees"}, svc.upload.Metadata.Keywords)
	require.NotNil(t, svc.upload.Metadata.PublicationYear)
	assert.Equal(t, 1968, *svc.upload.Metadata.PublicationYear)
	assert.Equal(t, "taocp.pdf", svc.upload.FileName)
	assert.Equal(t, int64(13), svc.upload.Size)
	assert.Equal(t, []byte("%PDF-1.4 body"), svc.body)
}

func TestUploadContentWithoutFile(t *testing.T) {
	req, _ := as(multipartUpload(t, map[string]string{"title": "x"}, "", nil), enums.UserRoleLibrarian)
	rec := serve(UploadContent(&stubContent{}, 1<<20, nil), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decodeEnvelope(t, rec).Message)
}

func TestUploadContentTooLarge(t *testing.T) {
	big := bytes.Repeat([]byte("a"), 3<<20)
	req, _ := as(multipartUpload(t, map[string]string{"title": "x"}, "big.txt", big), enums.UserRoleLibrarian)
	rec := serve(UploadContent(&stubContent{}, 1<<20, nil), req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadContentRejectsBadYear(t *testing.T) {
	req, _ := as(multipartUpload(t, map[string]string{"publicationYear": "soon"}, "a.txt", []byte("hi")), enums.UserRoleLibrarian)
	rec := serve(UploadContent(&stubContent{}, 1<<20, nil), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListContentRendersPageMeta(t *testing.T) {
	svc := &stubContent{}
	req := newRequest(http.MethodGet, "/api/digital-content?type=ebook&author=knu&page=2&limit=2&sortBy=-views", nil)

	rec := serve(ListContent(svc, nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Total)
	assert.Equal(t, int64(12), *env.Total)
	assert.Equal(t, 6, *env.Pages)
	assert.Equal(t, 2, *env.CurrentPage)
	assert.Equal(t, 2, *env.Count)

	assert.Equal(t, enums.ContentType("ebook"), svc.list.Filters.Type)
	assert.Equal(t, "knu", svc.list.Filters.Author)
	assert.Equal(t, "-views", svc.list.SortBy)
	assert.Equal(t, pagination.Params{Page: 2, Limit: 2}, svc.list.Pagination)
}

func TestListContentRejectsOversizedLimit(t *testing.T) {
	rec := serve(ListContent(&stubContent{}, nil), newRequest(http.MethodGet, "/?limit=500", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchContentParsesFilters(t *testing.T) {
	svc := &stubContent{}
	req := newRequest(http.MethodGet, `/api/digital-content/search?query=graphs&filters=%7B%22type%22%3A%22ebook%22%2C%22year%22%3A2020%7D`, nil)

	rec := serve(SearchContent(svc, nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "graphs", svc.search.Query)
	require.NotNil(t, svc.search.Filters)
	assert.Equal(t, "ebook", svc.search.Filters.Type)
	require.NotNil(t, svc.search.Filters.Year)
	assert.Equal(t, 2020, *svc.search.Filters.Year)

	bad := newRequest(http.MethodGet, "/api/digital-content/search?query=x&filters=notjson", nil)
	assert.Equal(t, http.StatusBadRequest, serve(SearchContent(svc, nil), bad).Code)
}

func TestDownloadContentStreamsFile(t *testing.T) {
	req, _ := as(withParams(newRequest(http.MethodGet, "/", nil), "id", uuid.NewString()), enums.UserRoleStudent)

	rec := serve(DownloadContent(&stubContent{}, nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="lecture notes.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "4", rec.Header().Get("Content-Length"))
	assert.Equal(t, "%PDF", rec.Body.String())
}

func TestDownloadContentForbidden(t *testing.T) {
	svc := &stubContent{err: pkgerrors.New(pkgerrors.CodeForbidden, "Not authorized to download this content")}
	req, _ := as(withParams(newRequest(http.MethodGet, "/", nil), "id", uuid.NewString()), enums.UserRoleStudent)

	rec := serve(DownloadContent(svc, nil), req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestBrowseByCategoryDefaults(t *testing.T) {
	svc := &stubContent{}
	req := withParams(newRequest(http.MethodGet, "/", nil), "category", "Computer%20Science")

	rec := serve(BrowseContentByCategory(svc, nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Computer Science", svc.category)
	assert.Equal(t, content.DefaultCategoryLimit, svc.limit)
}
