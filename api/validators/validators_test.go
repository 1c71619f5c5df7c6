package validators

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
)

type sampleBody struct {
	Name  string `json:"name" validate:"required,max=5"`
	Email string `json:"email" validate:"omitempty,email"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ada"}`))
	var body sampleBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, "Ada", body.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ada","extra":1}`))
	err := DecodeJSONBody(req, &body)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Adalovelace","email":"nope"}`))
	err = DecodeJSONBody(req, &sampleBody{})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, map[string]string{"name": "must be at most 5", "email": "must be a valid email"}, typed.Details())
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", 100)+`"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 10)

	err := DecodeJSONBody(req, &sampleBody{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTooLarge))
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=25", nil)
	params, err := ParsePagination(req)
	require.NoError(t, err)
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, 25, params.Limit)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	params, err = ParsePagination(req)
	require.NoError(t, err)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 10, params.Limit)

	req = httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	_, err = ParsePagination(req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodGet, "/?page=x", nil)
	_, err = ParsePagination(req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryBool(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?available=true", nil)
	v, err := ParseQueryBool(req, "available")
	require.NoError(t, err)
	assert.True(t, v)

	req = httptest.NewRequest(http.MethodGet, "/?available=maybe", nil)
	_, err = ParseQueryBool(req, "available")
	assert.Error(t, err)
}

func TestParseUUIDParam(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	_, err := ParseUUIDParam(req, "id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("id", "7d9f1c2e-8a4b-4c6d-9e0f-112233445566")
	id, err := ParseUUIDParam(req, "id")
	require.NoError(t, err)
	assert.Equal(t, "7d9f1c2e-8a4b-4c6d-9e0f-112233445566", id.String())
}

func multipartRequest(t *testing.T, fields map[string]string, fileName, content string) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestParseMultipartFile(t *testing.T) {
	req := multipartRequest(t, map[string]string{"title": "  Dune ", "year": "1965"}, "dune.txt", "spice")
	rec := httptest.NewRecorder()

	upload, err := ParseMultipartFile(rec, req, "file", 1024)
	require.NoError(t, err)
	defer upload.Close(req)
	assert.Equal(t, "dune.txt", upload.Header.Filename)
	assert.Equal(t, int64(5), upload.Header.Size)
	assert.Equal(t, "Dune", FormString(req, "title"))
	year, err := FormIntPtr(req, "year")
	require.NoError(t, err)
	assert.Equal(t, 1965, *year)
	assert.Nil(t, FormStringPtr(req, "missing"))
}

func TestParseMultipartFileMissing(t *testing.T) {
	req := multipartRequest(t, map[string]string{"title": "Dune"}, "", "")
	_, err := ParseMultipartFile(httptest.NewRecorder(), req, "file", 1024)
	require.Error(t, err)
	assert.Equal(t, "No file uploaded", pkgerrors.As(err).Message())
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "abc", SanitizeString("abc", 0))
}
