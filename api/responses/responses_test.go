package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
	"github.com/angelmondragon/library-backend/pkg/pagination"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, "Book borrowed successfully", map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Book borrowed successfully", body["message"])
	assert.Equal(t, "world", body["data"].(map[string]any)["hello"])
	assert.NotContains(t, body, "count")
}

func TestWriteListIncludesPaging(t *testing.T) {
	w := httptest.NewRecorder()
	meta := pagination.NewMeta(pagination.Params{Page: 2, Limit: 10}, 25)
	WriteList(w, []string{}, 0, &meta)

	body := decode(t, w)
	assert.Equal(t, []any{}, body["data"])
	assert.EqualValues(t, 0, body["count"])
	assert.EqualValues(t, 25, body["total"])
	assert.EqualValues(t, 3, body["pages"])
	assert.EqualValues(t, 2, body["currentPage"])
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "bad input").
		WithDetails(map[string]string{"field": "title"})
	WriteError(context.Background(), nil, w, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "bad input", body["message"])
	assert.Equal(t, string(pkgerrors.CodeValidation), body["code"])
	assert.Equal(t, "title", body["data"].(map[string]any)["field"])
}

func TestWriteErrorConflictRendersAs400(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeConflict, "You have already borrowed this book"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You have already borrowed this book", decode(t, w)["message"])
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	w := httptest.NewRecorder()
	WriteError(context.Background(), logg, w, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "internal server error", body["message"])
	assert.NotContains(t, body, "data")
	assert.Contains(t, buf.String(), "request.error")
	assert.NotContains(t, body["message"], "pq:")
}
