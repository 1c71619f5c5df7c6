package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/library-backend/api/middleware"
	pkgAuth "github.com/angelmondragon/library-backend/pkg/auth"
	"github.com/angelmondragon/library-backend/pkg/enums"
)

type envelope struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	Code        string          `json:"code"`
	Data        json.RawMessage `json:"data"`
	Count       *int            `json:"count"`
	Total       *int64          `json:"total"`
	Pages       *int            `json:"pages"`
	CurrentPage *int            `json:"currentPage"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func newRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func jsonBody(raw string) io.Reader {
	return strings.NewReader(raw)
}

// withParams attaches chi URL params to req.
func withParams(req *http.Request, kv ...string) *http.Request {
	rc := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rc.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func as(req *http.Request, role enums.UserRole) (*http.Request, pkgAuth.Principal) {
	p := pkgAuth.Principal{UserID: uuid.New(), Role: role}
	return req.WithContext(middleware.WithPrincipal(req.Context(), p)), p
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
