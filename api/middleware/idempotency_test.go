package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestRuleSelection(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		want     time.Duration
		streamed bool
		ok       bool
	}{
		{"borrow", http.MethodPost, "/api/books/8c1f/borrow", criticalIdempotencyTTL, false, true},
		{"return", http.MethodPost, "/api/books/8c1f/return", criticalIdempotencyTTL, false, true},
		{"issue on behalf", http.MethodPost, "/api/students/42/issue-book", criticalIdempotencyTTL, false, true},
		{"settle", http.MethodPost, "/api/students/42/settle-fine", criticalIdempotencyTTL, false, true},
		{"upload", http.MethodPost, "/api/digital-content/upload", defaultIdempotencyTTL, true, true},
		{"register", http.MethodPost, "/api/auth/register", defaultIdempotencyTTL, false, true},
		{"login", http.MethodPost, "/api/auth/login", 0, false, false},
		{"book read", http.MethodGet, "/api/books/8c1f", 0, false, false},
	}

	for _, tt := range tests {
		rule, ok := matchRule(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && (rule.ttl != tt.want || rule.streamed != tt.streamed) {
			t.Fatalf("%s: unexpected rule %+v", tt.name, rule)
		}
	}
}

func TestIdempotencyMiddlewarePassesThroughWithoutKey(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, "/api/books/1/borrow", "/api/books/{id}/borrow", nil)
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", resp.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("handler executed %d times, expected 2", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestIdempotencyMiddlewareSkipsServerErrors(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	req := requestWithPattern(http.MethodPost, "/api/books/1/return", "/api/books/{id}/return", nil)
	req.Header.Set("Idempotency-Key", "k1")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	if len(store.data) != 0 {
		t.Fatalf("expected 5xx response not to be stored")
	}
}

func TestIdempotencyMiddlewareFingerprintsStreamedBodies(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	send := func(body string) int {
		req := requestWithPattern(http.MethodPost, "/api/digital-content/upload", "/api/digital-content/upload", strings.NewReader(body))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		req.Header.Set("Idempotency-Key", "up-1")
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, req)
		return resp.Code
	}

	if code := send("aaaa"); code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", code)
	}
	if code := send("bbbb"); code != http.StatusCreated {
		t.Fatalf("expected replay 201 got %d", code)
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	if code := send("longer body"); code != http.StatusConflict {
		t.Fatalf("expected 409 for different size got %d", code)
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := requestWithPattern(http.MethodPost, "/api/books/42/borrow", "/api/books/{id}/borrow", strings.NewReader(`{"foo":"bar"}`))
	req.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected first response 202 got %d", resp.Code)
	}

	replay := requestWithPattern(http.MethodPost, "/api/books/42/borrow", "/api/books/{id}/borrow", strings.NewReader(`{"foo":"bar"}`))
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected replay status 202 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := requestWithPattern(http.MethodPost, "/api/books/42/borrow", "/api/books/{id}/borrow", strings.NewReader(`{"foo":"bar"}`))
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := requestWithPattern(http.MethodPost, "/api/books/42/borrow", "/api/books/{id}/borrow", strings.NewReader(`{"foo":"diff"}`))
	replay.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Code)
	}
}
