package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithCORS_AllowsSingleOrigin(t *testing.T) {
	h := withCORS("http://localhost:3000", false, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/index", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Fatalf("unexpected vary: %q", got)
	}
}

func TestWithCORS_AllowsFromCSVList(t *testing.T) {
	h := withCORS("http://192.168.0.251:3000,http://cbs:3000", false, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/index", nil)
	req.Header.Set("Origin", "http://cbs:3000")
	w := httptest.NewRecorder()
	h(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://cbs:3000" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
}

func TestWithCORS_BlocksUnknownOriginFromCSVList(t *testing.T) {
	h := withCORS("http://192.168.0.251:3000,http://cbs:3000", false, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/index", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	h(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin for blocked origin: %q", got)
	}
}

func TestWithCORS_PreflightListsWriteMethods(t *testing.T) {
	called := false
	h := withCORS("*", false, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodOptions, "/products/1", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h(w, req)

	if called {
		t.Fatalf("preflight reached the handler")
	}
	if w.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, DELETE, OPTIONS" {
		t.Fatalf("unexpected allow methods: %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
}

func TestWithCORS_WildcardWithCredentialsEchoesOrigin(t *testing.T) {
	h := withCORS("*", true, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.Header.Set("Origin", "http://cbs:3000")
	w := httptest.NewRecorder()
	h(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://cbs:3000" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("unexpected allow credentials: %q", got)
	}
}
