package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mediashelf/logger"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCORSPreflight(t *testing.T) {
	called := false
	h := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/videos", nil))
	if rec.Code != http.StatusNoContent || called {
		t.Fatalf("preflight: %d called=%v", rec.Code, called)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS headers: %v", rec.Header())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get("X-Request-ID") != seen {
		t.Fatalf("generated id %q, header %q", seen, rec.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" {
		t.Fatalf("incoming id not kept: %q", seen)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/filesystem", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}

	// 已经开始输出时不再追加错误体
	h = recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("abc"))
		panic("mid-stream")
	}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	if rec.Code != http.StatusPartialContent || rec.Body.String() != "abc" {
		t.Fatalf("mid-stream panic: %d %q", rec.Code, rec.Body.String())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := rateLimitMiddleware(1, 1, ok)

	codes := make([]int, 0, 3)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/filesystem", nil))
		codes = append(codes, rec.Code)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos?path=x", nil))
	codes = append(codes, rec.Code)

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests || codes[2] != http.StatusOK {
		t.Fatalf("codes = %v", codes)
	}
}

func TestLoggingMiddlewareLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := logger.ReplaceForTest(zap.New(core))
	defer restore()

	h := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/missing" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	for _, target := range []string{"/api/filesystem", "/api/videos?path=a", "/api/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries, want 2 (video request is debug)", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("levels = %v, %v", entries[0].Level, entries[1].Level)
	}
}

func TestNormalizeRoute(t *testing.T) {
	tests := map[string]string{
		"/api/filesystem":                "/api/filesystem",
		"/api/videos/filesystem/a/b.mp4": "/api/videos/filesystem/:path",
		"/cache/subtitles/Movies/x.vtt":  "/cache/subtitles/:file",
		"/api/video-subtitles/sidecar":   "/api/video-subtitles/sidecar",
		"/wp-login.php":                  "/other",
	}
	for in, want := range tests {
		if got := normalizeRoute(in); got != want {
			t.Errorf("normalizeRoute(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRawQueryParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/videos?depth=1&path=%2Fmedia%2Fa+b%25c.mkv", nil)
	got, ok := rawQueryParam(req, "path")
	if !ok || got != "%2Fmedia%2Fa%20b%25c.mkv" {
		t.Fatalf("rawQueryParam = %q, %v", got, ok)
	}
	if _, ok := rawQueryParam(req, "filter"); ok {
		t.Fatal("absent parameter reported as present")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	if got := clientIP(req); got != "10.0.0.2" {
		t.Fatalf("clientIP = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("clientIP with XFF = %q", got)
	}
}
