package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DeBrosOfficial/chainfiles/pkg/blobstore"
	"github.com/DeBrosOfficial/chainfiles/pkg/blobstore/blobstoretest"
	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
)

func newTestServer(t *testing.T, jwt string) (*Server, *blobstoretest.Server) {
	t.Helper()
	upstream := blobstoretest.NewServer()
	upstream.JWT = "server-jwt"
	t.Cleanup(upstream.Close)

	s := New(Config{
		PinataJWT:    jwt,
		PinataAPIURL: upstream.URL,
		Gateway:      upstream.URL,
	}, logging.NewNopLogger())
	return s, upstream
}

func multipartBody(t *testing.T, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(data)
	_ = mw.WriteField("pinataOptions", `{"cidVersion":1}`)
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestUpload_ForwardsWithServerCredential(t *testing.T) {
	s, upstream := newTestServer(t, "server-jwt")

	body, ct := multipartBody(t, "hello.txt", []byte("hello world"))
	req := httptest.NewRequest(http.MethodPost, "/api/pinata-upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	if got["IpfsHash"] != blobstoretest.CIDFor([]byte("hello world")) {
		t.Errorf("IpfsHash = %v", got["IpfsHash"])
	}

	uploads := upstream.Uploads()
	if len(uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(uploads))
	}
	if uploads[0].Authorization != "Bearer server-jwt" {
		t.Errorf("Authorization = %q", uploads[0].Authorization)
	}
	if uploads[0].FileName != "hello.txt" || uploads[0].Options != `{"cidVersion":1}` {
		t.Errorf("upload = %+v", uploads[0])
	}
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		jwt         string
		method      string
		contentType string
		wantStatus  int
		wantError   string
	}{
		{"wrong method", "server-jwt", http.MethodGet, "", http.StatusMethodNotAllowed, "Method not allowed"},
		{"missing jwt", "", http.MethodPost, "multipart/form-data; boundary=x", http.StatusInternalServerError, "Pinata JWT not configured"},
		{"not multipart", "server-jwt", http.MethodPost, "application/json", http.StatusBadRequest, "Invalid request format. Content-Type must be multipart/form-data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, upstream := newTestServer(t, tt.jwt)
			req := httptest.NewRequest(tt.method, "/api/pinata-upload", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			s.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeBody(t, rec)["error"]; got != tt.wantError {
				t.Errorf("error = %v, want %q", got, tt.wantError)
			}
			if n := len(upstream.Uploads()); n != 0 {
				t.Errorf("upstream saw %d uploads", n)
			}
		})
	}
}

func TestUpload_RelaysUpstreamFailure(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantError any
	}{
		{"json error", http.StatusBadRequest, `{"error":"File too big"}`, "File too big"},
		{"plain text", http.StatusBadGateway, "upstream down", "upstream down"},
		{"empty", http.StatusServiceUnavailable, "", "HTTP 503: Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, upstream := newTestServer(t, "server-jwt")
			upstream.FailUpload = tt.status
			upstream.FailBody = tt.body

			body, ct := multipartBody(t, "a.bin", []byte{1, 2, 3})
			req := httptest.NewRequest(http.MethodPost, "/api/pinata-upload", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			s.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := decodeBody(t, rec)["error"]; got != tt.wantError {
				t.Errorf("error = %v, want %v", got, tt.wantError)
			}
		})
	}
}

func TestUpload_WrongCredentialRelays401(t *testing.T) {
	s, _ := newTestServer(t, "stale-jwt")

	body, ct := multipartBody(t, "a.bin", []byte{1})
	req := httptest.NewRequest(http.MethodPost, "/api/pinata-upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestUpload_BodyLimit(t *testing.T) {
	s, upstream := newTestServer(t, "server-jwt")
	s.cfg.MaxUploadBytes = 64

	body, ct := multipartBody(t, "big.bin", bytes.Repeat([]byte("x"), 1024))
	req := httptest.NewRequest(http.MethodPost, "/api/pinata-upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"SIZE_EXCEEDED"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if len(upstream.Uploads()) != 0 {
		t.Error("oversized body reached upstream")
	}
}

func TestDownload(t *testing.T) {
	s, upstream := newTestServer(t, "server-jwt")
	id := upstream.Put([]byte("%PDF-1.4"), "application/pdf")

	tests := []struct {
		name        string
		method      string
		query       string
		wantStatus  int
		wantError   string
		wantFile    string
		wantContent string
	}{
		{"named", http.MethodGet, "?hash=" + id + "&fileName=report.pdf", http.StatusOK, "", "report.pdf", "%PDF-1.4"},
		{"default name", http.MethodGet, "?hash=" + id, http.StatusOK, "", "download", "%PDF-1.4"},
		{"ipfs scheme", http.MethodGet, "?hash=ipfs://" + id, http.StatusOK, "", "download", "%PDF-1.4"},
		{"missing hash", http.MethodGet, "", http.StatusBadRequest, "IPFS hash is required", "", ""},
		{"invalid hash", http.MethodGet, "?hash=not-a-cid", http.StatusBadRequest, "invalid IPFS hash", "", ""},
		{"unknown blob", http.MethodGet, "?hash=" + blobstoretest.CIDFor([]byte("nope")), http.StatusNotFound, "Failed to fetch from IPFS", "", ""},
		{"wrong method", http.MethodPost, "?hash=" + id, http.StatusMethodNotAllowed, "Method not allowed", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/ipfs-download"+tt.query, nil)
			rec := httptest.NewRecorder()
			s.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantError != "" {
				if got := decodeBody(t, rec)["error"]; got != tt.wantError {
					t.Errorf("error = %v, want %q", got, tt.wantError)
				}
				return
			}
			cd := rec.Header().Get("Content-Disposition")
			if !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, tt.wantFile) {
				t.Errorf("Content-Disposition = %q", cd)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
				t.Errorf("Content-Type = %q", ct)
			}
			if rec.Body.String() != tt.wantContent {
				t.Errorf("body = %q", rec.Body.String())
			}
		})
	}
}

func TestLegacyPaths(t *testing.T) {
	s, upstream := newTestServer(t, "server-jwt")
	id := upstream.Put([]byte("legacy"), "text/plain")

	req := httptest.NewRequest(http.MethodGet, LegacyDownloadPath+"?hash="+id, nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "legacy" {
		t.Fatalf("download via legacy path: %d %q", rec.Code, rec.Body.String())
	}

	body, ct := multipartBody(t, "l.txt", []byte("legacy upload"))
	req = httptest.NewRequest(http.MethodPost, LegacyUploadPath, body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload via legacy path: %d", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name      string
		jwt       string
		wantAuth  bool
		wantError string
	}{
		{"valid", "server-jwt", true, ""},
		{"invalid", "other", false, "HTTP 401: Unauthorized"},
		{"unset", "", false, "Pinata JWT not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.jwt)
			rec := httptest.NewRecorder()
			s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pinata-status", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			body := decodeBody(t, rec)
			if got, ok := body["authenticated"].(bool); !ok || got != tt.wantAuth {
				t.Errorf("authenticated = %v, want %v", body["authenticated"], tt.wantAuth)
			}
			if tt.wantError == "" {
				if _, ok := body["error"]; ok {
					t.Errorf("unexpected error field: %v", body["error"])
				}
			} else if body["error"] != tt.wantError {
				t.Errorf("error = %v, want %q", body["error"], tt.wantError)
			}
		})
	}
}

func TestStatusUpstreamUnreachable(t *testing.T) {
	s, upstream := newTestServer(t, "server-jwt")
	upstream.Close()

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pinata-status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["authenticated"] != false || body["error"] == nil {
		t.Errorf("body = %v", body)
	}
}

// The blob store client in proxy mode trusts the authenticated field, not the status code.
func TestStatusSeenByBlobStoreClient(t *testing.T) {
	for _, tt := range []struct {
		jwt  string
		want bool
	}{
		{"server-jwt", true},
		{"other", false},
		{"", false},
	} {
		s, _ := newTestServer(t, tt.jwt)
		proxySrv := httptest.NewServer(s.Routes())
		client := blobstore.NewClient(blobstore.Config{Gateway: proxySrv.URL, ProxyURL: proxySrv.URL}, logging.NewNopLogger())
		if got := client.TestConnection(context.Background()); got != tt.want {
			t.Errorf("jwt %q: TestConnection = %v, want %v", tt.jwt, got, tt.want)
		}
		proxySrv.Close()
	}
}

func TestHealthAndCORS(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if got := decodeBody(t, rec); got["status"] != "ok" || got["jwt_configured"] != false {
		t.Errorf("health = %v", got)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	rec = httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/pinata-upload", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	upstream := blobstoretest.NewServer()
	defer upstream.Close()
	s := New(Config{
		PinataJWT:          "jwt",
		PinataAPIURL:       upstream.URL,
		Gateway:            upstream.URL,
		RateLimitPerMinute: 60,
		RateLimitBurst:     2,
	}, logging.NewNopLogger())

	do := func(path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		s.Routes().ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("/api/ipfs-download", "10.0.0.1"); rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d limited too early", i)
		}
	}
	rec := do("/api/ipfs-download", "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "5" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if rec := do("/api/ipfs-download", "10.0.0.2"); rec.Code == http.StatusTooManyRequests {
		t.Error("other client should not be limited")
	}
	if rec := do("/health", "10.0.0.1"); rec.Code != http.StatusOK {
		t.Errorf("health limited: %d", rec.Code)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") {
		t.Fatal("first request denied")
	}
	if rl.Allow("a") {
		t.Fatal("burst of 1 should deny the second request")
	}

	now = now.Add(2 * time.Second)
	if !rl.Allow("a") {
		t.Error("token should refill after a second")
	}

	rl.Allow("b")
	now = now.Add(time.Hour)
	rl.Allow("c")
	rl.Cleanup(10 * time.Minute)
	if got := rl.size(); got != 1 {
		t.Errorf("clients after cleanup = %d, want 1", got)
	}
}

func TestUploadRelaysBodyVerbatim(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if !bytes.Contains(raw, []byte("payload-bytes")) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"IpfsHash":"bafyfake","PinSize":13}`)
	}))
	defer upstream.Close()

	s := New(Config{PinataJWT: "jwt", PinataAPIURL: upstream.URL + "/"}, logging.NewNopLogger())
	body, ct := multipartBody(t, "p.bin", []byte("payload-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/pinata-upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["PinSize"]; got != float64(13) {
		t.Errorf("PinSize = %v", got)
	}
}
