package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"framecloak/internal/api"
	"framecloak/internal/config"
	"framecloak/internal/journal"
	"framecloak/internal/logging"
	"framecloak/internal/pipeline"
	"framecloak/internal/services"
	"framecloak/internal/testsupport"
)

type opsStub struct {
	encodeErr error
	decodeErr error
	gotText   string
	gotVideo  []byte
	requestID string
}

func (o *opsStub) Encode(ctx context.Context, req api.EncodeRequest) (pipeline.EncodeResult, error) {
	o.gotText = req.Text
	o.gotVideo = req.Video
	o.requestID, _ = services.RequestIDFromContext(ctx)
	if o.encodeErr != nil {
		return pipeline.EncodeResult{}, o.encodeErr
	}
	return pipeline.EncodeResult{Video: []byte("mkv-bytes"), ChunkCount: 10, MetadataFrame: 20}, nil
}

func (o *opsStub) Decode(ctx context.Context, req api.DecodeRequest) (api.DecodeResponse, error) {
	o.gotVideo = req.Video
	if o.decodeErr != nil {
		return api.DecodeResponse{}, o.decodeErr
	}
	return api.DecodeResponse{Found: true, Message: "hello", Decrypted: true, Strategy: "metadata", MetadataFrame: 20, Frames: 21, Recovered: 10}, nil
}

type historyStub struct {
	limit int
	kinds []journal.Kind
}

func (h *historyStub) List(_ context.Context, limit int, kinds ...journal.Kind) ([]api.HistoryEntry, error) {
	h.limit = limit
	h.kinds = kinds
	return []api.HistoryEntry{{ID: "abc", Kind: "encode", Status: "succeeded"}}, nil
}

type keyStub struct{ err error }

func (k keyStub) PublicKey(context.Context) (api.PublicKeyResponse, error) {
	if k.err != nil {
		return api.PublicKeyResponse{}, k.err
	}
	return api.PublicKeyResponse{PublicKey: strings.Repeat("ab", 32), Fingerprint: "abababababababab"}, nil
}

func newTestServer(t *testing.T, ops *opsStub, opts ...testsupport.ConfigOption) (*Server, *historyStub, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	history := &historyStub{}
	srv, err := New(cfg, ops, history, keyStub{}, logging.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return srv, history, cfg
}

func multipartBody(t *testing.T, video []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if video != nil {
		part, err := mw.CreateFormFile("video", "input.mp4")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(video); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, &opsStub{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "Server is running" {
		t.Fatalf("unexpected status %q", resp["status"])
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard CORS origin, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
}

func TestEncodeReturnsVideo(t *testing.T) {
	ops := &opsStub{}
	srv, _, _ := newTestServer(t, ops)
	body, contentType := multipartBody(t, []byte("video"), map[string]string{"text": "secret"})
	req := httptest.NewRequest(http.MethodPost, "/api/encode", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "video/x-matroska" {
		t.Fatalf("expected matroska content type, got %q", ct)
	}
	if w.Body.String() != "mkv-bytes" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
	if w.Header().Get("X-Framecloak-Metadata-Frame") != "20" {
		t.Fatalf("expected metadata frame header, got %q", w.Header().Get("X-Framecloak-Metadata-Frame"))
	}
	if ops.gotText != "secret" || string(ops.gotVideo) != "video" {
		t.Fatalf("unexpected request forwarded: text %q video %q", ops.gotText, ops.gotVideo)
	}
	if ops.requestID == "" || ops.requestID != w.Header().Get(requestIDHeader) {
		t.Fatalf("expected request id %q in context, got %q", w.Header().Get(requestIDHeader), ops.requestID)
	}
}

func TestEncodeErrorStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"capacity", services.Wrap(services.ErrCapacity, "allocate", "assign chunks", "too many chunks", nil), http.StatusUnprocessableEntity, "capacity"},
		{"input", services.Wrap(services.ErrInput, "encode", "validate", "text is required", nil), http.StatusBadRequest, "input"},
		{"tool", services.Wrap(services.ErrExternalTool, "encode", "assemble", "ffmpeg failed", nil), http.StatusBadGateway, "external_tool"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "collaborator"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _, _ := newTestServer(t, &opsStub{encodeErr: tc.err})
			body, contentType := multipartBody(t, []byte("video"), map[string]string{"text": "x"})
			req := httptest.NewRequest(http.MethodPost, "/api/encode", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			var resp api.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Kind != tc.kind || resp.RequestID == "" {
				t.Fatalf("unexpected error response %+v", resp)
			}
		})
	}
}

func TestDecodeReturnsJSON(t *testing.T) {
	srv, _, _ := newTestServer(t, &opsStub{})
	body, contentType := multipartBody(t, []byte("video"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/decode", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.DecodeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Found || resp.Message != "hello" || resp.Strategy != "metadata" {
		t.Fatalf("unexpected decode response %+v", resp)
	}
}

func TestDecodeRejectsBadUploads(t *testing.T) {
	srv, _, _ := newTestServer(t, &opsStub{})

	req := httptest.NewRequest(http.MethodPost, "/api/decode", strings.NewReader(`{"video":""}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-multipart body, got %d", w.Code)
	}

	body, contentType := multipartBody(t, nil, map[string]string{"text": "x"})
	req = httptest.NewRequest(http.MethodPost, "/api/decode", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing video, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/decode", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestUploadLimit(t *testing.T) {
	srv, _, cfg := newTestServer(t, &opsStub{})
	video := bytes.Repeat([]byte{1}, int(cfg.MaxUploadBytes())+formOverhead+1)
	body, contentType := multipartBody(t, video, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/decode", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _, _ := newTestServer(t, &opsStub{}, testsupport.WithToken("s3cret"))

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected health to skip auth, got %d", w.Code)
	}
}

func TestHistoryQuery(t *testing.T) {
	srv, history, _ := newTestServer(t, &opsStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=5&kind=decode", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	if history.limit != 5 || len(history.kinds) != 1 || history.kinds[0] != journal.KindDecode {
		t.Fatalf("unexpected query forwarded: limit %d kinds %v", history.limit, history.kinds)
	}
	var resp struct {
		Entries []api.HistoryEntry `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].ID != "abc" {
		t.Fatalf("unexpected entries %+v", resp.Entries)
	}

	for _, query := range []string{"limit=0", "limit=abc", "kind=bogus"} {
		req := httptest.NewRequest(http.MethodGet, "/api/history?"+query, nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", query, w.Code)
		}
	}
}

func TestPublicKey(t *testing.T) {
	srv, _, _ := newTestServer(t, &opsStub{})
	req := httptest.NewRequest(http.MethodGet, "/api/keys/public", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.PublicKeyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.PublicKey) != 64 {
		t.Fatalf("unexpected public key %q", resp.PublicKey)
	}

	cfg := testsupport.NewConfig(t)
	missing := services.Wrap(services.ErrConfiguration, "keys", "load", "no key pair available", nil)
	srv, err := New(cfg, &opsStub{}, nil, keyStub{err: missing}, logging.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/keys/public", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without keys, got %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	srv, _, _ := newTestServer(t, &opsStub{}, testsupport.WithMutation(func(cfg *config.Config) {
		cfg.Server.AllowedOrigins = []string{"https://app.example"}
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/encode", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("expected echoed origin, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin for unknown origin, got %q", got)
	}
}

func TestRequestIDReuse(t *testing.T) {
	srv, _, _ := newTestServer(t, &opsStub{})
	const id = "7d444840-9dc0-11d1-b245-5ffdce74fad2"
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, id)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != id {
		t.Fatalf("expected request id %q reused, got %q", id, got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "not-a-uuid")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got == "not-a-uuid" || got == "" {
		t.Fatalf("expected fresh request id, got %q", got)
	}
}

func TestStartEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := New(cfg, &opsStub{}, nil, keyStub{}, logging.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer first.Stop()

	resp, err := http.Get("http://" + first.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.StatusCode)
	}

	second, err := New(cfg, &opsStub{}, nil, keyStub{}, logging.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := second.Start(ctx); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected lock conflict, got %v", err)
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("expected second start after stop, got %v", err)
	}
	second.Stop()
}

func TestStartRequiresFFmpeg(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMutation(func(cfg *config.Config) {
		cfg.Media.FFmpegBinary = "framecloak-missing-ffmpeg"
	}))
	srv, err := New(cfg, &opsStub{}, nil, keyStub{}, logging.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	err = srv.Start(context.Background())
	if !errors.Is(err, services.ErrConfiguration) || !strings.Contains(err.Error(), "framecloak-missing-ffmpeg") {
		t.Fatalf("expected missing binary error, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	srv, err := New(cfg, &opsStub{}, nil, keyStub{}, logging.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == "" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
