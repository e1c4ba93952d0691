package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/morezero/text-decoder/internal/config"
	"github.com/morezero/text-decoder/pkg/decoder"
	"github.com/morezero/text-decoder/pkg/dispatcher"
	"github.com/morezero/text-decoder/pkg/events"
	"github.com/morezero/text-decoder/pkg/popup"
)

const serverTestPrefix = "server:server_test"

// mockHealth implements healthChecker for handler tests.
type mockHealth struct {
	health *dispatcher.HealthOutput
}

func (m *mockHealth) Health(context.Context) *dispatcher.HealthOutput {
	if m.health != nil {
		return m.health
	}
	return &dispatcher.HealthOutput{Status: "unhealthy", Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// recordingPublisher collects published decode events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.DecodeCompletedEvent
}

func (p *recordingPublisher) PublishDecoded(_ context.Context, ev *events.DecodeCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) recorded() []*events.DecodeCompletedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*events.DecodeCompletedEvent(nil), p.events...)
}

// testServer returns a Server with the real decoder and test config for HTTP handler tests.
func testServer(t *testing.T, health healthChecker) (*Server, *recordingPublisher) {
	t.Helper()
	cfg := &config.Config{
		RequestTimeout:     5 * time.Second,
		HealthCheckTimeout: 5 * time.Second,
	}
	pub := &recordingPublisher{}
	if health == nil {
		health = &mockHealth{}
	}
	return &Server{cfg: cfg, svc: decoder.NewService(nil), health: health, publisher: pub}, pub
}

func postForm(t *testing.T, s *Server, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func TestHandlePopup_Get(t *testing.T) {
	s, pub := testServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("%s - status = %d, want 200", serverTestPrefix, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("%s - Content-Type = %q, want text/html", serverTestPrefix, ct)
	}
	body := rec.Body.String()
	for _, id := range []string{
		popup.ElementDecoderType,
		popup.ElementInputText,
		popup.ElementDecodeButton,
		popup.ElementClearButton,
		popup.ElementResultContainer,
		popup.ElementMetadataContainer,
	} {
		if !strings.Contains(body, `id="`+id+`"`) {
			t.Errorf("%s - page missing element %q", serverTestPrefix, id)
		}
	}
	if !strings.Contains(body, `<option value="auto" selected>`) {
		t.Errorf("%s - auto not preselected", serverTestPrefix)
	}
	if !strings.Contains(body, popup.TextPlaceholder) {
		t.Errorf("%s - placeholder missing", serverTestPrefix)
	}
	if !strings.Contains(body, `class="empty"`) {
		t.Errorf("%s - result not in empty state", serverTestPrefix)
	}
	if !strings.Contains(body, "autofocus") {
		t.Errorf("%s - input not focused", serverTestPrefix)
	}
	if len(pub.recorded()) != 0 {
		t.Errorf("%s - GET published %d events, want 0", serverTestPrefix, len(pub.recorded()))
	}
}

func TestHandlePopup_OnlyRoot(t *testing.T) {
	s, _ := testServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/other", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("%s - status = %d, want 404", serverTestPrefix, rec.Code)
	}
}

func TestHandlePopup_MethodNotAllowed(t *testing.T) {
	s, _ := testServer(t, nil)
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("%s - status = %d, want 405", serverTestPrefix, rec.Code)
	}
}

func TestHandlePopup_DecodeSuccess(t *testing.T) {
	s, pub := testServer(t, nil)
	rec := postForm(t, s, url.Values{
		"decoderType": {"base64"},
		"input":       {"aGVsbG8gd29ybGQ="},
		"action":      {"decode"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("%s - status = %d, want 200", serverTestPrefix, rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `class="success">hello world</div>`) {
		t.Errorf("%s - decoded result missing from page", serverTestPrefix)
	}
	if !strings.Contains(body, `<option value="base64" selected>`) {
		t.Errorf("%s - selected decoder not preserved", serverTestPrefix)
	}
	if strings.Contains(body, `value="decode" disabled`) {
		t.Errorf("%s - decode button left disabled", serverTestPrefix)
	}

	got := pub.recorded()
	if len(got) != 1 {
		t.Fatalf("%s - published %d events, want 1", serverTestPrefix, len(got))
	}
	if got[0].Source != events.SourcePopup || !got[0].Success || got[0].ResolvedType != "base64" {
		t.Errorf("%s - event = %+v", serverTestPrefix, got[0])
	}
}

func TestHandlePopup_DecodeJWTShowsMetadata(t *testing.T) {
	s, _ := testServer(t, nil)
	// {"alg":"HS256","typ":"JWT"}.{"sub":"1234567890","name":"John Doe"}.sig
	token := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiIxMjM0NTY3ODkwIiwibmFtZSI6IkpvaG4gRG9lIn0.c2ln"
	rec := postForm(t, s, url.Values{"decoderType": {"jwt"}, "input": {token}})

	body := rec.Body.String()
	if !strings.Contains(body, "JWT Header:") || !strings.Contains(body, "JWT Payload:") {
		t.Errorf("%s - JWT metadata not rendered", serverTestPrefix)
	}
	if strings.Contains(body, `id="metadata-container" style="display: none;"`) {
		t.Errorf("%s - metadata container hidden", serverTestPrefix)
	}
}

func TestHandlePopup_DecodeEmptyInput(t *testing.T) {
	s, pub := testServer(t, nil)
	rec := postForm(t, s, url.Values{"decoderType": {"auto"}, "input": {"   "}})

	body := rec.Body.String()
	if !strings.Contains(body, `class="error">`+decoder.MsgEmptyInput) {
		t.Errorf("%s - empty input message missing", serverTestPrefix)
	}
	if len(pub.recorded()) != 0 {
		t.Errorf("%s - empty input published %d events, want 0", serverTestPrefix, len(pub.recorded()))
	}
}

func TestHandlePopup_DecodeFailure(t *testing.T) {
	s, pub := testServer(t, nil)
	rec := postForm(t, s, url.Values{"decoderType": {"auto"}, "input": {"plain text, nothing else!"}})

	body := rec.Body.String()
	if !strings.Contains(body, `class="error">`+decoder.MsgUndetected) {
		t.Errorf("%s - undetected message missing", serverTestPrefix)
	}
	if !strings.Contains(body, `id="metadata-container" style="display: none;"`) {
		t.Errorf("%s - metadata shown on failure", serverTestPrefix)
	}
	got := pub.recorded()
	if len(got) != 1 || got[0].Success {
		t.Errorf("%s - events = %+v, want one failure", serverTestPrefix, got)
	}
}

func TestHandlePopup_Clear(t *testing.T) {
	s, pub := testServer(t, nil)
	rec := postForm(t, s, url.Values{
		"decoderType": {"hex"},
		"input":       {"48656c6c6f"},
		"action":      {"clear"},
	})

	body := rec.Body.String()
	if strings.Contains(body, "48656c6c6f") {
		t.Errorf("%s - input not cleared", serverTestPrefix)
	}
	if !strings.Contains(body, `<option value="auto" selected>`) {
		t.Errorf("%s - selector not reset to auto", serverTestPrefix)
	}
	if !strings.Contains(body, `class="empty">`+popup.TextPlaceholder) {
		t.Errorf("%s - result not reset", serverTestPrefix)
	}
	if len(pub.recorded()) != 0 {
		t.Errorf("%s - clear published events", serverTestPrefix)
	}
}

func TestHandlePopup_EscapesInput(t *testing.T) {
	s, _ := testServer(t, nil)
	rec := postForm(t, s, url.Values{"decoderType": {"html"}, "input": {"&lt;script&gt;alert(1)&lt;/script&gt;"}})

	body := rec.Body.String()
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Errorf("%s - decoded markup rendered unescaped", serverTestPrefix)
	}
}

func TestListDecodersHandler(t *testing.T) {
	s, _ := testServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/decoders", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("%s - status = %d, want 200", serverTestPrefix, rec.Code)
	}
	var out decoder.ListOutput
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("%s - decode body: %v", serverTestPrefix, err)
	}
	if out.Version != decoder.CatalogVersion {
		t.Errorf("%s - version = %q, want %q", serverTestPrefix, out.Version, decoder.CatalogVersion)
	}
	if len(out.Decoders) != len(decoder.DefaultCatalog()) || out.Decoders[0].Value != decoder.TypeAuto {
		t.Errorf("%s - decoders = %+v", serverTestPrefix, out.Decoders)
	}
}

func TestListDecodersHandler_MethodNotAllowed(t *testing.T) {
	s, _ := testServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/decoders", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("%s - status = %d, want 405", serverTestPrefix, rec.Code)
	}
}

func TestDecodeHandler(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantSuccess bool
		wantResult  string
	}{
		{"explicit base64", `{"input":"aGVsbG8=","decoderType":"base64"}`, http.StatusOK, true, "hello"},
		{"auto url", `{"input":"a%20b%26c"}`, http.StatusOK, true, "a b&c"},
		{"invalid hex", `{"input":"zz","decoderType":"hex"}`, http.StatusOK, false, ""},
		{"bad json", `{"input":`, http.StatusBadRequest, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, pub := testServer(t, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/decode", strings.NewReader(tt.body))
			req.Header.Set("X-Request-ID", "req-1")
			rec := httptest.NewRecorder()
			s.routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("%s - status = %d, want %d", serverTestPrefix, rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if got := rec.Header().Get("X-Request-ID"); got != "req-1" {
				t.Errorf("%s - X-Request-ID = %q, want req-1", serverTestPrefix, got)
			}
			var res decoder.Result
			if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
				t.Fatalf("%s - decode body: %v", serverTestPrefix, err)
			}
			if res.Success != tt.wantSuccess {
				t.Errorf("%s - success = %v, want %v (error %q)", serverTestPrefix, res.Success, tt.wantSuccess, res.Error)
			}
			if tt.wantSuccess && res.Result != tt.wantResult {
				t.Errorf("%s - result = %q, want %q", serverTestPrefix, res.Result, tt.wantResult)
			}
			got := pub.recorded()
			if len(got) != 1 || got[0].Source != events.SourceHTTP {
				t.Errorf("%s - events = %+v, want one http event", serverTestPrefix, got)
			}
		})
	}
}

func TestDecodeHandler_GeneratesRequestID(t *testing.T) {
	s, _ := testServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/decode", strings.NewReader(`{"input":"aGk="}`))
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Errorf("%s - X-Request-ID not generated", serverTestPrefix)
	}
}

func TestDecodeHandler_MethodNotAllowed(t *testing.T) {
	s, _ := testServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/decode", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("%s - status = %d, want 405", serverTestPrefix, rec.Code)
	}
}

func TestDetectHandler(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantType  decoder.Type
		wantLabel bool
	}{
		{"jwt", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.c2ln", decoder.TypeJWT, true},
		{"unicode", "\\u0048\\u0069", decoder.TypeUnicode, true},
		{"plain", "hello, world!", decoder.TypeAuto, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := testServer(t, nil)
			body, _ := json.Marshal(decoder.DetectInput{Text: tt.text})
			req := httptest.NewRequest(http.MethodPost, "/api/detect", strings.NewReader(string(body)))
			rec := httptest.NewRecorder()
			s.routes().ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("%s - status = %d, want 200", serverTestPrefix, rec.Code)
			}
			var out decoder.DetectOutput
			if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
				t.Fatalf("%s - decode body: %v", serverTestPrefix, err)
			}
			if out.Type != tt.wantType {
				t.Errorf("%s - type = %q, want %q", serverTestPrefix, out.Type, tt.wantType)
			}
			if (out.Label != "") != tt.wantLabel {
				t.Errorf("%s - label = %q, wantLabel %v", serverTestPrefix, out.Label, tt.wantLabel)
			}
		})
	}
}

func TestHealthHandler_Healthy(t *testing.T) {
	s, _ := testServer(t, &mockHealth{health: &dispatcher.HealthOutput{
		Status:    "healthy",
		Version:   decoder.CatalogVersion,
		Checks:    map[string]bool{"comms": true},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("%s - status = %d, want 200", serverTestPrefix, rec.Code)
	}
	var h dispatcher.HealthOutput
	if err := json.NewDecoder(rec.Body).Decode(&h); err != nil {
		t.Fatalf("%s - decode body: %v", serverTestPrefix, err)
	}
	if h.Status != "healthy" || !h.Checks["comms"] {
		t.Errorf("%s - health = %+v", serverTestPrefix, h)
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	s, _ := testServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("%s - status = %d, want 503", serverTestPrefix, rec.Code)
	}
}

func TestReadyHandler(t *testing.T) {
	s, _ := testServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("%s - status = %d, want 200", serverTestPrefix, rec.Code)
	}
	var out map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("%s - decode body: %v", serverTestPrefix, err)
	}
	if out["status"] != "ready" {
		t.Errorf("%s - status = %q, want ready", serverTestPrefix, out["status"])
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "b", "c"); got != "b" {
		t.Errorf("%s - firstNonEmpty = %q, want b", serverTestPrefix, got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("%s - firstNonEmpty = %q, want empty", serverTestPrefix, got)
	}
}

func TestDefaultDecoderSubject(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{decoder.CatalogVersion, "cap.more0.decoder.v1"},
		{"2.0.0", "cap.more0.decoder.v2"},
		{"not-a-version", "cap.more0.decoder.v1"},
	}
	for _, tt := range tests {
		if got := defaultDecoderSubject(tt.version); got != tt.want {
			t.Errorf("%s - defaultDecoderSubject(%q) = %q, want %q", serverTestPrefix, tt.version, got, tt.want)
		}
	}
}
