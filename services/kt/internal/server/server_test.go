package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"ktassist/internal/ratelimit"
	"ktassist/pkg/store"
	"ktassist/services/kt/internal/app"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubGenerator struct{}

func (stubGenerator) GenerateText(_ context.Context, system, _ string) (string, error) {
	if system == "" {
		return "short summary", nil
	}
	return "grounded answer", nil
}

func newTestServer(t *testing.T, limiter *ratelimit.FixedWindowLimiter) *httptest.Server {
	t.Helper()
	a, err := app.New(context.Background(), app.Config{
		UploadDir:     t.TempDir(),
		SessionSecret: testSecret,
		SessionTTL:    time.Hour,
		Activity:      store.NewMemoryStore(),
		Generator:     stubGenerator{},
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := New(Config{App: a, LoginLimiter: limiter, MaxUploadBytes: 1 << 20})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func login(t *testing.T, baseURL string) string {
	t.Helper()
	body := []byte(`{"email":"dev@example.com","password":"pw"}`)
	resp, err := http.Post(baseURL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login expected 200, got %d", resp.StatusCode)
	}
	var res app.LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if res.Token == "" || res.Email != "dev@example.com" {
		t.Fatalf("unexpected login result: %+v", res)
	}
	return res.Token
}

func authedRequest(t *testing.T, method, url, token, contentType string, body *bytes.Buffer) *http.Response {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func multipartBody(t *testing.T, files map[string]string, order []string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for _, name := range order {
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write([]byte(files[name])); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return buf, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestLoginValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Post(ts.URL+"/api/login", "application/json", strings.NewReader(`{"email":"a@b.c"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "missing_credentials" || body.RequestID == "" {
		t.Fatalf("unexpected error body: %+v", body)
	}

	get, err := http.Get(ts.URL + "/api/login")
	if err != nil {
		t.Fatalf("get login: %v", err)
	}
	get.Body.Close()
	if get.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", get.StatusCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, path := range []string{"/api/documents", "/api/summaries", "/api/chat"} {
		resp := authedRequest(t, http.MethodGet, ts.URL+path, "", "", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s without token: expected 401, got %d", path, resp.StatusCode)
		}
		resp = authedRequest(t, http.MethodGet, ts.URL+path, "not-a-token", "", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s with bad token: expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func TestUploadSummarizeAndChat(t *testing.T) {
	ts := newTestServer(t, nil)
	token := login(t, ts.URL)

	body, ct := multipartBody(t, map[string]string{
		"handover.txt": "The deploy runs every Tuesday.",
		"notes.md":     "ignored format",
	}, []string{"handover.txt", "notes.md"})
	resp := authedRequest(t, http.MethodPost, ts.URL+"/api/documents", token, ct, body)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("upload expected 200, got %d", resp.StatusCode)
	}
	var uploaded struct {
		Items     []uploadItem `json:"items"`
		Processed int          `json:"processed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	resp.Body.Close()
	if uploaded.Processed != 2 || len(uploaded.Items) != 2 {
		t.Fatalf("unexpected upload response: %+v", uploaded)
	}

	// Re-uploading the same name is skipped.
	again, ct := multipartBody(t, map[string]string{"handover.txt": "changed"}, []string{"handover.txt"})
	resp = authedRequest(t, http.MethodPost, ts.URL+"/api/documents", token, ct, again)
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		t.Fatalf("decode re-upload: %v", err)
	}
	resp.Body.Close()
	if uploaded.Processed != 0 || !uploaded.Items[0].Skipped {
		t.Fatalf("expected duplicate to be skipped: %+v", uploaded)
	}

	resp = authedRequest(t, http.MethodGet, ts.URL+"/api/summaries", token, "", nil)
	var summaries struct {
		Items []app.Summary `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		t.Fatalf("decode summaries: %v", err)
	}
	resp.Body.Close()
	if len(summaries.Items) != 2 || summaries.Items[0].Filename != "handover.txt" || summaries.Items[0].Summary != "short summary" {
		t.Fatalf("unexpected summaries: %+v", summaries.Items)
	}

	resp = authedRequest(t, http.MethodPost, ts.URL+"/api/chat", token, "application/json",
		bytes.NewBufferString(`{"question":"When is the deploy?"}`))
	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	resp.Body.Close()
	if chat.Answer.Content != "grounded answer" {
		t.Fatalf("unexpected answer: %+v", chat)
	}

	resp = authedRequest(t, http.MethodPost, ts.URL+"/api/chat", token, "application/json",
		bytes.NewBufferString(`{"question":"   "}`))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank question expected 400, got %d", resp.StatusCode)
	}

	resp = authedRequest(t, http.MethodGet, ts.URL+"/api/chat", token, "", nil)
	var history struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	resp.Body.Close()
	if history.Count != 2 {
		t.Fatalf("expected two history turns, got %d", history.Count)
	}
}

func TestUploadRequiresFileField(t *testing.T) {
	ts := newTestServer(t, nil)
	token := login(t, ts.URL)
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	_ = mw.WriteField("note", "no file here")
	_ = mw.Close()
	resp := authedRequest(t, http.MethodPost, ts.URL+"/api/documents", token, mw.FormDataContentType(), buf)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	ts := newTestServer(t, nil)
	token := login(t, ts.URL)
	resp := authedRequest(t, http.MethodPost, ts.URL+"/api/logout", token, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout expected 200, got %d", resp.StatusCode)
	}
	resp = authedRequest(t, http.MethodGet, ts.URL+"/api/documents", token, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("token should be rejected after logout, got %d", resp.StatusCode)
	}
}

func TestLoginRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(redis.Addr(), "", "test:login", 1, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	ts := newTestServer(t, limiter)

	body := []byte(`{"email":"u@example.com","password":"pass"}`)
	resp1, err := http.Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("first login request failed: %v", err)
	}
	resp1.Body.Close()
	if resp1.StatusCode != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", resp1.StatusCode)
	}

	resp2, err := http.Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("second login request failed: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", resp2.StatusCode)
	}
	if resp2.Header.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := bearerToken(req); ok {
		t.Fatalf("missing header should not yield a token")
	}
	req.Header.Set("Authorization", "Bearer   ")
	if _, ok := bearerToken(req); ok {
		t.Fatalf("blank bearer should not yield a token")
	}
	req.Header.Set("Authorization", "Bearer abc")
	if tok, ok := bearerToken(req); !ok || tok != "abc" {
		t.Fatalf("expected abc, got %q", tok)
	}
}
