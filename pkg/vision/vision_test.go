package vision

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "meta-llama/Llama-3.2-90B-Vision-Instruct",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "A dog on grass."}
  }]
}`

type upstream struct {
	status int
	body   string
	got    map[string]any
	auth   string
}

func (u *upstream) serve(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("upstream path = %s", r.URL.Path)
		}
		u.auth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		json.Unmarshal(b, &u.got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(u.status)
		io.WriteString(w, u.body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, h http.Handler, body string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/extract_image", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response %q is not JSON: %v", rec.Body.String(), err)
	}
	return rec.Code, out
}

func TestHandler_Output(t *testing.T) {
	up := &upstream{status: http.StatusOK, body: completion}
	srv := up.serve(t)
	h := NewHandler(Config{APIKey: "secret", BaseURL: srv.URL})

	code, out := post(t, h.Mux(), `{"content":"https://example.com/dog.jpg"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, body %v", code, out)
	}
	if out["output"] != "A dog on grass." {
		t.Fatalf("output = %q", out["output"])
	}

	if up.auth != "Bearer secret" {
		t.Errorf("Authorization = %q", up.auth)
	}
	if up.got["model"] != DefaultModel {
		t.Errorf("model = %v", up.got["model"])
	}
	if up.got["max_tokens"] != float64(2048) || up.got["temperature"] != 0.7 || up.got["top_p"] != 0.9 {
		t.Errorf("sampling params = %v %v %v", up.got["max_tokens"], up.got["temperature"], up.got["top_p"])
	}
	raw, _ := json.Marshal(up.got["messages"])
	if !bytes.Contains(raw, []byte("https://example.com/dog.jpg")) || !bytes.Contains(raw, []byte(DefaultPrompt)) {
		t.Errorf("messages = %s", raw)
	}
}

func TestHandler_UpstreamStatusPropagated(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusBadGateway} {
		up := &upstream{status: status, body: `{"error":{"message":"nope"}}`}
		srv := up.serve(t)
		h := NewHandler(Config{BaseURL: srv.URL})

		code, out := post(t, h, `{"content":"https://example.com/a.png"}`)
		if code != status {
			t.Errorf("status = %d, want %d", code, status)
		}
		if out["error"] == "" || out["details"] != "" {
			t.Errorf("body = %v, want error only", out)
		}
	}
}

func TestHandler_UnexpectedFailure(t *testing.T) {
	h := NewHandler(Config{BaseURL: "http://127.0.0.1:1"})

	code, out := post(t, h, `{not json`)
	if code != http.StatusInternalServerError || out["error"] == "" || out["details"] == "" {
		t.Fatalf("bad body: status %d %v", code, out)
	}

	up := &upstream{status: http.StatusOK, body: `{"id":"x","choices":[]}`}
	srv := up.serve(t)
	h = NewHandler(Config{BaseURL: srv.URL})
	code, out = post(t, h, `{"content":"https://example.com/a.png"}`)
	if code != http.StatusInternalServerError || out["details"] == "" {
		t.Fatalf("no choices: status %d %v", code, out)
	}
}

func TestHandler_MissingContent(t *testing.T) {
	h := NewHandler(Config{BaseURL: "http://127.0.0.1:1"})
	code, out := post(t, h, `{}`)
	if code != http.StatusBadRequest || out["error"] == "" {
		t.Fatalf("status %d %v", code, out)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := NewHandler(Config{})
	rec := httptest.NewRecorder()
	h.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/extract_image", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d, want 405", rec.Code)
	}
}
