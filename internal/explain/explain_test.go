package explain

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExplainSendsPassage(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "  It means dawn.  "}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1/", "sk-test", "gpt-4o-mini")
	out, err := c.Explain("rosy-fingered")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if out != "It means dawn." {
		t.Errorf("explanation = %q", out)
	}

	if got.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "rosy-fingered" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.Messages[0].Role != "system" {
		t.Errorf("first message role = %q", got.Messages[0].Role)
	}
}

func TestExplainProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "invalid api key"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad", "gpt-4o-mini")
	if _, err := c.Explain("text"); err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("err = %v", err)
	}
}

func TestExplainUnconfigured(t *testing.T) {
	c := NewClient("", "", "")
	if c.Configured() {
		t.Error("empty client reports configured")
	}
	if _, err := c.Explain("text"); err == nil {
		t.Error("expected error from unconfigured client")
	}
}

func TestExplainNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk", "m")
	if _, err := c.Explain("text"); err == nil {
		t.Error("expected error for empty choices")
	}
}
