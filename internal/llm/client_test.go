package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{"content": content},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
}

func TestComplete(t *testing.T) {
	server := chatServer(t, "开心,惊讶")
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	got, err := client.Complete(context.Background(), "demo-model", "prompt", 0.7)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "开心,惊讶" {
		t.Errorf("content = %q", got)
	}
}

func TestCompleteStripsCodeFence(t *testing.T) {
	server := chatServer(t, "```text\n开心\n```")
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	got, err := client.Complete(context.Background(), "demo-model", "prompt", 0.7)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "开心" {
		t.Errorf("content = %q", got)
	}
}

func TestCompleteWithImagePayload(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		payload := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "a meme"}}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key", MaxTokens: 100})
	got, err := client.CompleteWithImage(context.Background(), "vlm", "describe", "aGVsbG8=", "png", 0.3)
	if err != nil {
		t.Fatalf("CompleteWithImage returned error: %v", err)
	}
	if got != "a meme" {
		t.Errorf("content = %q", got)
	}

	raw, _ := json.Marshal(body)
	if !strings.Contains(string(raw), "data:image/png;base64,aGVsbG8=") {
		t.Errorf("request body missing image data url: %s", raw)
	}
	if body["model"] != "vlm" {
		t.Errorf("model = %v", body["model"])
	}
}

func TestCompleteEmptyContent(t *testing.T) {
	server := chatServer(t, "")
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	_, err := client.Complete(context.Background(), "demo-model", "prompt", 0.7)
	if err == nil {
		t.Fatal("expected error for empty content")
	}
	if !strings.Contains(err.Error(), "unparseable") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCompleteHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	if _, err := client.Complete(context.Background(), "demo-model", "prompt", 0.7); err == nil {
		t.Fatal("expected error for http 429")
	}
}

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		payload := map[string]any{
			"data": []any{map[string]any{"embedding": []float64{0.1, 0.2, 0.3}}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	vec, err := client.Embed(context.Background(), "embed-model", "some text")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("vec = %v", vec)
	}
}

func TestEmbedEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	if _, err := client.Embed(context.Background(), "embed-model", "some text"); err == nil {
		t.Fatal("expected error for empty embedding response")
	}
}
