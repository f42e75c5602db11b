package annotator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/your-org/emomatch/internal/llm"
)

// modelServer answers with a description for image requests and with
// comma-separated tags for plain text requests.
func modelServer(t *testing.T, description, tags string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		content := tags
		if strings.Contains(string(body), "image_url") {
			content = description
		}
		payload := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
}

func TestDescribe(t *testing.T) {
	server := modelServer(t, "一个大笑的猫猫表情包", "开心，嘲笑")
	defer server.Close()

	client := llm.NewClient(llm.Config{BaseURL: server.URL, APIKey: "test"})
	ann := New(client, "vlm", "utils")

	got, err := ann.Describe(context.Background(), []byte("fake-image"), "png")
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if got.Description != "一个大笑的猫猫表情包" {
		t.Errorf("description = %q", got.Description)
	}
	if len(got.Emotions) != 2 || got.Emotions[0] != "开心" || got.Emotions[1] != "嘲笑" {
		t.Errorf("emotions = %v", got.Emotions)
	}
}

func TestDescribeNoTags(t *testing.T) {
	server := modelServer(t, "描述", "   ")
	defer server.Close()

	client := llm.NewClient(llm.Config{BaseURL: server.URL, APIKey: "test"})
	ann := New(client, "vlm", "utils")

	if _, err := ann.Describe(context.Background(), []byte("fake-image"), "png"); err == nil {
		t.Fatal("expected error when the model returns no tags")
	}
}

func TestDescribeModelDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	server.Close() // unreachable

	client := llm.NewClient(llm.Config{BaseURL: server.URL, APIKey: "test"})
	ann := New(client, "vlm", "utils")

	if _, err := ann.Describe(context.Background(), []byte("fake-image"), "gif"); err == nil {
		t.Fatal("expected error when the model endpoint is unreachable")
	}
}

func TestSplitTags(t *testing.T) {
	got := splitTags("开心, 难过 ，惊讶,,")
	want := []string{"开心", "难过", "惊讶"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
