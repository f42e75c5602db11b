package handlers_test

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/your-org/emomatch/internal/annotator"
	"github.com/your-org/emomatch/internal/api"
	"github.com/your-org/emomatch/internal/api/ws"
	"github.com/your-org/emomatch/internal/config"
	"github.com/your-org/emomatch/internal/intake"
	"github.com/your-org/emomatch/internal/matcher"
	"github.com/your-org/emomatch/internal/models"
	"github.com/your-org/emomatch/internal/registrar"
	"github.com/your-org/emomatch/internal/store"
	"github.com/your-org/emomatch/pkg/dto"
)

type stubAnnotator struct{}

func (stubAnnotator) Describe(ctx context.Context, imageData []byte, format string) (annotator.Annotation, error) {
	return annotator.Annotation{
		Description: "一个开心的表情包",
		Emotions:    []string{"开心"},
	}, nil
}

type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, text string) (models.EmotionSignature, error) {
	return models.EmotionSignature{Keywords: []string{"开心"}}, nil
}

// testService wires the full HTTP surface against temp directories, a
// JSON store and stubbed model calls.
func testService(t *testing.T) (*gin.Engine, config.EmojiConfig, *store.JSONStore, *registrar.Registrar) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := config.EmojiConfig{
		BaseDir:       dir,
		UnreviewedDir: filepath.Join(dir, "unreviewed"),
		ApprovedDir:   filepath.Join(dir, "approved"),
		CheckInterval: 10,
		MaxUploadMB:   10,
	}
	for _, d := range []string{cfg.UnreviewedDir, cfg.ApprovedDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	st, err := store.NewJSONStore(filepath.Join(dir, "emoji_data.json"))
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run()

	reg := registrar.New(cfg, st, stubAnnotator{})
	m := matcher.New(st, stubExtractor{}, matcher.TagScorer{SimilarityLimit: 0.4})

	router := api.NewRouter(api.RouterConfig{
		Emoji:     cfg,
		Intake:    intake.New(cfg),
		Matcher:   m,
		Registrar: reg,
		Store:     st,
		Hub:       hub,
	})
	return router, cfg, st, reg
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadThenApproveThenMatch(t *testing.T) {
	router, cfg, _, reg := testService(t)

	imageBytes := []byte("cat-image-bytes")
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(imageBytes)
	}))
	defer origin.Close()

	// Upload lands the image in the unreviewed holding area.
	w := doJSON(t, router, http.MethodPost, "/api/emoji/upload", dto.UploadRequest{ImageURL: origin.URL + "/cat.png"})
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body)
	}
	var up dto.UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &up); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	sum := md5.Sum(imageBytes)
	if want := hex.EncodeToString(sum[:]) + ".png"; up.Filename != want {
		t.Errorf("filename = %q, want %q", up.Filename, want)
	}

	w = doJSON(t, router, http.MethodGet, "/api/emoji/unreviewed", nil)
	var list dto.ImageListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != 1 {
		t.Fatalf("unreviewed count = %d, want 1", list.Count)
	}

	// Reviewer approves: move the file and run a cycle.
	src := filepath.Join(cfg.UnreviewedDir, up.Filename)
	if err := os.Rename(src, filepath.Join(cfg.ApprovedDir, up.Filename)); err != nil {
		t.Fatalf("approve image: %v", err)
	}
	if err := reg.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	w = doJSON(t, router, http.MethodGet, "/api/emoji/approved", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode approved list: %v", err)
	}
	if list.Count != 1 || list.Images[0].RegisteredID == "" {
		t.Fatalf("approved list = %+v", list)
	}

	// Match now finds the registered emoji.
	w = doJSON(t, router, http.MethodPost, "/api/emoji/match", dto.MatchRequest{Text: "今天真开心"})
	if w.Code != http.StatusOK {
		t.Fatalf("match status = %d, body = %s", w.Code, w.Body)
	}
	var match dto.MatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &match); err != nil {
		t.Fatalf("decode match response: %v", err)
	}
	if match.Status != "ok" || match.Description != "一个开心的表情包" {
		t.Errorf("match response = %+v", match)
	}
	if match.EmojiPath != filepath.Join(cfg.ApprovedDir, up.Filename) {
		t.Errorf("emoji path = %q", match.EmojiPath)
	}
	if match.Base64 == "" {
		t.Error("match response missing image payload")
	}
}

func TestUploadValidation(t *testing.T) {
	router, _, _, _ := testService(t)

	w := doJSON(t, router, http.MethodPost, "/api/emoji/upload", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing image_url status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/emoji/upload", dto.UploadRequest{ImageURL: "ftp://bad"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid url status = %d, want 400", w.Code)
	}

	unreachable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	unreachable.Close()
	w = doJSON(t, router, http.MethodPost, "/api/emoji/upload", dto.UploadRequest{ImageURL: unreachable.URL})
	if w.Code != http.StatusBadGateway {
		t.Errorf("unreachable origin status = %d, want 502", w.Code)
	}
}

func TestMatchValidationAndEmptyRegistry(t *testing.T) {
	router, _, _, _ := testService(t)

	w := doJSON(t, router, http.MethodPost, "/api/emoji/match", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing text status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/emoji/match", dto.MatchRequest{Text: "开心"})
	if w.Code != http.StatusNotFound {
		t.Errorf("empty registry status = %d, want 404", w.Code)
	}
	var resp dto.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Status != "error" || resp.Message == "" {
		t.Errorf("error response = %+v", resp)
	}
}

func TestRegisterNowAccepted(t *testing.T) {
	router, _, _, _ := testService(t)

	w := doJSON(t, router, http.MethodPost, "/api/emoji/register", nil)
	if w.Code != http.StatusAccepted {
		t.Errorf("register status = %d, want 202", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	router, _, _, _ := testService(t)

	w := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/readyz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200", w.Code)
	}
}
