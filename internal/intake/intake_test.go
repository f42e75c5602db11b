package intake

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/your-org/emomatch/internal/config"
)

func newTestIntake(t *testing.T, maxMB int) (*Intake, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "unreviewed")
	cfg := config.EmojiConfig{UnreviewedDir: dir, MaxUploadMB: maxMB}
	return New(cfg), dir
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	return entries
}

func TestSubmitStoresImage(t *testing.T) {
	body := []byte("png-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	in, dir := newTestIntake(t, 10)
	img, err := in.Submit(context.Background(), server.URL+"/cat.png")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	sum := md5.Sum(body)
	wantName := hex.EncodeToString(sum[:]) + ".png"
	if filepath.Base(img.LocalPath) != wantName {
		t.Errorf("filename = %q, want %q", filepath.Base(img.LocalPath), wantName)
	}
	got, err := os.ReadFile(filepath.Join(dir, wantName))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("stored bytes = %q", got)
	}
	if entries := dirEntries(t, dir); len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1 (no temp leftovers)", len(entries))
	}
}

func TestSubmitSameImageTwiceIsOneFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/gif")
		_, _ = w.Write([]byte("gif-bytes"))
	}))
	defer server.Close()

	in, dir := newTestIntake(t, 10)
	for i := 0; i < 2; i++ {
		if _, err := in.Submit(context.Background(), server.URL); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	if entries := dirEntries(t, dir); len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1", len(entries))
	}
}

func TestSubmitInvalidURL(t *testing.T) {
	in, dir := newTestIntake(t, 10)
	for _, bad := range []string{"", "not a url", "ftp://example.com/x.png", "http://"} {
		if _, err := in.Submit(context.Background(), bad); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Submit(%q) err = %v, want ErrInvalidURL", bad, err)
		}
	}
	if entries := dirEntries(t, dir); len(entries) != 0 {
		t.Errorf("dir not empty after rejected submissions")
	}
}

func TestSubmitFetchFailures(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer notFound.Close()
	notImage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer notImage.Close()
	unreachable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	unreachable.Close()

	in, dir := newTestIntake(t, 10)
	for name, url := range map[string]string{
		"http 404":     notFound.URL,
		"not an image": notImage.URL,
		"conn refused": unreachable.URL,
	} {
		if _, err := in.Submit(context.Background(), url); !errors.Is(err, ErrFetch) {
			t.Errorf("%s: err = %v, want ErrFetch", name, err)
		}
	}
	if entries := dirEntries(t, dir); len(entries) != 0 {
		t.Errorf("dir not empty after failed fetches")
	}
}

func TestSubmitRejectsOversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte(strings.Repeat("x", 2*1024*1024)))
	}))
	defer server.Close()

	in, dir := newTestIntake(t, 1)
	if _, err := in.Submit(context.Background(), server.URL); !errors.Is(err, ErrFetch) {
		t.Errorf("err = %v, want ErrFetch for oversized body", err)
	}
	if entries := dirEntries(t, dir); len(entries) != 0 {
		t.Errorf("dir not empty after oversized fetch")
	}
}
