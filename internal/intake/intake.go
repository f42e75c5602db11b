// Package intake accepts image URLs from chat agents and stores the
// fetched bytes in the unreviewed holding area. Promotion to the
// approved directory is a manual, external step.
package intake

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/emomatch/internal/config"
	"github.com/your-org/emomatch/internal/models"
	"github.com/your-org/emomatch/internal/storage"
)

var (
	// ErrInvalidURL reports a malformed or non-http(s) image URL.
	ErrInvalidURL = errors.New("intake: invalid image url")
	// ErrFetch reports a network failure, a non-2xx response, a
	// non-image payload or an oversized body. Retryable by the caller.
	ErrFetch = errors.New("intake: fetch failed")
)

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Intake struct {
	dir        string
	maxBytes   int64
	httpClient *http.Client
	mirror     *storage.MinIOStore // may be nil
}

// Option customizes the intake.
type Option func(*Intake)

// WithHTTPClient overrides the fetch client (useful for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(i *Intake) {
		if client != nil {
			i.httpClient = client
		}
	}
}

// WithMirror copies accepted images into object storage as well.
func WithMirror(m *storage.MinIOStore) Option {
	return func(i *Intake) {
		i.mirror = m
	}
}

func New(cfg config.EmojiConfig, opts ...Option) *Intake {
	i := &Intake{
		dir:        cfg.UnreviewedDir,
		maxBytes:   int64(cfg.MaxUploadMB) * 1024 * 1024,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Submit fetches imageURL and writes the bytes into the unreviewed
// directory under a content-hash filename. A failed fetch leaves the
// directory untouched; there is no automatic retry.
func (i *Intake) Submit(ctx context.Context, imageURL string) (*models.UnreviewedImage, error) {
	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, imageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d from %s", ErrFetch, resp.StatusCode, u.Host)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, fmt.Errorf("%w: content type %q is not an image", ErrFetch, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, i.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}
	if int64(len(data)) > i.maxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrFetch, i.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrFetch)
	}

	ext, ok := extByContentType[mediaType]
	if !ok {
		ext = filepath.Ext(u.Path)
		if ext == "" {
			ext = ".jpg"
		}
	}

	sum := md5.Sum(data)
	filename := hex.EncodeToString(sum[:]) + ext

	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure unreviewed dir: %w", err)
	}

	// Write through a temp name so a crashed write never leaves a
	// half-image for the reviewer.
	localPath := filepath.Join(i.dir, filename)
	tmp := localPath + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("write unreviewed file: %w", err)
	}
	if err := os.Rename(tmp, localPath); err != nil {
		return nil, fmt.Errorf("commit unreviewed file: %w", err)
	}

	if i.mirror != nil {
		if err := i.mirror.PutObject(ctx, "unreviewed/"+filename, data, mediaType); err != nil {
			slog.Warn("mirror unreviewed image", "filename", filename, "error", err)
		}
	}

	slog.Info("stored unreviewed image", "filename", filename, "source", imageURL, "bytes", len(data))
	return &models.UnreviewedImage{
		SourceURL:  imageURL,
		LocalPath:  localPath,
		ReceivedAt: time.Now(),
	}, nil
}
