package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/emomatch/internal/api/ws"
	"github.com/your-org/emomatch/internal/config"
	"github.com/your-org/emomatch/internal/intake"
	"github.com/your-org/emomatch/internal/matcher"
	"github.com/your-org/emomatch/internal/observability"
	"github.com/your-org/emomatch/internal/queue"
	"github.com/your-org/emomatch/internal/registrar"
	"github.com/your-org/emomatch/internal/store"
	"github.com/your-org/emomatch/pkg/dto"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type EmojiHandler struct {
	intake    *intake.Intake
	matcher   *matcher.Matcher
	registrar *registrar.Registrar
	store     store.Store
	cfg       config.EmojiConfig
	hub       *ws.Hub
	events    *queue.Producer // may be nil
}

func NewEmojiHandler(in *intake.Intake, m *matcher.Matcher, reg *registrar.Registrar,
	st store.Store, cfg config.EmojiConfig, hub *ws.Hub, events *queue.Producer) *EmojiHandler {
	return &EmojiHandler{
		intake:    in,
		matcher:   m,
		registrar: reg,
		store:     st,
		cfg:       cfg,
		hub:       hub,
		events:    events,
	}
}

// Upload fetches an image URL into the unreviewed holding area.
func (h *EmojiHandler) Upload(c *gin.Context) {
	var req dto.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		observability.UploadsTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Status: "error", Message: "image_url is required"})
		return
	}

	img, err := h.intake.Submit(c.Request.Context(), req.ImageURL)
	switch {
	case errors.Is(err, intake.ErrInvalidURL):
		observability.UploadsTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Status: "error", Message: err.Error()})
		return
	case errors.Is(err, intake.ErrFetch):
		observability.UploadsTotal.WithLabelValues("fetch_error").Inc()
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Status: "error", Message: err.Error()})
		return
	case err != nil:
		observability.UploadsTotal.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Status: "error", Message: err.Error()})
		return
	}

	observability.UploadsTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, dto.UploadResponse{
		Status:   "ok",
		Message:  "image stored for review",
		Filename: filepath.Base(img.LocalPath),
	})
}

// Match returns the registered emoji that best fits the emotional
// content of the submitted text.
func (h *EmojiHandler) Match(c *gin.Context) {
	var req dto.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		observability.MatchesTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Status: "error", Message: "text is required"})
		return
	}

	result, err := h.matcher.Match(c.Request.Context(), req.Text)
	switch {
	case errors.Is(err, matcher.ErrNoCandidates):
		observability.MatchesTotal.WithLabelValues("no_candidates").Inc()
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Status:  "error",
			Message: "no matching emoji in registry; upload and approve images first",
		})
		return
	case err != nil:
		observability.MatchesTotal.WithLabelValues("model_error").Inc()
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Status: "error", Message: err.Error()})
		return
	}

	observability.MatchesTotal.WithLabelValues("ok").Inc()

	evt := dto.WSEvent{Type: "emoji_matched", Data: dto.MatchedEvent{
		ID:    result.Record.ID,
		Text:  req.Text,
		Score: result.Score,
	}}
	h.hub.BroadcastEvent(&evt)
	if h.events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.events.Publish(ctx, queue.SubjectMatched, evt); err != nil {
			// Event delivery is best-effort; the match itself succeeded.
			_ = err
		}
	}

	c.JSON(http.StatusOK, dto.MatchResponse{
		Status:      "ok",
		Text:        req.Text,
		EmojiPath:   result.Record.FilePath,
		Description: result.Record.Description,
		Base64:      base64.StdEncoding.EncodeToString(result.ImageData),
	})
}

// RegisterNow triggers a registration cycle without waiting for the
// timer. The cycle runs asynchronously.
func (h *EmojiHandler) RegisterNow(c *gin.Context) {
	h.registrar.TriggerNow()
	c.JSON(http.StatusAccepted, dto.RegisterNowResponse{
		Status:  "ok",
		Message: "registration cycle triggered",
	})
}

// ListUnreviewed lists images awaiting human review.
func (h *EmojiHandler) ListUnreviewed(c *gin.Context) {
	h.listDir(c, h.cfg.UnreviewedDir, nil)
}

// ListApproved lists approved images, annotated with their registry id
// when a record exists.
func (h *EmojiHandler) ListApproved(c *gin.Context) {
	recs, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Status: "error", Message: err.Error()})
		return
	}
	idByPath := make(map[string]string, len(recs))
	for _, r := range recs {
		idByPath[r.FilePath] = r.ID
	}
	h.listDir(c, h.cfg.ApprovedDir, idByPath)
}

func (h *EmojiHandler) listDir(c *gin.Context, dir string, idByPath map[string]string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusOK, dto.ImageListResponse{Count: 0, Images: []dto.ImageInfo{}})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Status: "error", Message: err.Error()})
		return
	}

	images := make([]dto.ImageInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		images = append(images, dto.ImageInfo{
			Filename:     entry.Name(),
			Path:         path,
			SizeBytes:    info.Size(),
			ModifiedAt:   info.ModTime().Format(time.RFC3339),
			RegisteredID: idByPath[path],
		})
	}

	c.JSON(http.StatusOK, dto.ImageListResponse{Count: len(images), Images: images})
}
