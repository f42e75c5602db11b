// Package registrar syncs the approved-image directory into the
// description store: one cycle lists the directory, diffs content
// hashes against the store, annotates new files through the vision
// model and commits the resulting records.
package registrar

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/your-org/emomatch/internal/annotator"
	"github.com/your-org/emomatch/internal/api/ws"
	"github.com/your-org/emomatch/internal/config"
	"github.com/your-org/emomatch/internal/models"
	"github.com/your-org/emomatch/internal/observability"
	"github.com/your-org/emomatch/internal/queue"
	"github.com/your-org/emomatch/internal/store"
	"github.com/your-org/emomatch/pkg/dto"
)

// ErrCycleInProgress reports that a registration cycle is already
// running; the caller's cycle is skipped, never run in parallel.
var ErrCycleInProgress = errors.New("registrar: cycle already in progress")

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Annotator describes one image.
type Annotator interface {
	Describe(ctx context.Context, imageData []byte, format string) (annotator.Annotation, error)
}

// Embedder turns a description into a vector. Optional; set when the
// embedding matching strategy is configured.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

type Registrar struct {
	cfg       config.EmojiConfig
	store     store.Store
	annotator Annotator
	embedder  Embedder        // may be nil
	events    *queue.Producer // may be nil
	hub       *ws.Hub         // may be nil

	mu      sync.Mutex // single-flight guard
	trigger chan struct{}
}

func New(cfg config.EmojiConfig, st store.Store, ann Annotator) *Registrar {
	return &Registrar{
		cfg:       cfg,
		store:     st,
		annotator: ann,
		trigger:   make(chan struct{}, 1),
	}
}

// WithEmbedder enables description embeddings at registration time.
func (r *Registrar) WithEmbedder(e Embedder) *Registrar {
	r.embedder = e
	return r
}

// WithEvents publishes registration events to NATS.
func (r *Registrar) WithEvents(p *queue.Producer) *Registrar {
	r.events = p
	return r
}

// WithHub broadcasts registration events to websocket subscribers.
func (r *Registrar) WithHub(h *ws.Hub) *Registrar {
	r.hub = h
	return r
}

// Run executes cycles on the configured interval until ctx is
// cancelled. One cycle runs immediately on startup so the registry is
// warm before the first tick.
func (r *Registrar) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval())
	defer ticker.Stop()

	r.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("registrar stopped")
			return
		case <-ticker.C:
			r.runOnce(ctx)
		case <-r.trigger:
			r.runOnce(ctx)
		}
	}
}

// TriggerNow requests an immediate cycle without waiting for the timer.
// Non-blocking; a pending trigger is collapsed into one cycle.
func (r *Registrar) TriggerNow() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Registrar) runOnce(ctx context.Context) {
	if err := r.RunCycle(ctx); err != nil && !errors.Is(err, ErrCycleInProgress) {
		slog.Error("registration cycle failed", "error", err)
	}
}

// RunCycle performs one registration cycle. At most one cycle is active
// at a time; a concurrent call returns ErrCycleInProgress. Per-file
// annotation failures are logged and retried on the next cycle; a
// single failing image never aborts the cycle.
func (r *Registrar) RunCycle(ctx context.Context) error {
	if !r.mu.TryLock() {
		return ErrCycleInProgress
	}
	defer r.mu.Unlock()

	start := time.Now()
	defer func() {
		observability.RegistrarCycleDuration.Observe(time.Since(start).Seconds())
	}()

	r.pruneStale(ctx)

	if err := os.MkdirAll(r.cfg.ApprovedDir, 0o755); err != nil {
		return fmt.Errorf("ensure approved dir: %w", err)
	}
	entries, err := os.ReadDir(r.cfg.ApprovedDir)
	if err != nil {
		return fmt.Errorf("list approved dir: %w", err)
	}

	count, err := r.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count records: %w", err)
	}

	registered := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !imageExts[ext] {
			continue
		}

		path := filepath.Join(r.cfg.ApprovedDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("read approved file", "path", path, "error", err)
			continue
		}

		sum := md5.Sum(data)
		id := hex.EncodeToString(sum[:])
		if _, err := r.store.Get(ctx, id); err == nil {
			continue // already registered
		} else if !errors.Is(err, store.ErrNotFound) {
			slog.Error("check registry for file", "path", path, "error", err)
			continue
		}

		if r.cfg.MaxCount > 0 && count+registered >= r.cfg.MaxCount {
			slog.Warn("registry full, deferring new registrations",
				"max", r.cfg.MaxCount, "pending", entry.Name())
			break
		}

		if err := r.registerFile(ctx, id, path, ext, data); err != nil {
			observability.RegistrationFailures.Inc()
			slog.Error("register emoji, will retry next cycle", "path", path, "error", err)
			continue
		}
		registered++
	}

	if n, err := r.store.Count(ctx); err == nil {
		observability.RegistrySize.Set(float64(n))
	}
	if registered > 0 {
		slog.Info("registration cycle complete", "new", registered, "duration", time.Since(start).String())
	}
	return nil
}

func (r *Registrar) registerFile(ctx context.Context, id, path, ext string, data []byte) error {
	format := strings.TrimPrefix(ext, ".")

	ann, err := r.annotator.Describe(ctx, data, format)
	if err != nil {
		return fmt.Errorf("annotate: %w", err)
	}

	rec := &models.EmojiRecord{
		ID:           id,
		FilePath:     path,
		Format:       format,
		Description:  ann.Description,
		Emotions:     ann.Emotions,
		LastUsedAt:   time.Now(),
		RegisteredAt: time.Now(),
	}

	if r.embedder != nil {
		vec, err := r.embedder.EmbedText(ctx, ann.Description)
		if err != nil {
			return fmt.Errorf("embed description: %w", err)
		}
		rec.Embedding = vec
	}

	if err := r.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	observability.RegistrationsTotal.Inc()
	slog.Info("registered emoji", "id", id, "path", path, "emotions", ann.Emotions)

	r.announce(ctx, dto.WSEvent{Type: "emoji_registered", Data: dto.RegisteredEvent{
		ID:           rec.ID,
		FilePath:     rec.FilePath,
		Description:  rec.Description,
		Emotions:     rec.Emotions,
		RegisteredAt: rec.RegisteredAt.Format(time.RFC3339),
	}}, queue.SubjectRegistered)
	return nil
}

// pruneStale drops records whose backing file vanished or whose
// description is empty. External deletion from the approved directory
// is the supported way to retire an emoji.
func (r *Registrar) pruneStale(ctx context.Context) {
	recs, err := r.store.List(ctx)
	if err != nil {
		slog.Error("list registry for integrity check", "error", err)
		return
	}

	for _, rec := range recs {
		reason := ""
		if _, err := os.Stat(rec.FilePath); os.IsNotExist(err) {
			reason = "file missing"
		} else if rec.Description == "" {
			reason = "empty description"
		}
		if reason == "" {
			continue
		}

		slog.Warn("pruning registry record", "id", rec.ID, "path", rec.FilePath, "reason", reason)
		if err := r.store.Delete(ctx, rec.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.Error("prune registry record", "id", rec.ID, "error", err)
			continue
		}
		observability.RecordsPruned.Inc()
		r.announce(ctx, dto.WSEvent{Type: "emoji_pruned", Data: dto.PrunedEvent{
			ID:       rec.ID,
			FilePath: rec.FilePath,
			Reason:   reason,
		}}, queue.SubjectPruned)
	}
}

func (r *Registrar) announce(ctx context.Context, evt dto.WSEvent, subject string) {
	if r.hub != nil {
		r.hub.BroadcastEvent(&evt)
	}
	if r.events != nil {
		if err := r.events.Publish(ctx, subject, evt); err != nil {
			slog.Warn("publish event", "subject", subject, "error", err)
		}
	}
}
