// Package matcher selects the registry record that best fits the
// emotional reading of a line of text.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/your-org/emomatch/internal/models"
	"github.com/your-org/emomatch/internal/observability"
	"github.com/your-org/emomatch/internal/store"
)

// ErrNoCandidates reports an empty registry, or one in which no record
// scored above zero for the query.
var ErrNoCandidates = errors.New("matcher: no matching emoji in registry")

// Extractor produces an emotion signature for free text.
type Extractor interface {
	Extract(ctx context.Context, text string) (models.EmotionSignature, error)
}

// Result is one successful match. ImageData is read fresh from disk at
// match time so external deletions are detected rather than cached over.
type Result struct {
	Record    models.EmojiRecord
	Score     float64
	ImageData []byte
	MatchedAt time.Time
}

type Matcher struct {
	store     store.Store
	extractor Extractor
	scorer    Scorer
}

func New(st store.Store, extractor Extractor, scorer Scorer) *Matcher {
	return &Matcher{store: st, extractor: extractor, scorer: scorer}
}

type scored struct {
	rec   models.EmojiRecord
	score float64
}

// Match extracts the emotion signature for text and returns the
// best-scoring record plus its image bytes. Candidates whose file has
// vanished since registration are pruned from the store and the next
// best candidate is tried, so a stale record never produces a broken
// result. Identical queries against an unchanged store return the same
// record: selection is max score with ascending-id tie-break.
func (m *Matcher) Match(ctx context.Context, text string) (*Result, error) {
	sig, err := m.extractor.Extract(ctx, text)
	if err != nil {
		return nil, err
	}

	recs, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registry: %w", err)
	}
	if len(recs) == 0 {
		return nil, ErrNoCandidates
	}

	candidates := make([]scored, 0, len(recs))
	for i := range recs {
		if score := m.scorer.Score(sig, &recs[i]); score > 0 {
			candidates = append(candidates, scored{rec: recs[i], score: score})
		}
	}
	// List is id-ordered, so a stable sort on score alone keeps the
	// ascending-id tie-break.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	for _, cand := range candidates {
		data, err := os.ReadFile(cand.rec.FilePath)
		if err != nil {
			if os.IsNotExist(err) {
				m.prune(ctx, cand.rec, "file missing")
				continue
			}
			slog.Error("read emoji file", "id", cand.rec.ID, "path", cand.rec.FilePath, "error", err)
			continue
		}

		if err := m.store.Touch(ctx, cand.rec.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.Warn("record emoji usage", "id", cand.rec.ID, "error", err)
		}

		slog.Info("matched emoji",
			"id", cand.rec.ID,
			"score", cand.score,
			"keywords", sig.Keywords,
		)
		return &Result{
			Record:    cand.rec,
			Score:     cand.score,
			ImageData: data,
			MatchedAt: time.Now(),
		}, nil
	}

	return nil, ErrNoCandidates
}

func (m *Matcher) prune(ctx context.Context, rec models.EmojiRecord, reason string) {
	slog.Warn("pruning stale registry record", "id", rec.ID, "path", rec.FilePath, "reason", reason)
	if err := m.store.Delete(ctx, rec.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("prune registry record", "id", rec.ID, "error", err)
		return
	}
	observability.RecordsPruned.Inc()
}
