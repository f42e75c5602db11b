package matcher

import (
	"math"

	"github.com/your-org/emomatch/internal/models"
)

// Scorer measures how well a record's emotion tags fit a query
// signature. Higher is better; zero means no usable similarity.
// Swappable so the discrete-tag and embedding strategies share one
// selection path.
type Scorer interface {
	Score(sig models.EmotionSignature, rec *models.EmojiRecord) float64
}

// TagScorer compares query keywords against record tags with normalized
// Levenshtein similarity and takes the best pair. Pairs below
// SimilarityLimit contribute nothing.
type TagScorer struct {
	SimilarityLimit float64
}

func (s TagScorer) Score(sig models.EmotionSignature, rec *models.EmojiRecord) float64 {
	best := 0.0
	for _, kw := range sig.Keywords {
		for _, tag := range rec.Emotions {
			sim := levenshteinSimilarity(kw, tag)
			if sim >= s.SimilarityLimit && sim > best {
				best = sim
			}
		}
	}
	return best
}

// CosineScorer compares the query embedding against the record
// embedding. Records without an embedding score zero.
type CosineScorer struct{}

func (CosineScorer) Score(sig models.EmotionSignature, rec *models.EmojiRecord) float64 {
	return cosineSimilarity(sig.Embedding, rec.Embedding)
}

// levenshteinSimilarity is 1 - dist/maxLen over runes, so multi-byte
// tags compare by character rather than byte.
func levenshteinSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, ca := range a {
		curr[0] = i + 1
		for j, cb := range b {
			ins := prev[j+1] + 1
			del := curr[j] + 1
			sub := prev[j]
			if ca != cb {
				sub++
			}
			curr[j+1] = min3(ins, del, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
