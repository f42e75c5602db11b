package emotion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/emomatch/internal/llm"
	"github.com/your-org/emomatch/internal/models"
	"github.com/your-org/emomatch/internal/observability"
)

const (
	extractPromptTemplate = "请根据以下文本，提取其表达的情感或适用场景，简短输出：\n%s\n只输出情感，不要其他内容。多个用\",\"分隔。"

	extractTemperature = 0.7
)

// Extractor reads the emotional content of a line of text through the
// text model. A failed or unparseable model call surfaces as an error;
// there is no fallback signature, since a wrong signature would produce
// a misleading match.
type Extractor struct {
	client         *llm.Client
	textModel      string
	embeddingModel string
}

// New builds an extractor. embeddingModel may be empty, in which case
// signatures carry keywords only.
func New(client *llm.Client, textModel, embeddingModel string) *Extractor {
	return &Extractor{client: client, textModel: textModel, embeddingModel: embeddingModel}
}

// Extract returns the emotion signature for the given text.
func (e *Extractor) Extract(ctx context.Context, text string) (models.EmotionSignature, error) {
	var empty models.EmotionSignature

	start := time.Now()
	reply, err := e.client.Complete(ctx, e.textModel, fmt.Sprintf(extractPromptTemplate, text), extractTemperature)
	observability.ModelCallDuration.WithLabelValues("text").Observe(time.Since(start).Seconds())
	if err != nil {
		return empty, fmt.Errorf("extract emotion: %w", err)
	}

	keywords := splitKeywords(reply)
	if len(keywords) == 0 {
		return empty, fmt.Errorf("extract emotion: no keywords in %q: %w", reply, llm.ErrUnparseable)
	}

	sig := models.EmotionSignature{Keywords: keywords}

	if e.embeddingModel != "" {
		vec, err := e.EmbedText(ctx, strings.Join(keywords, ", "))
		if err != nil {
			return empty, err
		}
		sig.Embedding = vec
	}

	return sig, nil
}

// EmbedText returns an embedding vector for arbitrary text. Used for
// query signatures and for record descriptions at registration time.
func (e *Extractor) EmbedText(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := e.client.Embed(ctx, e.embeddingModel, text)
	observability.ModelCallDuration.WithLabelValues("embedding").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	return vec, nil
}

func splitKeywords(s string) []string {
	s = strings.ReplaceAll(s, "，", ",")
	var out []string
	for _, part := range strings.Split(s, ",") {
		if k := strings.TrimSpace(part); k != "" {
			out = append(out, k)
		}
	}
	return out
}
