package annotator

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/emomatch/internal/llm"
	"github.com/your-org/emomatch/internal/observability"
)

const (
	describePrompt    = "这是一个表情包，请详细描述一下表情包所表达的情感和内容，从互联网梗和表情符号的角度分析。"
	describeGIFPrompt = "这是一个动态图表情包，描述一下表情包表达的情感和内容，从互联网梗和表情符号的角度分析。"

	tagPromptTemplate = "请识别这个表情包的含义和适用场景，给我简短的描述，每个描述不要超过15个字\n" +
		"这是表情包的描述：'%s'\n" +
		"你可以关注其幽默和讽刺意味，从互联网梗的角度去分析\n" +
		"请直接输出描述，不要出现任何其他内容，如果有多个描述，用逗号分隔"

	describeTemperature = 0.3
	tagTemperature      = 0.7
)

// Annotation is the vision model's reading of one image.
type Annotation struct {
	Description string
	Emotions    []string
}

// Annotator turns an image into a natural-language description plus
// short emotion tags, using the vision model for the description and
// the text model for tag extraction.
type Annotator struct {
	client      *llm.Client
	visionModel string
	textModel   string
}

func New(client *llm.Client, visionModel, textModel string) *Annotator {
	return &Annotator{client: client, visionModel: visionModel, textModel: textModel}
}

// Describe annotates the given image bytes. Format is the file extension
// without the dot (jpg, png, gif); it selects the prompt and the data URL
// media type.
func (a *Annotator) Describe(ctx context.Context, imageData []byte, format string) (Annotation, error) {
	var empty Annotation

	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "" {
		format = "jpg"
	}
	prompt := describePrompt
	if format == "gif" {
		prompt = describeGIFPrompt
	}

	encoded := base64.StdEncoding.EncodeToString(imageData)

	start := time.Now()
	description, err := a.client.CompleteWithImage(ctx, a.visionModel, prompt, encoded, format, describeTemperature)
	observability.ModelCallDuration.WithLabelValues("vision").Observe(time.Since(start).Seconds())
	if err != nil {
		return empty, fmt.Errorf("describe image: %w", err)
	}

	start = time.Now()
	tagsText, err := a.client.Complete(ctx, a.textModel, fmt.Sprintf(tagPromptTemplate, description), tagTemperature)
	observability.ModelCallDuration.WithLabelValues("text").Observe(time.Since(start).Seconds())
	if err != nil {
		return empty, fmt.Errorf("extract emotion tags: %w", err)
	}

	emotions := splitTags(tagsText)
	if len(emotions) == 0 {
		return empty, fmt.Errorf("extract emotion tags: no tags in %q: %w", tagsText, llm.ErrUnparseable)
	}

	return Annotation{Description: strings.TrimSpace(description), Emotions: emotions}, nil
}

// splitTags splits a comma-separated model reply, tolerating the
// full-width comma the models frequently emit.
func splitTags(s string) []string {
	s = strings.ReplaceAll(s, "，", ",")
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
