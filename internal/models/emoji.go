package models

import "time"

// EmojiRecord is one approved, annotated image in the registry.
// Records are immutable after registration except for usage accounting
// and deletion; the ID is the md5 hex digest of the file contents.
type EmojiRecord struct {
	ID           string    `json:"id" db:"id"`
	FilePath     string    `json:"file_path" db:"file_path"`
	Format       string    `json:"format" db:"format"`
	Description  string    `json:"description" db:"description"`
	Emotions     []string  `json:"emotions" db:"emotions"`
	Embedding    []float32 `json:"embedding,omitempty" db:"embedding"`
	UsageCount   int       `json:"usage_count" db:"usage_count"`
	LastUsedAt   time.Time `json:"last_used_at" db:"last_used_at"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}

// EmotionSignature is the structured emotional reading of a piece of text.
// Keywords always present; Embedding only when the embedding strategy is on.
type EmotionSignature struct {
	Keywords  []string
	Embedding []float32
}

// UnreviewedImage describes an uploaded image awaiting human review.
type UnreviewedImage struct {
	SourceURL  string    `json:"source_url"`
	LocalPath  string    `json:"local_path"`
	ReceivedAt time.Time `json:"received_at"`
}
