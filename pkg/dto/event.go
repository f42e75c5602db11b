package dto

// WSEvent is the envelope pushed to websocket subscribers and NATS.
type WSEvent struct {
	Type string `json:"type"` // emoji_registered, emoji_matched, emoji_pruned
	Data any    `json:"data"`
}

type RegisteredEvent struct {
	ID           string   `json:"id"`
	FilePath     string   `json:"file_path"`
	Description  string   `json:"description"`
	Emotions     []string `json:"emotions"`
	RegisteredAt string   `json:"registered_at"`
}

type MatchedEvent struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type PrunedEvent struct {
	ID       string `json:"id"`
	FilePath string `json:"file_path"`
	Reason   string `json:"reason"`
}
