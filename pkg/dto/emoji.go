package dto

type UploadRequest struct {
	ImageURL string `json:"image_url" binding:"required"`
}

type UploadResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`
}

type MatchRequest struct {
	Text string `json:"text" binding:"required"`
}

type MatchResponse struct {
	Status      string `json:"status"`
	Text        string `json:"text"`
	EmojiPath   string `json:"emoji_path"`
	Description string `json:"description"`
	Base64      string `json:"base64"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ImageInfo struct {
	Filename     string `json:"filename"`
	Path         string `json:"path"`
	SizeBytes    int64  `json:"size_bytes"`
	ModifiedAt   string `json:"modified_at"`
	RegisteredID string `json:"registered_id,omitempty"`
}

type ImageListResponse struct {
	Count  int         `json:"count"`
	Images []ImageInfo `json:"images"`
}

type RegisterNowResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
