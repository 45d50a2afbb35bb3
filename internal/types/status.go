package types

// StatusData represents the inner payload
type StatusData struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	PublicURL string `json:"publicUrl"`
	LocalPath string `json:"localPath"`
	Size      int64  `json:"size"`
	ErrorMsg  string `json:"errorMsg"`
}

// StatusMessage represents the full message envelope
type StatusMessage struct {
	Pattern string     `json:"pattern"`
	Data    StatusData `json:"data"`
}

const PROCESSED = "PROCESSED"
const FAILED = "FAILED"
const PROCESSING = "PROCESSING"
