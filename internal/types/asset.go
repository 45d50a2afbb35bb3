package types

type Credentials struct {
	CloudName    string
	UploadPreset string
}

func (c Credentials) Configured() bool {
	return c.CloudName != "" && c.UploadPreset != ""
}

type UploadResult struct {
	PublicID     string       `json:"public_id"`
	SecureURL    string       `json:"secure_url"`
	ResourceKind ResourceKind `json:"resource_type"`
}

type Progress struct {
	BytesWritten int64
	TotalBytes   int64
}

// Fraction reports BytesWritten/TotalBytes. ok is false when the total is
// unknown or zero.
func (p Progress) Fraction() (float64, bool) {
	if p.TotalBytes <= 0 {
		return 0, false
	}
	return float64(p.BytesWritten) / float64(p.TotalBytes), true
}

type DownloadOutcome struct {
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	StatusCode int    `json:"statusCode"`
	Verified   bool   `json:"verified"`
	ArchiveURL string `json:"archiveUrl,omitempty"`
}
