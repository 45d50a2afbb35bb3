package utils

import "github.com/mahirjain10/video-watermark/internal/types"

const pattern = "status"

func InitStatusData(id string, status string, outcome types.DownloadOutcome, errorMsg string) *types.StatusData {
	return &types.StatusData{
		ID:        id,
		Status:    status,
		PublicURL: outcome.ArchiveURL,
		LocalPath: outcome.Path,
		Size:      outcome.Size,
		ErrorMsg:  errorMsg,
	}
}

func InitStatusMessage(data *types.StatusData) *types.StatusMessage {
	return &types.StatusMessage{Pattern: pattern, Data: *data}
}
