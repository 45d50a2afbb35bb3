package flow

import (
	"context"
	"time"

	"github.com/mahirjain10/video-watermark/internal/transfer"
	"github.com/mahirjain10/video-watermark/internal/types"
)

type PermissionService interface {
	RequestStoragePermission(ctx context.Context) bool
}

// CredentialLoader returns empty fields when credentials are not configured.
type CredentialLoader interface {
	LoadEnv(ctx context.Context) types.Credentials
}

type AssetUploader interface {
	Upload(ctx context.Context, ref string, kind types.ResourceKind, creds types.Credentials) (types.UploadResult, error)
}

type AvailabilityChecker interface {
	Check(ctx context.Context, url string) transfer.ProbeResult
}

type AssetDownloader interface {
	Download(ctx context.Context, req transfer.DownloadRequest) (types.DownloadOutcome, error)
}

type WatermarkPreparer interface {
	Prepare(srcPath string) (string, error)
}

// Archiver copies a verified output somewhere durable and returns a URL for it.
type Archiver interface {
	ArchiveOutput(ctx context.Context, jobID string, localPath string) (string, error)
}

type Recorder interface {
	ObserveFlow(result string, elapsed time.Duration)
	AddDownloadedBytes(n int64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFlow(string, time.Duration) {}
func (nopRecorder) AddDownloadedBytes(int64)          {}
