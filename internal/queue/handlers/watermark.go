package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mahirjain10/video-watermark/internal/flow"
	"github.com/mahirjain10/video-watermark/internal/queue/models"
	"github.com/mahirjain10/video-watermark/internal/types"
)

// Runner is satisfied by *flow.Controller.
type Runner interface {
	Start(ctx context.Context, job flow.Job) (types.DownloadOutcome, error)
}

type WatermarkHandler struct {
	runner Runner
	logger zerolog.Logger
}

func NewWatermarkHandler(runner Runner, logger zerolog.Logger) *WatermarkHandler {
	return &WatermarkHandler{runner: runner, logger: logger}
}

// ToJob turns a queued job into a flow job. Jobs without an id get a fresh
// uuid so each output lands in its own file. The id names the output file and
// the archive key, so it must be a plain path element.
func ToJob(data models.WatermarkJob) (flow.Job, error) {
	id := data.ID
	if id == "" {
		id = uuid.NewString()
	}
	if !validJobID(id) {
		return flow.Job{}, types.NewError(types.InvalidReference, "watermark job", fmt.Sprintf("job id %q is not a valid file name", id))
	}
	return flow.Job{
		ID:             id,
		VideoRef:       data.VideoURI,
		WatermarkRef:   data.WatermarkURI,
		WatermarkText:  data.WatermarkText,
		Steps:          data.Steps,
		OutputFileName: fmt.Sprintf("%s_%s", id, flow.DefaultOutputFileName),
	}, nil
}

func validJobID(id string) bool {
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return false
	}
	return filepath.Base(id) == id
}

func (h *WatermarkHandler) Watermark(ctx context.Context, data models.WatermarkJob) (types.DownloadOutcome, error) {
	if data.VideoURI == "" || data.WatermarkURI == "" {
		return types.DownloadOutcome{}, types.NewError(types.InvalidReference, "watermark job", "videoUri and watermarkUri are required")
	}
	job, err := ToJob(data)
	if err != nil {
		return types.DownloadOutcome{}, err
	}
	job.Progress = flow.ProgressLogger{Logger: h.logger.With().Str("job_id", job.ID).Logger()}
	h.logger.Info().Str("job_id", job.ID).Str("video", job.VideoRef).Msg("starting watermark job")
	return h.runner.Start(ctx, job)
}
