package flow

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mahirjain10/video-watermark/internal/types"
)

// Report is what the user gets to see about a flow.
type Report struct {
	JobID   string
	Status  string
	Title   string
	Message string
	Kind    types.Kind
	Outcome types.DownloadOutcome
}

type Notifier interface {
	Notify(ctx context.Context, report Report)
}

type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, report Report) {
	event := n.Logger.Info()
	if report.Status == types.FAILED {
		event = n.Logger.Error().Str("kind", string(report.Kind))
	}
	event.Str("job_id", report.JobID).
		Str("status", report.Status).
		Str("title", report.Title).
		Msg(report.Message)
}

type NotifierFunc func(ctx context.Context, report Report)

func (f NotifierFunc) Notify(ctx context.Context, report Report) { f(ctx, report) }

// ProgressLogger logs download progress, as a percentage when the length is
// known.
type ProgressLogger struct {
	Logger zerolog.Logger
}

func (p ProgressLogger) OnProgress(progress types.Progress) {
	event := p.Logger.Info().Int64("bytes", progress.BytesWritten)
	if fraction, ok := progress.Fraction(); ok {
		event = event.Float64("percent", fraction*100)
	}
	event.Msg("download progress")
}
