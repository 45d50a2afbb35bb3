package flow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mahirjain10/video-watermark/internal/transfer"
	"github.com/mahirjain10/video-watermark/internal/transformation"
	"github.com/mahirjain10/video-watermark/internal/types"
	"github.com/mahirjain10/video-watermark/internal/utils"
)

const (
	DefaultWatermarkText  = "IMG.LY"
	DefaultOutputFileName = "final_watermarked.mp4"
	DefaultAttempts       = 3
	DefaultRetryDelay     = 2 * time.Second
)

// Job describes one watermarking run.
type Job struct {
	ID            string
	VideoRef      string
	WatermarkRef  string
	WatermarkText string
	// Steps run before the watermark layers, e.g. a resize or codec change.
	Steps []types.TransformStep
	// OutputFileName overrides the controller default.
	OutputFileName string
	Progress       transfer.ProgressSink
}

type Options struct {
	Permission  PermissionService
	Credentials CredentialLoader
	Uploader    AssetUploader
	Prober      AvailabilityChecker
	Downloader  AssetDownloader

	Preparer WatermarkPreparer
	Archiver Archiver
	Notifier Notifier
	Metrics  Recorder

	DeliveryHost   string
	DownloadDir    string
	OutputFileName string
	ReadTimeout    time.Duration
	ConnectTimeout time.Duration
	Attempts       int
	RetryDelay     time.Duration
	Logger         zerolog.Logger
}

// Controller runs at most one flow at a time. A second Start while a flow is
// in progress fails with a Busy error.
type Controller struct {
	mu    sync.Mutex
	state State
	busy  bool

	permission  PermissionService
	credentials CredentialLoader
	uploader    AssetUploader
	prober      AvailabilityChecker
	downloader  AssetDownloader
	preparer    WatermarkPreparer
	archiver    Archiver
	notifier    Notifier
	metrics     Recorder

	deliveryHost   string
	downloadDir    string
	outputFileName string
	readTimeout    time.Duration
	connectTimeout time.Duration
	attempts       int
	retryDelay     time.Duration
	logger         zerolog.Logger
}

func NewController(opts Options) (*Controller, error) {
	if opts.Permission == nil || opts.Credentials == nil || opts.Uploader == nil || opts.Prober == nil || opts.Downloader == nil {
		return nil, errors.New("flow: permission, credentials, uploader, prober and downloader are required")
	}
	c := &Controller{
		state:          Idle,
		permission:     opts.Permission,
		credentials:    opts.Credentials,
		uploader:       opts.Uploader,
		prober:         opts.Prober,
		downloader:     opts.Downloader,
		preparer:       opts.Preparer,
		archiver:       opts.Archiver,
		notifier:       opts.Notifier,
		metrics:        opts.Metrics,
		deliveryHost:   opts.DeliveryHost,
		downloadDir:    opts.DownloadDir,
		outputFileName: opts.OutputFileName,
		readTimeout:    opts.ReadTimeout,
		connectTimeout: opts.ConnectTimeout,
		attempts:       opts.Attempts,
		retryDelay:     opts.RetryDelay,
		logger:         opts.Logger,
	}
	if c.notifier == nil {
		c.notifier = LogNotifier{Logger: opts.Logger}
	}
	if c.metrics == nil {
		c.metrics = nopRecorder{}
	}
	if c.outputFileName == "" {
		c.outputFileName = DefaultOutputFileName
	}
	if c.attempts <= 0 {
		c.attempts = DefaultAttempts
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}
	return c, nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Start runs the whole flow: permission, credentials, both uploads, URL
// build, availability probe, download and verification. The controller is
// back in Idle when Start returns, whatever the outcome.
func (c *Controller) Start(ctx context.Context, job Job) (outcome types.DownloadOutcome, err error) {
	if !c.acquire() {
		return outcome, types.NewError(types.Busy, "start", "a watermark flow is already running")
	}
	// runs last, after the report below, even if reporting panics
	defer c.release()
	started := time.Now()
	logger := c.logger.With().Str("job_id", job.ID).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("download process panicked")
			err = &types.FlowError{Kind: types.Internal, Op: "flow", Message: fmt.Sprintf("Something went wrong during the process: %v", r)}
		}
		result := "success"
		if err != nil {
			c.transition(Failed)
			result = string(types.KindOf(err))
			logger.Error().Err(err).Str("kind", result).Msg("download process error")
			c.notify(ctx, logger, failureReport(job.ID, outcome, err))
		} else {
			c.transition(Done)
			c.notify(ctx, logger, Report{
				JobID:   job.ID,
				Status:  types.PROCESSED,
				Title:   "Success",
				Message: fmt.Sprintf("Video saved to:\n%s", outcome.Path),
				Outcome: outcome,
			})
		}
		c.metrics.ObserveFlow(result, time.Since(started))
	}()

	return c.run(ctx, logger, job)
}

func (c *Controller) run(ctx context.Context, logger zerolog.Logger, job Job) (types.DownloadOutcome, error) {
	var outcome types.DownloadOutcome

	destination, err := c.destination(job)
	if err != nil {
		return outcome, err
	}

	// 1. Check Permissions
	c.transition(AwaitingPermission)
	if !c.permission.RequestStoragePermission(ctx) {
		return outcome, types.NewError(types.PermissionDenied, "permission", "Storage access is required to save videos.")
	}

	// 2. Load Credentials
	c.transition(AwaitingCredentials)
	creds := c.credentials.LoadEnv(ctx)
	if !creds.Configured() {
		return outcome, types.NewError(types.MissingCredentials, "credentials", "Cloudinary credentials not found. Please check your .env setup.")
	}

	// 3. Upload both assets, one after the other
	c.transition(Uploading)
	c.notify(ctx, logger, Report{
		JobID:   job.ID,
		Status:  types.PROCESSING,
		Title:   "Uploading & Processing",
		Message: "Please wait for the video transformation.",
	})

	watermarkRef := job.WatermarkRef
	if c.preparer != nil && !strings.Contains(watermarkRef, "://") {
		prepared, err := c.preparer.Prepare(watermarkRef)
		if err != nil {
			return outcome, types.WrapError(types.InvalidReference, "prepare watermark", err)
		}
		watermarkRef = prepared
		defer func() {
			if rmErr := utils.RemoveLocalOutput(prepared); rmErr != nil {
				logger.Warn().Err(rmErr).Msg("failed to remove prepared watermark")
			}
		}()
	}

	var video, image types.UploadResult
	err = c.retry(ctx, logger, "upload video", func() (err error) {
		video, err = c.uploader.Upload(ctx, job.VideoRef, types.VIDEO, creds)
		return err
	})
	if err != nil {
		return outcome, err
	}
	err = c.retry(ctx, logger, "upload watermark", func() (err error) {
		image, err = c.uploader.Upload(ctx, watermarkRef, types.IMAGE, creds)
		return err
	})
	if err != nil {
		return outcome, err
	}
	if video.PublicID == "" || video.SecureURL == "" || image.PublicID == "" || image.SecureURL == "" {
		return outcome, types.NewError(types.UploadFailed, "upload", "Upload failed: provider returned an incomplete asset")
	}

	// 4. Construct Transformed URL
	c.transition(BuildingURL)
	text := job.WatermarkText
	if text == "" {
		text = DefaultWatermarkText
	}
	steps := make([]types.TransformStep, 0, len(job.Steps)+2)
	steps = append(steps, job.Steps...)
	steps = append(steps, transformation.WatermarkSteps(text, image.PublicID)...)
	transformedURL := transformation.BuildURL(
		transformation.DeliveryBase(c.deliveryHost, creds.CloudName, types.VIDEO),
		steps,
		video.PublicID,
	)
	logger.Info().Str("url", transformedURL).Msg("built transformed url")

	// 5. Fail fast before spending bandwidth
	c.transition(CheckingAvailability)
	probe := c.prober.Check(ctx, transformedURL)
	if !probe.OK {
		return outcome, &types.FlowError{
			Kind:       types.AvailabilityCheckFailed,
			Op:         "availability check",
			StatusCode: probe.StatusCode,
			Message:    "Transformed video is not available",
			Err:        probe.Err,
		}
	}

	// 6. Download the Transformed Video
	c.transition(Downloading)
	logger.Info().Str("from", transformedURL).Str("to", destination).Msg("downloading transformed video")

	err = c.retry(ctx, logger, "download", func() (err error) {
		outcome, err = c.downloader.Download(ctx, transfer.DownloadRequest{
			URL:            transformedURL,
			Destination:    destination,
			ConnectTimeout: c.connectTimeout,
			ReadTimeout:    c.readTimeout,
			Progress:       job.Progress,
		})
		return err
	})
	if err != nil {
		return outcome, err
	}

	// 7. Verify independently of the transfer status
	c.transition(Verifying)
	size, err := transfer.Verify(outcome.Path)
	if err != nil {
		if rmErr := utils.RemoveLocalOutput(outcome.Path); rmErr != nil {
			logger.Warn().Err(rmErr).Msg("failed to remove unverified output")
		}
		return outcome, err
	}
	outcome.Size = size
	outcome.Verified = true
	c.metrics.AddDownloadedBytes(size)

	if c.archiver != nil {
		archiveURL, err := c.archiver.ArchiveOutput(ctx, job.ID, outcome.Path)
		if err != nil {
			logger.Warn().Err(err).Msg("archiving output failed, keeping local copy only")
		} else {
			outcome.ArchiveURL = archiveURL
		}
	}
	return outcome, nil
}

// destination resolves the output path. The file name must be a single path
// element so the output stays inside the download directory.
func (c *Controller) destination(job Job) (string, error) {
	fileName := job.OutputFileName
	if fileName == "" {
		fileName = c.outputFileName
	}
	if fileName == "." || fileName == ".." || fileName != filepath.Base(fileName) || strings.ContainsAny(fileName, `/\`) {
		return "", types.NewError(types.InvalidReference, "destination", fmt.Sprintf("output file name %q must be a plain file name", fileName))
	}
	return filepath.Join(c.downloadDir, fileName), nil
}

// notify delivers a report. A panicking notifier is logged and otherwise
// ignored so the flow result stands.
func (c *Controller) notify(ctx context.Context, logger zerolog.Logger, report Report) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("status", report.Status).Msg("notifier panicked")
		}
	}()
	c.notifier.Notify(ctx, report)
}

// retry repeats fn while it fails with a Timeout, up to the configured attempts.
func (c *Controller) retry(ctx context.Context, logger zerolog.Logger, what string, fn func() error) error {
	var err error
	for i := 0; i < c.attempts; i++ {
		err = fn()
		if err == nil || types.KindOf(err) != types.Timeout {
			return err
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msgf("%s timed out", what)
		if i < c.attempts-1 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(c.retryDelay):
			}
		}
	}
	return err
}

func (c *Controller) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return false
	}
	c.busy = true
	return true
}

func (c *Controller) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	c.state = Idle
}

func (c *Controller) transition(next State) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	c.mu.Unlock()
	c.logger.Debug().Str("from", prev.String()).Str("to", next.String()).Msg("flow transition")
}

func failureReport(jobID string, outcome types.DownloadOutcome, err error) Report {
	report := Report{
		JobID:   jobID,
		Status:  types.FAILED,
		Title:   "Error",
		Message: err.Error(),
		Kind:    types.KindOf(err),
		Outcome: outcome,
	}
	var flowErr *types.FlowError
	if errors.As(err, &flowErr) && flowErr.Message != "" {
		report.Message = flowErr.Message
	}
	switch report.Kind {
	case types.PermissionDenied:
		report.Title = "Permission Denied"
	case types.MissingCredentials:
		report.Title = "Missing Credentials"
	case types.DownloadFailed, types.AvailabilityCheckFailed:
		report.Title = "Failed"
		if flowErr != nil && flowErr.StatusCode != 0 {
			report.Message = fmt.Sprintf("%s. Status: %d", report.Message, flowErr.StatusCode)
		}
	}
	return report
}
