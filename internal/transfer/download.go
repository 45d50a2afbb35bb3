package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mahirjain10/video-watermark/internal/types"
	"github.com/mahirjain10/video-watermark/internal/utils"
)

const (
	DefaultReadTimeout      = 60 * time.Second
	DefaultConnectTimeout   = 30 * time.Second
	DefaultProgressInterval = 250 * time.Millisecond
)

// ProgressSink receives download progress. Implementations must not block.
type ProgressSink interface {
	OnProgress(types.Progress)
}

type ProgressFunc func(types.Progress)

func (f ProgressFunc) OnProgress(p types.Progress) { f(p) }

type DownloadRequest struct {
	URL         string
	Destination string
	// ConnectTimeout bounds the time until response headers arrive.
	ConnectTimeout time.Duration
	// ReadTimeout bounds the gap between two successful body reads.
	ReadTimeout time.Duration
	Progress    ProgressSink
}

type Downloader struct {
	httpClient       *http.Client
	progressInterval time.Duration
	logger           zerolog.Logger
}

func NewDownloader(httpClient *http.Client, progressInterval time.Duration, logger zerolog.Logger) *Downloader {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if progressInterval <= 0 {
		progressInterval = DefaultProgressInterval
	}
	return &Downloader{httpClient: httpClient, progressInterval: progressInterval, logger: logger}
}

// Download streams the resource into Destination. The file only appears at
// Destination after a complete 2xx transfer; callers still need Verify.
func (d *Downloader) Download(parentCtx context.Context, req DownloadRequest) (types.DownloadOutcome, error) {
	const op = "download"
	outcome := types.DownloadOutcome{Path: req.Destination}

	connectTimeout := req.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	readTimeout := req.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	destPath, err := utils.PathUtil(filepath.Dir(req.Destination), filepath.Base(req.Destination))
	if err != nil {
		return outcome, types.WrapError(types.DownloadFailed, op, err)
	}

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	watchdog := newWatchdog(cancel)
	defer watchdog.stop()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return outcome, types.WrapError(types.DownloadFailed, op, err)
	}

	watchdog.arm(connectTimeout)
	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return outcome, d.transferError(op, watchdog, err)
	}
	defer resp.Body.Close()
	outcome.StatusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return outcome, &types.FlowError{
			Kind:       types.DownloadFailed,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    "Could not download video",
		}
	}

	partPath := destPath + ".part"
	outFile, err := os.Create(partPath)
	if err != nil {
		return outcome, types.WrapError(types.DownloadFailed, op, fmt.Errorf("failed to create file: %w", err))
	}

	writer := &progressWriter{
		sink:     req.Progress,
		total:    resp.ContentLength,
		interval: d.progressInterval,
	}
	body := &idleReader{r: resp.Body, watchdog: watchdog, timeout: readTimeout}
	watchdog.arm(readTimeout)
	written, copyErr := io.Copy(io.MultiWriter(outFile, writer), body)
	closeErr := outFile.Close()
	writer.flush()

	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(partPath)
		return outcome, d.transferError(op, watchdog, fmt.Errorf("failed to write object data: %w", copyErr))
	}
	if err := os.Rename(partPath, destPath); err != nil {
		_ = os.Remove(partPath)
		return outcome, types.WrapError(types.DownloadFailed, op, err)
	}

	outcome.Size = written
	d.logger.Info().Str("path", destPath).Int64("bytes", written).Int("status", resp.StatusCode).Msg("download success")
	return outcome, nil
}

func (d *Downloader) transferError(op string, w *watchdog, err error) error {
	if w.fired() || errors.Is(err, context.DeadlineExceeded) {
		return types.WrapError(types.Timeout, op, err)
	}
	return types.WrapError(types.DownloadFailed, op, err)
}

// watchdog cancels the transfer when it is not re-armed in time.
type watchdog struct {
	mu      sync.Mutex
	timer   *time.Timer
	cancel  context.CancelFunc
	tripped atomic.Bool
}

func newWatchdog(cancel context.CancelFunc) *watchdog {
	return &watchdog{cancel: cancel}
}

func (w *watchdog) arm(timeout time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(timeout, func() {
		w.tripped.Store(true)
		w.cancel()
	})
}

func (w *watchdog) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *watchdog) fired() bool {
	return w.tripped.Load()
}

type idleReader struct {
	r        io.Reader
	watchdog *watchdog
	timeout  time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.watchdog.arm(r.timeout)
	}
	return n, err
}

// progressWriter counts bytes and reports at most once per interval.
type progressWriter struct {
	sink     ProgressSink
	total    int64
	written  int64
	interval time.Duration
	last     time.Time
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.sink != nil && time.Since(w.last) >= w.interval {
		w.last = time.Now()
		w.sink.OnProgress(types.Progress{BytesWritten: w.written, TotalBytes: w.total})
	}
	return len(p), nil
}

func (w *progressWriter) flush() {
	if w.sink != nil {
		w.sink.OnProgress(types.Progress{BytesWritten: w.written, TotalBytes: w.total})
	}
}
