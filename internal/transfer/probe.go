package transfer

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const DefaultProbeTimeout = 15 * time.Second

// ProbeResult is the outcome of a HEAD request. Err is set when the request
// itself could not complete; StatusCode is then zero.
type ProbeResult struct {
	OK         bool
	StatusCode int
	Err        error
}

type Prober struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

func NewProber(httpClient *http.Client, timeout time.Duration, logger zerolog.Logger) *Prober {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{httpClient: httpClient, timeout: timeout, logger: logger}
}

// Check asks for the headers of rawURL without transferring the body.
func (p *Prober) Check(parentCtx context.Context, rawURL string) ProbeResult {
	ctx, cancel := context.WithTimeout(parentCtx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return ProbeResult{Err: err}
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", rawURL).Msg("availability probe failed")
		return ProbeResult{Err: err}
	}
	resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	p.logger.Debug().Str("url", rawURL).Int("status", resp.StatusCode).Bool("ok", ok).Msg("availability probe")
	return ProbeResult{OK: ok, StatusCode: resp.StatusCode}
}
