package cloudinary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mahirjain10/video-watermark/internal/types"
)

const (
	DefaultAPIBase       = "https://api.cloudinary.com/v1_1"
	DefaultUploadTimeout = 60 * time.Second
)

type Options struct {
	APIBase    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Uploader sends assets to the unsigned upload endpoint.
type Uploader struct {
	apiBase    string
	timeout    time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
}

type uploadResponse struct {
	PublicID     string `json:"public_id"`
	SecureURL    string `json:"secure_url"`
	ResourceType string `json:"resource_type"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewUploader(opts Options) *Uploader {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultUploadTimeout
	}
	apiBase := strings.TrimRight(opts.APIBase, "/")
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Uploader{
		apiBase:    apiBase,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

// Upload sends ref (a local path or a remote URL) to the provider and returns
// the identifiers of the stored asset.
func (u *Uploader) Upload(parentCtx context.Context, ref string, kind types.ResourceKind, creds types.Credentials) (types.UploadResult, error) {
	const op = "upload"

	remote, localPath, err := resolveReference(ref)
	if err != nil {
		return types.UploadResult{}, types.WrapError(types.InvalidReference, op, err)
	}

	ctx, cancel := context.WithTimeout(parentCtx, u.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/%s/%s/upload", u.apiBase, url.PathEscape(creds.CloudName), kind)

	var req *http.Request
	if remote != nil && kind == types.IMAGE {
		form := url.Values{}
		form.Set("file", remote.String())
		form.Set("upload_preset", creds.UploadPreset)
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return types.UploadResult{}, types.WrapError(types.InvalidReference, op, err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		source, err := u.openSource(ctx, localPath, remote)
		if err != nil {
			return types.UploadResult{}, classify(ctx, op, err, types.UploadFailed)
		}
		defer source.Close()

		body, contentType := multipartBody(source, kind, creds.UploadPreset)
		defer body.Close()
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
		if err != nil {
			return types.UploadResult{}, types.WrapError(types.InvalidReference, op, err)
		}
		req.Header.Set("Content-Type", contentType)
	}

	u.logger.Debug().Str("endpoint", endpoint).Str("kind", string(kind)).Bool("remote", remote != nil).Msg("uploading asset")
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return types.UploadResult{}, classify(ctx, op, err, types.UploadFailed)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return types.UploadResult{}, classify(ctx, op, err, types.UploadFailed)
	}

	var parsed uploadResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || parsed.PublicID == "" || parsed.SecureURL == "" {
		message := "Unknown Cloudinary upload error. Check Network/Credentials."
		if parsed.Error != nil && parsed.Error.Message != "" {
			message = parsed.Error.Message
		}
		u.logger.Error().Int("status", resp.StatusCode).Bytes("body", raw).Msg("cloudinary upload failure response")
		return types.UploadResult{}, &types.FlowError{
			Kind:       types.UploadFailed,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    "Upload failed: " + message,
		}
	}

	result := types.UploadResult{
		PublicID:     parsed.PublicID,
		SecureURL:    parsed.SecureURL,
		ResourceKind: types.ResourceKind(parsed.ResourceType),
	}
	if result.ResourceKind == "" {
		result.ResourceKind = kind
	}
	u.logger.Info().Str("public_id", result.PublicID).Str("kind", string(kind)).Msg("upload success")
	return result, nil
}

// openSource returns the bytes behind ref: the local file, or the body of a
// GET against the remote URL.
func (u *Uploader) openSource(ctx context.Context, localPath string, remote *url.URL) (io.ReadCloser, error) {
	if remote == nil {
		file, err := os.Open(localPath)
		if err != nil {
			return nil, types.WrapError(types.InvalidReference, "open asset", err)
		}
		return file, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remote.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", remote, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %d", remote, resp.StatusCode)
	}
	return resp.Body, nil
}

// multipartBody streams source as the "file" part followed by the preset.
func multipartBody(source io.Reader, kind types.ResourceKind, uploadPreset string) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	name, mimeType := "video.mp4", "video/mp4"
	if kind == types.IMAGE {
		name, mimeType = "image.png", "image/png"
	}

	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
		header.Set("Content-Type", mimeType)
		part, err := writer.CreatePart(header)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, source); err != nil {
			pw.CloseWithError(fmt.Errorf("copy upload body: %w", err))
			return
		}
		if err := writer.WriteField("upload_preset", uploadPreset); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	return pr, writer.FormDataContentType()
}

// resolveReference splits ref into a remote URL or a local path. Anything
// that looks like a URL must be absolute with a host.
func resolveReference(ref string) (*url.URL, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, "", errors.New("empty asset reference")
	}
	if !strings.Contains(ref, "://") {
		return nil, ref, nil
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, "", fmt.Errorf("malformed url %q: %w", ref, err)
	}
	switch parsed.Scheme {
	case "file":
		if parsed.Path == "" {
			return nil, "", fmt.Errorf("malformed file url %q", ref)
		}
		return nil, parsed.Path, nil
	case "http", "https":
	default:
		return nil, "", fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, "", fmt.Errorf("malformed url %q: missing host", ref)
	}
	return parsed, "", nil
}

// classify maps deadline and network timeouts to the Timeout kind.
func classify(ctx context.Context, op string, err error, fallback types.Kind) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return types.WrapError(types.Timeout, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.WrapError(types.Timeout, op, err)
	}
	var flowErr *types.FlowError
	if errors.As(err, &flowErr) {
		return err
	}
	return types.WrapError(fallback, op, err)
}
