// Package extract uploads bill documents to the extraction service and
// returns the JSON bill record it produces.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"

	"github.com/theirongolddev/billcheck/internal/logger"
	"github.com/theirongolddev/billcheck/internal/source"
)

const (
	defaultTimeout = 60 * time.Second
	maxBodySize    = 4 << 20  // 4 MB
	maxUploadSize  = 25 << 20 // 25 MB
	extractPath    = "/extract"
	userAgent      = "billcheck/1.0"
)

var (
	// ErrNotConfigured indicates no extraction service URL is set.
	ErrNotConfigured = errors.New("extract: no extraction service configured")
	// ErrUnauthorized indicates the API key is missing or rejected.
	ErrUnauthorized = errors.New("extract: unauthorized (api key missing or invalid)")
	// ErrRateLimited indicates the service rate limit was hit.
	ErrRateLimited = errors.New("extract: rate limited")
	// ErrMalformedPayload indicates the response is not a bill record with a phoneLines array.
	ErrMalformedPayload = errors.New("extract: malformed payload")
	// ErrUnsupportedFile indicates the upload is not a PDF or image.
	ErrUnsupportedFile = errors.New("extract: unsupported file type")
	// ErrFileTooLarge indicates the upload exceeds the size limit.
	ErrFileTooLarge = errors.New("extract: file too large")
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
	Logger     logger.Logger
}

// Client talks to the bill extraction service.
type Client struct {
	http *resty.Client
	log  logger.Logger
}

// NewClient creates a client for the service at opts.BaseURL.
// Returns nil if the URL is empty.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}

	h := resty.New().
		SetBaseURL(base).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetResponseBodyLimit(maxBodySize).
		SetLogger(restyLogger{opts.Logger}).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := r.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})
	if key := strings.TrimSpace(opts.APIKey); key != "" {
		h.SetAuthToken(key)
	}

	return &Client{http: h, log: opts.Logger}
}

// Extract uploads a bill document and returns the validated JSON record.
func (c *Client) Extract(ctx context.Context, filename string, data []byte) ([]byte, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	if len(data) > maxUploadSize {
		return nil, ErrFileTooLarge
	}

	mime := mimetype.Detect(data)
	if kind, ok := source.DetectKind(mime); !ok || kind != source.KindDocument {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, mime.String())
	}

	body, contentType, err := multipartBody(filename, mime.String(), data)
	if err != nil {
		return nil, fmt.Errorf("extract: building upload: %w", err)
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		Post(extractPath)
	if err != nil {
		return nil, fmt.Errorf("extract: request failed: %w", err)
	}

	c.log.Debug("extraction response",
		"file", filename,
		"status", resp.StatusCode(),
		"bytes", len(resp.Body()),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("extract: unexpected status %d", resp.StatusCode())
	}

	payload := resp.Body()
	if err := ValidatePayload(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// multipartBody encodes the upload up front so retries can resend it.
func multipartBody(filename, contentType string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// restyLogger routes resty's printf-style logging into the structured logger.
type restyLogger struct {
	l logger.Logger
}

func (r restyLogger) Errorf(format string, v ...any) {
	r.l.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "extract")
}

func (r restyLogger) Warnf(format string, v ...any) {
	r.l.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "extract")
}

func (r restyLogger) Debugf(format string, v ...any) {
	r.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "extract")
}
