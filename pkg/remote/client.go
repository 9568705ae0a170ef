package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cuemby/karatekonnect/pkg/log"
	"github.com/cuemby/karatekonnect/pkg/metrics"
	"github.com/cuemby/karatekonnect/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Operation labels
const (
	opFetch   = "fetch"
	opRaw     = "fetch_raw"
	opReplace = "replace"
)

// MediaType is sent as Accept on every request
const MediaType = "application/vnd.github+json"

// maxErrorBody bounds how much of a failed response is read for its message
const maxErrorBody = 64 << 10

// Config locates the document in the remote store
type Config struct {
	// BaseURL is the API root, e.g. https://api.github.com
	BaseURL string
	// ResourceKind is the collection path segment, e.g. gists
	ResourceKind string
	// DocumentID identifies the document within the collection
	DocumentID string
	// Filename is the file inside the document holding the roster JSON
	Filename string
	// Timeout bounds each HTTP exchange (default: 10s)
	Timeout time.Duration
	// Retries is the number of extra attempts for a transient fetch failure
	Retries uint
	// UserAgent is sent with every request
	UserAgent string
}

// Client performs the two remote operations against the document store:
// fetch the whole document and replace its content
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
	newBackOff func() backoff.BackOff
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock replaces time.Now for the lastUpdated stamp
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithBackOff sets the retry delay policy for transient fetch failures
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) {
		c.newBackOff = newBackOff
	}
}

// NewClient creates a remote document client
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "karatekonnect"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		logger: log.WithComponent("remote"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DocumentURL returns {base}/{kind}/{id}
func (c *Client) DocumentURL() string {
	return fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, c.cfg.ResourceKind, c.cfg.DocumentID)
}

// gistFile is one entry of the store's file map
type gistFile struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
	RawURL    string `json:"raw_url,omitempty"`
}

type gistResponse struct {
	Files map[string]gistFile `json:"files"`
}

type patchFile struct {
	Content string `json:"content"`
}

type patchRequest struct {
	Files map[string]patchFile `json:"files"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// FetchDocument reads the whole document. Transport failures and 5xx/429
// answers are retried up to Config.Retries extra times.
func (c *Client) FetchDocument(ctx context.Context) (*types.Document, error) {
	if c.cfg.Retries == 0 {
		return c.fetchOnce(ctx)
	}

	op := func() (*types.Document, error) {
		doc, err := c.fetchOnce(ctx)
		if err != nil && !isTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return doc, err
	}

	doc, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.cfg.Retries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn().Err(err).Dur("retry_in", next).Msg("Fetch failed, retrying")
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		if !isClassified(err) {
			err = fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
		}
		return nil, err
	}
	return doc, nil
}

func (c *Client) fetchOnce(ctx context.Context) (*types.Document, error) {
	body, err := c.get(ctx, opFetch, c.DocumentURL())
	if err != nil {
		return nil, err
	}

	var gist gistResponse
	if err := json.Unmarshal(body, &gist); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrMalformedContent, err)
	}

	file, ok := gist.Files[c.cfg.Filename]
	if !ok {
		return nil, fmt.Errorf("%w: file %q not found in document", ErrMalformedContent, c.cfg.Filename)
	}

	content := []byte(file.Content)
	if file.Truncated && file.RawURL != "" {
		// Large files are cut off in the document listing; the raw URL
		// serves the complete content
		content, err = c.get(ctx, opRaw, file.RawURL)
		if err != nil {
			return nil, err
		}
	}

	var doc types.Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedContent, err)
	}
	return &doc, nil
}

func (c *Client) get(ctx context.Context, op, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, logger, err := c.do(op, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		logger.Warn().Int("status", resp.StatusCode).Msg("Fetch rejected")
		c.reportHealth(httpErr)
		return nil, httpErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.reportHealth(err)
		return nil, fmt.Errorf("%w: read body: %w", ErrRemoteUnavailable, err)
	}
	c.reportHealth(nil)
	return body, nil
}

// ReplaceDocument overwrites the document file with doc. The caller's doc is
// not modified; the returned copy carries the new lastUpdated stamp and is
// exactly what was sent.
func (c *Client) ReplaceDocument(ctx context.Context, doc *types.Document, token string) (*types.Document, error) {
	sent := doc.Clone()
	sent.Touch(c.now())

	content, err := json.MarshalIndent(sent, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	payload, err := json.Marshal(patchRequest{
		Files: map[string]patchFile{
			c.cfg.Filename: {Content: string(content)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.DocumentURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, logger, err := c.do(opReplace, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Message: readMessage(resp)}
		logger.Warn().Int("status", resp.StatusCode).Str("message", httpErr.Message).Msg("Replace rejected")
		c.reportHealth(httpErr)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, httpErr)
		}
		return nil, httpErr
	}

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	c.reportHealth(nil)
	logger.Info().Int("athletes", len(sent.Athletes)).Msg("Document replaced")
	return sent, nil
}

// do sends req with the common headers and records metrics. A transport
// failure comes back as ErrRemoteUnavailable.
func (c *Client) do(op string, req *http.Request) (*http.Response, zerolog.Logger, error) {
	requestID := uuid.NewString()
	logger := log.WithRequestID(requestID).With().Str("component", "remote").Str("operation", op).Logger()

	req.Header.Set("Accept", MediaType)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("X-Request-Id", requestID)

	timer := metrics.NewTimer()
	resp, err := c.httpClient.Do(req)
	timer.ObserveDurationVec(metrics.RemoteRequestDuration, op)

	if err != nil {
		metrics.RemoteRequestsTotal.WithLabelValues(op, "error").Inc()
		logger.Error().Err(err).Msg("Remote request failed")
		c.reportHealth(err)
		return nil, logger, fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	}

	metrics.RemoteRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	logger.Debug().Int("status", resp.StatusCode).Dur("duration", timer.Duration()).Msg("Remote request completed")
	return resp, logger, nil
}

func (c *Client) reportHealth(err error) {
	if err == nil {
		metrics.UpdateComponent(metrics.ComponentRemote, true, "")
		return
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && !httpErr.Temporary() {
		// The store is reachable; it only refused this request
		metrics.UpdateComponent(metrics.ComponentRemote, true, "")
		return
	}
	metrics.UpdateComponent(metrics.ComponentRemote, false, err.Error())
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// readMessage extracts the store's human-readable message from a failed response
func readMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return e.Message
		}
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode)
}
