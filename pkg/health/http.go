package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPChecker checks that an endpoint answers with an acceptable status
type HTTPChecker struct {
	// CheckName is reported as the checker's Name
	CheckName string

	// URL is the full URL to request
	URL string

	// Method is the HTTP method to use (default: GET)
	Method string

	// Headers are sent with the request
	Headers map[string]string

	// ExpectedStatusMin is the minimum acceptable status code (default: 200)
	ExpectedStatusMin int

	// ExpectedStatusMax is the maximum acceptable status code (default: 399)
	ExpectedStatusMax int

	// Client is the HTTP client to use
	Client *http.Client
}

// NewHTTPChecker creates an HTTP checker named name for url
func NewHTTPChecker(name, url string) *HTTPChecker {
	return &HTTPChecker{
		CheckName:         name,
		URL:               url,
		Method:            http.MethodGet,
		Headers:           make(map[string]string),
		ExpectedStatusMin: 200,
		ExpectedStatusMax: 399,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the configured check name
func (h *HTTPChecker) Name() string {
	return h.CheckName
}

// Check performs the HTTP request and judges the status code
func (h *HTTPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, h.Method, h.URL, nil)
	if err != nil {
		return unhealthy(start, fmt.Sprintf("failed to create request: %v", err))
	}
	for key, value := range h.Headers {
		req.Header.Set(key, value)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return unhealthy(start, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode >= h.ExpectedStatusMin && resp.StatusCode <= h.ExpectedStatusMax

	message := fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	if !healthy {
		message = fmt.Sprintf("%s (expected %d-%d)", message, h.ExpectedStatusMin, h.ExpectedStatusMax)
	}

	return Result{
		Healthy:   healthy,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// WithHeader adds a request header
func (h *HTTPChecker) WithHeader(key, value string) *HTTPChecker {
	h.Headers[key] = value
	return h
}

// WithStatusRange sets the expected status code range
func (h *HTTPChecker) WithStatusRange(min, max int) *HTTPChecker {
	h.ExpectedStatusMin = min
	h.ExpectedStatusMax = max
	return h
}

// WithTimeout sets the HTTP client timeout
func (h *HTTPChecker) WithTimeout(timeout time.Duration) *HTTPChecker {
	h.Client.Timeout = timeout
	return h
}
