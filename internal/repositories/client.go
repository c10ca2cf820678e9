package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"indiana/internal/helpers"
)

// APIError is returned when a remote API answers with an unexpected status
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// request describes one JSON call made by a repository
type request struct {
	method      string
	url         string
	contentType string
	body        interface{}
	expect      int
	header      func(h http.Header)
}

// doJSON sends req and decodes a successful response into out (if non-nil)
func doJSON(ctx context.Context, client *http.Client, req request, out interface{}) error {
	var body io.Reader
	if req.body != nil {
		jsonData, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if req.body != nil {
		contentType := req.contentType
		if contentType == "" {
			contentType = "application/json"
		}
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.header != nil {
		req.header(httpReq.Header)
	}

	helpers.PrintDebug("%s %s", req.method, req.url)

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != req.expect {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{
			Method:     req.method,
			URL:        req.url,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
