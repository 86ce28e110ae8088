// Package recommend is the client for the remote recommendation service.
// The service is an opaque HTTP API; failures are returned to the caller
// as-is and never retried here.
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type Recommendation struct {
	Title string `json:"title"`
}

type recommendResponse struct {
	Status          string           `json:"status"`
	Message         string           `json:"message"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Recommend asks the service for titles similar to movieID.
func (c *Client) Recommend(ctx context.Context, movieID string) ([]Recommendation, error) {
	var resp recommendResponse
	if err := c.post(ctx, "/recommend", map[string]string{"movieId": movieID}, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("recommend %q: service returned %q: %s", movieID, resp.Status, resp.Message)
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []Recommendation{}
	}
	return resp.Recommendations, nil
}

// AddMovie asks the service to ingest a title by IMDb id so it can appear
// in future recommendations. Returns the service's status message.
func (c *Client) AddMovie(ctx context.Context, imdbID string) (string, error) {
	var resp recommendResponse
	if err := c.post(ctx, "/addMovie", map[string]string{"imdbId": imdbID}, &resp); err != nil {
		return "", err
	}
	if resp.Status != "success" {
		return "", fmt.Errorf("addMovie %q: service returned %q: %s", imdbID, resp.Status, resp.Message)
	}
	return resp.Message, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call recommendation service: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("recommendation service: unexpected status %d", res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
