/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clipcomposer/internal/domain"
	"clipcomposer/internal/props"
)

// Request is the payload submitted to the render service.
type Request struct {
	OutputFormat  string             `json:"outputFormat"`
	FrameRate     float64            `json:"frameRate"`
	Modifications props.Value        `json:"modifications"`
	Source        domain.Composition `json:"source"`
	OwnerID       string             `json:"ownerId,omitempty"`
}

// Job is the remote view of a render job.
type Job struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Client talks to the render service.
type Client interface {
	// Submit starts a render and returns the job id assigned by the service.
	Submit(ctx context.Context, req Request) (string, error)
	// Status fetches the current state of a job.
	Status(ctx context.Context, jobID string) (Job, error)
}

// HTTPClient is a Client for the JSON render API:
//
//	POST {base}/renders       -> Job
//	GET  {base}/renders/{id}  -> Job
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *HTTPClient) { c.token = strings.TrimSpace(token) }
}

// NewHTTPClient creates a client. baseURL may include a trailing slash; it will be normalized.
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("render base url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse render url: %w", err)
	}
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit posts req. Any failure, including a rejected request, is an ErrSubmission.
func (c *HTTPClient) Submit(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrSubmission, err)
	}
	var job Job
	status, err := c.doJSON(ctx, http.MethodPost, "/renders", bytes.NewReader(body), &job)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("%w: render service returned %d", ErrSubmission, status)
	}
	if strings.TrimSpace(job.ID) == "" {
		return "", fmt.Errorf("%w: response without job id", ErrSubmission)
	}
	return job.ID, nil
}

// Status fetches a job. Transport failures and 5xx answers are ErrTransientPoll,
// an undecodable body is ErrProtocol.
func (c *HTTPClient) Status(ctx context.Context, jobID string) (Job, error) {
	var job Job
	status, err := c.doJSON(ctx, http.MethodGet, "/renders/"+url.PathEscape(jobID), nil, &job)
	if err != nil {
		if errors.Is(err, errDecode) {
			return Job{}, fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		return Job{}, fmt.Errorf("%w: %v", ErrTransientPoll, err)
	}
	if status < 200 || status >= 300 {
		return Job{}, fmt.Errorf("%w: render service returned %d", ErrTransientPoll, status)
	}
	if job.ID == "" {
		job.ID = jobID
	}
	return job, nil
}

var errDecode = errors.New("decode response")

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body io.Reader, dest any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %v", errDecode, err)
	}
	return resp.StatusCode, nil
}
