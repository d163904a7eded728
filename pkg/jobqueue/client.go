// Package jobqueue is a thin HTTP client for the optional external
// bulk-enhancement surface. When the surface is unreachable the iterative
// processor degrades to direct in-process work, so every error here is
// advisory rather than fatal.
package jobqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/resilience"
)

// Client submits bulk enhancement jobs and polls their progress.
type Client interface {
	// Submit sends a job description and returns an opaque job id.
	Submit(ctx context.Context, prospectIDs []string, kind string) (string, error)

	// Status reports the job's state and progress counters.
	Status(ctx context.Context, jobID string) (*JobStatus, error)
}

// JobStatus is the external surface's view of a job.
type JobStatus struct {
	State     string `json:"status"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// Done reports whether the external job reached a terminal state.
func (s *JobStatus) Done() bool {
	switch s.State {
	case "completed", "failed", "canceled":
		return true
	}
	return false
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// statusError builds a non-2xx error, marking outage-shaped statuses as
// transient so callers can distinguish them from rejections.
func statusError(code int, format string) error {
	err := eris.Errorf(format, code)
	if resilience.IsTransientHTTPStatus(code) {
		return resilience.NewTransientError(err, code)
	}
	return err
}

// New creates a job queue client for the given base URL.
func New(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Submit(ctx context.Context, prospectIDs []string, kind string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"prospect_ids": prospectIDs,
		"kind":         kind,
	})
	if err != nil {
		return "", eris.Wrap(err, "jobqueue: marshal submit request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "jobqueue: build submit request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "jobqueue: submit")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", statusError(resp.StatusCode, "jobqueue: submit returned %d")
	}

	var out struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", eris.Wrap(err, "jobqueue: decode submit response")
	}
	if out.JobID == "" {
		return "", eris.New("jobqueue: submit response missing job_id")
	}
	return out.JobID, nil
}

func (c *httpClient) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	url := fmt.Sprintf("%s/jobs/%s", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "jobqueue: build status request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("jobqueue: status %s", jobID))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, "jobqueue: status returned %d")
	}

	var out struct {
		Status   string `json:"status"`
		Progress struct {
			Processed int `json:"processed"`
			Total     int `json:"total"`
		} `json:"progress"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, eris.Wrap(err, "jobqueue: decode status response")
	}

	return &JobStatus{
		State:     out.Status,
		Processed: out.Progress.Processed,
		Total:     out.Progress.Total,
	}, nil
}
