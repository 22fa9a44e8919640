package sunobox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// The real status endpoint is not documented anywhere, so a list of
// plausible paths is probed in order until one of them answers.
var statusPaths = []string{
	"details/%s", // most likely based on the docs
	"task/%s",
	"generate/%s",
	"status/%s",
	"music/%s",
	"v1/details/%s",
	"api/v1/details/%s",
	"api/v1/task/%s",
	"api/v1/status/%s",
}

// Fallback paths that expect the task id in a POST body.
var detailsPaths = []string{
	"details",
	"api/v1/details",
	"fetch",
}

const maxAttemptBody = 500

// Attempt records one probe against a guessed endpoint.
type Attempt struct {
	Endpoint   string `json:"endpoint"`
	StatusCode int    `json:"status_code,omitempty"`
	Success    bool   `json:"success"`
	Body       string `json:"body,omitempty"`
	Error      string `json:"error,omitempty"`
}

// StatusResult is the first parseable answer found by the prober, along
// with the full attempt log for diagnostics.
type StatusResult struct {
	Endpoint string          `json:"endpoint"`
	Raw      json.RawMessage `json:"raw"`
	Attempts []Attempt       `json:"attempts"`
}

var ErrNoEndpoint = errors.New("sunobox: no valid status endpoint found")

// CheckStatus probes the guessed GET endpoints for the given task until one
// returns HTTP 200 with a parseable JSON body. Every attempt is recorded.
// It fails only after exhausting the whole list.
func (c *Client) CheckStatus(ctx context.Context, taskID string) (*StatusResult, error) {
	var attempts []Attempt
	for _, p := range statusPaths {
		path := fmt.Sprintf(p, taskID)
		code, body, err := c.doRaw(ctx, "GET", path, nil)
		a := Attempt{
			Endpoint:   path,
			StatusCode: code,
			Body:       truncate(string(body), maxAttemptBody),
		}
		if err != nil {
			a.Error = err.Error()
			attempts = append(attempts, a)
			continue
		}
		if code != http.StatusOK {
			attempts = append(attempts, a)
			continue
		}
		if !json.Valid(body) {
			a.Error = "invalid JSON response"
			attempts = append(attempts, a)
			continue
		}
		a.Success = true
		attempts = append(attempts, a)
		return &StatusResult{
			Endpoint: path,
			Raw:      json.RawMessage(body),
			Attempts: attempts,
		}, nil
	}
	return &StatusResult{Attempts: attempts}, ErrNoEndpoint
}

type detailsRequest struct {
	TaskID string `json:"task_id"`
}

// FetchDetails is the POST fallback for APIs that want the task id in the
// request body instead of the path.
func (c *Client) FetchDetails(ctx context.Context, taskID string) (*StatusResult, error) {
	var attempts []Attempt
	for _, path := range detailsPaths {
		code, body, err := c.doRaw(ctx, "POST", path, &detailsRequest{TaskID: taskID})
		a := Attempt{
			Endpoint:   path,
			StatusCode: code,
			Body:       truncate(string(body), maxAttemptBody),
		}
		if err != nil {
			a.Error = err.Error()
			attempts = append(attempts, a)
			continue
		}
		if code != http.StatusOK || !json.Valid(body) {
			attempts = append(attempts, a)
			continue
		}
		a.Success = true
		attempts = append(attempts, a)
		return &StatusResult{
			Endpoint: path,
			Raw:      json.RawMessage(body),
			Attempts: attempts,
		}, nil
	}
	return &StatusResult{Attempts: attempts}, ErrNoEndpoint
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
