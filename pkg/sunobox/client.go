package sunobox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/lirigen/lirigen/pkg/ratelimit"
)

const defaultBaseURL = "https://apibox.erweima.ai/api/v1"

type Client struct {
	client    *http.Client
	debug     bool
	ratelimit ratelimit.Lock
	baseURL   string
	apiKey    string
}

type Config struct {
	Wait    time.Duration
	Debug   bool
	Client  *http.Client
	BaseURL string
	APIKey  string
}

func New(cfg *Config) *Client {
	wait := cfg.Wait
	if wait == 0 {
		wait = 1 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		client:    client,
		ratelimit: ratelimit.New(wait),
		debug:     cfg.Debug,
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
	}
}

func (c *Client) log(format string, args ...interface{}) {
	if c.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

type errStatusCode int

func (e errStatusCode) Error() string {
	return fmt.Sprintf("%d", e)
}

// do issues a single request. The target API gives no guarantees worth
// retrying for, so failures are returned directly to the caller.
func (c *Client) do(ctx context.Context, method, path string, in, out any) ([]byte, error) {
	code, respBody, err := c.doRaw(ctx, method, path, in)
	if err != nil {
		return nil, err
	}
	if code < 200 || code >= 300 {
		errMessage := string(respBody)
		if len(errMessage) > 100 {
			errMessage = errMessage[:100] + "..."
		}
		return nil, fmt.Errorf("sunobox: %s %s returned (%s): %w", method, path, errMessage, errStatusCode(code))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, fmt.Errorf("sunobox: couldn't unmarshal response body (%T): %w", out, err)
		}
	}
	return respBody, nil
}

// doRaw issues the request and returns the status code and body without
// judging either. The endpoint prober needs both for its attempt log.
func (c *Client) doRaw(ctx context.Context, method, path string, in any) (int, []byte, error) {
	var body []byte
	var reqBody io.Reader
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("sunobox: couldn't marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(body)
	}
	logBody := string(body)
	if len(logBody) > 100 {
		logBody = logBody[:100] + "..."
	}
	c.log("sunobox: do %s %s %s", method, path, logBody)

	// Check if path is absolute
	u := fmt.Sprintf("%s/%s", c.baseURL, path)
	if strings.HasPrefix(path, "http") {
		u = path
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("sunobox: couldn't create request: %w", err)
	}
	c.addHeaders(req)

	unlock := c.ratelimit.Lock(ctx)
	defer unlock()

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("sunobox: couldn't %s %s: %w", method, u, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("sunobox: couldn't read response body: %w", err)
	}
	c.log("sunobox: response %s %s %d %s", method, path, resp.StatusCode, string(respBody))
	return resp.StatusCode, respBody, nil
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
}
