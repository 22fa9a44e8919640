package check

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/lirigen/lirigen/pkg/sunobox"
)

type Config struct {
	Debug   bool
	APIKey  string
	BaseURL string
	Proxy   string
	Wait    time.Duration

	TaskID string
	Watch  time.Duration
}

// Run probes the status endpoints for a task id and prints what it finds,
// including the per-endpoint attempt log. With watch set it re-checks on a
// fixed interval until the task is terminal.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.TaskID == "" {
		return fmt.Errorf("check: task id is required")
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	for {
		done, err := checkOnce(ctx, client, cfg.TaskID)
		if err != nil {
			return err
		}
		if done || cfg.Watch <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("check: %w", ctx.Err())
		case <-time.After(cfg.Watch):
		}
	}
}

func checkOnce(ctx context.Context, client *sunobox.Client, taskID string) (bool, error) {
	result, err := client.CheckStatus(ctx, taskID)
	if errors.Is(err, sunobox.ErrNoEndpoint) {
		logAttempts(result.Attempts)
		log.Println("check: no GET endpoint answered, trying POST details")
		result, err = client.FetchDetails(ctx, taskID)
	}
	if err != nil {
		if result != nil {
			logAttempts(result.Attempts)
		}
		return false, fmt.Errorf("check: couldn't check task %s: %w", taskID, err)
	}
	logAttempts(result.Attempts)
	log.Printf("check: endpoint %s answered\n", result.Endpoint)

	if msg, ok := sunobox.APIError(result.Raw); ok {
		log.Printf("check: task %s failed: %s\n", taskID, msg)
		return true, nil
	}
	songs, ok := sunobox.Songs(result.Raw)
	if !ok {
		log.Printf("check: task %s still processing\n", taskID)
		return false, nil
	}
	for _, song := range songs {
		log.Printf("check: song %q (%s, %.1fs) audio %s\n", song.Title, song.Tags, song.Duration, song.AudioURL)
	}
	return true, nil
}

func logAttempts(attempts []sunobox.Attempt) {
	for _, a := range attempts {
		mark := "❌"
		if a.Success {
			mark = "✅"
		}
		switch {
		case a.Error != "":
			log.Printf("check: %s %s: %s\n", mark, a.Endpoint, a.Error)
		default:
			log.Printf("check: %s %s: %d\n", mark, a.Endpoint, a.StatusCode)
		}
	}
}

func newClient(cfg *Config) (*sunobox.Client, error) {
	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("check: invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	return sunobox.New(&sunobox.Config{
		Wait:    cfg.Wait,
		Debug:   cfg.Debug,
		Client:  httpClient,
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
	}), nil
}
