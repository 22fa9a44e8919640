package lirigen

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/lirigen/lirigen/pkg/sunobox"
)

type Config struct {
	Proxy  string
	Wait   time.Duration
	Debug  bool
	APIKey string
}

// GenerateSong submits a single generation and waits for its songs using a
// fixed re-check interval. It is the library entry point for callers that
// don't want the CLI or the web front end.
func GenerateSong(ctx context.Context, cfg *Config, req *sunobox.GenerateRequest) ([]sunobox.Song, error) {
	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	client := sunobox.New(&sunobox.Config{
		Wait:   cfg.Wait,
		Debug:  cfg.Debug,
		Client: httpClient,
		APIKey: cfg.APIKey,
	})

	gen, err := client.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("couldn't generate song: %w", err)
	}
	if gen.TaskID == "" {
		return nil, fmt.Errorf("no task id found in response")
	}
	log.Println("task id:", gen.TaskID)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(30 * time.Second):
		}
		result, err := client.CheckStatus(ctx, gen.TaskID)
		if err != nil {
			result, err = client.FetchDetails(ctx, gen.TaskID)
		}
		if err != nil {
			return nil, fmt.Errorf("couldn't check task %s: %w", gen.TaskID, err)
		}
		if msg, ok := sunobox.APIError(result.Raw); ok {
			return nil, fmt.Errorf("generation failed: %s", msg)
		}
		songs, ok := sunobox.Songs(result.Raw)
		if !ok {
			continue
		}
		for _, song := range songs {
			log.Println("title:", song.Title)
			log.Println("url:", song.AudioURL)
			log.Println("image:", song.ImageURL)
		}
		return songs, nil
	}
}
