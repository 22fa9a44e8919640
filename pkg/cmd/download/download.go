package download

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/lirigen/lirigen/pkg/sound"
	"github.com/lirigen/lirigen/pkg/sunobox"
)

type Config struct {
	Debug   bool
	APIKey  string
	BaseURL string
	Proxy   string
	Wait    time.Duration

	URL    string
	TaskID string
	Output string
}

// Run downloads a completed song to a local file. The audio URL can be
// given directly or resolved from a task id via the status prober. The
// real duration is decoded from the file afterwards.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Output == "" {
		return fmt.Errorf("download: output file is required")
	}
	u := cfg.URL
	if u == "" {
		if cfg.TaskID == "" {
			return fmt.Errorf("download: either a url or a task id is required")
		}
		var err error
		u, err = resolve(ctx, cfg)
		if err != nil {
			return err
		}
	}

	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return err
	}
	if err := fetch(ctx, httpClient, u, cfg.Output); err != nil {
		return err
	}
	log.Printf("download: saved %s\n", cfg.Output)

	a, err := sound.NewAnalyzer(cfg.Output)
	if err != nil {
		// The file is already on disk, a decode failure is not fatal
		log.Printf("download: couldn't analyze audio: %v\n", err)
		return nil
	}
	log.Printf("download: duration %s\n", a.Duration().Round(time.Second))
	return nil
}

func resolve(ctx context.Context, cfg *Config) (string, error) {
	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return "", err
	}
	client := sunobox.New(&sunobox.Config{
		Wait:    cfg.Wait,
		Debug:   cfg.Debug,
		Client:  httpClient,
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
	})
	result, err := client.CheckStatus(ctx, cfg.TaskID)
	if err != nil {
		result, err = client.FetchDetails(ctx, cfg.TaskID)
	}
	if err != nil {
		return "", fmt.Errorf("download: couldn't check task %s: %w", cfg.TaskID, err)
	}
	songs, ok := sunobox.Songs(result.Raw)
	if !ok {
		return "", fmt.Errorf("download: task %s has no completed songs", cfg.TaskID)
	}
	return songs[0].AudioURL, nil
}

func fetch(ctx context.Context, client *http.Client, u, output string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("download: couldn't create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download: couldn't download audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: %s returned %d", u, resp.StatusCode)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("download: couldn't create output file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("download: couldn't write output file: %w", err)
	}
	return nil
}

func newHTTPClient(cfg *Config) (*http.Client, error) {
	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("download: invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	return httpClient, nil
}
