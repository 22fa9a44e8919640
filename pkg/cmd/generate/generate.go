package generate

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/lirigen/lirigen/pkg/session"
	"github.com/lirigen/lirigen/pkg/sunobox"
)

type Config struct {
	Debug   bool
	APIKey  string
	BaseURL string
	Proxy   string
	Wait    time.Duration

	Prompt       string
	Style        string
	Title        string
	Model        string
	CustomMode   bool
	Instrumental bool
	NegativeTags string
	Count        int

	Watch time.Duration
}

// Run submits the configured number of song variations and, when watch is
// set, keeps checking their status until every one of them is terminal.
func Run(ctx context.Context, cfg *Config) error {
	log.Println("generate: process started")
	defer log.Println("generate: process ended")

	req := &sunobox.GenerateRequest{
		Prompt:       cfg.Prompt,
		Style:        cfg.Style,
		Title:        cfg.Title,
		Model:        cfg.Model,
		CustomMode:   cfg.CustomMode,
		Instrumental: cfg.Instrumental,
		NegativeTags: cfg.NegativeTags,
	}
	if ok, errs := sunobox.Validate(req); !ok {
		for _, e := range errs {
			log.Println("generate: invalid input:", e)
		}
		return fmt.Errorf("generate: invalid input: %s", errs[0])
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	tracker := session.New()

	count := cfg.Count
	if count <= 0 {
		count = 2
	}
	for i := 1; i <= count; i++ {
		r := *req
		if r.Title != "" {
			r.Title = fmt.Sprintf("%s - Version %d", req.Title, i)
		}
		gen, err := client.Generate(ctx, &r)
		if err != nil {
			log.Printf("generate: couldn't generate song %d/%d: %v\n", i, count, err)
			continue
		}
		key := tracker.Add(&session.Status{
			TaskID: gen.TaskID,
			Title:  r.Title,
			Model:  r.Model,
			Prompt: r.Prompt,
			Style:  r.Style,
			Raw:    gen.Raw,
		})
		if gen.TaskID != "" {
			log.Printf("generate: song %d/%d submitted, key %s, task %s\n", i, count, key, gen.TaskID)
		} else {
			log.Printf("generate: song %d/%d submitted, key %s, no task id in response\n", i, count, key)
		}
	}
	if len(tracker.List()) == 0 {
		return fmt.Errorf("generate: no songs were submitted")
	}

	if cfg.Watch <= 0 {
		return nil
	}
	return watch(ctx, client, tracker, cfg.Watch)
}

// watch blocks for the fixed interval between rounds. No fan-out: one
// check at a time.
func watch(ctx context.Context, client *sunobox.Client, tracker *session.Tracker, interval time.Duration) error {
	for {
		active := tracker.Active()
		if len(active) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("generate: %w", ctx.Err())
		case <-time.After(interval):
		}
		for _, st := range active {
			if err := check(ctx, client, tracker, st); err != nil {
				log.Println(err)
			}
		}
	}
	for _, song := range tracker.Songs() {
		log.Printf("generate: song %q (%s) audio %s\n", song.Title, song.Tags, song.AudioURL)
	}
	return nil
}

func check(ctx context.Context, client *sunobox.Client, tracker *session.Tracker, st *session.Status) error {
	result, err := client.CheckStatus(ctx, st.TaskID)
	if err != nil {
		// Some deployments only answer the POST variant
		result, err = client.FetchDetails(ctx, st.TaskID)
	}
	if err != nil {
		return fmt.Errorf("generate: couldn't check task %s: %w", st.TaskID, err)
	}
	if msg, ok := sunobox.APIError(result.Raw); ok {
		if err := tracker.Fail(st.Key, msg); err != nil {
			return fmt.Errorf("generate: couldn't mark %s as failed: %w", st.Key, err)
		}
		return nil
	}
	songs, ok := sunobox.Songs(result.Raw)
	if !ok {
		// Still processing
		return nil
	}
	if err := tracker.Complete(st.Key, songs, result.Raw); err != nil {
		return fmt.Errorf("generate: couldn't mark %s as complete: %w", st.Key, err)
	}
	return nil
}

func newClient(cfg *Config) (*sunobox.Client, error) {
	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("generate: invalid proxy URL: %w", err)
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
