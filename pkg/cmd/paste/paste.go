package paste

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/lirigen/lirigen/pkg/sunobox"
)

type Config struct {
	Debug bool
	Input string
}

// Run parses a callback payload pasted by hand. The deployment can't
// receive the API's asynchronous callbacks, so the user copies the JSON
// from wherever it landed and feeds it here. The payload is scanned the
// same way as a polled response.
func Run(ctx context.Context, cfg *Config) error {
	var raw []byte
	var err error
	if cfg.Input == "" || cfg.Input == "-" {
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("paste: couldn't read stdin: %w", err)
		}
	} else {
		raw, err = os.ReadFile(cfg.Input)
		if err != nil {
			return fmt.Errorf("paste: couldn't read input file: %w", err)
		}
	}
	if !json.Valid(raw) {
		return fmt.Errorf("paste: input is not valid JSON")
	}

	if msg, ok := sunobox.APIError(raw); ok {
		return fmt.Errorf("paste: payload carries an error: %s", msg)
	}

	if id, ok := sunobox.TaskID(raw); ok {
		log.Printf("paste: task id %s\n", id)
	}
	songs, ok := sunobox.Songs(raw)
	if !ok {
		log.Println("paste: no completed songs in payload")
		return nil
	}
	for _, song := range songs {
		log.Printf("paste: song %q (%s, %.1fs) audio %s\n", song.Title, song.Tags, song.Duration, song.AudioURL)
	}
	return nil
}
