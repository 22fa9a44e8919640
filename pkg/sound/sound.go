package sound

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// Analyzer decodes an MP3 from a local file or URL and exposes basic
// measurements. The duration reported by the API is occasionally missing
// or wrong, so the audio itself is the reference.
type Analyzer struct {
	samples  int
	rate     int
	duration time.Duration
	source   string
}

func NewAnalyzer(u string) (*Analyzer, error) {
	decoder, src, err := toDecoder(u)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't create decoder: %w", err)
	}

	buf := make([]byte, 4) // 2 bytes per sample, stereo output
	var n int
	for {
		_, err := decoder.Read(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sound: couldn't read sample: %w", err)
		}
		n++
	}

	duration := time.Duration(float64(n) / float64(decoder.SampleRate()) * float64(time.Second))
	return &Analyzer{
		source:   src,
		samples:  n,
		rate:     decoder.SampleRate(),
		duration: duration,
	}, nil
}

func (a *Analyzer) Source() string {
	return a.source
}

func (a *Analyzer) Duration() time.Duration {
	return a.duration
}

func (a *Analyzer) SampleRate() int {
	return a.rate
}

func toDecoder(u string) (*mp3.Decoder, string, error) {
	src := u
	var b []byte
	if strings.HasPrefix(u, "http") {
		// Download MP3 file
		client := &http.Client{
			Timeout: 2 * time.Minute,
		}
		resp, err := client.Get(u)
		if err != nil {
			return nil, "", fmt.Errorf("sound: couldn't download song: %w", err)
		}
		defer resp.Body.Close()
		b, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", fmt.Errorf("sound: couldn't read song: %w", err)
		}
	} else {
		// Open local file
		file, err := os.Open(u)
		if err != nil {
			return nil, "", fmt.Errorf("sound: couldn't open file: %w", err)
		}
		defer file.Close()
		b, err = io.ReadAll(file)
		if err != nil {
			return nil, "", fmt.Errorf("sound: couldn't read song: %w", err)
		}
	}

	// Decode MP3 to PCM
	decoder, err := mp3.NewDecoder(bytes.NewReader(b))
	if err != nil {
		return nil, "", fmt.Errorf("sound: couldn't decode mp3: %w", err)
	}
	return decoder, src, nil
}
