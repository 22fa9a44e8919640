package sunobox

import (
	"encoding/json"
)

// The API answers with bodies whose schema is not reliably known: fields
// show up under different names and nesting levels depending on the
// endpoint that happened to answer. Everything here is best-effort lookup
// over a fixed sequence of candidate keys and shapes.

// Song holds the fields of a completed generation.
type Song struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Tags       string  `json:"tags"`
	Duration   float64 `json:"duration"`
	Model      string  `json:"model_name"`
	CreateTime string  `json:"create_time"`
	Prompt     string  `json:"prompt"`
	AudioURL   string  `json:"audio_url"`
	ImageURL   string  `json:"image_url"`
}

var taskIDKeys = []string{"task_id", "taskId", "id"}

// TaskID scans a response body for a task identifier. Candidates are
// checked at the top level, one level under "data" and in the first
// element of a list under "data". The first non-empty match wins.
func TaskID(raw []byte) (string, bool) {
	m, ok := toMap(raw)
	if !ok {
		return "", false
	}
	if id := str(m, taskIDKeys...); id != "" {
		return id, true
	}
	switch data := m["data"].(type) {
	case map[string]any:
		if id := str(data, taskIDKeys...); id != "" {
			return id, true
		}
	case []any:
		if len(data) == 0 {
			return "", false
		}
		first, ok := data[0].(map[string]any)
		if !ok {
			return "", false
		}
		if id := str(first, taskIDKeys...); id != "" {
			return id, true
		}
	}
	return "", false
}

// Songs scans a response body for completed songs. A song counts as
// completed only when an audio URL is present. The "data" section may be a
// list of songs or a single song object.
func Songs(raw []byte) ([]Song, bool) {
	m, ok := toMap(raw)
	if !ok {
		return nil, false
	}
	var songs []Song
	switch data := m["data"].(type) {
	case []any:
		for _, v := range data {
			sm, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := toSong(sm); ok {
				songs = append(songs, s)
			}
		}
	case map[string]any:
		if s, ok := toSong(data); ok {
			songs = append(songs, s)
		}
	}
	if len(songs) == 0 {
		return nil, false
	}
	return songs, true
}

// APIError reports whether the body carries an error code. The envelope
// convention is {"code": 200, "msg": ..., "data": ...}; anything other
// than 200 is an error.
func APIError(raw []byte) (string, bool) {
	m, ok := toMap(raw)
	if !ok {
		return "", false
	}
	code, ok := m["code"].(float64)
	if !ok || int(code) == 200 {
		return "", false
	}
	msg := str(m, "msg", "message")
	if msg == "" {
		msg = "unknown error"
	}
	return msg, true
}

func toSong(m map[string]any) (Song, bool) {
	audio := str(m, "audio_url", "audioUrl")
	if audio == "" {
		return Song{}, false
	}
	return Song{
		ID:         str(m, "id", "music_id", "musicId"),
		Title:      str(m, "title"),
		Tags:       str(m, "tags", "style"),
		Duration:   num(m, "duration"),
		Model:      str(m, "model_name", "modelName", "model"),
		CreateTime: str(m, "createTime", "create_time"),
		Prompt:     str(m, "prompt", "lyrics"),
		AudioURL:   audio,
		ImageURL:   str(m, "image_url", "imageUrl"),
	}, true
}

func toMap(raw []byte) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func num(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := m[k].(float64); ok {
			return v
		}
	}
	return 0
}
