package sunobox

import "testing"

func TestTaskID(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{
			name:   "top level task_id",
			raw:    `{"task_id": "abc"}`,
			want:   "abc",
			wantOK: true,
		},
		{
			name:   "top level camel case",
			raw:    `{"taskId": "abc"}`,
			want:   "abc",
			wantOK: true,
		},
		{
			name:   "top level id",
			raw:    `{"id": "abc"}`,
			want:   "abc",
			wantOK: true,
		},
		{
			name:   "task_id wins over id",
			raw:    `{"id": "other", "task_id": "abc"}`,
			want:   "abc",
			wantOK: true,
		},
		{
			name:   "under data object",
			raw:    `{"code": 200, "data": {"taskId": "abc"}}`,
			want:   "abc",
			wantOK: true,
		},
		{
			name:   "first element of data list",
			raw:    `{"code": 200, "data": [{"id": "abc"}, {"id": "def"}]}`,
			want:   "abc",
			wantOK: true,
		},
		{
			name: "empty data list",
			raw:  `{"data": []}`,
		},
		{
			name: "no candidates",
			raw:  `{"code": 200, "msg": "success"}`,
		},
		{
			name: "empty values skipped",
			raw:  `{"task_id": "", "data": {"taskId": ""}}`,
		},
		{
			name: "not an object",
			raw:  `[1, 2, 3]`,
		},
		{
			name: "invalid json",
			raw:  `{`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TaskID([]byte(tt.raw))
			if ok != tt.wantOK {
				t.Fatalf("TaskID() ok = %v; want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("TaskID() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestSongs(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantCount int
		wantAudio string
	}{
		{
			name:      "data list with audio urls",
			raw:       `{"code": 200, "data": [{"title": "One", "audio_url": "https://cdn/a.mp3", "duration": 180.5}, {"title": "Two", "audio_url": "https://cdn/b.mp3"}]}`,
			wantCount: 2,
			wantAudio: "https://cdn/a.mp3",
		},
		{
			name:      "single data object",
			raw:       `{"code": 200, "data": {"title": "One", "audio_url": "https://cdn/a.mp3"}}`,
			wantCount: 1,
			wantAudio: "https://cdn/a.mp3",
		},
		{
			name:      "camel case audio url",
			raw:       `{"code": 200, "data": [{"audioUrl": "https://cdn/a.mp3"}]}`,
			wantCount: 1,
			wantAudio: "https://cdn/a.mp3",
		},
		{
			name:      "incomplete entries are skipped",
			raw:       `{"code": 200, "data": [{"title": "pending"}, {"audio_url": "https://cdn/b.mp3"}]}`,
			wantCount: 1,
			wantAudio: "https://cdn/b.mp3",
		},
		{
			name: "no audio url means still processing",
			raw:  `{"code": 200, "data": [{"title": "pending"}]}`,
		},
		{
			name: "empty data",
			raw:  `{"code": 200, "data": []}`,
		},
		{
			name: "invalid json",
			raw:  `not json`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			songs, ok := Songs([]byte(tt.raw))
			if ok != (tt.wantCount > 0) {
				t.Fatalf("Songs() ok = %v; want %v", ok, tt.wantCount > 0)
			}
			if len(songs) != tt.wantCount {
				t.Fatalf("Songs() count = %d; want %d", len(songs), tt.wantCount)
			}
			if tt.wantCount > 0 && songs[0].AudioURL != tt.wantAudio {
				t.Fatalf("Songs()[0].AudioURL = %q; want %q", songs[0].AudioURL, tt.wantAudio)
			}
		})
	}
}

func TestSongFields(t *testing.T) {
	raw := `{"code": 200, "data": [{
		"id": "song-1",
		"title": "Night Drive",
		"tags": "synthwave, retro",
		"duration": 181.2,
		"model_name": "chirp-v4",
		"createTime": "2025-01-01 12:00:00",
		"prompt": "[Verse]\nNeon lights",
		"audio_url": "https://cdn/a.mp3",
		"image_url": "https://cdn/a.jpg"
	}]}`
	songs, ok := Songs([]byte(raw))
	if !ok || len(songs) != 1 {
		t.Fatalf("Songs() = %v, %v; want 1 song", songs, ok)
	}
	got := songs[0]
	want := Song{
		ID:         "song-1",
		Title:      "Night Drive",
		Tags:       "synthwave, retro",
		Duration:   181.2,
		Model:      "chirp-v4",
		CreateTime: "2025-01-01 12:00:00",
		Prompt:     "[Verse]\nNeon lights",
		AudioURL:   "https://cdn/a.mp3",
		ImageURL:   "https://cdn/a.jpg",
	}
	if got != want {
		t.Fatalf("Songs()[0] = %+v; want %+v", got, want)
	}
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantMsg string
		wantOK  bool
	}{
		{
			name:    "error code with msg",
			raw:     `{"code": 429, "msg": "insufficient credits"}`,
			wantMsg: "insufficient credits",
			wantOK:  true,
		},
		{
			name:    "error code with message key",
			raw:     `{"code": 500, "message": "internal error"}`,
			wantMsg: "internal error",
			wantOK:  true,
		},
		{
			name:    "error code without message",
			raw:     `{"code": 400}`,
			wantMsg: "unknown error",
			wantOK:  true,
		},
		{
			name: "success code",
			raw:  `{"code": 200, "msg": "success"}`,
		},
		{
			name: "no code",
			raw:  `{"task_id": "abc"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := APIError([]byte(tt.raw))
			if ok != tt.wantOK {
				t.Fatalf("APIError() ok = %v; want %v", ok, tt.wantOK)
			}
			if msg != tt.wantMsg {
				t.Fatalf("APIError() = %q; want %q", msg, tt.wantMsg)
			}
		})
	}
}
