package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lirigen/lirigen/pkg/sunobox"
	"github.com/oklog/ulid/v2"
)

// State custom type for our enum
type State int

// Enum values for State
const (
	Pending    State = 0
	Processing State = 1
	Complete   State = 2
	Error      State = 3
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Processing:
		return "processing"
	case Complete:
		return "complete"
	case Error:
		return "error"
	}
	return "unknown"
}

// MarshalJSON encodes the state by name, matching the enum the UI shows.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "pending":
		*s = Pending
	case "processing":
		*s = Processing
	case "complete":
		*s = Complete
	case "error":
		*s = Error
	default:
		return fmt.Errorf("session: unknown state %q", name)
	}
	return nil
}

func (s State) terminal() bool {
	return s == Complete || s == Error
}

var ErrTransition = fmt.Errorf("session: invalid state transition")

// Status tracks one submitted generation for the lifetime of the session.
type Status struct {
	Key       string          `json:"key"`
	State     State           `json:"state"`
	TaskID    string          `json:"task_id,omitempty"`
	Title     string          `json:"title"`
	Model     string          `json:"model"`
	Prompt    string          `json:"prompt"`
	Style     string          `json:"style"`
	CreatedAt time.Time       `json:"created_at"`
	Error     string          `json:"error,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// Tracker is the session store: a flat mapping of song key to status plus
// the list of completed songs. Nothing survives the process.
type Tracker struct {
	lck      sync.Mutex
	statuses map[string]*Status
	order    []string
	songs    []sunobox.Song
}

func New() *Tracker {
	return &Tracker{
		statuses: map[string]*Status{},
	}
}

// Add registers a new status under a fresh key and returns the key. The
// initial state is processing when a task id was scanned, pending when the
// response gave none.
func (t *Tracker) Add(st *Status) string {
	t.lck.Lock()
	defer t.lck.Unlock()
	key := ulid.Make().String()
	cp := *st
	cp.Key = key
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	if cp.State == Pending && cp.TaskID != "" {
		cp.State = Processing
	}
	t.statuses[key] = &cp
	t.order = append(t.order, key)
	return key
}

func (t *Tracker) Get(key string) (*Status, bool) {
	t.lck.Lock()
	defer t.lck.Unlock()
	st, ok := t.statuses[key]
	if !ok {
		return nil, false
	}
	cp := *st
	return &cp, true
}

// List returns copies of all statuses in insertion order.
func (t *Tracker) List() []*Status {
	t.lck.Lock()
	defer t.lck.Unlock()
	var sts []*Status
	for _, key := range t.order {
		cp := *t.statuses[key]
		sts = append(sts, &cp)
	}
	return sts
}

// Active returns the keys of statuses that still need a status check:
// non-terminal entries with a known task id.
func (t *Tracker) Active() []*Status {
	t.lck.Lock()
	defer t.lck.Unlock()
	var sts []*Status
	for _, key := range t.order {
		st := t.statuses[key]
		if st.State.terminal() || st.TaskID == "" {
			continue
		}
		cp := *st
		sts = append(sts, &cp)
	}
	return sts
}

// SetTaskID records a task id scanned after submission, promoting a
// pending entry to processing.
func (t *Tracker) SetTaskID(key, taskID string) error {
	t.lck.Lock()
	defer t.lck.Unlock()
	st, ok := t.statuses[key]
	if !ok {
		return fmt.Errorf("session: unknown key %s", key)
	}
	if st.State.terminal() {
		return ErrTransition
	}
	st.TaskID = taskID
	if st.State == Pending && taskID != "" {
		st.State = Processing
	}
	return nil
}

// Complete marks the entry complete and appends its songs to the session
// list. Terminal entries never regress, duplicate completions are rejected.
func (t *Tracker) Complete(key string, songs []sunobox.Song, raw json.RawMessage) error {
	t.lck.Lock()
	defer t.lck.Unlock()
	st, ok := t.statuses[key]
	if !ok {
		return fmt.Errorf("session: unknown key %s", key)
	}
	if st.State.terminal() {
		return ErrTransition
	}
	st.State = Complete
	st.Raw = raw
	t.songs = append(t.songs, songs...)
	return nil
}

// Fail marks the entry as errored with the given message.
func (t *Tracker) Fail(key, msg string) error {
	t.lck.Lock()
	defer t.lck.Unlock()
	st, ok := t.statuses[key]
	if !ok {
		return fmt.Errorf("session: unknown key %s", key)
	}
	if st.State.terminal() {
		return ErrTransition
	}
	st.State = Error
	st.Error = msg
	return nil
}

// AddSongs appends songs obtained outside the polling flow, such as a
// manually pasted callback payload.
func (t *Tracker) AddSongs(songs ...sunobox.Song) {
	t.lck.Lock()
	defer t.lck.Unlock()
	t.songs = append(t.songs, songs...)
}

// Songs returns a copy of the completed song list.
func (t *Tracker) Songs() []sunobox.Song {
	t.lck.Lock()
	defer t.lck.Unlock()
	songs := make([]sunobox.Song, len(t.songs))
	copy(songs, t.songs)
	return songs
}
