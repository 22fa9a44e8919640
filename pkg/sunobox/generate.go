package sunobox

import (
	"context"
	"encoding/json"
	"fmt"
)

// Model versions accepted by the generation endpoint.
const (
	ModelV3_5 = "V3_5"
	ModelV4   = "V4"
	ModelV4_5 = "V4_5"
)

const defaultCallbackURL = "https://httpbin.org/post"

// GenerateRequest holds the user-supplied fields of a generation job.
type GenerateRequest struct {
	Prompt       string
	Style        string
	Title        string
	Model        string
	CustomMode   bool
	Instrumental bool
	NegativeTags string
	CallbackURL  string
}

type generatePayload struct {
	Prompt       string `json:"prompt,omitempty"`
	Style        string `json:"style,omitempty"`
	Title        string `json:"title,omitempty"`
	CustomMode   bool   `json:"customMode"`
	Instrumental bool   `json:"instrumental"`
	Model        string `json:"model"`
	NegativeTags string `json:"negativeTags,omitempty"`
	CallbackURL  string `json:"callBackUrl"`
}

// Generation is the submission result. The response schema is not reliably
// documented, so the raw body is kept next to the scanned task identifier.
type Generation struct {
	TaskID string
	Raw    json.RawMessage
}

func (r *GenerateRequest) payload() *generatePayload {
	p := &generatePayload{
		Prompt:       r.Prompt,
		CustomMode:   r.CustomMode,
		Instrumental: r.Instrumental,
		Model:        r.Model,
		CallbackURL:  r.CallbackURL,
	}
	if p.Model == "" {
		p.Model = ModelV4
	}
	if p.CallbackURL == "" {
		p.CallbackURL = defaultCallbackURL
	}
	if r.CustomMode {
		p.Style = r.Style
		p.Title = r.Title
		// Instrumental custom jobs must not carry lyrics
		if r.Instrumental {
			p.Prompt = ""
		}
	}
	if r.NegativeTags != "" {
		p.NegativeTags = r.NegativeTags
	}
	return p
}

// Generate submits a generation job and scans the response for a task
// identifier. A missing task id is not an error: the caller can still
// resolve it later via a manual callback paste.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*Generation, error) {
	if ok, errs := Validate(req); !ok {
		return nil, fmt.Errorf("sunobox: invalid request: %s", errs[0])
	}
	b, err := c.do(ctx, "POST", "generate", req.payload(), nil)
	if err != nil {
		return nil, fmt.Errorf("sunobox: couldn't generate song: %w", err)
	}
	id, _ := TaskID(b)
	return &Generation{
		TaskID: id,
		Raw:    json.RawMessage(b),
	}, nil
}
