package sunobox

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const titleLimit = 80

// Validate checks the request against the model-specific character limits
// and required-field rules. It returns whether the request is valid along
// with the list of human-readable errors.
func Validate(req *GenerateRequest) (bool, []string) {
	var errs []string

	model := req.Model
	if model == "" {
		model = ModelV4
	}

	// Model-specific limits
	promptLimit := 3000
	styleLimit := 200
	if model == ModelV4_5 {
		promptLimit = 5000
		styleLimit = 1000
	}
	if !req.CustomMode {
		promptLimit = 400
	}

	// Validate prompt
	if req.CustomMode {
		if !req.Instrumental && count(req.Prompt) > promptLimit {
			errs = append(errs, fmt.Sprintf("prompt exceeds %d character limit for %s", promptLimit, model))
		}
		if !req.Instrumental && strings.TrimSpace(req.Prompt) == "" {
			errs = append(errs, "prompt is required when not instrumental in custom mode")
		}
	} else {
		if count(req.Prompt) > promptLimit {
			errs = append(errs, "prompt exceeds 400 character limit in non-custom mode")
		}
		if strings.TrimSpace(req.Prompt) == "" {
			errs = append(errs, "prompt is required")
		}
	}

	// Validate style and title for custom mode
	if req.CustomMode {
		if strings.TrimSpace(req.Style) == "" {
			errs = append(errs, "style is required in custom mode")
		} else if count(req.Style) > styleLimit {
			errs = append(errs, fmt.Sprintf("style exceeds %d character limit for %s", styleLimit, model))
		}
		if strings.TrimSpace(req.Title) == "" {
			errs = append(errs, "title is required in custom mode")
		} else if count(req.Title) > titleLimit {
			errs = append(errs, fmt.Sprintf("title exceeds %d character limit", titleLimit))
		}
	}

	return len(errs) == 0, errs
}

// count measures characters, not bytes, to match the limits the API
// enforces on its side.
func count(s string) int {
	return utf8.RuneCountInString(s)
}
