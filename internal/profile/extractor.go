// Package profile turns resume text into a structured candidate profile and stores profiles.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// ErrCannotParse is returned when the extraction provider fails or replies with something
// that is not a profile.
var ErrCannotParse = errors.New("cannot parse resume")

// ExtractedProfile is the structured output of resume extraction.
type ExtractedProfile struct {
	Info        map[string]interface{} `json:"info_dict"`
	Preferences map[string]interface{} `json:"job_dict"`
	NewKeys     map[string][]string    `json:"new_keys_tracker"`
}

// Extractor turns raw resume text into a profile.
type Extractor interface {
	Extract(ctx context.Context, rawText string) (*ExtractedProfile, error)
}

// parseExtracted decodes a provider reply, tolerating markdown fences around the object.
func parseExtracted(reply string) (*ExtractedProfile, error) {
	raw := extractJSON(reply)
	if raw == "" {
		return nil, fmt.Errorf("%w: reply contains no json object", ErrCannotParse)
	}
	var out ExtractedProfile
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotParse, err)
	}
	if len(out.Info) == 0 && len(out.Preferences) == 0 {
		return nil, fmt.Errorf("%w: reply has neither info_dict nor job_dict", ErrCannotParse)
	}
	if out.Info == nil {
		out.Info = map[string]interface{}{}
	}
	if out.Preferences == nil {
		out.Preferences = map[string]interface{}{}
	}
	return &out, nil
}

// extractJSON returns the outermost {...} of s after stripping code fences.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
