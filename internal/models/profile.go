package models

import "time"

// Profile is a candidate's structured profile as produced by resume extraction or direct edit.
// Info holds profile attributes (name, skills, experience); Preferences holds job preference
// attributes and is the ranking input.
type Profile struct {
	CandidateID string                 `json:"candidate_id"`
	Info        map[string]interface{} `json:"info_dict"`
	Preferences map[string]interface{} `json:"job_dict"`
	DynamicKeys map[string][]string    `json:"dynamic_keys,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// RankingInput returns the attributes used to build the embedding text.
// Preferences are used when present; otherwise Info.
func (p *Profile) RankingInput() map[string]interface{} {
	if len(p.Preferences) > 0 {
		return p.Preferences
	}
	return p.Info
}
