// Package models defines core data structures for jobs, candidate profiles, and rankings.
package models

import (
	"time"
	"unicode/utf8"
)

// snippetLength is the number of runes kept by Job.Snippet.
const snippetLength = 300

// Job is a catalog item: a job posting with its precomputed embedding.
type Job struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Company     string    `json:"company" db:"company"`
	Tags        []string  `json:"tags" db:"tags"`
	Location    string    `json:"location" db:"location"`
	DatePosted  string    `json:"date_posted" db:"date_posted"`
	ApplyLink   string    `json:"apply_link" db:"apply_link"`
	Description string    `json:"description" db:"description"`
	Embedding   []float32 `json:"-" db:"embedding"`
	// Stale is set on placeholder jobs whose id no longer resolves in the catalog.
	Stale bool `json:"stale,omitempty" db:"-"`
}

// HasEmbedding reports whether the job can take part in a ranking pass.
func (j *Job) HasEmbedding() bool {
	return j != nil && len(j.Embedding) > 0
}

// Snippet returns the first 300 runes of the description.
func (j *Job) Snippet() string {
	if utf8.RuneCountInString(j.Description) <= snippetLength {
		return j.Description
	}
	return string([]rune(j.Description)[:snippetLength])
}

// JobView is the client-facing shape of a job, without the embedding.
type JobView struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Company            string   `json:"company"`
	Tags               []string `json:"tags"`
	Location           string   `json:"location"`
	DatePosted         string   `json:"date_posted"`
	ApplyLink          string   `json:"apply_link"`
	DescriptionSnippet string   `json:"description_snippet"`
	Description        string   `json:"description,omitempty"`
	Stale              bool     `json:"stale,omitempty"`
}

// View converts a job into its client-facing form.
func (j *Job) View() *JobView {
	tags := j.Tags
	if tags == nil {
		tags = []string{}
	}
	return &JobView{
		ID:                 j.ID,
		Title:              j.Title,
		Company:            j.Company,
		Tags:               tags,
		Location:           j.Location,
		DatePosted:         j.DatePosted,
		ApplyLink:          j.ApplyLink,
		DescriptionSnippet: j.Snippet(),
		Description:        j.Description,
		Stale:              j.Stale,
	}
}

// StaleJob returns the placeholder delivered when a ranked id no longer resolves.
func StaleJob(id string) *Job {
	return &Job{ID: id, Tags: []string{}, Stale: true}
}

// RankedEntry is one position of a ranking: an item id and its similarity score in [-1, 1].
type RankedEntry struct {
	ItemID string  `json:"id"`
	Score  float64 `json:"score"`
}

// RankingState is the durable delivery state of one candidate.
// Cursor counts the ranked items already delivered (0 <= Cursor <= len(RankedIDs)).
type RankingState struct {
	CandidateID string    `json:"candidate_id"`
	RankedIDs   []string  `json:"ranked_ids"`
	Cursor      int       `json:"cursor"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Total returns the length of the stored ranking.
func (s *RankingState) Total() int {
	return len(s.RankedIDs)
}

// Remaining returns how many ranked items have not been delivered yet.
func (s *RankingState) Remaining() int {
	return len(s.RankedIDs) - s.Cursor
}

// Exhausted reports whether every ranked item has been delivered.
func (s *RankingState) Exhausted() bool {
	return s.Cursor >= len(s.RankedIDs)
}

// Window returns a copy of up to count ids starting at the cursor.
func (s *RankingState) Window(count int) []string {
	if count <= 0 || s.Cursor >= len(s.RankedIDs) {
		return []string{}
	}
	end := s.Cursor + count
	if end > len(s.RankedIDs) {
		end = len(s.RankedIDs)
	}
	out := make([]string, end-s.Cursor)
	copy(out, s.RankedIDs[s.Cursor:end])
	return out
}
