package models

import (
	"strings"
	"testing"
)

func TestJob_Snippet(t *testing.T) {
	tests := []struct {
		name string
		desc string
		want int
	}{
		{"short description kept", "hello", 5},
		{"exactly 300 runes kept", strings.Repeat("a", 300), 300},
		{"long description truncated", strings.Repeat("b", 500), 300},
		{"multibyte runes counted as runes", strings.Repeat("é", 400), 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &Job{Description: tt.desc}
			if got := len([]rune(j.Snippet())); got != tt.want {
				t.Errorf("Snippet() rune length = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestJob_View(t *testing.T) {
	j := &Job{ID: "j1", Title: "Go Engineer", Embedding: []float32{1, 0}}
	v := j.View()
	if v.ID != "j1" || v.Title != "Go Engineer" {
		t.Errorf("unexpected view: %+v", v)
	}
	if v.Tags == nil {
		t.Error("tags should never be nil in a view")
	}
}

func TestStaleJob(t *testing.T) {
	j := StaleJob("gone")
	if !j.Stale || j.ID != "gone" {
		t.Errorf("unexpected placeholder: %+v", j)
	}
	if j.HasEmbedding() {
		t.Error("placeholder should carry no embedding")
	}
}

func TestRankingState(t *testing.T) {
	s := &RankingState{RankedIDs: []string{"a", "b", "c"}, Cursor: 1}
	if s.Total() != 3 || s.Remaining() != 2 || s.Exhausted() {
		t.Errorf("unexpected state accounting: total=%d remaining=%d", s.Total(), s.Remaining())
	}
	s.Cursor = 3
	if !s.Exhausted() {
		t.Error("expected exhausted at cursor == total")
	}
}

func TestProfile_RankingInput(t *testing.T) {
	p := &Profile{Info: map[string]interface{}{"name": "x"}}
	if p.RankingInput()["name"] != "x" {
		t.Error("expected info fallback when preferences are empty")
	}
	p.Preferences = map[string]interface{}{"role": "backend"}
	if p.RankingInput()["role"] != "backend" {
		t.Error("expected preferences when present")
	}
}
