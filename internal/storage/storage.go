package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/FranksOps/pilotjobs/internal/jobs"
)

// Entry is one archived posting from one run.
type Entry struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Keyword   string    `json:"keyword"`
	Provider  string    `json:"provider"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Snippet   string    `json:"snippet"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEntry archives r under runID with a fresh ID.
func NewEntry(runID string, r jobs.Record, at time.Time) *Entry {
	return &Entry{
		ID:        uuid.New().String(),
		RunID:     runID,
		Keyword:   r.Keyword,
		Provider:  r.Provider,
		Title:     r.Title,
		URL:       r.URL,
		Snippet:   r.Snippet,
		CreatedAt: at.UTC(),
	}
}

// Filter selects archived entries. Zero fields do not filter.
type Filter struct {
	URL      string
	Provider string
	RunID    string
	Since    *time.Time
	Limit    int
	Offset   int
}

// Match reports whether e satisfies the field filters (not Limit/Offset).
func (f Filter) Match(e *Entry) bool {
	if f.URL != "" && e.URL != f.URL {
		return false
	}
	if f.Provider != "" && e.Provider != f.Provider {
		return false
	}
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.Since != nil && e.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page applies Offset and Limit to entries already ordered newest first.
func (f Filter) Page(entries []*Entry) []*Entry {
	if f.Offset > 0 {
		if f.Offset >= len(entries) {
			return []*Entry{}
		}
		entries = entries[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(entries) {
		entries = entries[:f.Limit]
	}
	return entries
}

// Backend archives postings across runs.
type Backend interface {
	Save(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, filter Filter) ([]*Entry, error)
	Close() error
}

// Seen reports whether url has been archived before.
func Seen(ctx context.Context, b Backend, url string) (bool, error) {
	found, err := b.Query(ctx, Filter{URL: url, Limit: 1})
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}
