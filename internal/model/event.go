// Package model defines the core records shared across the deadline pipeline.
package model

import "time"

// Fixed category vocabulary. Order matters for the cleanup exemption and the
// keyword classifier: CategoryImportant is exempt from time-based deletion.
const (
	CategoryExtracurricular = "課外授業"
	CategoryImportant       = "重要/テスト"
	CategoryOther           = "その他"
)

// Categories lists the closed category vocabulary.
var Categories = []string{CategoryExtracurricular, CategoryImportant, CategoryOther}

// ValidCategory reports whether c is a member of the fixed vocabulary.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Column layout of a persisted event row. Every sheet row occupies exactly
// RowWidth columns in this order.
const (
	ColTitle = iota
	ColSummary
	ColDeadline
	ColLink
	ColCategory
	RowWidth
)

// Message is one mail message from the mail source.
type Message struct {
	ID       string    `json:"id"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	Date     time.Time `json:"date"`
	Link     string    `json:"link"`
}

// Event is a candidate deadline event. It is mutated in place through
// dedupe-merge and enrichment; Row is the denormalized 5-column projection of
// what gets persisted and must never disagree with the named fields. All
// mutation goes through the setters, which re-sync the row.
type Event struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Deadline    string `json:"deadline"` // canonical YYYY-MM-DD or ""
	Link        string `json:"link"`
	Category    string `json:"category"`
	PreCategory string `json:"pre_category"`

	// Source context retained for merge decisions and fallback extraction.
	SourceSubject string    `json:"source_subject"`
	SourceBody    string    `json:"source_body"`
	SourceDate    time.Time `json:"source_date"`

	Row []string `json:"row"`
}

// NewEvent builds an event with a synced output row.
func NewEvent(title, deadline, link string) *Event {
	e := &Event{
		Title:    title,
		Deadline: deadline,
		Link:     link,
	}
	e.SyncRow()
	return e
}

// SyncRow recomputes the denormalized row from the named fields.
func (e *Event) SyncRow() {
	if e.Row == nil {
		e.Row = make([]string, RowWidth)
	}
	e.Row[ColTitle] = e.Title
	e.Row[ColSummary] = e.Summary
	e.Row[ColDeadline] = e.Deadline
	e.Row[ColLink] = e.Link
	e.Row[ColCategory] = e.Category
}

// SetSummary sets the summary and syncs the row.
func (e *Event) SetSummary(s string) {
	e.Summary = s
	e.SyncRow()
}

// SetCategory sets the category and syncs the row.
func (e *Event) SetCategory(c string) {
	e.Category = c
	e.SyncRow()
}

// SetDeadline sets the canonical deadline and syncs the row.
func (e *Event) SetDeadline(d string) {
	e.Deadline = d
	e.SyncRow()
}

// SetSource adopts a newer source mail reference and syncs the row.
func (e *Event) SetSource(link string, date time.Time) {
	e.Link = link
	e.SourceDate = date
	e.SyncRow()
}
