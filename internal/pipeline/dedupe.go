package pipeline

import (
	"github.com/nhigh-tools/deadline-cli/internal/match"
	"github.com/nhigh-tools/deadline-cli/internal/model"
)

// noDeadlineKey buckets events without a canonical deadline.
const noDeadlineKey = "_none_"

// Dedupe merges near-duplicate events within each deadline bucket and
// returns the surviving representatives in first-seen order. Events whose
// titles clear the similarity threshold against an earlier representative in
// the same bucket are merged into the first match and discarded; everything
// else becomes a new representative. Duplicates that landed in different
// buckets (the same event parsed with slightly different dates) are not
// merged; this is a known limitation.
func (p *Pipeline) Dedupe(events []*model.Event) []*model.Event {
	return DedupeEvents(events, p.cfg.Pipeline.SimilarityThreshold)
}

// DedupeEvents is Dedupe with an explicit threshold.
func DedupeEvents(events []*model.Event, threshold float64) []*model.Event {
	seen := make(map[string][]*model.Event)
	var result []*model.Event

	for _, ev := range events {
		key := ev.Deadline
		if key == "" {
			key = noDeadlineKey
		}

		merged := false
		for _, rep := range seen[key] {
			if match.Similarity(rep.Title, ev.Title) > threshold {
				merge(rep, ev)
				merged = true
				break
			}
		}
		if !merged {
			seen[key] = append(seen[key], ev)
			result = append(result, ev)
		}
	}
	return result
}

// merge folds the incoming duplicate into the surviving representative.
// Each field is adopted independently, and the representative wins ties:
// summary, category and preCategory only fill gaps, while the source link
// follows the strictly newest mail. Setters keep the output row in sync with
// every adoption.
func merge(rep, in *model.Event) {
	if rep.Summary == "" && in.Summary != "" {
		rep.SetSummary(in.Summary)
	}
	if in.SourceDate.After(rep.SourceDate) {
		rep.SetSource(in.Link, in.SourceDate)
	}
	if rep.Category == "" && in.Category != "" {
		rep.SetCategory(in.Category)
	}
	if rep.SourceSubject == "" && in.SourceSubject != "" {
		rep.SourceSubject = in.SourceSubject
	}
	if rep.SourceBody == "" && in.SourceBody != "" {
		rep.SourceBody = in.SourceBody
	}
	if rep.PreCategory == "" && in.PreCategory != "" {
		rep.PreCategory = in.PreCategory
	}
}
