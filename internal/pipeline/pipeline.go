// Package pipeline turns a batch of mail into deduplicated, categorized
// deadline events and appends the genuinely new ones to the sheet store.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nhigh-tools/deadline-cli/internal/classify"
	"github.com/nhigh-tools/deadline-cli/internal/config"
	"github.com/nhigh-tools/deadline-cli/internal/model"
	"github.com/nhigh-tools/deadline-cli/internal/sheet"
	"github.com/nhigh-tools/deadline-cli/pkg/gmail"
	"github.com/nhigh-tools/deadline-cli/pkg/openai"
)

// MailSource yields threads of messages for a query expression.
type MailSource interface {
	Search(ctx context.Context, query string, max int) ([]gmail.Thread, error)
}

// Pipeline orchestrates fetch, extraction, dedup, enrichment and persistence.
// One run is a single logical thread of control: all model calls are
// sequential, batch by batch, paced by the limiter. Repeated runs over the
// same lookback window are safe because persistence filters against the
// store's existing idempotency keys, not because runs are resumable.
type Pipeline struct {
	cfg        *config.Config
	store      sheet.Store
	mail       MailSource
	model      openai.Client
	classifier *classify.Classifier

	// pace throttles model batches to one per second. The first Wait is
	// immediate, so the pause after the final batch is naturally skipped.
	pace *rate.Limiter

	// now is injected by tests to pin year-default date parsing.
	now func() time.Time
}

// New creates a Pipeline with all dependencies.
func New(cfg *config.Config, st sheet.Store, mail MailSource, mc openai.Client, cl *classify.Classifier) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		mail:       mail,
		model:      mc,
		classifier: cl,
		pace:       rate.NewLimiter(1, 1),
		now:        time.Now,
	}
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	RunID     string `json:"run_id"`
	Messages  int    `json:"messages"`
	Extracted int    `json:"extracted"`
	Deduped   int    `json:"deduped"`
	Inserted  int    `json:"inserted"`
}

// Run executes one full pipeline pass. A terminal model error or a store
// error on the main append path aborts the run and propagates to the caller;
// malformed model output only costs the offending items. Zero fetched
// messages terminates successfully with no store writes.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{RunID: uuid.New().String()}
	log := zap.L().With(zap.String("run_id", result.RunID))

	existing, err := p.ExistingKeys(ctx, p.cfg.Pipeline.EventSheet)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read existing keys")
	}

	// Fetch
	query := gmail.BuildQuery(p.cfg.Mail.SearchTerm, p.cfg.Mail.LookbackDays)
	threads, err := p.mail.Search(ctx, query, p.cfg.Mail.MaxThreads)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: search mail")
	}
	var msgs []model.Message
	for _, th := range threads {
		msgs = append(msgs, th.Messages...)
	}
	result.Messages = len(msgs)
	log.Info("pipeline: fetched mail", zap.String("query", query), zap.Int("messages", len(msgs)))
	if len(msgs) == 0 {
		return result, nil
	}

	// ExtractAll
	events, err := p.ExtractAll(ctx, msgs)
	if err != nil {
		return nil, err
	}
	result.Extracted = len(events)
	log.Info("pipeline: extracted events", zap.Int("events", len(events)))

	// Dedupe
	events = p.Dedupe(events)
	p.preCategorize(events)
	result.Deduped = len(events)
	log.Info("pipeline: deduplicated events", zap.Int("events", len(events)))

	// Enrich
	if err := p.Summarize(ctx, events); err != nil {
		return nil, err
	}
	if err := p.Categorize(ctx, events); err != nil {
		return nil, err
	}

	// Sort
	SortByDeadline(events)

	// Persist
	inserted, err := p.AppendUnique(ctx, p.cfg.Pipeline.EventSheet, events, existing, p.cfg.Pipeline.FanOutByCategory)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: persist events")
	}
	result.Inserted = inserted

	log.Info("pipeline: run complete",
		zap.Int("messages", result.Messages),
		zap.Int("extracted", result.Extracted),
		zap.Int("deduped", result.Deduped),
		zap.Int("inserted", result.Inserted),
	)
	return result, nil
}

// preCategorize fills any still-empty keyword fallback category. Extraction
// sets it eagerly; merged-in events may have left a representative without
// one.
func (p *Pipeline) preCategorize(events []*model.Event) {
	for _, ev := range events {
		if ev.PreCategory == "" {
			ev.PreCategory = p.classifier.Guess(joinSourceText(ev))
		}
	}
}

// SortByDeadline orders events by canonical deadline ascending. Undated
// events sort after all dated events; the sort is stable, so same-deadline
// and undated events keep their relative order.
func SortByDeadline(events []*model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Deadline, events[j].Deadline
		if a == "" || b == "" {
			return a != "" && b == ""
		}
		return a < b
	})
}

func joinSourceText(ev *model.Event) string {
	text := ev.Title
	if ev.SourceSubject != "" {
		text += "\n" + ev.SourceSubject
	}
	if ev.SourceBody != "" {
		text += "\n" + ev.SourceBody
	}
	return text
}

// batches splits items into chunks of size n, preserving order.
func batches[T any](items []T, n int) [][]T {
	if n <= 0 {
		n = 1
	}
	var out [][]T
	for start := 0; start < len(items); start += n {
		end := start + n
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
