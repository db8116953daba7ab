package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nhigh-tools/deadline-cli/internal/dateparse"
	"github.com/nhigh-tools/deadline-cli/internal/model"
	"github.com/nhigh-tools/deadline-cli/internal/sheet"
)

// uncategorized names the fan-out sheet for rows missing a category. With
// the enrichment sweep in place it should never occur; the guard mirrors the
// persistence layer's refusal to trust upstream stages.
const uncategorized = "未分類"

// Key is the idempotency key detecting events already persisted by a prior
// run: title joined with the canonical deadline. Near-duplicate matching
// within a run is the dedupe engine's job, not the key's.
func Key(title, deadline string) string {
	return title + "|" + deadline
}

// ExistingKeys reads every row of the named sheet and returns the set of
// idempotency keys. The deadline column is re-normalized on read because
// stored cells may hold legacy or hand-edited formats. A missing or empty
// sheet yields an empty set.
func (p *Pipeline) ExistingKeys(ctx context.Context, name string) (map[string]bool, error) {
	keys := make(map[string]bool)

	sh, err := p.store.GetSheet(ctx, name)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return keys, nil
	}

	last, err := sh.LastRow(ctx)
	if err != nil {
		return nil, err
	}
	if last < 1 {
		return keys, nil
	}

	grid, err := sh.ReadRange(ctx, 1, 1, last, sheet.Width)
	if err != nil {
		return nil, err
	}
	for _, row := range grid {
		keys[Key(row[model.ColTitle], dateparse.Normalize(row[model.ColDeadline]))] = true
	}
	return keys, nil
}

// AppendUnique filters events whose key is already present, appends the
// survivors to the end of the named sheet, and optionally fans each row out
// to a per-category sheet. Keys of appended events are added to the set, so
// carrying it across calls keeps repeated appends idempotent. Returns the
// number of rows appended to the main sheet. The event's own
// already-canonical deadline is used directly; only store-read deadlines are
// re-normalized.
func (p *Pipeline) AppendUnique(ctx context.Context, name string, events []*model.Event, existing map[string]bool, fanOut bool) (int, error) {
	var rows [][]string
	var fresh []*model.Event
	for _, ev := range events {
		key := Key(ev.Title, ev.Deadline)
		if existing[key] {
			continue
		}
		existing[key] = true
		rows = append(rows, ev.Row)
		fresh = append(fresh, ev)
	}

	if len(rows) == 0 {
		zap.L().Info("persist: no new rows", zap.String("sheet", name))
		return 0, nil
	}

	sh, err := p.store.EnsureSheet(ctx, name)
	if err != nil {
		return 0, err
	}
	last, err := sh.LastRow(ctx)
	if err != nil {
		return 0, err
	}
	if err := sh.WriteRange(ctx, last+1, 1, rows); err != nil {
		return 0, eris.Wrapf(err, "persist: append to %s", name)
	}
	zap.L().Info("persist: appended rows", zap.String("sheet", name), zap.Int("rows", len(rows)))

	if fanOut {
		p.fanOutByCategory(ctx, fresh)
	}
	return len(rows), nil
}

// fanOutByCategory appends each new row to a sheet named after its category,
// creating the sheet on first use. Fan-out is a secondary projection of rows
// already safely appended to the main sheet, so failures are logged and
// swallowed rather than aborting an otherwise-successful run.
func (p *Pipeline) fanOutByCategory(ctx context.Context, events []*model.Event) {
	grouped := make(map[string][][]string)
	var order []string
	for _, ev := range events {
		cat := ev.Category
		if cat == "" {
			cat = uncategorized
		}
		if _, ok := grouped[cat]; !ok {
			order = append(order, cat)
		}
		grouped[cat] = append(grouped[cat], ev.Row)
	}

	for _, cat := range order {
		rows := grouped[cat]
		if err := p.appendRows(ctx, cat, rows); err != nil {
			zap.L().Error("persist: fan-out append failed",
				zap.String("sheet", cat),
				zap.Int("rows", len(rows)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("persist: fan-out appended", zap.String("sheet", cat), zap.Int("rows", len(rows)))
	}
}

func (p *Pipeline) appendRows(ctx context.Context, name string, rows [][]string) error {
	sh, err := p.store.EnsureSheet(ctx, name)
	if err != nil {
		return err
	}
	last, err := sh.LastRow(ctx)
	if err != nil {
		return err
	}
	return sh.WriteRange(ctx, last+1, 1, rows)
}
