package pipeline

import (
	"context"
	"strings"

	"github.com/nhigh-tools/deadline-cli/internal/dateparse"
	"github.com/nhigh-tools/deadline-cli/internal/model"
	"github.com/nhigh-tools/deadline-cli/internal/sheet"
)

// Result caps for the read/search API.
const (
	DefaultLimit = 10
	MaxLimit     = 20
)

// ClampLimit applies the default and hard maximum result caps.
func ClampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// SearchParams filters event rows. Zero values mean "no constraint".
type SearchParams struct {
	Start    string // inclusive lower bound, any recognized date form
	End      string // inclusive upper bound
	Keyword  string // case-insensitive substring over title and summary
	Category string // exact match
	Limit    int
}

// SheetRows is the read API's response shape.
type SheetRows struct {
	Sheet string     `json:"sheet"`
	Rows  [][]string `json:"rows"`
}

// ListRows returns up to limit rows of the named sheet. A missing sheet
// yields an empty row list.
func (p *Pipeline) ListRows(ctx context.Context, name string, limit int) (*SheetRows, error) {
	rows, err := p.readAll(ctx, name)
	if err != nil {
		return nil, err
	}
	limit = ClampLimit(limit)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return &SheetRows{Sheet: name, Rows: rows}, nil
}

// SearchEvents filters the main event sheet by date range, keyword and
// category, capped at the clamped limit. Rows without a parseable deadline
// are excluded whenever a date bound is set.
func (p *Pipeline) SearchEvents(ctx context.Context, params SearchParams) (*SheetRows, error) {
	name := p.cfg.Pipeline.EventSheet
	rows, err := p.readAll(ctx, name)
	if err != nil {
		return nil, err
	}

	start := dateparse.Normalize(params.Start)
	end := dateparse.Normalize(params.End)
	keyword := strings.ToLower(params.Keyword)
	limit := ClampLimit(params.Limit)

	var out [][]string
	for _, row := range rows {
		if start != "" || end != "" {
			date := dateparse.Normalize(row[model.ColDeadline])
			if date == "" {
				continue
			}
			if start != "" && date < start {
				continue
			}
			if end != "" && date > end {
				continue
			}
		}

		if keyword != "" {
			title := strings.ToLower(row[model.ColTitle])
			summary := strings.ToLower(row[model.ColSummary])
			if !strings.Contains(title, keyword) && !strings.Contains(summary, keyword) {
				continue
			}
		}

		if params.Category != "" && row[model.ColCategory] != params.Category {
			continue
		}

		out = append(out, row)
		if len(out) == limit {
			break
		}
	}
	return &SheetRows{Sheet: name, Rows: out}, nil
}

// AppendRows appends raw rows to the named sheet, creating it if absent, and
// returns the number of rows written. Backs the API's write endpoint.
func (p *Pipeline) AppendRows(ctx context.Context, name string, rows [][]string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := p.appendRows(ctx, name, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ListAllRows returns every row of the named sheet, uncapped. Missing and
// empty sheets both yield nil.
func (p *Pipeline) ListAllRows(ctx context.Context, name string) ([][]string, error) {
	return p.readAll(ctx, name)
}

func (p *Pipeline) readAll(ctx context.Context, name string) ([][]string, error) {
	sh, err := p.store.GetSheet(ctx, name)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, nil
	}
	last, err := sh.LastRow(ctx)
	if err != nil {
		return nil, err
	}
	if last < 1 {
		return nil, nil
	}
	return sh.ReadRange(ctx, 1, 1, last, sheet.Width)
}
