package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nhigh-tools/deadline-cli/internal/dateparse"
	"github.com/nhigh-tools/deadline-cli/internal/model"
	"github.com/nhigh-tools/deadline-cli/internal/sheet"
)

// CleanupExpired sweeps the main event sheet and every category sheet,
// deleting rows whose canonical deadline is more than the configured number
// of days in the past. Rows carrying the high-importance category are exempt
// from time-based deletion wherever they appear. Returns the number of rows
// deleted.
func (p *Pipeline) CleanupExpired(ctx context.Context) (int, error) {
	days := p.cfg.Pipeline.ExpiryDays
	if days <= 0 {
		days = 14
	}

	today := p.now().Truncate(24 * time.Hour)
	cutoff := today.AddDate(0, 0, -days).Format(dateparse.Canonical)

	names := append([]string{p.cfg.Pipeline.EventSheet}, model.Categories...)
	deleted := 0
	for _, name := range names {
		n, err := p.cleanupSheet(ctx, name, cutoff)
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	return deleted, nil
}

// cleanupSheet deletes expired rows bottom-up so pending row numbers stay
// valid while earlier rows shift.
func (p *Pipeline) cleanupSheet(ctx context.Context, name, cutoff string) (int, error) {
	sh, err := p.store.GetSheet(ctx, name)
	if err != nil {
		return 0, err
	}
	if sh == nil {
		return 0, nil
	}

	last, err := sh.LastRow(ctx)
	if err != nil {
		return 0, err
	}
	if last < 1 {
		return 0, nil
	}

	grid, err := sh.ReadRange(ctx, 1, 1, last, sheet.Width)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for i := last; i >= 1; i-- {
		row := grid[i-1]
		deadline := dateparse.Normalize(row[model.ColDeadline])
		if deadline == "" || deadline >= cutoff {
			continue
		}
		if row[model.ColCategory] == model.CategoryImportant {
			continue
		}
		if err := sh.DeleteRow(ctx, i); err != nil {
			return deleted, err
		}
		deleted++
	}
	if deleted > 0 {
		zap.L().Info("cleanup: deleted expired rows", zap.String("sheet", name), zap.Int("rows", deleted))
	}
	return deleted, nil
}
