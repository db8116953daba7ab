package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nhigh-tools/deadline-cli/internal/llmjson"
	"github.com/nhigh-tools/deadline-cli/internal/model"
)

type categoryResult struct {
	Index    int    `json:"index"`
	Category string `json:"category"`
}

// Categorize fills the category of every event that has none, in fixed-size
// batches, then sweeps all events so that each one leaves enrichment with a
// non-empty vocabulary category even if the model silently dropped it.
func (p *Pipeline) Categorize(ctx context.Context, events []*model.Event) error {
	var need []*model.Event
	for _, ev := range events {
		if ev.Category == "" {
			need = append(need, ev)
		}
	}
	zap.L().Info("categorize: targets", zap.Int("events", len(need)))

	for _, batch := range batches(need, p.cfg.Pipeline.MailsPerBatch) {
		if err := p.pace.Wait(ctx); err != nil {
			return eris.Wrap(err, "categorize: pacing wait")
		}
		if err := p.categorizeBatch(ctx, batch); err != nil {
			return err
		}
	}

	sweepCategories(events)
	return nil
}

func (p *Pipeline) categorizeBatch(ctx context.Context, batch []*model.Event) error {
	text, err := p.model.Complete(ctx, p.cfg.OpenAI.CategoryModel, categoryPrompt(batch))
	if err != nil {
		return eris.Wrap(err, "categorize: model call")
	}

	arr, err := llmjson.Array(text)
	if err != nil {
		zap.L().Warn("categorize: unparseable model response", zap.Error(err))
		return nil
	}

	applied := 0
	for _, raw := range arr {
		var cr categoryResult
		if err := llmjson.Decode(raw, &cr); err != nil {
			zap.L().Warn("categorize: skipping malformed entry", zap.Error(err))
			continue
		}
		if cr.Index < 1 || cr.Index > len(batch) {
			zap.L().Warn("categorize: index out of range", zap.Int("index", cr.Index))
			continue
		}
		ev := batch[cr.Index-1]
		ev.SetCategory(reconcile(cr.Category, ev.PreCategory))
		applied++
	}
	zap.L().Debug("categorize: batch complete", zap.Int("applied", applied))
	return nil
}

// reconcile resolves the model's category against the keyword fallback. A
// category outside the fixed vocabulary counts as absent; an absent or
// generic category yields to a specific keyword fallback. The result is
// always a vocabulary member. The generic-bucket special case compensates
// for model category drift and is preserved deliberately.
func reconcile(modelCategory, preCategory string) string {
	cat := modelCategory
	if !model.ValidCategory(cat) {
		cat = ""
	}
	if cat == "" || cat == model.CategoryOther {
		if preCategory != "" && preCategory != model.CategoryOther {
			cat = preCategory
		}
	}
	if cat == "" {
		cat = model.CategoryOther
	}
	return cat
}

// sweepCategories guarantees every event a non-empty category, covering
// events the model response never mentioned, and re-applies the
// prefer-specific-fallback rule to generic assignments.
func sweepCategories(events []*model.Event) {
	for _, ev := range events {
		switch {
		case ev.Category == "":
			if ev.PreCategory != "" {
				ev.SetCategory(ev.PreCategory)
			} else {
				ev.SetCategory(model.CategoryOther)
			}
		case ev.Category == model.CategoryOther &&
			ev.PreCategory != "" && ev.PreCategory != model.CategoryOther:
			ev.SetCategory(ev.PreCategory)
		}
	}
}

func categoryPrompt(batch []*model.Event) string {
	return fmt.Sprintf(`以下のイベントタイトルを次のいずれかのカテゴリに分類し JSON 配列で返してください: %s

出力形式:
[
 {"index":1,"category":"課外授業"}
]

イベント一覧:
%s`, strings.Join(model.Categories, ", "), enumerateTitles(batch))
}
