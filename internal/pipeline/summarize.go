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

type summaryResult struct {
	Index   int    `json:"index"`
	Summary string `json:"summary"`
}

// Summarize fills the summary of every event that has a title but no summary
// yet, in fixed-size batches. Events the model skips stay blank; they are not
// re-queued.
func (p *Pipeline) Summarize(ctx context.Context, events []*model.Event) error {
	var need []*model.Event
	for _, ev := range events {
		if ev.Title != "" && ev.Summary == "" {
			need = append(need, ev)
		}
	}
	zap.L().Info("summarize: targets", zap.Int("events", len(need)))

	for _, batch := range batches(need, p.cfg.Pipeline.MailsPerBatch) {
		if err := p.pace.Wait(ctx); err != nil {
			return eris.Wrap(err, "summarize: pacing wait")
		}
		if err := p.summarizeBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) summarizeBatch(ctx context.Context, batch []*model.Event) error {
	text, err := p.model.Complete(ctx, p.cfg.OpenAI.SummaryModel, summaryPrompt(batch))
	if err != nil {
		return eris.Wrap(err, "summarize: model call")
	}

	arr, err := llmjson.Array(text)
	if err != nil {
		zap.L().Warn("summarize: unparseable model response", zap.Error(err))
		return nil
	}

	applied := 0
	for _, raw := range arr {
		var sr summaryResult
		if err := llmjson.Decode(raw, &sr); err != nil {
			zap.L().Warn("summarize: skipping malformed entry", zap.Error(err))
			continue
		}
		if sr.Index < 1 || sr.Index > len(batch) {
			zap.L().Warn("summarize: index out of range", zap.Int("index", sr.Index))
			continue
		}
		batch[sr.Index-1].SetSummary(sr.Summary)
		applied++
	}
	zap.L().Debug("summarize: batch complete", zap.Int("applied", applied))
	return nil
}

func summaryPrompt(batch []*model.Event) string {
	return fmt.Sprintf(`以下のイベントタイトルを各90字以内で日本語要約し JSON 配列で返してください:

出力形式:
[
 {"index":1,"summary":"要約文"}
]

イベント一覧:
%s`, enumerateTitles(batch))
}

// enumerateTitles renders the compact 【n】 title list shared by the
// enrichment prompts.
func enumerateTitles(batch []*model.Event) string {
	var lines []string
	for i, ev := range batch {
		title := ev.Title
		if title == "" {
			title = defaultTitle
		}
		lines = append(lines, fmt.Sprintf("【%d】%s", i+1, title))
	}
	return strings.Join(lines, "\n")
}
