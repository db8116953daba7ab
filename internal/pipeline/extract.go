package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nhigh-tools/deadline-cli/internal/dateparse"
	"github.com/nhigh-tools/deadline-cli/internal/llmjson"
	"github.com/nhigh-tools/deadline-cli/internal/model"
)

// sourceBodyLimit caps the body excerpt retained on an event for merge
// decisions and keyword classification.
const sourceBodyLimit = 1000

// defaultTitle stands in when a message has no subject.
const defaultTitle = "タイトルなし"

// extractedMail is one element of the extraction response: the events the
// model found in the mail at the given 1-based batch index.
type extractedMail struct {
	MailIndex int              `json:"mailIndex"`
	Events    []extractedEvent `json:"events"`
}

type extractedEvent struct {
	Title       string `json:"title"`
	Deadline    string `json:"deadline"`
	HasDeadline bool   `json:"hasDeadline"`
}

// ExtractAll runs the extraction stage over all messages in fixed-size
// batches, paced between model calls. A model call failure is terminal;
// malformed responses only cost the affected batch.
func (p *Pipeline) ExtractAll(ctx context.Context, msgs []model.Message) ([]*model.Event, error) {
	var events []*model.Event
	for _, batch := range batches(msgs, p.cfg.Pipeline.MailsPerBatch) {
		if err := p.pace.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "extract: pacing wait")
		}
		got, err := p.extractBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		events = append(events, got...)
	}
	return events, nil
}

// extractBatch prompts the model with one batch of messages and maps the
// response back onto the batch by mail index.
func (p *Pipeline) extractBatch(ctx context.Context, msgs []model.Message) ([]*model.Event, error) {
	text, err := p.model.Complete(ctx, p.cfg.OpenAI.ExtractModel, p.extractPrompt(msgs))
	if err != nil {
		return nil, eris.Wrap(err, "extract: model call")
	}

	arr, err := llmjson.Array(text)
	if err != nil {
		zap.L().Warn("extract: unparseable model response", zap.Error(err))
		return nil, nil
	}

	var out []*model.Event
	for _, raw := range arr {
		var em extractedMail
		if err := llmjson.Decode(raw, &em); err != nil {
			zap.L().Warn("extract: skipping malformed entry", zap.Error(err))
			continue
		}
		if em.MailIndex < 1 || em.MailIndex > len(msgs) {
			zap.L().Warn("extract: mail index out of range", zap.Int("mail_index", em.MailIndex))
			continue
		}
		msg := msgs[em.MailIndex-1]
		for _, ee := range em.Events {
			out = append(out, p.buildEvent(msg, ee))
		}
	}
	zap.L().Debug("extract: batch complete", zap.Int("messages", len(msgs)), zap.Int("events", len(out)))
	return out, nil
}

// buildEvent turns one model-reported event into a candidate event. The
// title falls back to the message subject, the deadline is canonicalized
// with a local fallback scan over the message itself, and the keyword
// fallback category is computed eagerly.
func (p *Pipeline) buildEvent(msg model.Message, ee extractedEvent) *model.Event {
	title := ee.Title
	if title == "" {
		title = subjectOrDefault(msg)
	}

	now := p.now()
	deadline := dateparse.NormalizeAt(ee.Deadline, now)
	if deadline == "" {
		deadline = dateparse.ExtractAt(msg.Subject+"\n"+msg.Body, now)
	}

	ev := model.NewEvent(title, deadline, msg.Link)
	ev.SourceSubject = msg.Subject
	ev.SourceBody = truncate(msg.Body, sourceBodyLimit)
	ev.SourceDate = msg.Date
	ev.PreCategory = p.classifier.Guess(msg.Subject + "\n" + msg.Body)
	return ev
}

// extractPrompt enumerates each message's subject and truncated body and
// asks for per-mail-index event lists.
func (p *Pipeline) extractPrompt(msgs []model.Message) string {
	var parts []string
	for i, msg := range msgs {
		parts = append(parts, fmt.Sprintf("### メール%d\n件名: %s\n本文:\n%s",
			i+1, subjectOrDefault(msg), truncate(msg.Body, p.cfg.Pipeline.BodyPromptLimit)))
	}

	return fmt.Sprintf(`
次の複数メールから「イベント名・締切日」を抽出し、メール毎に JSON を返してください。
出力形式:
[
  {"mailIndex":1,"events":[
   {"title":"イベント名","deadline":"2025-12-31 または空文字","hasDeadline":true}
 ]}
]

重要な注意点:
- 締切が明確でない場合は deadline を空文字 "" にする
- 締切日は YYYY-MM-DD 形式で統一する
- イベントが見つからない場合は events を空の配列 [] にする
- 必ず有効なJSONフォーマットで返す

-----
%s
-----`, strings.Join(parts, "\n\n"))
}

func subjectOrDefault(msg model.Message) string {
	if msg.Subject == "" {
		return defaultTitle
	}
	return msg.Subject
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	// Cut on a rune boundary.
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
