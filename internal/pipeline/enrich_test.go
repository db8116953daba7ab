package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhigh-tools/deadline-cli/internal/model"
)

// --- Summarize ---

func TestSummarize_FillsMissingSummaries(t *testing.T) {
	mc := &scriptModel{responses: []string{
		`[{"index":1,"summary":"面談の要約"},{"index":2,"summary":"遠足の要約"}]`,
	}}
	p := newTestPipeline(newMemStore(), &stubMail{}, mc)

	a := model.NewEvent("面談", "2026-04-10", "")
	b := model.NewEvent("遠足", "", "")
	done := model.NewEvent("既存", "", "")
	done.SetSummary("既にある要約")

	require.NoError(t, p.Summarize(context.Background(), []*model.Event{a, b, done}))

	assert.Equal(t, "面談の要約", a.Summary)
	assert.Equal(t, "遠足の要約", b.Summary)
	assert.Equal(t, "既にある要約", done.Summary, "already-summarized events are not re-queued")

	require.Len(t, mc.prompts, 1)
	assert.Contains(t, mc.prompts[0], "【1】面談")
	assert.Contains(t, mc.prompts[0], "【2】遠足")
	assert.NotContains(t, mc.prompts[0], "既存")
}

func TestSummarize_SkippedEventsStayBlank(t *testing.T) {
	mc := &scriptModel{responses: []string{`[{"index":2,"summary":"Bだけ"}]`}}
	p := newTestPipeline(newMemStore(), &stubMail{}, mc)

	a := model.NewEvent("A", "", "")
	b := model.NewEvent("B", "", "")
	require.NoError(t, p.Summarize(context.Background(), []*model.Event{a, b}))

	assert.Equal(t, "", a.Summary)
	assert.Equal(t, "Bだけ", b.Summary)
}

func TestSummarize_UnparseableResponseContinues(t *testing.T) {
	mc := &scriptModel{responses: []string{"要約できませんでした"}}
	p := newTestPipeline(newMemStore(), &stubMail{}, mc)

	a := model.NewEvent("A", "", "")
	require.NoError(t, p.Summarize(context.Background(), []*model.Event{a}))
	assert.Equal(t, "", a.Summary)
}

// --- Categorize ---

func TestCategorize_AppliesModelCategories(t *testing.T) {
	mc := &scriptModel{responses: []string{
		`[{"index":1,"category":"課外授業"},{"index":2,"category":"重要/テスト"}]`,
	}}
	p := newTestPipeline(newMemStore(), &stubMail{}, mc)

	a := model.NewEvent("遠足", "", "")
	b := model.NewEvent("期末テスト", "", "")
	require.NoError(t, p.Categorize(context.Background(), []*model.Event{a, b}))

	assert.Equal(t, model.CategoryExtracurricular, a.Category)
	assert.Equal(t, model.CategoryImportant, b.Category)
}

func TestCategorize_EveryEventEndsWithCategory(t *testing.T) {
	// Model answers nothing usable; the sweep must still fill every event.
	mc := &scriptModel{responses: []string{`[]`}}
	p := newTestPipeline(newMemStore(), &stubMail{}, mc)

	a := model.NewEvent("A", "", "")
	a.PreCategory = model.CategoryImportant
	b := model.NewEvent("B", "", "")

	require.NoError(t, p.Categorize(context.Background(), []*model.Event{a, b}))

	assert.Equal(t, model.CategoryImportant, a.Category, "keyword fallback used when the model is silent")
	assert.Equal(t, model.CategoryOther, b.Category, "residual category when nothing else applies")
}

func TestCategorize_GenericYieldsToSpecificFallback(t *testing.T) {
	mc := &scriptModel{responses: []string{`[{"index":1,"category":"その他"}]`}}
	p := newTestPipeline(newMemStore(), &stubMail{}, mc)

	a := model.NewEvent("A", "", "")
	a.PreCategory = model.CategoryExtracurricular

	require.NoError(t, p.Categorize(context.Background(), []*model.Event{a}))
	assert.Equal(t, model.CategoryExtracurricular, a.Category)
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name          string
		modelCategory string
		preCategory   string
		want          string
	}{
		{"valid model category wins", model.CategoryImportant, model.CategoryExtracurricular, model.CategoryImportant},
		{"invalid model category falls back", "学校行事", model.CategoryImportant, model.CategoryImportant},
		{"generic yields to specific fallback", model.CategoryOther, model.CategoryImportant, model.CategoryImportant},
		{"generic stays without fallback", model.CategoryOther, "", model.CategoryOther},
		{"generic stays with generic fallback", model.CategoryOther, model.CategoryOther, model.CategoryOther},
		{"empty both", "", "", model.CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconcile(tt.modelCategory, tt.preCategory))
		})
	}
}

func TestSweepCategories(t *testing.T) {
	empty := model.NewEvent("a", "", "")
	emptyWithPre := model.NewEvent("b", "", "")
	emptyWithPre.PreCategory = model.CategoryImportant
	genericWithPre := model.NewEvent("c", "", "")
	genericWithPre.SetCategory(model.CategoryOther)
	genericWithPre.PreCategory = model.CategoryExtracurricular
	settled := model.NewEvent("d", "", "")
	settled.SetCategory(model.CategoryImportant)

	sweepCategories([]*model.Event{empty, emptyWithPre, genericWithPre, settled})

	assert.Equal(t, model.CategoryOther, empty.Category)
	assert.Equal(t, model.CategoryImportant, emptyWithPre.Category)
	assert.Equal(t, model.CategoryExtracurricular, genericWithPre.Category)
	assert.Equal(t, model.CategoryImportant, settled.Category)

	for _, ev := range []*model.Event{empty, emptyWithPre, genericWithPre, settled} {
		assert.Equal(t, ev.Category, ev.Row[model.ColCategory])
	}
}
