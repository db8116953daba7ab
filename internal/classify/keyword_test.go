package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhigh-tools/deadline-cli/internal/model"
)

func TestGuess_Defaults(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"deadline keyword", "レポートの提出について", model.CategoryImportant},
		{"exam keyword", "期末テスト範囲のお知らせ", model.CategoryImportant},
		{"extracurricular keyword", "体験学習のご案内", model.CategoryExtracurricular},
		{"event keyword", "交流イベント開催", model.CategoryExtracurricular},
		{"no keyword", "校舎移転のお知らせ", model.CategoryOther},
		{"empty", "", model.CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Guess(tt.text))
		})
	}
}

func TestGuess_ImportantWinsOverExtracurricular(t *testing.T) {
	c := New()
	// Both pattern families match; the important family is checked first.
	assert.Equal(t, model.CategoryImportant, c.Guess("課外活動レポートの提出締切"))
}

func TestNewFromFile_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("important: '(面談)'\n"), 0o644))

	c, err := NewFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, model.CategoryImportant, c.Guess("三者面談の日程"))
	// The extracurricular default still applies.
	assert.Equal(t, model.CategoryExtracurricular, c.Guess("体験学習のご案内"))
	// The original important default was replaced.
	assert.Equal(t, model.CategoryOther, c.Guess("成績について"))
}

func TestNewFromFile_Missing(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNewFromFile_BadPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("important: '(unclosed'\n"), 0o644))

	_, err := NewFromFile(path)
	assert.Error(t, err)
}
