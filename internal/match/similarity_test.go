package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity_Identity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("進路面談のお知らせ", "進路面談のお知らせ"))
}

func TestSimilarity_CaseAndWhitespace(t *testing.T) {
	// Case and whitespace differences alone keep the score at 1.
	assert.Equal(t, 1.0, Similarity("Report Due", "  report   due "))
}

func TestSimilarity_Symmetry(t *testing.T) {
	a, b := "レポート提出締切", "レポート提出期限"
	assert.Equal(t, Similarity(a, b), Similarity(b, a))
}

func TestSimilarity_Range(t *testing.T) {
	pairs := [][2]string{
		{"進路面談", "遠足のお知らせ"},
		{"テスト範囲", "テスト範囲について"},
		{"", "何か"},
		{"abc", "xyz"},
	}
	for _, p := range pairs {
		s := Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestSimilarity_NearDuplicates(t *testing.T) {
	s := Similarity("進路希望調査の提出", "進路希望調査の提出について")
	assert.Greater(t, s, 0.8)
}

func TestSimilarity_Distinct(t *testing.T) {
	s := Similarity("体育祭", "期末テスト範囲発表")
	assert.Less(t, s, 0.5)
}

func TestSimilarity_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("a", ""))
}
