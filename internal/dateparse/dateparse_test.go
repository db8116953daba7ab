package dateparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var ref = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func TestNormalizeAt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"canonical passthrough", "2025-03-05", "2025-03-05"},
		{"slash ymd", "2025/3/5", "2025-03-05"},
		{"dot ymd", "2025.03.05", "2025-03-05"},
		{"japanese ymd", "2025年3月5日", "2025-03-05"},
		{"japanese ymd spaced", "2025年 3月 5日", "2025-03-05"},
		{"japanese md defaults year", "3月5日", "2026-03-05"},
		{"slash md defaults year", "3/5", "2026-03-05"},
		{"fullwidth digits", "２０２５／３／５", "2025-03-05"},
		{"embedded in text", "提出は2025/3/5までです", "2025-03-05"},
		{"placeholder literal", "YYYY-MM-DD", ""},
		{"placeholder lowercase", "yyyy-mm-dd", ""},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"impossible date", "2025/2/30", ""},
		{"not a date", "までに提出してください", ""},
		{"rfc3339", "2025-03-05T10:00:00Z", "2025-03-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAt(tt.in, ref))
		})
	}
}

func TestExtractAt_FirstPatternWins(t *testing.T) {
	// A full date outranks a later month-day form.
	got := ExtractAt("4月1日締切とありますが正しくは2026/4/2です", ref)
	assert.Equal(t, "2026-04-02", got)
}

func TestExtractAt_NoDate(t *testing.T) {
	assert.Equal(t, "", ExtractAt("本日は晴天なり", ref))
}

func TestNormalizeTime(t *testing.T) {
	assert.Equal(t, "2026-02-10", NormalizeTime(ref))
	assert.Equal(t, "", NormalizeTime(time.Time{}))
}
