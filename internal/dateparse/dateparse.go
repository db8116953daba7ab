// Package dateparse canonicalizes heterogeneous deadline representations into
// YYYY-MM-DD. Mail bodies mix ASCII and full-width digits, slash/dot numeric
// dates and Japanese long forms; everything funnels into one canonical format
// so downstream dedup and idempotency keys can compare dates as strings.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// Canonical is the canonical date layout.
const Canonical = "2006-01-02"

// Recognized patterns, in priority order. Month-day forms default the year to
// the reference year, a documented approximation that misattributes dates
// rolling over year end.
var (
	reYMD      = regexp.MustCompile(`(\d{4})[/.](\d{1,2})[/.](\d{1,2})`)
	reJapanYMD = regexp.MustCompile(`(\d{4})年\s*(\d{1,2})月\s*(\d{1,2})日`)
	reJapanMD  = regexp.MustCompile(`(\d{1,2})月\s*(\d{1,2})日`)
	reMD       = regexp.MustCompile(`(\d{1,2})[/.](\d{1,2})`)
)

// Generic layouts tried when no pattern matches the input.
var fallbackLayouts = []string{
	Canonical,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Normalize canonicalizes a date-ish string using the current time as the
// reference for year-default patterns.
func Normalize(s string) string {
	return NormalizeAt(s, time.Now())
}

// NormalizeTime formats a native time value canonically.
func NormalizeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(Canonical)
}

// NormalizeAt canonicalizes a date-ish string. now supplies the default year
// for month-day patterns; tests pin it for determinism. Unrecognized input
// and the literal placeholder "YYYY-MM-DD" normalize to "".
func NormalizeAt(s string, now time.Time) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.EqualFold(s, "YYYY-MM-DD") {
		return ""
	}

	if d := ExtractAt(s, now); d != "" {
		return d
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(Canonical)
		}
	}
	return ""
}

// Extract scans free text for the first recognized date pattern and returns
// it canonically, or "". Used both for normalizing model-supplied deadlines
// and for the local fallback over a mail's own subject and body.
func Extract(text string) string {
	return ExtractAt(text, time.Now())
}

// ExtractAt is Extract with an injected reference time.
func ExtractAt(text string, now time.Time) string {
	// Fold full-width digits and separators so Japanese mail matches the
	// ASCII patterns.
	text = width.Narrow.String(text)

	if m := reYMD.FindStringSubmatch(text); m != nil {
		return canonical(m[1], m[2], m[3])
	}
	if m := reJapanYMD.FindStringSubmatch(text); m != nil {
		return canonical(m[1], m[2], m[3])
	}
	if m := reJapanMD.FindStringSubmatch(text); m != nil {
		return canonical(strconv.Itoa(now.Year()), m[1], m[2])
	}
	if m := reMD.FindStringSubmatch(text); m != nil {
		return canonical(strconv.Itoa(now.Year()), m[1], m[2])
	}
	return ""
}

// canonical zero-pads the components and rejects impossible calendar dates.
func canonical(y, mo, d string) string {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(mo)
	day, _ := strconv.Atoi(d)

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
