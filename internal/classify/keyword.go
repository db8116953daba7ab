// Package classify guesses a coarse event category from keyword rules. It is
// the fallback behind the model categorization stage: always computed eagerly
// at extraction time, and preferred post-hoc when the model returns nothing
// usable.
package classify

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/nhigh-tools/deadline-cli/internal/model"
)

// Default keyword patterns. Important/deadline patterns are checked before
// extracurricular ones; first match wins.
var (
	defaultImportant       = `(締切|提出|試験|テスト|成績|重要|レポート)`
	defaultExtracurricular = `(課外|体験学習|ワークショップ|交流|イベント|ゲーム)`
)

// Classifier maps free text to a category from the fixed vocabulary.
type Classifier struct {
	important       *regexp.Regexp
	extracurricular *regexp.Regexp
}

// ruleFile is the optional YAML override for the keyword patterns.
type ruleFile struct {
	Important       string `yaml:"important"`
	Extracurricular string `yaml:"extracurricular"`
}

// New builds a classifier with the default patterns.
func New() *Classifier {
	c, _ := newFromPatterns(defaultImportant, defaultExtracurricular)
	return c
}

// NewFromFile builds a classifier from a YAML rule file. Missing keys fall
// back to the defaults.
func NewFromFile(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "classify: read rule file")
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, eris.Wrap(err, "classify: parse rule file")
	}

	important := rf.Important
	if important == "" {
		important = defaultImportant
	}
	extracurricular := rf.Extracurricular
	if extracurricular == "" {
		extracurricular = defaultExtracurricular
	}
	return newFromPatterns(important, extracurricular)
}

func newFromPatterns(important, extracurricular string) (*Classifier, error) {
	impRe, err := regexp.Compile("(?i)" + important)
	if err != nil {
		return nil, eris.Wrap(err, "classify: compile important pattern")
	}
	extRe, err := regexp.Compile("(?i)" + extracurricular)
	if err != nil {
		return nil, eris.Wrap(err, "classify: compile extracurricular pattern")
	}
	return &Classifier{important: impRe, extracurricular: extRe}, nil
}

// Guess returns a category for the text. Never empty: unmatched text falls
// into the residual category.
func (c *Classifier) Guess(text string) string {
	if text == "" {
		return model.CategoryOther
	}
	t := strings.ToLower(text)
	if c.important.MatchString(t) {
		return model.CategoryImportant
	}
	if c.extracurricular.MatchString(t) {
		return model.CategoryExtracurricular
	}
	return model.CategoryOther
}
