package rank

import (
	"testing"

	glance "github.com/Paranoid-AF/glance"
)

func action(id, label string, cat glance.Category, typ glance.ActionType) glance.Command {
	return glance.Command{ID: id, Label: label, Category: cat, Variant: glance.Action{Type: typ}}
}

func widget(id, label string, cat glance.Category, typ glance.WidgetType) glance.Command {
	return glance.Command{ID: id, Label: label, Category: cat, Variant: glance.Widget{Type: typ}}
}

func TestScoreBaseTiers(t *testing.T) {
	cmd := glance.Command{
		ID:          "w",
		Label:       "Settings",
		Description: "Open glance preferences",
		Variant:     glance.Widget{Type: "settings"},
	}
	tests := []struct {
		query string
		want  int
	}{
		{"settings", 100},
		{"  SETTINGS ", 100},
		{"set", 50},
		{"ting", 20},
		{"preferences", 20},
		{"nothing", 0},
	}
	for _, tt := range tests {
		if got := Score(cmd, tt.query, TextContext{}); got != tt.want {
			t.Errorf("Score(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestScoreNoBoostWithoutMatch(t *testing.T) {
	cmd := action("c", "Convert Currency", glance.CategoryCurrency, glance.ActionConvertCurrency)
	tc := TextContext{IsValid: true, IsCurrency: true, HasNumbers: true}
	if got := Score(cmd, "zebra", tc); got != 0 {
		t.Errorf("expected 0 for a non-match, got %d", got)
	}
}

func TestScoreNoBoostForInvalidContext(t *testing.T) {
	cmd := action("c", "Convert Currency", glance.CategoryCurrency, glance.ActionConvertCurrency)
	tc := TextContext{IsCurrency: true}
	if got := Score(cmd, "convert", tc); got != 50 {
		t.Errorf("expected 50 without a valid context, got %d", got)
	}
}

func TestScoreCurrencyContext(t *testing.T) {
	tc := TextContext{IsValid: true, IsCurrency: true, HasNumbers: true}
	cur := action("c", "Convert Currency", glance.CategoryCurrency, glance.ActionConvertCurrency)
	unit := action("u", "Convert Units", glance.CategoryUnit, glance.ActionConvertUnit)
	if got := Score(cur, "convert", tc); got != 100 {
		t.Errorf("currency command: got %d, want 100", got)
	}
	if got := Score(unit, "convert", tc); got != 30 {
		t.Errorf("unit command: got %d, want 30", got)
	}
}

func TestScoreUnitContext(t *testing.T) {
	tc := TextContext{IsValid: true, IsUnit: true, HasNumbers: true}
	cur := action("c", "Convert Currency", glance.CategoryCurrency, glance.ActionConvertCurrency)
	unit := action("u", "Convert Units", glance.CategoryUnit, glance.ActionConvertUnit)
	if got := Score(unit, "convert", tc); got != 100 {
		t.Errorf("unit command: got %d, want 100", got)
	}
	if got := Score(cur, "convert", tc); got != 30 {
		t.Errorf("currency command: got %d, want 30", got)
	}
}

func TestScoreTimeAndSingleWord(t *testing.T) {
	timeCmd := action("t", "Convert Time Zone", glance.CategoryTime, glance.ActionConvertTime)
	if got := Score(timeCmd, "convert", TextContext{IsValid: true, IsTime: true}); got != 100 {
		t.Errorf("time command: got %d, want 100", got)
	}
	define := action("d", "Define Word", glance.CategoryDefinition, glance.ActionDefine)
	if got := Score(define, "define", TextContext{IsValid: true, IsSingleWord: true}); got != 90 {
		t.Errorf("define command: got %d, want 90", got)
	}
}

func TestScoreUniversalBoost(t *testing.T) {
	translate := action("tr", "Translate", glance.CategoryTranslation, glance.ActionTranslate)
	analyze := action("an", "Analyze Text", glance.CategoryAnalysis, glance.ActionAnalyze)
	tc := TextContext{IsValid: true}
	if got := Score(translate, "trans", tc); got != 60 {
		t.Errorf("translate: got %d, want 60", got)
	}
	if got := Score(analyze, "text", tc); got != 30 {
		t.Errorf("analyze: got %d, want 30", got)
	}
}

func TestScoreCanGoToZeroAndStillMatch(t *testing.T) {
	unit := action("u", "Convert Units", glance.CategoryUnit, glance.ActionConvertUnit)
	tc := TextContext{IsValid: true, IsCurrency: true}
	got, matched := score(unit, "units", tc)
	if !matched {
		t.Fatal("expected a lexical match")
	}
	if got != 0 {
		t.Errorf("expected 20-20=0, got %d", got)
	}
}

func TestScorePrefixMonotonic(t *testing.T) {
	cmd := action("tr", "Translate", glance.CategoryTranslation, glance.ActionTranslate)
	for _, q := range []string{"t", "tr", "tra", "trans", "translat"} {
		if got := Score(cmd, q, TextContext{}); got < 50 {
			t.Errorf("Score(%q) = %d, want >= 50", q, got)
		}
	}
}

func TestInCategoryFallback(t *testing.T) {
	tests := []struct {
		name string
		cmd  glance.Command
		cat  glance.Category
		want bool
	}{
		{"explicit", action("a", "Foo", glance.CategoryCurrency, "x"), glance.CategoryCurrency, true},
		{"explicit wins over label", action("a", "Unit money", glance.CategoryCurrency, "x"), glance.CategoryUnit, false},
		{"action tag", action("a", "Foo", "", glance.ActionConvertCurrency), glance.CategoryCurrency, true},
		{"widget tag", widget("w", "Foo", "", "unit_converter"), glance.CategoryUnit, true},
		{"label", widget("w", "Time Machine", "", "clock"), glance.CategoryTime, true},
		{"keyword", glance.Command{ID: "k", Label: "Foo", Keywords: []string{"Dictionary", "DEFINE"}, Variant: glance.Widget{Type: "x"}}, glance.CategoryDefinition, true},
		{"translation stem", widget("w", "Translator", "", "x"), glance.CategoryTranslation, true},
		{"no match", widget("w", "Settings", "", "settings"), glance.CategoryCurrency, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InCategory(tt.cmd, tt.cat); got != tt.want {
				t.Errorf("InCategory = %v, want %v", got, tt.want)
			}
		})
	}
}
