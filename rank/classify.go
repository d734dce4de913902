// Package rank classifies captured text and ranks palette commands against a
// query. Everything here is pure and safe to call from any goroutine.
package rank

import (
	"regexp"
	"strings"
	"unicode"
)

// TextContext holds the semantic flags derived from captured text.
type TextContext struct {
	IsCurrency   bool
	IsUnit       bool
	IsTime       bool
	IsSingleWord bool
	HasNumbers   bool
	IsValid      bool
}

var (
	reCurrencySymbol = regexp.MustCompile(`[$£€¥]\d|\d[$£€¥]`)
	reCurrencyAfter  = regexp.MustCompile(`(?i)\d\s*(usd|eur|gbp|jpy|aud|cad|chf|cny)\b`)
	reCurrencyBefore = regexp.MustCompile(`(?i)\b(usd|eur|gbp|jpy|aud|cad|chf|cny)\s*\d`)

	reUnit = regexp.MustCompile(`(?i)\d\s*(kg|g|lbs|oz|m|km|ft|mi|cm|mm|in|yards|miles|grams|kilograms|pounds|ounces|meters|kilometers|feet|inches)\b`)

	reClock    = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)
	reMeridiem = regexp.MustCompile(`(?i)\b\d{1,2}(:\d{2})?\s*(am|pm)\b`)
	reZone     = regexp.MustCompile(`\b(UTC|GMT|EST|PST|CST|MST|EDT|PDT|CDT|MDT|IST|CET|EET)\b`)
	reNow      = regexp.MustCompile(`(?i)\bnow\b`)
)

// Classify derives the TextContext for text. Empty or whitespace-only input
// yields the zero context.
func Classify(text string) TextContext {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return TextContext{}
	}

	hasNumbers := strings.ContainsFunc(trimmed, unicode.IsDigit)
	return TextContext{
		IsValid:      true,
		HasNumbers:   hasNumbers,
		IsSingleWord: !hasNumbers && !strings.ContainsFunc(trimmed, unicode.IsSpace),
		IsCurrency:   isCurrency(trimmed),
		IsUnit:       reUnit.MatchString(trimmed),
		IsTime:       isTime(trimmed),
	}
}

func isCurrency(s string) bool {
	return reCurrencySymbol.MatchString(s) ||
		reCurrencyAfter.MatchString(s) ||
		reCurrencyBefore.MatchString(s)
}

func isTime(s string) bool {
	return reClock.MatchString(s) ||
		reMeridiem.MatchString(s) ||
		reZone.MatchString(s) ||
		reNow.MatchString(s)
}
