// Package normalize maps raw spoken utterances to cleaned field values.
package normalize

import (
	"regexp"

	"github.com/voicecredit-ai/voicecredit/internal/models"
)

// nonNumericRe matches every character that is not a digit or decimal point.
var nonNumericRe = regexp.MustCompile(`[^0-9.]`)

// Value cleans a raw utterance according to the step's value type.
//
// Number steps strip currency symbols, grouping separators and any other
// non-numeric characters. When stripping leaves nothing, the original raw
// string is returned unchanged so user input is never silently discarded;
// the scoring capability owns coercion of such values. Text and choice steps
// pass through untouched. Number normalization is idempotent.
func Value(raw string, vt models.ValueType) string {
	if vt != models.ValueTypeNumber {
		return raw
	}
	stripped := nonNumericRe.ReplaceAllString(raw, "")
	if stripped == "" {
		return raw
	}
	return stripped
}
