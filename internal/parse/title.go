package parse

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// TitleResult is a model-proposed replacement title. A nil/empty EnhancedTitle
// with confidence 0 means "no enhancement": a no-op must never look like a
// successful enhancement.
type TitleResult struct {
	EnhancedTitle string  `json:"enhanced_title"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning,omitempty"`
}

// Empty reports whether the model produced no usable title.
func (r TitleResult) Empty() bool {
	return r.EnhancedTitle == ""
}

// ParseTitleResponse decodes a model's JSON answer for a title prompt and
// normalizes no-op results against the original title.
func ParseTitleResponse(text, original string) (TitleResult, error) {
	var raw TitleResult
	if err := json.Unmarshal([]byte(CleanJSON(text)), &raw); err != nil {
		return TitleResult{}, eris.Wrap(err, "parse: title response")
	}
	return NormalizeTitle(raw, original), nil
}

// NormalizeTitle collapses an empty or unchanged proposal into "no
// enhancement". The comparison with the original is case-sensitive: a pure
// capitalization fix still counts as a change.
func NormalizeTitle(in TitleResult, original string) TitleResult {
	proposed := strings.TrimSpace(in.EnhancedTitle)
	if proposed == "" || proposed == strings.TrimSpace(original) {
		return TitleResult{}
	}
	in.EnhancedTitle = proposed
	return in
}
