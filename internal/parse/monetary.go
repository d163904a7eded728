package parse

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// MonetaryResult holds a parsed contract value. Exactly one of Single or the
// Min/Max pair is populated; ValidateMonetary enforces this locally rather
// than trusting the model.
type MonetaryResult struct {
	Single     *float64 `json:"single"`
	Min        *float64 `json:"min"`
	Max        *float64 `json:"max"`
	Confidence float64  `json:"confidence"`
}

// Empty reports whether no value was parsed.
func (r MonetaryResult) Empty() bool {
	return r.Single == nil && r.Min == nil && r.Max == nil
}

// ParseMonetaryResponse decodes a model's JSON answer for a value-parsing
// prompt and validates it. Malformed JSON yields an all-null result with
// confidence 0 and an error for the audit trail.
func ParseMonetaryResponse(text string) (MonetaryResult, error) {
	var raw struct {
		Single     *float64 `json:"single"`
		Min        *float64 `json:"min"`
		Max        *float64 `json:"max"`
		Confidence float64  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(CleanJSON(text)), &raw); err != nil {
		return MonetaryResult{}, eris.Wrap(err, "parse: monetary response")
	}
	return ValidateMonetary(MonetaryResult{
		Single:     raw.Single,
		Min:        raw.Min,
		Max:        raw.Max,
		Confidence: raw.Confidence,
	}), nil
}

// ValidateMonetary enforces the output contract on a model-produced value:
//
//   - negative figures are discarded as unparsed
//   - a half-open range (only min or only max) is discarded
//   - when both a single value and a range survive, the range wins and the
//     single value is dropped
//   - a result with no surviving figures has confidence 0
func ValidateMonetary(in MonetaryResult) MonetaryResult {
	out := MonetaryResult{Confidence: in.Confidence}

	if in.Single != nil && *in.Single >= 0 {
		out.Single = in.Single
	}
	if in.Min != nil && *in.Min >= 0 && in.Max != nil && *in.Max >= 0 {
		out.Min = in.Min
		out.Max = in.Max
	}

	// Range takes precedence over a simultaneous single value.
	if out.Min != nil {
		out.Single = nil
	}

	if out.Empty() {
		out.Confidence = 0
	}
	return out
}
