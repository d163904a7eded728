package parse

import (
	"fmt"
	"strings"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/model"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/naics"
)

// extractRuleKind selects how a side-channel value is interpreted.
type extractRuleKind int

const (
	// ruleBareCode expects the value to be a bare 6-digit code, possibly
	// numeric or carrying a spreadsheet ".0" suffix.
	ruleBareCode extractRuleKind = iota
	// ruleFormatted runs the value through the full classification parser,
	// accepting colon/pipe/hyphen formats.
	ruleFormatted
)

// extraRule binds one side-channel key to an extraction strategy. Rules are
// consulted in slice order and the first hit wins, so agency-specific keys
// must precede the generic ones. New sources extend this table.
type extraRule struct {
	source string // source identifier, for logging and provenance
	key    string
	kind   extractRuleKind
}

var extraRules = []extraRule{
	// Tier 1: agency-specific keys holding a bare code.
	{source: "acqgw", key: "naics_code", kind: ruleBareCode},
	{source: "dhs", key: "primary_naics", kind: ruleBareCode},
	// Tier 2: agency-specific keys holding "code: description".
	{source: "doc", key: "naics", kind: ruleFormatted},
	{source: "dos", key: "naics_code_text", kind: ruleFormatted},
	// Tier 3: generic keys reused across sources.
	{source: "generic", key: "naics", kind: ruleFormatted},
	{source: "generic", key: "NAICS", kind: ruleFormatted},
	{source: "generic", key: "naics_code", kind: ruleFormatted},
	{source: "generic", key: "industry_code", kind: ruleFormatted},
	{source: "generic", key: "classification_code", kind: ruleFormatted},
}

// ClassificationFromExtra searches a prospect's side-channel payload for a
// pre-existing NAICS classification. The payload may be a structured map or
// a serialized text blob; both are normalized at this boundary. Invalid input
// yields "not found", never an error.
//
// Tiers are tried in order and each stops at the first match: keyed rules
// first, then a last-resort scan of every scalar value for a bare 6-digit
// token with a nonzero leading digit. Placeholder values are skipped even
// when they would otherwise match a key.
func ClassificationFromExtra(raw any) (ParsedNAICS, bool) {
	extra := model.NormalizeExtra(raw)
	if len(extra) == 0 {
		return ParsedNAICS{}, false
	}

	for _, rule := range extraRules {
		val, ok := extra[rule.key]
		if !ok {
			continue
		}
		text := scalarString(val)
		if text == "" || IsPlaceholder(text) {
			continue
		}

		switch rule.kind {
		case ruleBareCode:
			if code := naics.Normalize(text); code != "" {
				return finishParsed(code, "", FormatCodeOnly), true
			}
		case ruleFormatted:
			parsed := ClassificationCode(text)
			if naics.IsCode(parsed.Code) {
				return parsed, true
			}
		}
	}

	// Last resort: any scalar value that is itself a bare code.
	for _, val := range extra {
		text := scalarString(val)
		if text == "" || IsPlaceholder(text) {
			continue
		}
		if code := naics.Normalize(text); code != "" {
			return finishParsed(code, "", FormatCodeOnly), true
		}
	}

	return ParsedNAICS{}, false
}

// scalarString renders a side-channel scalar as text. JSON numbers arrive as
// float64; codes stored that way render without an exponent or decimals.
func scalarString(val any) string {
	switch v := val.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}
