// Package parse contains the pure field parsers that turn raw or
// model-generated text into validated structured values. Nothing in this
// package performs I/O.
package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/naics"
)

// SourceFormat identifies which raw classification format matched.
type SourceFormat string

const (
	FormatPipe        SourceFormat = "pipe"
	FormatColon       SourceFormat = "colon"
	FormatHyphen      SourceFormat = "hyphen"
	FormatSpace       SourceFormat = "space"
	FormatCodeOnly    SourceFormat = "code_only"
	FormatDecimal     SourceFormat = "decimal"
	FormatPassthrough SourceFormat = "passthrough"
)

// ParsedNAICS is the result of parsing a raw classification string.
// Standardized renders as "<code> | <description>" when a description is
// resolvable, otherwise the bare code.
type ParsedNAICS struct {
	Code         string
	Description  string
	Standardized string
	Format       SourceFormat
}

// Empty reports whether parsing found nothing usable.
func (p ParsedNAICS) Empty() bool {
	return p.Code == "" && p.Description == ""
}

// placeholders are source values that mean "no classification yet". They
// normalize to an empty result, not an error.
var placeholders = map[string]bool{
	"tbd":              true,
	"n/a":              true,
	"na":               true,
	"none":             true,
	"to be determined": true,
}

// IsPlaceholder reports whether raw is a known no-value marker.
func IsPlaceholder(raw string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(raw))]
}

var (
	pipeFormat    = regexp.MustCompile(`^\s*(\d{6})\s*\|\s*(.+?)\s*$`)
	colonFormat   = regexp.MustCompile(`^\s*(\d{6})\s*:\s*(.+?)\s*$`)
	hyphenFormat  = regexp.MustCompile(`^\s*(\d{6})\s*[-–]\s*(.+?)\s*$`)
	spaceFormat   = regexp.MustCompile(`^\s*(\d{6})\s+(\D.*?)\s*$`)
	codeOnly      = regexp.MustCompile(`^\s*(\d{6})\s*$`)
	decimalFormat = regexp.MustCompile(`^\s*(\d{6})\.0\s*$`)
)

// ClassificationCode interprets a raw NAICS string in any of the formats seen
// across source agencies. Formats are tried in a fixed priority order so the
// same code parses identically regardless of separator. When only a code is
// found the description comes from the canonical table, never from the input.
func ClassificationCode(raw string) ParsedNAICS {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || IsPlaceholder(trimmed) {
		return ParsedNAICS{}
	}

	type matcher struct {
		re     *regexp.Regexp
		format SourceFormat
	}
	// Order matters: pipe is the canonical render and must win over the
	// looser space format.
	for _, m := range []matcher{
		{pipeFormat, FormatPipe},
		{colonFormat, FormatColon},
		{hyphenFormat, FormatHyphen},
		{spaceFormat, FormatSpace},
		{codeOnly, FormatCodeOnly},
		{decimalFormat, FormatDecimal},
	} {
		groups := m.re.FindStringSubmatch(trimmed)
		if groups == nil {
			continue
		}
		code := groups[1]
		desc := ""
		if len(groups) > 2 {
			desc = strings.TrimSpace(groups[2])
		}
		return finishParsed(code, desc, m.format)
	}

	// Unrecognized input passes through as the code with a best-effort
	// lookup, so downstream always sees something rather than an error.
	return finishParsed(trimmed, "", FormatPassthrough)
}

func finishParsed(code, desc string, format SourceFormat) ParsedNAICS {
	if desc == "" || IsPlaceholder(desc) {
		if title, ok := naics.Lookup(code); ok {
			desc = title
		} else {
			desc = ""
		}
	}
	return ParsedNAICS{
		Code:         code,
		Description:  desc,
		Standardized: RenderStandardized(code, desc),
		Format:       format,
	}
}

// RenderStandardized formats the canonical "<code> | <description>" string,
// or the bare code when no description is available.
func RenderStandardized(code, desc string) string {
	if code == "" {
		return ""
	}
	if desc == "" {
		return code
	}
	return fmt.Sprintf("%s | %s", code, desc)
}
