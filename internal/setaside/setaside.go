// Package setaside standardizes free-text procurement set-aside labels into
// a closed enumeration, with a confidence score used downstream to decide
// whether to additionally consult the model for low-confidence cases.
package setaside

import (
	"regexp"
	"strings"
)

// Code identifies a standardized set-aside category.
type Code string

const (
	SmallBusiness      Code = "SMALL_BUSINESS"
	SmallBusinessTotal Code = "SMALL_BUSINESS_TOTAL"
	EightACompetitive  Code = "EIGHT_A_COMPETITIVE"
	EightASoleSource   Code = "EIGHT_A_SOLE_SOURCE"
	HUBZone            Code = "HUBZONE"
	HUBZoneSoleSource  Code = "HUBZONE_SOLE_SOURCE"
	WomenOwned         Code = "WOMEN_OWNED"
	EDWomenOwned       Code = "ED_WOMEN_OWNED"
	SDVOSB             Code = "SDVOSB"
	SDVOSBSoleSource   Code = "SDVOSB_SOLE_SOURCE"
	VeteranOwned       Code = "VETERAN_OWNED"
	SmallDisadvantaged Code = "SMALL_DISADVANTAGED"
	FullAndOpen        Code = "FULL_AND_OPEN"
	Unrestricted       Code = "UNRESTRICTED"
	SoleSource         Code = "SOLE_SOURCE"
	OtherThanSmall     Code = "OTHER_THAN_SMALL"
	NotAvailable       Code = "N/A"
)

// labels maps each code to its display label.
var labels = map[Code]string{
	SmallBusiness:      "Small Business Set-Aside",
	SmallBusinessTotal: "Total Small Business Set-Aside",
	EightACompetitive:  "8(a) Competitive",
	EightASoleSource:   "8(a) Sole Source",
	HUBZone:            "HUBZone Set-Aside",
	HUBZoneSoleSource:  "HUBZone Sole Source",
	WomenOwned:         "Women-Owned Small Business",
	EDWomenOwned:       "Economically Disadvantaged Women-Owned Small Business",
	SDVOSB:             "Service-Disabled Veteran-Owned Small Business",
	SDVOSBSoleSource:   "Service-Disabled Veteran-Owned Small Business Sole Source",
	VeteranOwned:       "Veteran-Owned Small Business",
	SmallDisadvantaged: "Small Disadvantaged Business",
	FullAndOpen:        "Full and Open Competition",
	Unrestricted:       "Unrestricted",
	SoleSource:         "Sole Source",
	OtherThanSmall:     "Other Than Small Business",
	NotAvailable:       "Not Available",
}

// Label returns the display label for a code, or the Not Available label.
func (c Code) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return labels[NotAvailable]
}

// Valid reports whether c is a member of the closed enumeration.
func (c Code) Valid() bool {
	_, ok := labels[c]
	return ok
}

// AllCodes returns every member of the enumeration in declaration order.
func AllCodes() []Code {
	return []Code{
		SmallBusiness, SmallBusinessTotal,
		EightACompetitive, EightASoleSource,
		HUBZone, HUBZoneSoleSource,
		WomenOwned, EDWomenOwned,
		SDVOSB, SDVOSBSoleSource,
		VeteranOwned, SmallDisadvantaged,
		FullAndOpen, Unrestricted, SoleSource,
		OtherThanSmall, NotAvailable,
	}
}

// Result is the outcome of one standardization.
type Result struct {
	Code       Code
	Label      string
	Confidence float64
}

const (
	confExact    = 0.95
	confPattern  = 0.80
	confFallback = 0.60
)

// Standardize maps a raw set-aside label to its standard category using the
// default ruleset. Deterministic: the same cleaned input always yields the
// same category and confidence.
func Standardize(raw string) Result {
	return defaultRules.Standardize(raw)
}

// Standardize applies the ruleset's two-tier classification: exact dictionary
// match first, then ordered pattern rules (most specific first), finally the
// Not Available fallback.
func (rs *Ruleset) Standardize(raw string) Result {
	cleaned := Clean(raw)
	if cleaned == "" {
		return Result{Code: NotAvailable, Label: NotAvailable.Label(), Confidence: 1.0}
	}

	key := strings.ToLower(cleaned)
	if code, ok := rs.exact[key]; ok {
		return Result{Code: code, Label: code.Label(), Confidence: confExact}
	}

	for _, rule := range rs.patterns {
		if rule.re.MatchString(cleaned) {
			return Result{Code: rule.Code, Label: rule.Code.Label(), Confidence: confPattern}
		}
	}

	return Result{Code: NotAvailable, Label: NotAvailable.Label(), Confidence: confFallback}
}

var (
	// embedded dates like "12/31/2025", "2025-09-30" or "Sep 30, 2025".
	datePattern = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{2,4}|\d{4}-\d{2}-\d{2}|(?i:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})\b`)
	// trailing two-letter state codes, e.g. "Small Business VA".
	statePattern = regexp.MustCompile(`\b(AL|AK|AZ|AR|CA|CO|CT|DE|FL|GA|HI|ID|IL|IN|IA|KS|KY|LA|ME|MD|MA|MI|MN|MS|MO|MT|NE|NV|NH|NJ|NM|NY|NC|ND|OH|OK|OR|PA|RI|SC|SD|TN|TX|UT|VT|VA|WA|WV|WI|WY|DC)\b`)
	// country names occasionally appended by source systems.
	countryPattern = regexp.MustCompile(`(?i)\b(united states( of america)?|usa|u\.s\.a?\.?)\b`)
	separatorRunes = regexp.MustCompile(`[;,/|]+`)
	spaceRuns      = regexp.MustCompile(`\s+`)
)

// Clean strips embedded dates, two-letter state codes, country names, and
// separator punctuation from a raw set-aside label.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = datePattern.ReplaceAllString(s, " ")
	s = countryPattern.ReplaceAllString(s, " ")
	s = statePattern.ReplaceAllString(s, " ")
	s = separatorRunes.ReplaceAllString(s, " ")
	s = spaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
