package setaside

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Ruleset holds the compiled two-tier classification rules.
type Ruleset struct {
	exact    map[string]Code
	patterns []compiledPattern
}

type compiledPattern struct {
	Code Code
	re   *regexp.Regexp
}

// rulesetFile is the YAML shape for an override ruleset.
type rulesetFile struct {
	Exact    map[string]string `yaml:"exact"`
	Patterns []struct {
		Pattern string `yaml:"pattern"`
		Code    string `yaml:"code"`
	} `yaml:"patterns"`
}

// defaultExact maps known literal phrasings (lowercased, cleaned) to codes.
var defaultExact = map[string]Code{
	"small business":                        SmallBusiness,
	"small business set-aside":              SmallBusiness,
	"small business set aside":              SmallBusiness,
	"total small business":                  SmallBusinessTotal,
	"total small business set-aside":        SmallBusinessTotal,
	"100% small business":                   SmallBusinessTotal,
	"8(a)":                                  EightACompetitive,
	"8(a) competitive":                      EightACompetitive,
	"8a":                                    EightACompetitive,
	"8(a) sole source":                      EightASoleSource,
	"8(a) with hubzone preference":          EightACompetitive,
	"hubzone":                               HUBZone,
	"hubzone set-aside":                     HUBZone,
	"historically underutilized business zone": HUBZone,
	"hubzone sole source":                   HUBZoneSoleSource,
	"wosb":                                  WomenOwned,
	"women-owned small business":            WomenOwned,
	"woman owned small business":            WomenOwned,
	"edwosb":                                EDWomenOwned,
	"economically disadvantaged women-owned small business": EDWomenOwned,
	"sdvosb":                        SDVOSB,
	"service-disabled veteran-owned small business": SDVOSB,
	"service disabled veteran owned small business": SDVOSB,
	"sdvosb sole source":            SDVOSBSoleSource,
	"vosb":                          VeteranOwned,
	"veteran-owned small business":  VeteranOwned,
	"veteran owned small business":  VeteranOwned,
	"small disadvantaged business":  SmallDisadvantaged,
	"sdb":                           SmallDisadvantaged,
	"full and open":                 FullAndOpen,
	"full and open competition":     FullAndOpen,
	"f&o":                           FullAndOpen,
	"unrestricted":                  Unrestricted,
	"sole source":                   SoleSource,
	"other than small":              OtherThanSmall,
	"other than small business":     OtherThanSmall,
	"large business":                OtherThanSmall,
}

// defaultPatterns are ordered most specific first: sole-source variants of a
// program must match before the program's bare name.
var defaultPatterns = []struct {
	Pattern string
	Code    Code
}{
	{`(?i)8\s*\(?a\)?.*sole\s*source`, EightASoleSource},
	{`(?i)hubzone.*sole\s*source`, HUBZoneSoleSource},
	{`(?i)(sdvosb|service.?disabled).*sole\s*source`, SDVOSBSoleSource},
	{`(?i)8\s*\(?a\)?`, EightACompetitive},
	{`(?i)hubzone|historically\s+underutilized`, HUBZone},
	{`(?i)economically\s+disadvantaged.*women|edwosb`, EDWomenOwned},
	{`(?i)women.?owned|wosb`, WomenOwned},
	{`(?i)service.?disabled.*veteran|sdvosb`, SDVOSB},
	{`(?i)veteran.?owned|vosb`, VeteranOwned},
	{`(?i)small\s+disadvantaged`, SmallDisadvantaged},
	{`(?i)total\s+small\s+business|100%\s*small`, SmallBusinessTotal},
	{`(?i)small\s+business`, SmallBusiness},
	{`(?i)full\s+and\s+open`, FullAndOpen},
	{`(?i)unrestricted`, Unrestricted},
	{`(?i)sole\s*source`, SoleSource},
	{`(?i)other\s+than\s+small|large\s+business`, OtherThanSmall},
}

var defaultRules = mustCompile()

func mustCompile() *Ruleset {
	rs := &Ruleset{exact: defaultExact}
	for _, p := range defaultPatterns {
		rs.patterns = append(rs.patterns, compiledPattern{
			Code: p.Code,
			re:   regexp.MustCompile(p.Pattern),
		})
	}
	return rs
}

// DefaultRules returns the embedded ruleset.
func DefaultRules() *Ruleset {
	return defaultRules
}

// UseRules installs rs as the ruleset consulted by the package-level
// Standardize. Call during startup, before any standardization runs.
func UseRules(rs *Ruleset) {
	if rs != nil {
		defaultRules = rs
	}
}

// LoadRules reads an override ruleset from a YAML file. Pattern order in the
// file is preserved, so the file carries the same most-specific-first
// obligation as the defaults.
func LoadRules(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "setaside: read rules %s", path)
	}

	var file rulesetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "setaside: parse rules")
	}

	rs := &Ruleset{exact: make(map[string]Code, len(file.Exact))}
	for phrase, code := range file.Exact {
		c := Code(code)
		if !c.Valid() {
			return nil, eris.Errorf("setaside: unknown code %q for phrase %q", code, phrase)
		}
		rs.exact[strings.ToLower(strings.TrimSpace(phrase))] = c
	}
	for _, p := range file.Patterns {
		c := Code(p.Code)
		if !c.Valid() {
			return nil, eris.Errorf("setaside: unknown code %q for pattern %q", p.Code, p.Pattern)
		}
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "setaside: compile pattern %q", p.Pattern)
		}
		rs.patterns = append(rs.patterns, compiledPattern{Code: c, re: re})
	}
	return rs, nil
}
