package model

import (
	"encoding/json"
	"time"
)

// NAICSSource records where a prospect's NAICS classification came from.
type NAICSSource string

const (
	NAICSSourceOriginal     NAICSSource = "original"
	NAICSSourceLLMInferred  NAICSSource = "llm_inferred"
	NAICSSourceStandardized NAICSSource = "standardized"
)

// EnhancementStatus tracks per-record processing state, persisted so a
// crashed run can be detected and repaired on restart.
type EnhancementStatus string

const (
	EnhancementIdle       EnhancementStatus = "idle"
	EnhancementInProgress EnhancementStatus = "in_progress"
	EnhancementFailed     EnhancementStatus = "failed"
)

// Prospect represents a government contracting opportunity to be enhanced.
type Prospect struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Agency       string `json:"agency"`
	ContractType string `json:"contract_type,omitempty"`

	// NAICS classification. Code is always a 6-digit numeric string when set.
	NAICS            string      `json:"naics,omitempty"`
	NAICSDescription string      `json:"naics_description,omitempty"`
	NAICSSource      NAICSSource `json:"naics_source,omitempty"`

	// Monetary value. Either Single or the Min/Max pair is set, never both.
	EstimatedValueText   string   `json:"estimated_value_text,omitempty"`
	EstimatedValueSingle *float64 `json:"estimated_value_single,omitempty"`
	EstimatedValueMin    *float64 `json:"estimated_value_min,omitempty"`
	EstimatedValueMax    *float64 `json:"estimated_value_max,omitempty"`

	// AI-enhanced title, kept separate from the source title.
	AIEnhancedTitle string `json:"ai_enhanced_title,omitempty"`

	// Set-aside: raw source text plus the standardized category.
	SetAside              string `json:"set_aside,omitempty"`
	SetAsideStandardCode  string `json:"set_aside_standard_code,omitempty"`
	SetAsideStandardLabel string `json:"set_aside_standard_label,omitempty"`

	// Extra is the source-specific side channel. Loaded rows may carry it as
	// either structured JSON or a serialized text blob; NormalizeExtra turns
	// both into this canonical map at the boundary.
	Extra map[string]any `json:"extra,omitempty"`

	// Processing metadata.
	ProcessedAt        *time.Time        `json:"processed_at,omitempty"`
	ModelVersion       string            `json:"model_version,omitempty"`
	EnhancementStatus  EnhancementStatus `json:"enhancement_status,omitempty"`
	EnhancementStarted *time.Time        `json:"enhancement_started_at,omitempty"`
	EnhancementUserID  string            `json:"enhancement_user_id,omitempty"`

	LoadedAt  time.Time `json:"loaded_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasValue reports whether the prospect already carries a parsed monetary
// value, either as a single figure or as a min/max range.
func (p *Prospect) HasValue() bool {
	return p.EstimatedValueSingle != nil || (p.EstimatedValueMin != nil && p.EstimatedValueMax != nil)
}

// NormalizeExtra converts a raw side-channel payload into the canonical map
// representation. The payload may arrive as a map, a JSON text blob, or raw
// JSON bytes. Invalid input yields nil rather than an error: the side channel
// is advisory and a malformed one is treated as absent.
func NormalizeExtra(raw any) map[string]any {
	switch v := raw.(type) {
	case nil:
		return nil
	case map[string]any:
		return v
	case string:
		return unmarshalExtra([]byte(v))
	case []byte:
		return unmarshalExtra(v)
	default:
		return nil
	}
}

func unmarshalExtra(data []byte) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
