package store

import (
	"strings"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/model"
)

// kindPredicates maps each concrete enhancement kind to the SQL predicate
// that selects prospects still needing it. The fragments are placeholder-free
// so both drivers can share them; they mirror the record invariants (a value
// is either single or a complete range, a NAICS code is skipped once
// LLM-inferred, and so on).
var kindPredicates = map[model.EnhancementKind]string{
	model.KindValues: `(estimated_value_single IS NULL
		AND (estimated_value_min IS NULL OR estimated_value_max IS NULL)
		AND COALESCE(estimated_value_text, '') <> '')`,
	model.KindNAICS: `(COALESCE(naics, '') = ''
		OR COALESCE(naics_source, '') NOT IN ('llm_inferred'))`,
	model.KindTitles: `(COALESCE(ai_enhanced_title, '') = ''
		AND COALESCE(title, '') <> '')`,
	model.KindSetAsides: `(COALESCE(set_aside_standard_code, '') = ''
		AND COALESCE(set_aside, '') <> '')`,
}

// eligibilityPredicate renders the WHERE fragment for a kind. KindAll is the
// union of the four concrete predicates. Prospects currently in progress or
// failed are never selected; the cleanup sweep is the only path back from
// those states.
func eligibilityPredicate(kind model.EnhancementKind, skipExisting bool) string {
	var parts []string
	for _, k := range kind.Expand() {
		parts = append(parts, kindPredicates[k])
	}

	pred := "(" + strings.Join(parts, " OR ") + ")"
	pred += " AND enhancement_status NOT IN ('in_progress', 'failed')"
	if skipExisting {
		pred += " AND processed_at IS NULL"
	}
	return pred
}
