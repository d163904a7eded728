package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// EnhancementKind selects which enhancement(s) to run on a prospect.
type EnhancementKind string

const (
	KindValues    EnhancementKind = "values"
	KindNAICS     EnhancementKind = "naics"
	KindTitles    EnhancementKind = "titles"
	KindSetAsides EnhancementKind = "set_asides"
	KindAll       EnhancementKind = "all"
)

// AllKinds returns the concrete enhancement kinds, excluding KindAll.
func AllKinds() []EnhancementKind {
	return []EnhancementKind{KindValues, KindNAICS, KindTitles, KindSetAsides}
}

// ParseKind validates a raw kind string from a CLI flag or API request.
func ParseKind(raw string) (EnhancementKind, error) {
	k := EnhancementKind(raw)
	switch k {
	case KindValues, KindNAICS, KindTitles, KindSetAsides, KindAll:
		return k, nil
	}
	return "", eris.Errorf("unknown enhancement kind: %q", raw)
}

// Expand resolves KindAll into the concrete kinds; any other kind expands
// to itself.
func (k EnhancementKind) Expand() []EnhancementKind {
	if k == KindAll {
		return AllKinds()
	}
	return []EnhancementKind{k}
}

// JobStatus is the lifecycle state of an iterative enhancement run.
type JobStatus string

const (
	JobIdle       JobStatus = "idle"
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobStopped    JobStatus = "stopped"
	JobError      JobStatus = "error"
)

// Terminal reports whether the status represents a finished run.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobStopped, JobError:
		return true
	}
	return false
}

// Progress is a point-in-time snapshot of an iterative run. Snapshots are
// copies; readers never alias the processor's internal state.
type Progress struct {
	Status        JobStatus       `json:"status"`
	CurrentType   EnhancementKind `json:"current_type,omitempty"`
	Processed     int             `json:"processed"`
	Total         int             `json:"total"`
	CurrentRecord string          `json:"current_prospect,omitempty"`
	Errors        []string        `json:"errors,omitempty"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	JobID         string          `json:"job_id,omitempty"`
}

// EnhancementResult reports which sub-enhancements succeeded for one prospect.
type EnhancementResult struct {
	Values    bool `json:"values"`
	NAICS     bool `json:"naics"`
	Titles    bool `json:"titles"`
	SetAsides bool `json:"set_asides"`
}

// Any reports whether at least one sub-enhancement succeeded.
func (r EnhancementResult) Any() bool {
	return r.Values || r.NAICS || r.Titles || r.SetAsides
}

// AuditEntry is the immutable record of one model invocation. Entries are
// appended on every call, success or failure, and never mutated.
type AuditEntry struct {
	ID           string          `json:"id"`
	ProspectID   string          `json:"prospect_id"`
	Kind         EnhancementKind `json:"kind"`
	Model        string          `json:"model"`
	Prompt       string          `json:"prompt"`
	RawResponse  string          `json:"raw_response"`
	ParsedResult string          `json:"parsed_result,omitempty"`
	Success      bool            `json:"success"`
	Error        string          `json:"error,omitempty"`
	LatencyMS    int64           `json:"latency_ms"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RunSummary is the immutable record of one batch or iterative run, written
// exactly once at worker exit regardless of outcome.
type RunSummary struct {
	ID         string          `json:"id"`
	Kind       EnhancementKind `json:"kind"`
	Status     JobStatus       `json:"status"`
	Processed  int             `json:"processed"`
	DurationMS int64           `json:"duration_ms"`
	Message    string          `json:"message,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
