package enhance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/model"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/store"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/pkg/llm"
)

// mockStore is an in-memory Store with per-method error injection.
type mockStore struct {
	mu        sync.Mutex
	prospects map[string]*model.Prospect
	audit     []model.AuditEntry
	summaries []model.RunSummary

	updateErr map[string]error // prospect ID -> forced UpdateProspect error
	listErr   error
}

func newMockStore() *mockStore {
	return &mockStore{
		prospects: make(map[string]*model.Prospect),
		updateErr: make(map[string]error),
	}
}

func (m *mockStore) add(p *model.Prospect) *model.Prospect {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.EnhancementStatus == "" {
		p.EnhancementStatus = model.EnhancementIdle
	}
	if p.LoadedAt.IsZero() {
		p.LoadedAt = time.Now().UTC().Add(-time.Duration(len(m.prospects)) * time.Minute)
	}
	clone := *p
	m.prospects[p.ID] = &clone
	return p
}

func (m *mockStore) get(id string) *model.Prospect {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *m.prospects[id]
	return &clone
}

func (m *mockStore) CreateProspect(_ context.Context, p *model.Prospect) error {
	m.add(p)
	return nil
}

func (m *mockStore) GetProspect(_ context.Context, id string) (*model.Prospect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prospects[id]
	if !ok {
		return nil, eris.Errorf("prospect not found: %s", id)
	}
	clone := *p
	return &clone, nil
}

func (m *mockStore) UpdateProspect(_ context.Context, p *model.Prospect) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateErr[p.ID]; err != nil {
		return err
	}
	if _, ok := m.prospects[p.ID]; !ok {
		return eris.Errorf("prospect not found: %s", p.ID)
	}
	clone := *p
	m.prospects[p.ID] = &clone
	return nil
}

func kindEligible(p *model.Prospect, k model.EnhancementKind) bool {
	switch k {
	case model.KindValues:
		return p.EstimatedValueSingle == nil &&
			(p.EstimatedValueMin == nil || p.EstimatedValueMax == nil) &&
			p.EstimatedValueText != ""
	case model.KindNAICS:
		return p.NAICS == "" || p.NAICSSource != model.NAICSSourceLLMInferred
	case model.KindTitles:
		return p.AIEnhancedTitle == "" && p.Title != ""
	case model.KindSetAsides:
		return p.SetAsideStandardCode == "" && p.SetAside != ""
	}
	return false
}

func (m *mockStore) eligible(p *model.Prospect, f store.EligibilityFilter) bool {
	if p.EnhancementStatus == model.EnhancementInProgress || p.EnhancementStatus == model.EnhancementFailed {
		return false
	}
	if f.SkipExisting && p.ProcessedAt != nil {
		return false
	}
	for _, k := range f.Kind.Expand() {
		if kindEligible(p, k) {
			return true
		}
	}
	return false
}

func (m *mockStore) ListEligible(_ context.Context, f store.EligibilityFilter) ([]model.Prospect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.Prospect
	for _, p := range m.prospects {
		if m.eligible(p, f) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoadedAt.After(out[j].LoadedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *mockStore) CountEligible(ctx context.Context, f store.EligibilityFilter) (int, error) {
	f.Limit = 0
	list, err := m.ListEligible(ctx, f)
	return len(list), err
}

func (m *mockStore) MarkInProgress(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prospects[id]
	if !ok {
		return eris.Errorf("prospect not found: %s", id)
	}
	now := time.Now().UTC()
	p.EnhancementStatus = model.EnhancementInProgress
	p.EnhancementStarted = &now
	p.EnhancementUserID = userID
	return nil
}

func (m *mockStore) ClearInProgress(_ context.Context, id string, status model.EnhancementStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prospects[id]
	if !ok {
		return eris.Errorf("prospect not found: %s", id)
	}
	p.EnhancementStatus = status
	p.EnhancementStarted = nil
	p.EnhancementUserID = ""
	return nil
}

func (m *mockStore) ResetStaleInProgress(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	n := 0
	for _, p := range m.prospects {
		if p.EnhancementStatus != model.EnhancementInProgress {
			continue
		}
		if olderThan > 0 && p.EnhancementStarted != nil && !p.EnhancementStarted.Before(cutoff) {
			continue
		}
		p.EnhancementStatus = model.EnhancementIdle
		p.EnhancementStarted = nil
		p.EnhancementUserID = ""
		n++
	}
	return n, nil
}

func (m *mockStore) InsertAuditEntry(_ context.Context, e *model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, *e)
	return nil
}

func (m *mockStore) ListAuditEntries(_ context.Context, prospectID string, kind model.EnhancementKind, limit int) ([]model.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AuditEntry
	for _, e := range m.audit {
		if e.ProspectID != prospectID {
			continue
		}
		if kind != "" && kind != model.KindAll && e.Kind != kind {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) InsertRunSummary(_ context.Context, s *model.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, *s)
	return nil
}

func (m *mockStore) Migrate(context.Context) error { return nil }
func (m *mockStore) Close() error                  { return nil }

func (m *mockStore) auditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.audit)
}

func (m *mockStore) summaryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.summaries)
}

func (m *mockStore) lastSummary() model.RunSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaries[len(m.summaries)-1]
}

// mockLLM returns scripted responses chosen by a respond func, recording
// every request it sees.
type mockLLM struct {
	mu       sync.Mutex
	requests []llm.Request
	respond  func(req llm.Request) (string, error)
	delay    time.Duration
}

func (m *mockLLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	respond := m.respond
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if respond == nil {
		return nil, eris.New("no response scripted")
	}
	text, err := respond(req)
	if err != nil {
		return nil, err
	}
	return &llm.Response{Text: text, Latency: 5 * time.Millisecond}, nil
}

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
