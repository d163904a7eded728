package enhance

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/model"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/pkg/llm"
)

func newTestEngine(st *mockStore, client llm.Client) *Engine {
	return NewEngine(st, client, Config{Model: "test-model", ModelVersion: "test-model-v1"})
}

func TestEnhanceNAICSFromSideChannel(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{}
	engine := newTestEngine(st, client)

	p := st.add(&model.Prospect{
		ID:    "p-1",
		Title: "IT Support",
		Extra: map[string]any{"naics_code": "541511"},
	})

	res, err := engine.EnhanceOne(context.Background(), p, model.KindNAICS, false)
	require.NoError(t, err)
	assert.True(t, res.NAICS)
	assert.Equal(t, 0, client.callCount(), "side-channel extraction must not invoke the model")

	got := st.get("p-1")
	assert.Equal(t, "541511", got.NAICS)
	assert.Equal(t, "Custom Computer Programming Services", got.NAICSDescription)
	assert.Equal(t, model.NAICSSourceOriginal, got.NAICSSource)
	require.NotNil(t, got.ProcessedAt)
	assert.Equal(t, "test-model-v1", got.ModelVersion)
}

func TestEnhanceNAICSStandardizesRawText(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{}
	engine := newTestEngine(st, client)

	p := st.add(&model.Prospect{ID: "p-1", NAICS: "334516 - Analytical Laboratory Instrument Manufacturing"})

	res, err := engine.EnhanceOne(context.Background(), p, model.KindNAICS, false)
	require.NoError(t, err)
	assert.True(t, res.NAICS)
	assert.Equal(t, 0, client.callCount())

	got := st.get("p-1")
	assert.Equal(t, "334516", got.NAICS)
	assert.Equal(t, "Analytical Laboratory Instrument Manufacturing", got.NAICSDescription)
	assert.Equal(t, model.NAICSSourceOriginal, got.NAICSSource)
}

func TestEnhanceNAICSModelFallback(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{respond: func(llm.Request) (string, error) {
		return `{"code": "541512", "confidence": 0.9}`, nil
	}}
	engine := newTestEngine(st, client)

	p := st.add(&model.Prospect{
		ID:          "p-1",
		Title:       "Systems Integration",
		Description: "Design and integration of enterprise systems",
	})

	res, err := engine.EnhanceOne(context.Background(), p, model.KindNAICS, false)
	require.NoError(t, err)
	assert.True(t, res.NAICS)
	assert.Equal(t, 1, client.callCount())

	got := st.get("p-1")
	assert.Equal(t, "541512", got.NAICS)
	assert.Equal(t, "Computer Systems Design Services", got.NAICSDescription)
	assert.Equal(t, model.NAICSSourceLLMInferred, got.NAICSSource)

	entries, err := st.ListAuditEntries(context.Background(), "p-1", model.KindNAICS, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
	assert.Equal(t, "test-model", entries[0].Model)
	assert.NotEmpty(t, entries[0].Prompt)
}

func TestEnhanceNAICSModelCodeOutsideCanonicalTable(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{respond: func(llm.Request) (string, error) {
		return `{"code": "999910", "confidence": 0.7}`, nil
	}}
	engine := newTestEngine(st, client)

	p := st.add(&model.Prospect{
		ID:          "p-1",
		Title:       "Unusual Services",
		Description: "Work with no matching industry classification",
	})

	res, err := engine.EnhanceOne(context.Background(), p, model.KindNAICS, false)
	require.NoError(t, err)
	assert.True(t, res.NAICS)

	got := st.get("p-1")
	assert.Equal(t, "999910", got.NAICS)
	assert.Empty(t, got.NAICSDescription)
	assert.Equal(t, model.NAICSSourceLLMInferred, got.NAICSSource)
}

func TestEnhanceNAICSSkipsLLMInferred(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{respond: func(llm.Request) (string, error) {
		return `{"code": "541511", "confidence": 0.9}`, nil
	}}
	engine := newTestEngine(st, client)

	p := st.add(&model.Prospect{
		ID:          "p-1",
		Title:       "Something",
		NAICS:       "541512",
		NAICSSource: model.NAICSSourceLLMInferred,
	})

	res, err := engine.EnhanceOne(context.Background(), p, model.KindNAICS, false)
	require.NoError(t, err)
	assert.False(t, res.NAICS)
	assert.Equal(t, 0, client.callCount())

	// Force reruns the classification.
	res, err = engine.EnhanceOne(context.Background(), p, model.KindNAICS, true)
	require.NoError(t, err)
	assert.True(t, res.NAICS)
}

func TestEnhanceValues(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{respond: func(llm.Request) (string, error) {
		return `{"single": null, "min": 100000, "max": 500000, "confidence": 0.95}`, nil
	}}
	engine := newTestEngine(st, client)

	p := st.add(&model.Prospect{ID: "p-1", EstimatedValueText: "$100,000 - $500,000"})

	res, err := engine.EnhanceOne(context.Background(), p, model.KindValues, false)
	require.NoError(t, err)
	assert.True(t, res.Values)

	got := st.get("p-1")
	assert.Nil(t, got.EstimatedValueSingle)
	require.NotNil(t, got.EstimatedValueMin)
	require.NotNil(t, got.EstimatedValueMax)
	assert.Equal(t, 100000.0, *got.EstimatedValueMin)
	assert.Equal(t, 500000.0, *got.EstimatedValueMax)
}

func TestEnhanceValuesSkipsWhenParsed(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{}
	engine := newTestEngine(st, client)

	single := 5000.0
	p := st.add(&model.Prospect{ID: "p-1", EstimatedValueText: "$5,000", EstimatedValueSingle: &single})

	res, err := engine.EnhanceOne(context.Background(), p, model.KindValues, false)
	require.NoError(t, err)
	assert.False(t, res.Values)
	assert.Equal(t, 0, client.callCount())
}

func TestEnhanceValuesMalformedResponse(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{respond: func(llm.Request) (string, error) {
		return `not json at all`, nil
	}}
	engine := newTestEngine(st, client)

	p := st.add(&model.Prospect{ID: "p-1", EstimatedValueText: "$5,000"})

	res, err := engine.EnhanceOne(context.Background(), p, model.KindValues, false)
	require.NoError(t, err, "malformed model output is recovered locally")
	assert.False(t, res.Values)

	entries, err := st.ListAuditEntries(context.Background(), "p-1", model.KindValues, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.NotEmpty(t, entries[0].Error)
	assert.Equal(t, "not json at all", entries[0].RawResponse)
}

func TestEnhanceValuesTransportFailure(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{respond: func(llm.Request) (string, error) {
		return "", eris.New("connection refused")
	}}
	engine := newTestEngine(st, client)

	p := st.add(&model.Prospect{ID: "p-1", EstimatedValueText: "$5,000"})

	res, err := engine.EnhanceOne(context.Background(), p, model.KindValues, false)
	require.NoError(t, err, "transport failures are contained per kind")
	assert.False(t, res.Values)
	assert.Equal(t, 1, st.auditCount(), "failed calls are audited too")
	assert.Nil(t, st.get("p-1").ProcessedAt)
}

func TestEnhanceTitle(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{respond: func(llm.Request) (string, error) {
		return `{"enhanced_title": "Enterprise Network Modernization Support", "confidence": 0.9, "reasoning": "expanded acronym"}`, nil
	}}
	engine := newTestEngine(st, client)

	p := st.add(&model.Prospect{ID: "p-1", Title: "ENMS Support"})

	res, err := engine.EnhanceOne(context.Background(), p, model.KindTitles, false)
	require.NoError(t, err)
	assert.True(t, res.Titles)
	assert.Equal(t, "Enterprise Network Modernization Support", st.get("p-1").AIEnhancedTitle)
}

func TestEnhanceTitleNoOp(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{respond: func(llm.Request) (string, error) {
		return `{"enhanced_title": "ENMS Support", "confidence": 0.9}`, nil
	}}
	engine := newTestEngine(st, client)

	p := st.add(&model.Prospect{ID: "p-1", Title: "ENMS Support"})

	res, err := engine.EnhanceOne(context.Background(), p, model.KindTitles, false)
	require.NoError(t, err)
	assert.False(t, res.Titles, "an unchanged title is not an enhancement")
	assert.Empty(t, st.get("p-1").AIEnhancedTitle)
	assert.Nil(t, st.get("p-1").ProcessedAt)
}

func TestEnhanceSetAsideRuleBased(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{}
	engine := newTestEngine(st, client)

	p := st.add(&model.Prospect{ID: "p-1", SetAside: "Total Small Business Set-Aside"})

	res, err := engine.EnhanceOne(context.Background(), p, model.KindSetAsides, false)
	require.NoError(t, err)
	assert.True(t, res.SetAsides)
	assert.Equal(t, 0, client.callCount(), "high-confidence matches skip the model")
	assert.Equal(t, "SMALL_BUSINESS_TOTAL", st.get("p-1").SetAsideStandardCode)
}

func TestEnhanceSetAsideModelFallback(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{respond: func(llm.Request) (string, error) {
		return `{"code": "SDVOSB", "confidence": 0.85}`, nil
	}}
	engine := newTestEngine(st, client)

	p := st.add(&model.Prospect{ID: "p-1", SetAside: "reserved for disabled veteran firms"})

	res, err := engine.EnhanceOne(context.Background(), p, model.KindSetAsides, false)
	require.NoError(t, err)
	assert.True(t, res.SetAsides)
	assert.Equal(t, 1, client.callCount())
	assert.Equal(t, "SDVOSB", st.get("p-1").SetAsideStandardCode)
}

func TestEnhanceSetAsideRejectsUnknownModelCode(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{respond: func(llm.Request) (string, error) {
		return `{"code": "MADE_UP_CODE", "confidence": 0.99}`, nil
	}}
	engine := newTestEngine(st, client)

	p := st.add(&model.Prospect{ID: "p-1", SetAside: "some unusual phrasing"})

	res, err := engine.EnhanceOne(context.Background(), p, model.KindSetAsides, false)
	require.NoError(t, err)
	assert.True(t, res.SetAsides, "the rule-based fallback still produces a category")
	assert.Equal(t, "N/A", st.get("p-1").SetAsideStandardCode)
}

func TestEnhanceAllStampsOnce(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{respond: func(req llm.Request) (string, error) {
		switch {
		case contains(req.Prompt, "monetary"):
			return `{"single": 75000, "min": null, "max": null, "confidence": 0.9}`, nil
		case contains(req.Prompt, "NAICS"):
			return `{"code": "541330", "confidence": 0.8}`, nil
		default:
			return `{"enhanced_title": "Bridge Inspection Engineering Services", "confidence": 0.9}`, nil
		}
	}}
	engine := newTestEngine(st, client)

	p := st.add(&model.Prospect{
		ID:                 "p-1",
		Title:              "Bridge Insp Svcs",
		Description:        "Engineering inspection of highway bridges",
		EstimatedValueText: "$75K",
		SetAside:           "8(a) Sole Source",
	})

	res, err := engine.EnhanceOne(context.Background(), p, model.KindAll, false)
	require.NoError(t, err)
	assert.True(t, res.Values)
	assert.True(t, res.NAICS)
	assert.True(t, res.Titles)
	assert.True(t, res.SetAsides)

	got := st.get("p-1")
	require.NotNil(t, got.ProcessedAt)
	assert.Equal(t, "test-model-v1", got.ModelVersion)
	assert.Equal(t, "EIGHT_A_SOLE_SOURCE", got.SetAsideStandardCode)
}

func TestProcessOneClaimLifecycle(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{respond: func(llm.Request) (string, error) {
		return `{"single": 1000, "min": null, "max": null, "confidence": 0.9}`, nil
	}}
	engine := newTestEngine(st, client)

	st.add(&model.Prospect{ID: "p-1", EstimatedValueText: "$1,000"})

	res, err := engine.ProcessOne(context.Background(), "p-1", model.KindValues, false, "user-9")
	require.NoError(t, err)
	assert.True(t, res.Values)

	got := st.get("p-1")
	assert.Equal(t, model.EnhancementIdle, got.EnhancementStatus)
	assert.Nil(t, got.EnhancementStarted)
	assert.Empty(t, got.EnhancementUserID)
}

func TestProcessOneMarksFailedOnPersistError(t *testing.T) {
	st := newMockStore()
	client := &mockLLM{respond: func(llm.Request) (string, error) {
		return `{"single": 1000, "min": null, "max": null, "confidence": 0.9}`, nil
	}}
	engine := newTestEngine(st, client)

	st.add(&model.Prospect{ID: "p-1", EstimatedValueText: "$1,000"})
	st.updateErr["p-1"] = eris.New("disk full")

	_, err := engine.ProcessOne(context.Background(), "p-1", model.KindValues, false, "")
	require.Error(t, err)
	assert.Equal(t, model.EnhancementFailed, st.get("p-1").EnhancementStatus)
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}
