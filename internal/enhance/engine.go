// Package enhance runs LLM-backed field enhancements over prospect records:
// monetary value parsing, NAICS classification, title rewriting, and
// set-aside standardization. One Engine is shared by the synchronous batch
// processor and the background iterative processor.
package enhance

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/model"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/naics"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/parse"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/setaside"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/store"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/pkg/llm"
)

// Config tunes the engine's model usage.
type Config struct {
	Model        string
	ModelVersion string
	MaxTokens    int64

	// SetAsideLLMCutoff is the standardizer confidence below which the
	// model is additionally consulted for set-aside classification.
	SetAsideLLMCutoff float64
}

const (
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 1024
	defaultCutoff    = 0.80
)

// Engine applies enhancements to single prospects and records every model
// invocation in the audit log.
type Engine struct {
	store store.Store
	llm   llm.Client
	cfg   Config
	log   *zap.Logger
}

func NewEngine(st store.Store, client llm.Client, cfg Config) *Engine {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.ModelVersion == "" {
		cfg.ModelVersion = cfg.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.SetAsideLLMCutoff <= 0 {
		cfg.SetAsideLLMCutoff = defaultCutoff
	}
	return &Engine{store: st, llm: client, cfg: cfg, log: zap.L().Named("enhance")}
}

// EnhanceOne runs the requested enhancement kind(s) on a prospect,
// short-circuiting any sub-enhancement whose precondition is already
// satisfied (unless force is set). Model failures are contained per kind;
// the returned error covers only cancellation and persistence failures.
// When at least one kind succeeds, the prospect is stamped with the
// processing time and model version exactly once and persisted.
func (e *Engine) EnhanceOne(ctx context.Context, p *model.Prospect, kind model.EnhancementKind, force bool) (model.EnhancementResult, error) {
	var res model.EnhancementResult

	for _, k := range kind.Expand() {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "enhance: canceled")
		}
		switch k {
		case model.KindValues:
			res.Values = e.enhanceValues(ctx, p, force)
		case model.KindNAICS:
			res.NAICS = e.enhanceNAICS(ctx, p, force)
		case model.KindTitles:
			res.Titles = e.enhanceTitle(ctx, p, force)
		case model.KindSetAsides:
			res.SetAsides = e.enhanceSetAside(ctx, p, force)
		}
	}

	if res.Any() {
		now := time.Now().UTC()
		p.ProcessedAt = &now
		p.ModelVersion = e.cfg.ModelVersion
		if err := e.store.UpdateProspect(ctx, p); err != nil {
			return res, eris.Wrap(err, "enhance: persist prospect")
		}
	}
	return res, nil
}

// ProcessOne claims a prospect, enhances it, and releases the claim. The
// prospect ends idle on success and failed when any step errors, which keeps
// it out of subsequent eligibility queries until an operator intervenes.
func (e *Engine) ProcessOne(ctx context.Context, id string, kind model.EnhancementKind, force bool, userID string) (model.EnhancementResult, error) {
	var zero model.EnhancementResult

	if err := e.store.MarkInProgress(ctx, id, userID); err != nil {
		return zero, err
	}
	p, err := e.store.GetProspect(ctx, id)
	if err != nil {
		e.release(ctx, id, model.EnhancementFailed)
		return zero, err
	}

	res, err := e.EnhanceOne(ctx, p, kind, force)
	if err != nil {
		e.release(ctx, id, model.EnhancementFailed)
		return res, err
	}
	e.release(ctx, id, model.EnhancementIdle)
	return res, nil
}

// release clears the in-progress claim even when ctx is already canceled.
func (e *Engine) release(ctx context.Context, id string, status model.EnhancementStatus) {
	if err := e.store.ClearInProgress(context.WithoutCancel(ctx), id, status); err != nil {
		e.log.Warn("failed to release prospect claim",
			zap.String("prospect_id", id), zap.Error(err))
	}
}

func (e *Engine) enhanceValues(ctx context.Context, p *model.Prospect, force bool) bool {
	if p.EstimatedValueText == "" {
		return false
	}
	if p.HasValue() && !force {
		return false
	}

	resp, entry := e.complete(ctx, p.ID, model.KindValues, valuePrompt(p))
	if resp == nil {
		return false
	}

	parsed, err := parse.ParseMonetaryResponse(resp.Text)
	if err != nil {
		entry.Error = err.Error()
		e.audit(ctx, entry)
		return false
	}
	if parsed.Empty() {
		entry.Error = "no value extracted"
		e.audit(ctx, entry)
		return false
	}

	entry.Success = true
	entry.ParsedResult = marshalResult(parsed)
	e.audit(ctx, entry)

	p.EstimatedValueSingle = parsed.Single
	p.EstimatedValueMin = parsed.Min
	p.EstimatedValueMax = parsed.Max
	return true
}

func (e *Engine) enhanceNAICS(ctx context.Context, p *model.Prospect, force bool) bool {
	if p.NAICS != "" && p.NAICSSource == model.NAICSSourceLLMInferred && !force {
		return false
	}

	// Source-provided classification text, in whatever format the agency
	// used, standardizes without a model call.
	if p.NAICS != "" {
		if parsed := parse.ClassificationCode(p.NAICS); parsed.Code != "" {
			if parsed.Code == p.NAICS && parsed.Description == p.NAICSDescription && p.NAICSSource != "" {
				return false
			}
			e.applyNAICS(p, parsed.Code, parsed.Description, model.NAICSSourceOriginal)
			return true
		}
	}

	// Side channel next: agency-specific and generic keys in the extra map.
	if parsed, found := parse.ClassificationFromExtra(p.Extra); found {
		e.applyNAICS(p, parsed.Code, parsed.Description, model.NAICSSourceOriginal)
		return true
	}

	if p.Title == "" && p.Description == "" {
		return false
	}

	resp, entry := e.complete(ctx, p.ID, model.KindNAICS, naicsPrompt(p))
	if resp == nil {
		return false
	}

	var answer struct {
		Code       string  `json:"code"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(parse.CleanJSON(resp.Text)), &answer); err != nil {
		entry.Error = eris.Wrap(err, "parse naics response").Error()
		e.audit(ctx, entry)
		return false
	}
	code := naics.Normalize(answer.Code)
	if code == "" {
		entry.Error = "model returned invalid NAICS code: " + answer.Code
		e.audit(ctx, entry)
		return false
	}

	entry.Success = true
	entry.ParsedResult = marshalResult(answer)
	e.audit(ctx, entry)

	desc, _ := naics.Lookup(code)
	e.applyNAICS(p, code, desc, model.NAICSSourceLLMInferred)
	return true
}

// applyNAICS writes a classification onto the prospect. The description
// always comes from the canonical table when the code resolves there, never
// verbatim from a model response.
func (e *Engine) applyNAICS(p *model.Prospect, code, desc string, source model.NAICSSource) {
	if canonical, ok := naics.Lookup(code); ok {
		desc = canonical
	}
	p.NAICS = code
	p.NAICSDescription = desc
	p.NAICSSource = source
}

func (e *Engine) enhanceTitle(ctx context.Context, p *model.Prospect, force bool) bool {
	if p.Title == "" {
		return false
	}
	if p.AIEnhancedTitle != "" && !force {
		return false
	}

	resp, entry := e.complete(ctx, p.ID, model.KindTitles, titlePrompt(p))
	if resp == nil {
		return false
	}

	result, err := parse.ParseTitleResponse(resp.Text, p.Title)
	if err != nil {
		entry.Error = err.Error()
		e.audit(ctx, entry)
		return false
	}
	if result.Empty() {
		// The model declined to improve the title; a no-op is not an
		// enhancement.
		entry.Error = "no title enhancement"
		e.audit(ctx, entry)
		return false
	}

	entry.Success = true
	entry.ParsedResult = marshalResult(result)
	e.audit(ctx, entry)

	p.AIEnhancedTitle = result.EnhancedTitle
	return true
}

func (e *Engine) enhanceSetAside(ctx context.Context, p *model.Prospect, force bool) bool {
	if p.SetAside == "" {
		return false
	}
	if p.SetAsideStandardCode != "" && !force {
		return false
	}

	result := setaside.Standardize(p.SetAside)
	if result.Confidence < e.cfg.SetAsideLLMCutoff {
		if fromModel, ok := e.setAsideFromModel(ctx, p); ok && fromModel.Confidence > result.Confidence {
			result = fromModel
		}
	}

	p.SetAsideStandardCode = string(result.Code)
	p.SetAsideStandardLabel = result.Label
	return true
}

// setAsideFromModel asks the model to pick a category when the rule-based
// standardizer is unsure. Invalid codes from the model are rejected.
func (e *Engine) setAsideFromModel(ctx context.Context, p *model.Prospect) (setaside.Result, bool) {
	resp, entry := e.complete(ctx, p.ID, model.KindSetAsides, setAsidePrompt(p))
	if resp == nil {
		return setaside.Result{}, false
	}

	var answer struct {
		Code       string  `json:"code"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(parse.CleanJSON(resp.Text)), &answer); err != nil {
		entry.Error = eris.Wrap(err, "parse set-aside response").Error()
		e.audit(ctx, entry)
		return setaside.Result{}, false
	}
	code := setaside.Code(answer.Code)
	if !code.Valid() {
		entry.Error = "model returned unknown set-aside code: " + answer.Code
		e.audit(ctx, entry)
		return setaside.Result{}, false
	}

	entry.Success = true
	entry.ParsedResult = marshalResult(answer)
	e.audit(ctx, entry)

	return setaside.Result{Code: code, Label: code.Label(), Confidence: answer.Confidence}, true
}

// complete performs one model call. Transport failures are audited here and
// reported as a nil response; on success the caller finishes the entry with
// the parse outcome and records it.
func (e *Engine) complete(ctx context.Context, prospectID string, kind model.EnhancementKind, prompt string) (*llm.Response, *model.AuditEntry) {
	entry := &model.AuditEntry{
		ProspectID: prospectID,
		Kind:       kind,
		Model:      e.cfg.Model,
		Prompt:     prompt,
	}

	resp, err := e.llm.Complete(ctx, llm.Request{
		Model:     e.cfg.Model,
		System:    systemPrompt,
		Prompt:    prompt,
		MaxTokens: e.cfg.MaxTokens,
	})
	if err != nil {
		entry.Error = err.Error()
		e.audit(ctx, entry)
		e.log.Warn("model call failed",
			zap.String("prospect_id", prospectID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return nil, nil
	}

	entry.RawResponse = resp.Text
	entry.LatencyMS = resp.Latency.Milliseconds()
	return resp, entry
}

// audit appends an entry to the audit log. The log is best-effort: a failed
// insert is logged but never interrupts an enhancement.
func (e *Engine) audit(ctx context.Context, entry *model.AuditEntry) {
	if err := e.store.InsertAuditEntry(context.WithoutCancel(ctx), entry); err != nil {
		e.log.Warn("audit entry insert failed",
			zap.String("prospect_id", entry.ProspectID), zap.Error(err))
	}
}

func marshalResult(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
