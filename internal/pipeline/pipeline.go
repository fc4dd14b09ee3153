package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soochol/notegen/internal/deriver"
	"github.com/soochol/notegen/internal/diag"
	"github.com/soochol/notegen/internal/fieldguide"
	"github.com/soochol/notegen/internal/llmadapter"
	"github.com/soochol/notegen/internal/notetmpl"
	"github.com/soochol/notegen/internal/payload"
	"github.com/soochol/notegen/internal/promptc"
	"github.com/soochol/notegen/internal/resolve"
)

// Pipeline holds the collaborators every Run shares: the slot resolvers
// and the LLM client. Both are safe for concurrent use across Run calls,
// since each Run is single-threaded internally and runs share nothing
// mutable.
type Pipeline struct {
	Resolvers []resolve.Resolver
	LLM       *llmadapter.Client
	Bus       *EventBus
}

// New returns a Pipeline with the default resolver set.
func New(llm *llmadapter.Client) *Pipeline {
	return &Pipeline{Resolvers: resolve.Default(), LLM: llm, Bus: NewEventBus()}
}

// Run executes the full template-to-payload compilation for one request.
func (p *Pipeline) Run(ctx context.Context, tmpl notetmpl.Template, sourceData map[string]any, factPack map[string]any, opts Options) (Output, error) {
	requestID := opts.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	if opts.EventHandler != nil {
		unsubscribe := p.Bus.Subscribe(requestID, opts.EventHandler)
		defer unsubscribe()
	}

	var out Output
	out.State = StateStart
	run := &runCtx{pipeline: p, requestID: requestID, out: &out}

	// Stage: template validation.
	lint, err := run.stage(diag.StageTemplateValidation, func() (diag.List, error) {
		return notetmpl.Validate(tmpl), nil
	})
	out.Warnings = appendAll(out.Warnings, lint)
	if err != nil {
		out.State = StateFailed
		return out, err
	}
	if err := guardCheck(diag.StageTemplateValidation, lint, opts.Guards.TemplateLint); err != nil {
		out.State = StateFailed
		return out, err
	}
	out.State = StateTemplateValidated

	// Stage: schema derivation (C3-C5). A duplicate path or incompatible
	// union is a fatal stage error, not a warning.
	var schemas Schemas
	if _, err := run.stage(diag.StageSchemaDerivation, func() (diag.List, error) {
		ais, err := deriver.DeriveAIS(tmpl.Layout)
		if err != nil {
			return nil, fmt.Errorf("derive AIS: %w", err)
		}
		nas, err := deriver.DeriveNAS(tmpl.Layout)
		if err != nil {
			return nil, fmt.Errorf("derive NAS: %w", err)
		}
		rps, err := deriver.DeriveRPS(ais, nas)
		if err != nil {
			return nil, fmt.Errorf("derive RPS: %w", err)
		}
		schemas = Schemas{AIS: ais, NAS: nas, RPS: rps}
		return nil, nil
	}); err != nil {
		out.State = StateFailed
		return out, &diag.PipelineError{Step: diag.StageSchemaDerivation, Cause: err}
	}
	out.Schemas = schemas
	out.State = StateSchemasDerived

	// Stage: NAS resolution (C6-C8).
	var nasResult resolve.NASResult
	if _, err := run.stage(diag.StageResolution, func() (diag.List, error) {
		nasResult = resolve.BuildNAS(tmpl.Layout, sourceData, p.Resolvers)
		return nasResult.Warnings, nil
	}); err != nil {
		out.State = StateFailed
		return out, err
	}
	out.Warnings = appendAll(out.Warnings, nasResult.Warnings)
	out.NASSnapshot = nasResult.Data
	if err := guardCheck(diag.StageResolution, nasResult.Warnings, opts.Guards.Resolution); err != nil {
		out.State = StateFailed
		return out, err
	}
	out.State = StateNASResolved

	// Stage: prompt composition + lint (C9-C11).
	fg := fieldguide.Build(tmpl.Layout)
	ctxSlices := fieldguide.Slice(fg, nasResult.Data, factPack)
	var bundle promptc.Bundle
	var promptLint diag.List
	if _, err := run.stage(diag.StagePromptLint, func() (diag.List, error) {
		bundle, promptLint = promptc.Compose(tmpl, schemas.AIS, fg, ctxSlices, requestID)
		return promptLint, nil
	}); err != nil {
		out.State = StateFailed
		return out, err
	}
	out.Warnings = appendAll(out.Warnings, promptLint)
	if err := guardCheck(diag.StagePromptLint, promptLint, opts.Guards.PromptLint); err != nil {
		out.State = StateFailed
		return out, err
	}
	out.State = StatePromptComposed
	if opts.CapturePromptMetadata {
		captured := bundle
		out.PromptBundle = &captured
	}

	// Stage: AI generation (C12) — the adapter call, its retries, and its
	// own schema/soft-constraint validation happen inside this one call.
	var aiResult llmadapter.Result
	var aiWarnings diag.List
	var aiMocked bool
	if _, err := run.stage(diag.StageAIGeneration, func() (diag.List, error) {
		if opts.MockGeneration != nil {
			aiResult = llmadapter.Result{Output: opts.MockGeneration.Output}
			aiMocked = true
			return nil, nil
		}
		if len(schemas.AIS.Properties) == 0 {
			// No "ai" slots in the layout: nothing for a model to fill in,
			// so skip the call entirely rather than spend a request on an
			// empty-object response.
			aiResult = llmadapter.Result{Output: map[string]any{}}
			return nil, nil
		}
		result, warnings, err := p.LLM.Generate(ctx, bundle, schemas.AIS, opts.Generation)
		if err != nil {
			return nil, err
		}
		aiResult = result
		aiWarnings = warnings
		return warnings, nil
	}); err != nil {
		out.State = StateFailed
		return out, &diag.PipelineError{Step: diag.StageAIGeneration, Cause: err}
	}
	out.AIOutput = aiResult.Output
	out.Usage = aiResult.Usage
	out.Model = aiResult.Model
	out.ResponseID = aiResult.ResponseID
	out.PromptID = aiResult.PromptID
	out.AIResponseMocked = aiMocked
	out.State = StateAIRequested

	// Stage: AI output validation. The adapter already validated the
	// payload against AIS as part of Generate; this stage exists so the
	// validation guard can gate on those warnings independently of the
	// generation guard (a caller may want to tolerate transient-retry
	// noise but halt on any soft-constraint violation, or vice versa).
	if _, err := run.stage(diag.StageAIValidation, func() (diag.List, error) {
		return aiWarnings, nil
	}); err != nil {
		out.State = StateFailed
		return out, err
	}
	out.Warnings = appendAll(out.Warnings, aiWarnings)
	if err := guardCheck(diag.StageAIValidation, aiWarnings, opts.Guards.Validation); err != nil {
		out.State = StateFailed
		return out, err
	}
	out.State = StateAIResponded

	// Stage: merge (C13).
	var merged map[string]any
	var mergeWarnings diag.List
	if _, err := run.stage(diag.StageMerge, func() (diag.List, error) {
		merged, mergeWarnings = payload.Merge(nasResult.Data, aiResult.Output)
		return mergeWarnings, nil
	}); err != nil {
		out.State = StateFailed
		return out, err
	}
	out.Warnings = appendAll(out.Warnings, mergeWarnings)
	out.Payload = merged
	if err := guardCheck(diag.StageMerge, mergeWarnings, opts.Guards.Merge); err != nil {
		out.State = StateFailed
		return out, err
	}
	out.State = StateMerged

	// Render handoff is out of scope for the core: the orchestrator's
	// contract ends at the merged render payload with state Merged/
	// Complete. A host that owns a renderer drives StateRendered itself
	// and reports completion on top of this result.
	out.State = StateComplete
	return out, nil
}

// runCtx threads the request ID through each stage's start/complete/fail
// event triplet and timing measurement.
type runCtx struct {
	pipeline  *Pipeline
	requestID string
	out       *Output
}

func (r *runCtx) stage(stage diag.Stage, fn func() (diag.List, error)) (diag.List, error) {
	start := time.Now()
	r.pipeline.Bus.Publish(Event{RequestID: r.requestID, Stage: stage, Type: EventStageStarted, Timestamp: start})

	warnings, err := fn()
	duration := time.Since(start)
	r.out.Timing = append(r.out.Timing, StageTiming{Stage: stage, Duration: duration})

	if err != nil {
		r.pipeline.Bus.Publish(Event{RequestID: r.requestID, Stage: stage, Type: EventStageFailed, Payload: err.Error(), Timestamp: time.Now()})
		return warnings, err
	}
	r.pipeline.Bus.Publish(Event{RequestID: r.requestID, Stage: stage, Type: EventStageCompleted, Payload: map[string]any{"durationMs": duration.Milliseconds()}, Timestamp: time.Now()})
	return warnings, nil
}

// appendAll concatenates src onto dst without mutating either's backing
// array in a way that would surprise a caller still holding src.
func appendAll(dst, src diag.List) diag.List {
	out := make(diag.List, 0, len(dst)+len(src))
	out = append(out, dst...)
	out = append(out, src...)
	return out
}

// severityRank orders severities for guard floor comparisons: error is
// the most severe, then warning, then info.
func severityRank(s diag.Severity) int {
	switch s {
	case diag.SeverityError:
		return 2
	case diag.SeverityWarning:
		return 1
	default:
		return 0
	}
}

// guardCheck halts the run with a PipelineError when warnings trip the
// configured guard.
func guardCheck(stage diag.Stage, warnings diag.List, guard Guard) error {
	switch guard.Mode {
	case GuardNone:
		return nil
	case GuardFailOnWarning:
		if len(warnings) > 0 {
			return &diag.PipelineError{Step: stage, Cause: fmt.Errorf("%d warning(s) at %s", len(warnings), stage)}
		}
	case GuardFailOnSeverity:
		floor := guard.MinSeverity
		if floor == "" {
			floor = diag.SeverityError
		}
		for _, w := range warnings {
			if severityRank(w.Severity) >= severityRank(floor) {
				return &diag.PipelineError{Step: stage, Cause: fmt.Errorf("a %s-severity warning was recorded at %s", w.Severity, stage)}
			}
		}
	}
	return nil
}
