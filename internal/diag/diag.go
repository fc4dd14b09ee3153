// Package diag defines the warning/severity vocabulary shared by every
// pipeline stage (resolvers, linter, merger, orchestrator) so warnings
// accumulate into one uniform, append-only list end to end.
package diag

// Severity distinguishes a warning that should still allow the pipeline
// to proceed from one that a guard may choose to treat as fatal.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Code names a specific diagnostic condition. Values match the taxonomy.
type Code string

const (
	// Resolver warnings (C7/C8).
	CodeMissingSource  Code = "missing_source"
	CodeFormulaError   Code = "formula_error"
	CodeInvalidRef     Code = "invalid_ref"
	CodeTypeMismatch   Code = "type_mismatch"
	CodeUnresolvedSlot Code = "unresolved_slot"

	// Lint issues (C11).
	CodeCoverage          Code = "coverage"
	CodePathValidity      Code = "path_validity"
	CodeMessageRoleOrder  Code = "message_role_order"
	CodeMissingContract   Code = "missing_response_contract"
	CodeMissingAIDeps     Code = "missing_ai_deps"
	CodeConstraintMismatch Code = "constraint_mismatch"
	CodeDepNotInContext   Code = "dependency_not_in_context"

	// LLM adapter (C12).
	CodeMissingOutput   Code = "missing-output"
	CodeSoftConstraint  Code = "soft_constraint"

	// Merge (C13).
	CodeMergeConflict Code = "merge_conflict"
	CodeArrayOverwrite Code = "array_overwrite"
)

// Stage names a pipeline stage for grouping and for PipelineError.Step.
type Stage string

const (
	StageTemplateValidation Stage = "template-validation"
	StageSchemaDerivation   Stage = "schema-derivation"
	StageResolution         Stage = "resolution"
	StagePromptLint         Stage = "prompt-lint"
	StageAIGeneration       Stage = "ai-generation"
	StageAIValidation       Stage = "ai-validation"
	StageMerge              Stage = "merge"
	StageRender             Stage = "render"
)

// Warning is one diagnostic entry. Path is the dotted canonical path the
// warning concerns, empty when not path-scoped.
type Warning struct {
	Stage    Stage    `json:"stage"`
	Code     Code     `json:"code"`
	Path     string   `json:"path,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	ItemID   string   `json:"itemId,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// MergeConflictWarning is the typed payload attached to a CodeMergeConflict
// Warning's Details, matching the scenario in spec.md §8 #6.
type MergeConflictWarning struct {
	Path         string `json:"path"`
	ExpectedType string `json:"expectedType"`
	ActualType   string `json:"actualType"`
	Severity     Severity `json:"severity"`
}

// List is an append-only collection of warnings, grouped by stage on
// demand. Never mutated in place except by appending.
type List []Warning

// Add appends w and returns the extended list (callers that want pure
// append-only semantics should reassign: l = l.Add(w)).
func (l List) Add(w Warning) List {
	return append(l, w)
}

// ByStage groups warnings for the orchestrator's PipelineWarnings output.
func (l List) ByStage() map[Stage][]Warning {
	out := map[Stage][]Warning{}
	for _, w := range l {
		out[w.Stage] = append(out[w.Stage], w)
	}
	return out
}

// HasSeverity reports whether any warning in l matches sev.
func (l List) HasSeverity(sev Severity) bool {
	for _, w := range l {
		if w.Severity == sev {
			return true
		}
	}
	return false
}

// PipelineError is the fatal, guard-triggered error surfaced to callers.
// Step identifies the stage, Cause carries the structured diagnostics
// that caused the failure (the first offending warning list, or a plain
// error for hard stage failures like schema derivation).
type PipelineError struct {
	Step  Stage
	Cause error
}

func (e *PipelineError) Error() string {
	if e.Cause == nil {
		return "pipeline failed at step " + string(e.Step)
	}
	return "pipeline failed at step " + string(e.Step) + ": " + e.Cause.Error()
}

func (e *PipelineError) Unwrap() error { return e.Cause }
