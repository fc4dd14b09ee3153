// Package payload merges the AI output over the NAS snapshot with AI
// precedence, producing the render payload and a conflict list (C13).
package payload

import (
	"github.com/soochol/notegen/internal/diag"
	"github.com/soochol/notegen/internal/pathset"
)

// Merge deep-merges ai over nas with AI precedence and translates every
// pathset.Conflict into a diag.Warning: a leaf type mismatch is
// error-severity, a heterogeneous array overwrite is warning-severity.
func Merge(nas map[string]any, ai map[string]any) (map[string]any, diag.List) {
	merged, conflicts := pathset.Merge(nas, ai)
	out, _ := merged.(map[string]any)
	if out == nil {
		out = map[string]any{}
	}

	var warnings diag.List
	for _, c := range conflicts {
		warnings = warnings.Add(toWarning(c))
	}
	return out, warnings
}

func toWarning(c pathset.Conflict) diag.Warning {
	if c.Kind == "array_overwrite" {
		return diag.Warning{
			Stage:    diag.StageMerge,
			Code:     diag.CodeArrayOverwrite,
			Path:     c.Path,
			Message:  "array contains non-object elements; AI value replaced the NAS array wholesale",
			Severity: diag.SeverityWarning,
		}
	}
	return diag.Warning{
		Stage:    diag.StageMerge,
		Code:     diag.CodeMergeConflict,
		Path:     c.Path,
		Message:  "type mismatch between NAS and AI values; AI value was kept",
		Severity: diag.SeverityError,
		Details: map[string]any{
			"expectedType": c.ExpectedType,
			"actualType":   c.ActualType,
		},
	}
}
