// Package resolve implements the four slot resolvers (C7) and the NAS
// builder that orchestrates them over a template's layout (C8).
package resolve

import (
	"github.com/soochol/notegen/internal/diag"
	"github.com/soochol/notegen/internal/notetmpl"
)

// Result is what a resolver produces for one content item: a value to
// write into the NAS snapshot (nil if nothing could be resolved) plus an
// optional non-fatal diagnostic.
type Result struct {
	Value   any
	Warning *diag.Warning
}

// Resolver is the capability interface every slot kind implements: a
// discriminant test and the actual resolution. A tagged-variant
// dispatch (CanResolve loop) stands in for virtual dispatch, matching the
// systems-language framing of the polymorphic slot handling.
type Resolver interface {
	CanResolve(item notetmpl.ContentItem) bool
	Resolve(item notetmpl.ContentItem, source map[string]any) Result
}

// Default returns the four built-in resolvers in the order the NAS
// builder tries them: lookup, static, computed, verbatim. Order does not
// matter for correctness since CanResolve is keyed on a disjoint SlotKind,
// but it fixes iteration order for any future debugging output.
func Default() []Resolver {
	return []Resolver{
		LookupResolver{},
		StaticResolver{},
		ComputedResolver{},
		VerbatimResolver{},
	}
}

func severityFor(required bool) diag.Severity {
	if required {
		return diag.SeverityError
	}
	return diag.SeverityWarning
}

func isRequired(item notetmpl.ContentItem) bool {
	return item.Constraints != nil && item.Constraints.Required
}
