package resolve

import (
	"fmt"

	"github.com/soochol/notegen/internal/diag"
	"github.com/soochol/notegen/internal/formula"
	"github.com/soochol/notegen/internal/notetmpl"
	"github.com/soochol/notegen/internal/pathkey"
	"github.com/soochol/notegen/internal/pathset"
)

// LookupResolver copies a value from the source record at item.Lookup.
type LookupResolver struct{}

func (LookupResolver) CanResolve(item notetmpl.ContentItem) bool { return item.Slot == notetmpl.SlotLookup }

func (LookupResolver) Resolve(item notetmpl.ContentItem, source map[string]any) Result {
	path, err := pathkey.Parse(item.Lookup)
	if err != nil {
		return Result{Warning: &diag.Warning{
			Code: diag.CodeMissingSource, ItemID: item.ID, Path: item.TargetPath,
			Message:  fmt.Sprintf("lookup path %q is malformed: %v", item.Lookup, err),
			Severity: severityFor(isRequired(item)),
		}}
	}
	value, ok := pathset.Get(source, path)
	if !ok || value == nil {
		return Result{Warning: &diag.Warning{
			Code: diag.CodeMissingSource, ItemID: item.ID, Path: item.TargetPath,
			Message:  fmt.Sprintf("source has no value at %q", item.Lookup),
			Severity: severityFor(isRequired(item)),
		}}
	}
	return Result{Value: value}
}

// StaticResolver writes a literal Text or Value.
type StaticResolver struct{}

func (StaticResolver) CanResolve(item notetmpl.ContentItem) bool { return item.Slot == notetmpl.SlotStatic }

func (StaticResolver) Resolve(item notetmpl.ContentItem, _ map[string]any) Result {
	if item.Value != nil {
		return Result{Value: item.Value}
	}
	return Result{Value: item.Text}
}

// ComputedResolver evaluates item.Formula against the source record and
// applies item.Format.
type ComputedResolver struct{}

func (ComputedResolver) CanResolve(item notetmpl.ContentItem) bool { return item.Slot == notetmpl.SlotComputed }

func (ComputedResolver) Resolve(item notetmpl.ContentItem, source map[string]any) Result {
	raw, err := formula.Evaluate(item.Formula, source)
	if err != nil {
		return Result{Warning: &diag.Warning{
			Code: diag.CodeFormulaError, ItemID: item.ID, Path: item.TargetPath,
			Message:  err.Error(),
			Severity: severityFor(isRequired(item)),
		}}
	}
	formatted, err := formula.Format(item.Format, raw)
	if err != nil {
		return Result{Warning: &diag.Warning{
			Code: diag.CodeFormulaError, ItemID: item.ID, Path: item.TargetPath,
			Message:  err.Error(),
			Severity: severityFor(isRequired(item)),
		}}
	}
	return Result{Value: formatted}
}
