package resolve

import (
	"fmt"

	"github.com/soochol/notegen/internal/diag"
	"github.com/soochol/notegen/internal/notetmpl"
	"github.com/soochol/notegen/internal/pathkey"
	"github.com/soochol/notegen/internal/pathset"
)

// NASResult is the C8 output: the partial NAS snapshot plus bookkeeping
// over which expected slots actually resolved, matching `{nasData,
// resolved[], warnings[], unresolvedSlots[]}`.
type NASResult struct {
	Data            map[string]any
	Resolved        []string // targetPaths that received a value
	Warnings        diag.List
	UnresolvedSlots []string // item ids that received no value, warned or not
}

// BuildNAS orchestrates resolvers over layout's non-ai content items,
// populating a partial NAS snapshot at each item's targetPath. AI items
// are skipped entirely — they contribute nothing here and record nothing.
func BuildNAS(layout []notetmpl.Component, source map[string]any, resolvers []Resolver) NASResult {
	snapshot := map[string]any{}
	var warnings diag.List
	var resolved []string
	var unresolved []string

	notetmpl.Walk(layout, func(_ string, item notetmpl.ContentItem) {
		if item.Slot == notetmpl.SlotAI {
			return
		}

		resolver := firstMatch(resolvers, item)
		if resolver == nil {
			warnings = warnings.Add(diag.Warning{
				Stage: diag.StageResolution, Code: diag.CodeMissingSource,
				ItemID: item.ID, Path: item.TargetPath,
				Message:  fmt.Sprintf("no resolver registered for slot kind %q", item.Slot),
				Severity: severityFor(isRequired(item)),
			})
			unresolved = append(unresolved, item.ID)
			return
		}

		result := resolver.Resolve(item, source)
		if result.Warning != nil {
			w := *result.Warning
			w.Stage = diag.StageResolution
			warnings = warnings.Add(w)
		}
		if result.Value == nil {
			if result.Warning == nil {
				warnings = warnings.Add(diag.Warning{
					Stage: diag.StageResolution, Code: diag.CodeUnresolvedSlot,
					ItemID: item.ID, Path: item.TargetPath,
					Message:  "resolver produced no value",
					Severity: severityFor(isRequired(item)),
				})
			}
			unresolved = append(unresolved, item.ID)
			return
		}

		path, err := pathkey.Parse(item.TargetPath)
		if err != nil {
			warnings = warnings.Add(diag.Warning{
				Stage: diag.StageResolution, Code: diag.CodeTypeMismatch,
				ItemID: item.ID, Path: item.TargetPath,
				Message:  fmt.Sprintf("targetPath %q is malformed: %v", item.TargetPath, err),
				Severity: diag.SeverityError,
			})
			unresolved = append(unresolved, item.ID)
			return
		}

		_, conflicts := pathset.Set(snapshot, path, result.Value)
		for _, c := range conflicts {
			warnings = warnings.Add(diag.Warning{
				Stage: diag.StageResolution, Code: diag.CodeTypeMismatch,
				ItemID: item.ID, Path: c.Path,
				Message:  fmt.Sprintf("expected %s at %q, got %s", c.ExpectedType, c.Path, c.ActualType),
				Severity: severityFor(isRequired(item)),
			})
		}
		resolved = append(resolved, item.TargetPath)
	})

	return NASResult{Data: snapshot, Resolved: resolved, Warnings: warnings, UnresolvedSlots: unresolved}
}

func firstMatch(resolvers []Resolver, item notetmpl.ContentItem) Resolver {
	for _, r := range resolvers {
		if r.CanResolve(item) {
			return r
		}
	}
	return nil
}
