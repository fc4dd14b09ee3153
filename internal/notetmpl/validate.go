package notetmpl

import (
	"fmt"

	"github.com/soochol/notegen/internal/diag"
)

// Validate checks tmpl's shape: required identifiers, known slot kinds,
// and the per-slot fields each kind requires. It is the template-lint
// stage the orchestrator runs first, before any schema is derived.
func Validate(tmpl Template) diag.List {
	var out diag.List

	if tmpl.ID == "" {
		out = out.Add(shapeError("", "template id is required"))
	}
	if tmpl.Version == "" {
		out = out.Add(shapeError("", "template version is required"))
	}
	if len(tmpl.Layout) == 0 {
		out = out.Add(shapeError("", "template layout must declare at least one component"))
	}

	seen := map[string]bool{}
	Walk(tmpl.Layout, func(componentID string, item ContentItem) {
		if item.ID == "" {
			out = out.Add(shapeError(componentID, "content item is missing an id"))
			return
		}
		if seen[item.ID] {
			out = out.Add(shapeError(item.ID, "duplicate content item id"))
		}
		seen[item.ID] = true

		switch item.Slot {
		case SlotAI:
			if item.OutputPath == "" {
				out = out.Add(shapeError(item.ID, "ai item must declare outputPath"))
			}
		case SlotLookup:
			if item.Lookup == "" {
				out = out.Add(shapeError(item.ID, "lookup item must declare lookup"))
			}
			if item.TargetPath == "" {
				out = out.Add(shapeError(item.ID, "lookup item must declare targetPath"))
			}
		case SlotStatic:
			if item.TargetPath == "" {
				out = out.Add(shapeError(item.ID, "static item must declare targetPath"))
			}
		case SlotComputed:
			if item.Formula == "" {
				out = out.Add(shapeError(item.ID, "computed item must declare a formula"))
			}
			if item.TargetPath == "" {
				out = out.Add(shapeError(item.ID, "computed item must declare targetPath"))
			}
		case SlotVerbatim:
			if item.VerbatimRef == "" {
				out = out.Add(shapeError(item.ID, "verbatim item must declare verbatimRef"))
			}
			if item.TargetPath == "" {
				out = out.Add(shapeError(item.ID, "verbatim item must declare targetPath"))
			}
		default:
			out = out.Add(shapeError(item.ID, fmt.Sprintf("unknown slot kind %q", item.Slot)))
		}
	})

	return out
}

func shapeError(itemID, message string) diag.Warning {
	return diag.Warning{
		Stage:    diag.StageTemplateValidation,
		Code:     diag.CodePathValidity,
		ItemID:   itemID,
		Message:  message,
		Severity: diag.SeverityError,
	}
}
