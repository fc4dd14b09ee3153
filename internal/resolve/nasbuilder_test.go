package resolve

import (
	"testing"

	"github.com/soochol/notegen/internal/notetmpl"
)

func TestBuildNAS_LookupOnly(t *testing.T) {
	layout := []notetmpl.Component{
		{ID: "header", Content: []notetmpl.ContentItem{
			{ID: "item-name", Slot: notetmpl.SlotLookup, Lookup: "patient.name", TargetPath: "header.patientName"},
		}},
	}
	source := map[string]any{"patient": map[string]any{"name": "Jane"}}

	result := BuildNAS(layout, source, Default())
	if len(result.Warnings) != 0 {
		t.Fatalf("expected zero warnings, got %v", result.Warnings)
	}
	header, _ := result.Data["header"].(map[string]any)
	if header["patientName"] != "Jane" {
		t.Fatalf("expected header.patientName=Jane, got %v", result.Data)
	}
	if len(result.Resolved) != 1 {
		t.Fatalf("expected one resolved path, got %v", result.Resolved)
	}
}

func TestBuildNAS_ComputedDelta(t *testing.T) {
	layout := []notetmpl.Component{
		{ID: "assessments", Content: []notetmpl.ContentItem{
			{ID: "item-delta", Slot: notetmpl.SlotComputed,
				Formula:    "assessments.current.PHQ9 - assessments.previous.PHQ9",
				Format:     notetmpl.FormatDeltaScore,
				TargetPath: "assessments.phq9Delta"},
		}},
	}
	source := map[string]any{"assessments": map[string]any{
		"current":  map[string]any{"PHQ9": 9.0},
		"previous": map[string]any{"PHQ9": 15.0},
	}}

	result := BuildNAS(layout, source, Default())
	if len(result.Warnings) != 0 {
		t.Fatalf("expected zero warnings, got %v", result.Warnings)
	}
	assessments, _ := result.Data["assessments"].(map[string]any)
	if assessments["phq9Delta"] != "-6" {
		t.Fatalf("expected phq9Delta=-6, got %v", assessments["phq9Delta"])
	}
}

func TestBuildNAS_VerbatimWithTimeLocator(t *testing.T) {
	layout := []notetmpl.Component{
		{ID: "subjective", Content: []notetmpl.ContentItem{
			{ID: "item-quote", Slot: notetmpl.SlotVerbatim,
				VerbatimRef: "transcript:visit_123#t=40-55",
				TargetPath:  "subjective.quote"},
		}},
	}
	source := map[string]any{
		"transcript": map[string]any{
			"visit_123": map[string]any{
				"segments": []any{
					map[string]any{"timestamp": 10.0, "text": "how are you doing"},
					map[string]any{"timestamp": 42.0, "text": "feeling a lot better"},
					map[string]any{"timestamp": 90.0, "text": "anything else"},
				},
			},
		},
	}

	result := BuildNAS(layout, source, Default())
	if len(result.Warnings) != 0 {
		t.Fatalf("expected zero warnings, got %v", result.Warnings)
	}
	subjective, _ := result.Data["subjective"].(map[string]any)
	quote, _ := subjective["quote"].(map[string]any)
	if quote["text"] != "feeling a lot better" {
		t.Fatalf("expected quote text, got %v", quote)
	}
	if quote["ref"] != "transcript:visit_123#t=40-55" {
		t.Fatalf("expected echoed ref, got %v", quote["ref"])
	}
}

func TestBuildNAS_MissingLookup_EmitsMissingSourceWarning(t *testing.T) {
	layout := []notetmpl.Component{
		{ID: "header", Content: []notetmpl.ContentItem{
			{ID: "item-name", Slot: notetmpl.SlotLookup, Lookup: "patient.missing", TargetPath: "header.patientName"},
		}},
	}
	result := BuildNAS(layout, map[string]any{"patient": map[string]any{}}, Default())
	if len(result.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", result.Warnings)
	}
	if result.Warnings[0].Code != "missing_source" {
		t.Fatalf("expected missing_source code, got %v", result.Warnings[0].Code)
	}
	if len(result.UnresolvedSlots) != 1 || result.UnresolvedSlots[0] != "item-name" {
		t.Fatalf("expected item-name in unresolved slots, got %v", result.UnresolvedSlots)
	}
}

func TestBuildNAS_AIItems_Skipped(t *testing.T) {
	layout := []notetmpl.Component{
		{ID: "assessment", Content: []notetmpl.ContentItem{
			{ID: "item-ai", Slot: notetmpl.SlotAI, OutputPath: "assessment.summary"},
		}},
	}
	result := BuildNAS(layout, map[string]any{}, Default())
	if len(result.Warnings) != 0 || len(result.Data) != 0 || len(result.UnresolvedSlots) != 0 {
		t.Fatalf("expected ai items to be fully skipped, got %+v", result)
	}
}
