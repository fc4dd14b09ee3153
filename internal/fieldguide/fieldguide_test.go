package fieldguide

import (
	"testing"

	"github.com/soochol/notegen/internal/notetmpl"
)

func TestBuild_CoverageMatchesAIItemCount(t *testing.T) {
	layout := []notetmpl.Component{
		{ID: "assessment", Content: []notetmpl.ContentItem{
			{ID: "item-summary", Slot: notetmpl.SlotAI, OutputPath: "assessment.summary",
				AIDeps: []string{"header.patientName", "factPack.guidelineVersion"}},
			{ID: "item-other", Slot: notetmpl.SlotLookup, Lookup: "x", TargetPath: "y"},
		}},
		{ID: "plan", Content: []notetmpl.ContentItem{
			{ID: "item-plan", Slot: notetmpl.SlotAI, OutputPath: "plan.tasks[].description"},
		}},
	}

	entries := Build(layout)
	want := notetmpl.CountAIItems(layout)
	if len(entries) != want {
		t.Fatalf("expected %d entries, got %d", want, len(entries))
	}

	first := entries[0]
	if len(first.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %v", first.Dependencies)
	}
	if first.Dependencies[0].Source != DependencyNAS || first.Dependencies[0].Path != "header.patientName" {
		t.Fatalf("expected nas dependency, got %+v", first.Dependencies[0])
	}
	if first.Dependencies[1].Source != DependencyFactPack || first.Dependencies[1].Path != "guidelineVersion" {
		t.Fatalf("expected factPack dependency with prefix stripped, got %+v", first.Dependencies[1])
	}
}

func TestSlice_ProjectsOnlyDependencyPaths(t *testing.T) {
	entries := []Entry{
		{ItemID: "item-summary", Dependencies: []Dependency{
			{Path: "header.patientName", Source: DependencyNAS},
			{Path: "guidelineVersion", Source: DependencyFactPack},
		}},
	}
	nas := map[string]any{
		"header":  map[string]any{"patientName": "Jane", "dob": "1990-01-01"},
		"unrelated": "should not appear",
	}
	factPack := map[string]any{"guidelineVersion": "v3", "other": "ignored"}

	slices := Slice(entries, nas, factPack)
	header, _ := slices.NAS["header"].(map[string]any)
	if header["patientName"] != "Jane" {
		t.Fatalf("expected patientName projected, got %v", slices.NAS)
	}
	if _, ok := header["dob"]; ok {
		t.Fatal("expected dob not to be projected (not a dependency path)")
	}
	if _, ok := slices.NAS["unrelated"]; ok {
		t.Fatal("expected unrelated key not to be projected")
	}
	if slices.FactPack["guidelineVersion"] != "v3" {
		t.Fatalf("expected guidelineVersion projected, got %v", slices.FactPack)
	}
	if _, ok := slices.FactPack["other"]; ok {
		t.Fatal("expected non-dependency factPack key not to be projected")
	}
}

func TestSlice_WildcardPreservesWholeArray(t *testing.T) {
	entries := []Entry{
		{ItemID: "item-plan", Dependencies: []Dependency{
			{Path: "plan.tasks[]", Source: DependencyNAS},
		}},
	}
	nas := map[string]any{
		"plan": map[string]any{"tasks": []any{
			map[string]any{"description": "first"},
			map[string]any{"description": "second"},
		}},
	}
	slices := Slice(entries, nas, nil)
	tasks, ok := slices.NAS["plan"].(map[string]any)["tasks"].([]any)
	if !ok || len(tasks) != 2 {
		t.Fatalf("expected whole tasks array preserved, got %v", slices.NAS)
	}
}
