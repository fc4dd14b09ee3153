package schema

import (
	"testing"

	"github.com/soochol/notegen/internal/pathkey"
)

func TestAddProperty_SimpleNestedPath(t *testing.T) {
	root := NewObject()
	leaf := NewLeaf("string", map[string]any{"minLength": 1}, "item-1")
	if err := AddProperty(root, pathkey.MustParse("plan.summary"), leaf, "item-1", AddOptions{Required: true}); err != nil {
		t.Fatalf("AddProperty: %v", err)
	}

	plan := root.Properties["plan"]
	if plan == nil || plan.Kind != KindObject {
		t.Fatalf("expected plan to be an object node, got %+v", plan)
	}
	summary := plan.Properties["summary"]
	if summary == nil || summary.Kind != KindLeaf || summary.Type != "string" {
		t.Fatalf("expected summary leaf, got %+v", summary)
	}
	if len(plan.Required) != 1 || plan.Required[0] != "summary" {
		t.Fatalf("expected summary required, got %v", plan.Required)
	}
}

func TestAddProperty_IndexedArrayPath(t *testing.T) {
	root := NewObject()
	leaf0 := NewLeaf("string", nil, "item-1")
	leaf1 := NewLeaf("string", nil, "item-1")

	if err := AddProperty(root, pathkey.MustParse("plan.tasks[0].description"), leaf0, "item-1", AddOptions{}); err != nil {
		t.Fatalf("AddProperty[0]: %v", err)
	}
	if err := AddProperty(root, pathkey.MustParse("plan.tasks[1].description"), leaf1, "item-1", AddOptions{}); err != nil {
		t.Fatalf("AddProperty[1]: %v", err)
	}

	tasks := root.Properties["plan"].Properties["tasks"]
	if tasks == nil || tasks.Kind != KindArray {
		t.Fatalf("expected tasks to be an array node, got %+v", tasks)
	}
	desc := tasks.Items.Properties["description"]
	if desc == nil || desc.Kind != KindLeaf {
		t.Fatalf("expected description leaf under tasks.Items, got %+v", desc)
	}
}

func TestAddProperty_SameOwnerRepeatedRow_NoError(t *testing.T) {
	root := NewObject()
	for i := 0; i < 3; i++ {
		leaf := NewLeaf("string", nil, "item-1")
		path := pathkey.MustParse("plan.tasks[].description")
		if err := AddProperty(root, path, leaf, "item-1", AddOptions{}); err != nil {
			t.Fatalf("row %d: AddProperty: %v", i, err)
		}
	}
}

func TestAddProperty_DuplicatePath_IncompatibleTypes(t *testing.T) {
	root := NewObject()
	leafA := NewLeaf("string", nil, "item-1")
	leafB := NewLeaf("number", nil, "item-2")

	if err := AddProperty(root, pathkey.MustParse("plan.score"), leafA, "item-1", AddOptions{}); err != nil {
		t.Fatalf("first AddProperty: %v", err)
	}
	err := AddProperty(root, pathkey.MustParse("plan.score"), leafB, "item-2", AddOptions{})
	if err == nil {
		t.Fatal("expected DuplicatePathError, got nil")
	}
	dup, ok := err.(*DuplicatePathError)
	if !ok {
		t.Fatalf("expected *DuplicatePathError, got %T: %v", err, err)
	}
	if dup.FirstOwner != "item-1" || dup.SecondOwner != "item-2" {
		t.Fatalf("expected owners item-1/item-2, got %s/%s", dup.FirstOwner, dup.SecondOwner)
	}
}

// Two different owners targeting the same flat leaf path must always
// collide, even when both infer the same JSON type: a leaf position (no
// enclosing array) has exactly one occupant, so a second distinct owner
// is always the disallowed case, not a compatible overlap.
func TestAddProperty_DifferentOwners_SameLeafPath_DuplicateError(t *testing.T) {
	root := NewObject()
	leafA := NewLeaf("string", map[string]any{"maxLength": 80}, "item-1")
	leafB := NewLeaf("string", map[string]any{"maxLength": 120}, "item-2")

	if err := AddProperty(root, pathkey.MustParse("plan.summary"), leafA, "item-1", AddOptions{}); err != nil {
		t.Fatalf("first AddProperty: %v", err)
	}
	err := AddProperty(root, pathkey.MustParse("plan.summary"), leafB, "item-2", AddOptions{})
	if err == nil {
		t.Fatal("expected DuplicatePathError for a second owner at the same leaf path")
	}
	dup, ok := err.(*DuplicatePathError)
	if !ok {
		t.Fatalf("expected *DuplicatePathError, got %T: %v", err, err)
	}
	if dup.FirstOwner != "item-1" || dup.SecondOwner != "item-2" {
		t.Fatalf("expected owners item-1/item-2, got %s/%s", dup.FirstOwner, dup.SecondOwner)
	}
}

// The same owner writing the same leaf path twice with identical
// constraints (e.g. a listItems row repeated) still merges without error.
func TestAddProperty_SameOwner_SameLeafPath_Merges(t *testing.T) {
	root := NewObject()
	leafA := NewLeaf("string", map[string]any{"maxLength": 120}, "item-1")
	leafB := NewLeaf("string", map[string]any{"maxLength": 120}, "item-1")

	if err := AddProperty(root, pathkey.MustParse("plan.summary"), leafA, "item-1", AddOptions{}); err != nil {
		t.Fatalf("first AddProperty: %v", err)
	}
	if err := AddProperty(root, pathkey.MustParse("plan.summary"), leafB, "item-1", AddOptions{}); err != nil {
		t.Fatalf("expected same-owner overlap to be allowed, got error: %v", err)
	}

	summary := root.Properties["plan"].Properties["summary"]
	if !summary.Owners["item-1"] {
		t.Fatalf("expected item-1 recorded, got %v", summary.Owners)
	}
	if summary.Keywords["maxLength"] != 120 {
		t.Fatalf("expected keyword preserved, got %v", summary.Keywords)
	}
}

func TestMergeNodes_ObjectUnion(t *testing.T) {
	a := NewObject()
	a.Properties["x"] = NewLeaf("string", nil, "item-1")
	a.Required = []string{"x"}

	b := NewObject()
	b.Properties["y"] = NewLeaf("number", nil, "item-2")
	b.Required = []string{"y"}

	merged, err := MergeNodes(a, b)
	if err != nil {
		t.Fatalf("MergeNodes: %v", err)
	}
	if merged.Properties["x"] == nil || merged.Properties["y"] == nil {
		t.Fatalf("expected both properties present, got %+v", merged.Properties)
	}
	if len(merged.Required) != 2 {
		t.Fatalf("expected both required entries, got %v", merged.Required)
	}
}

func TestMergeNodes_IncompatibleKinds_Errors(t *testing.T) {
	a := NewObject()
	b := NewArray(NewObject())
	if _, err := MergeNodes(a, b); err == nil {
		t.Fatal("expected error merging object with array")
	}
}

func TestToJSONSchema_Shape(t *testing.T) {
	root := NewObject()
	leaf := NewLeaf("string", map[string]any{"minLength": 1}, "item-1")
	if err := AddProperty(root, pathkey.MustParse("plan.summary"), leaf, "item-1", AddOptions{Required: true}); err != nil {
		t.Fatalf("AddProperty: %v", err)
	}
	out := root.ToJSONSchema()
	if out["type"] != "object" {
		t.Fatalf("expected top-level object type, got %v", out["type"])
	}
	props, ok := out["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties map, got %T", out["properties"])
	}
	planSchema, ok := props["plan"].(map[string]any)
	if !ok {
		t.Fatalf("expected plan schema map, got %T", props["plan"])
	}
	if planSchema["required"].([]string)[0] != "summary" {
		t.Fatalf("expected summary required under plan, got %v", planSchema["required"])
	}
}

func TestLookup_ThroughArrayAndObject(t *testing.T) {
	root := NewObject()
	leaf := NewLeaf("string", nil, "item-1")
	if err := AddProperty(root, pathkey.MustParse("plan.tasks[].description"), leaf, "item-1", AddOptions{}); err != nil {
		t.Fatalf("AddProperty: %v", err)
	}
	found := Lookup(root, pathkey.MustParse("plan.tasks[].description"))
	if found == nil || found.Kind != KindLeaf {
		t.Fatalf("expected to find leaf via Lookup, got %+v", found)
	}
	if Lookup(root, pathkey.MustParse("plan.tasks[].missing")) != nil {
		t.Fatal("expected nil lookup for unknown path")
	}
}
