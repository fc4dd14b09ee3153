package pathset

import (
	"testing"

	"github.com/soochol/notegen/internal/pathkey"
)

func TestSet_NestedPlainPath(t *testing.T) {
	root, conflicts := Set(nil, pathkey.MustParse("header.patientName"), "Jane")
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %v", conflicts)
	}
	header, _ := root["header"].(map[string]any)
	if header == nil || header["patientName"] != "Jane" {
		t.Fatalf("expected header.patientName=Jane, got %v", root)
	}
}

func TestSet_IndexedArrayGrowsSparsely(t *testing.T) {
	root, _ := Set(nil, pathkey.MustParse("plan.tasks[2].description"), "third")
	tasks, _ := root["plan"].(map[string]any)["tasks"].([]any)
	if len(tasks) != 3 {
		t.Fatalf("expected array length 3, got %d", len(tasks))
	}
	if tasks[0] != nil || tasks[1] != nil {
		t.Fatalf("expected holes at 0 and 1, got %v %v", tasks[0], tasks[1])
	}
	row, _ := tasks[2].(map[string]any)
	if row["description"] != "third" {
		t.Fatalf("expected description=third, got %v", row)
	}
}

func TestSet_WildcardAppends(t *testing.T) {
	root, _ := Set(nil, pathkey.MustParse("plan.tasks[].description"), "first")
	root, _ = Set(root, pathkey.MustParse("plan.tasks[].description"), "second")
	tasks, _ := root["plan"].(map[string]any)["tasks"].([]any)
	if len(tasks) != 2 {
		t.Fatalf("expected 2 rows from repeated wildcard writes, got %d", len(tasks))
	}
}

func TestSet_Idempotent(t *testing.T) {
	a, _ := Set(nil, pathkey.MustParse("x.y"), "v")
	b, _ := Set(a, pathkey.MustParse("x.y"), "v")
	if b["x"].(map[string]any)["y"] != "v" {
		t.Fatalf("expected idempotent primitive overwrite, got %v", b)
	}
}

func TestMergeValue_TypeMismatch_RecordsConflict(t *testing.T) {
	root, _ := Set(nil, pathkey.MustParse("patient"), map[string]any{"name": "Jane"})
	_, conflicts := Set(root, pathkey.MustParse("patient"), "a string")
	if len(conflicts) != 1 {
		t.Fatalf("expected one conflict, got %v", conflicts)
	}
	if conflicts[0].ExpectedType != "object" || conflicts[0].ActualType != "string" {
		t.Fatalf("unexpected conflict shape: %+v", conflicts[0])
	}
}

func TestMerge_AIPrecedenceOverNAS(t *testing.T) {
	nas := map[string]any{"patient": map[string]any{"name": "Jane"}, "visit": "v1"}
	ai := map[string]any{"patient": "string-value"}

	merged, conflicts := Merge(nas, ai)
	mergedObj := merged.(map[string]any)
	if mergedObj["patient"] != "string-value" {
		t.Fatalf("expected AI to win on patient, got %v", mergedObj["patient"])
	}
	if mergedObj["visit"] != "v1" {
		t.Fatalf("expected NAS-only key retained, got %v", mergedObj["visit"])
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected one merge conflict, got %v", conflicts)
	}
	if _, ok := nas["patient"].(map[string]any); !ok {
		t.Fatal("expected Merge not to mutate the original NAS base")
	}
}

func TestGet_PlainAndIndexed(t *testing.T) {
	root, _ := Set(nil, pathkey.MustParse("plan.tasks[1].description"), "second")
	v, ok := Get(root, pathkey.MustParse("plan.tasks[1].description"))
	if !ok || v != "second" {
		t.Fatalf("expected Get to find second, got %v ok=%v", v, ok)
	}
	_, ok = Get(root, pathkey.MustParse("plan.tasks[5].description"))
	if ok {
		t.Fatal("expected Get to miss an out-of-range index")
	}
}
