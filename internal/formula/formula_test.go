package formula

import (
	"testing"

	"github.com/soochol/notegen/internal/notetmpl"
)

func TestEvaluate_AndFormat_DeltaScore(t *testing.T) {
	record := map[string]any{
		"assessments": map[string]any{
			"current":  map[string]any{"PHQ9": 9.0},
			"previous": map[string]any{"PHQ9": 15.0},
		},
	}
	result, err := Evaluate("assessments.current.PHQ9 - assessments.previous.PHQ9", record)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	formatted, err := Format(notetmpl.FormatDeltaScore, result)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if formatted != "-6" {
		t.Fatalf("expected -6, got %q", formatted)
	}
}

func TestEvaluate_MissingIdentifier_ReturnsFormulaError_NoPanic(t *testing.T) {
	record := map[string]any{"assessments": map[string]any{}}
	_, err := Evaluate("assessments.current.PHQ9 - assessments.previous.PHQ9", record)
	if err == nil {
		t.Fatal("expected formula_error for missing nested identifiers")
	}
	if _, ok := err.(*Error); !ok {
		t.Fatalf("expected *formula.Error, got %T", err)
	}
}

func TestEvaluate_FunctionCall_Rejected(t *testing.T) {
	record := map[string]any{"name": "Jane", "greet": func(s string) string { return "hi " + s }}
	_, err := Evaluate(`greet(name) != ""`, record)
	if err == nil {
		t.Fatal("expected function calls to be rejected")
	}
}

func TestEvaluate_BuiltinCall_Rejected(t *testing.T) {
	record := map[string]any{"items": []any{1, 2, 3}}
	_, err := Evaluate(`len(items) > 2`, record)
	if err == nil {
		t.Fatal("expected builtin calls to be rejected")
	}
}

func TestEvaluate_Comparison(t *testing.T) {
	record := map[string]any{"age": 42.0}
	result, err := Evaluate("age >= 18", record)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result != true {
		t.Fatalf("expected true, got %v", result)
	}
}

func TestFormat_Percent(t *testing.T) {
	formatted, err := Format(notetmpl.FormatPercent, 0.4256)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if formatted != "43%" {
		t.Fatalf("expected 43%%, got %q", formatted)
	}
}

func TestFormat_Plain_String(t *testing.T) {
	formatted, err := Format(notetmpl.FormatPlain, "hello")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if formatted != "hello" {
		t.Fatalf("expected hello, got %q", formatted)
	}
}
