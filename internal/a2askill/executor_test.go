package a2askill

import (
	"testing"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/soochol/notegen/internal/notetmpl"
	"github.com/soochol/notegen/internal/pipeline"
)

func TestExecutor_Resolve_ValidJSON(t *testing.T) {
	e := &Executor{
		Templates: fakeLister{templates: []notetmpl.Template{{ID: "soap-v1", Version: "1.0.0"}}},
		Pipeline:  pipeline.New(nil),
	}
	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: `{"template":"soap-v1","sourceData":{"a":1}}`})
	req, tmpl, err := e.resolve(msg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tmpl.ID != "soap-v1" {
		t.Fatalf("expected resolved template soap-v1, got %q", tmpl.ID)
	}
	if req.SourceData["a"].(float64) != 1 {
		t.Fatalf("unexpected sourceData: %+v", req.SourceData)
	}
}

func TestExecutor_Resolve_UnknownTemplate(t *testing.T) {
	e := &Executor{Templates: fakeLister{}, Pipeline: pipeline.New(nil)}
	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: `{"template":"missing"}`})
	_, _, err := e.resolve(msg)
	if err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestExecutor_Resolve_EmptyMessage(t *testing.T) {
	e := &Executor{Templates: fakeLister{}, Pipeline: pipeline.New(nil)}
	_, _, err := e.resolve(a2a.NewMessage(a2a.MessageRoleUser))
	if err == nil {
		t.Fatal("expected error for empty message")
	}
}
