package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soochol/notegen/internal/llmadapter"
	"github.com/soochol/notegen/internal/notetmpl"
	"github.com/soochol/notegen/internal/pipeline"
)

type emptySchemaTransport struct{}

func (emptySchemaTransport) Create(ctx context.Context, req llmadapter.Request) (*llmadapter.Response, error) {
	return &llmadapter.Response{Status: "completed", OutputText: "{}"}, nil
}

func sampleTemplate() notetmpl.Template {
	return notetmpl.Template{
		ID: "soap-v1", Version: "1.0.0",
		Prompt: &notetmpl.PromptSpec{System: "sys", Main: "main"},
		Layout: []notetmpl.Component{
			{ID: "header", Content: []notetmpl.ContentItem{
				{ID: "item-name", Slot: notetmpl.SlotLookup, Lookup: "patient.name", TargetPath: "header.patientName"},
			}},
		},
	}
}

func TestServer_CreateAndGetTemplate(t *testing.T) {
	s := NewServer(pipeline.New(nil), nil, pipeline.GenerationOptions{})
	h := s.Handler()

	body, _ := json.Marshal(sampleTemplate())
	req := httptest.NewRequest(http.MethodPost, "/v1/templates/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/templates/soap-v1", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
}

func TestServer_CompileTemplate_RoundTrip(t *testing.T) {
	s := NewServer(pipeline.New(llmadapter.NewClient(emptySchemaTransport{})), nil, pipeline.GenerationOptions{Model: "gpt-5-mini"})
	s.templates.Put(sampleTemplate())
	h := s.Handler()

	reqBody, _ := json.Marshal(CompileRequest{
		SourceData: map[string]any{"patient": map[string]any{"name": "Jane"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/templates/soap-v1/compile", bytes.NewReader(reqBody))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp CompileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.State != pipeline.StateComplete {
		t.Fatalf("expected state Complete, got %s", resp.State)
	}
}

func TestServer_GetTemplate_NotFound(t *testing.T) {
	s := NewServer(pipeline.New(nil), nil, pipeline.GenerationOptions{})
	h := s.Handler()
	req := httptest.NewRequest(http.MethodGet, "/v1/templates/missing", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
