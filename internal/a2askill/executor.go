// Package a2askill exposes each registered note template as an A2A skill:
// sending an A2A message with a JSON payload ({"template": "soap-v1",
// "sourceData": {...}}) runs that template through the compiler pipeline
// and streams the merged payload back as an artifact.
package a2askill

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"

	"github.com/soochol/notegen/internal/notetmpl"
	"github.com/soochol/notegen/internal/pipeline"
)

// TemplateLister is satisfied by httpapi.TemplateStore; kept minimal so
// this package doesn't import httpapi.
type TemplateLister interface {
	Get(id string) (notetmpl.Template, bool)
	List() []notetmpl.Template
}

// Executor implements a2asrv.AgentExecutor, running one compile per A2A
// task. Unlike the teacher's upalA2AExecutor (which streams a workflow's
// own per-node events), a compile run has no sub-events to forward — it's
// one sequential pipeline.Run call — so Execute reports only Submitted
// (when the task is new), Working, an artifact with the merged payload,
// then Completed.
type Executor struct {
	Templates  TemplateLister
	Pipeline   *pipeline.Pipeline
	Generation pipeline.GenerationOptions
}

// compileRequest is the JSON shape expected in the A2A message's text part.
type compileRequest struct {
	Template   string         `json:"template"`
	SourceData map[string]any `json:"sourceData"`
	FactPack   map[string]any `json:"factPack"`
}

func (e *Executor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	req, tmpl, err := e.resolve(reqCtx.Message)
	if err != nil {
		return writeFailEvent(ctx, reqCtx, queue, err)
	}

	if reqCtx.StoredTask == nil {
		if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateSubmitted, nil)); err != nil {
			return fmt.Errorf("failed to write submitted: %w", err)
		}
	}
	if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, nil)); err != nil {
		return fmt.Errorf("failed to write working: %w", err)
	}

	out, runErr := e.Pipeline.Run(ctx, tmpl, req.SourceData, req.FactPack, pipeline.Options{Generation: e.Generation})
	if runErr != nil {
		return writeFailEvent(ctx, reqCtx, queue, runErr)
	}

	payloadJSON, err := json.Marshal(out.Payload)
	if err != nil {
		return writeFailEvent(ctx, reqCtx, queue, fmt.Errorf("marshal payload: %w", err))
	}
	artEvent := a2a.NewArtifactEvent(reqCtx, a2a.TextPart{Text: string(payloadJSON)})
	if err := queue.Write(ctx, artEvent); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	doneEvent := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCompleted, nil)
	doneEvent.Final = true
	if err := queue.Write(ctx, doneEvent); err != nil {
		return fmt.Errorf("failed to write completed: %w", err)
	}
	return nil
}

func (e *Executor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	event.Final = true
	return queue.Write(ctx, event)
}

func (e *Executor) resolve(msg *a2a.Message) (compileRequest, notetmpl.Template, error) {
	var req compileRequest
	if msg == nil || len(msg.Parts) == 0 {
		return req, notetmpl.Template{}, fmt.Errorf("empty message")
	}
	var text string
	for _, part := range msg.Parts {
		if tp, ok := part.(a2a.TextPart); ok {
			text = tp.Text
			break
		}
	}
	if text == "" {
		return req, notetmpl.Template{}, fmt.Errorf("no text content in message")
	}
	if err := json.Unmarshal([]byte(text), &req); err != nil || req.Template == "" {
		return req, notetmpl.Template{}, fmt.Errorf("expected JSON {\"template\": \"id\", \"sourceData\": {...}}")
	}
	tmpl, ok := e.Templates.Get(req.Template)
	if !ok {
		return req, notetmpl.Template{}, fmt.Errorf("template %q not found", req.Template)
	}
	return req, tmpl, nil
}

func writeFailEvent(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue, err error) error {
	msg := a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: err.Error()})
	event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateFailed, msg)
	event.Final = true
	if writeErr := queue.Write(ctx, event); writeErr != nil {
		return fmt.Errorf("failed to write failure event: %w (original: %v)", writeErr, err)
	}
	return nil
}
