package runlog

import (
	"testing"
	"time"

	"github.com/soochol/notegen/internal/diag"
	"github.com/soochol/notegen/internal/pipeline"
)

func TestFromOutput_Complete_SetsCompletedAt(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := pipeline.Output{
		State:    pipeline.StateComplete,
		Model:    "gpt-5-mini",
		Warnings: diag.List{{Stage: diag.StageMerge, Code: diag.CodeMergeConflict, Severity: diag.SeverityError}},
		Timing:   []pipeline.StageTiming{{Stage: diag.StageResolution, Duration: 5 * time.Millisecond}},
	}
	r := FromOutput("req-1", "soap-v1", "1.0.0", out, nil, created)
	if r.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set for a Complete run")
	}
	if !r.CompletedAt.After(created) {
		t.Fatalf("expected CompletedAt after CreatedAt, got %v vs %v", r.CompletedAt, created)
	}
	if len(r.Warnings) != 1 {
		t.Fatalf("expected warnings to carry through, got %+v", r.Warnings)
	}
}

func TestFromOutput_Failed_RecordsError(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := pipeline.Output{State: pipeline.StateFailed}
	r := FromOutput("req-2", "soap-v1", "1.0.0", out, &diag.PipelineError{Step: diag.StageMerge}, created)
	if r.Error == "" {
		t.Fatal("expected Error to be populated")
	}
	if r.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set for a Failed run too")
	}
}

func TestFromOutput_InProgress_LeavesCompletedAtNil(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := pipeline.Output{State: pipeline.StateNASResolved}
	r := FromOutput("req-3", "soap-v1", "1.0.0", out, nil, created)
	if r.CompletedAt != nil {
		t.Fatalf("expected nil CompletedAt for a non-terminal state, got %v", r.CompletedAt)
	}
}
