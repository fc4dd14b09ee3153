// Package pipeline sequences the compiler's stages (C3–C13) into one
// cooperative, single-threaded run per request (C14).
package pipeline

import (
	"time"

	"github.com/soochol/notegen/internal/diag"
	"github.com/soochol/notegen/internal/llmadapter"
	"github.com/soochol/notegen/internal/promptc"
	"github.com/soochol/notegen/internal/schema"
)

// State names a point in the pipeline's state machine. Every run starts
// at StateStart and ends at either StateComplete or StateFailed.
type State string

const (
	StateStart           State = "Start"
	StateTemplateValidated State = "TemplateValidated"
	StateSchemasDerived  State = "SchemasDerived"
	StateNASResolved     State = "NASResolved"
	StatePromptComposed  State = "PromptComposed"
	StateAIRequested     State = "AIRequested"
	StateAIResponded     State = "AIResponded"
	StateMerged          State = "Merged"
	StateRendered        State = "Rendered"
	StateComplete        State = "Complete"
	StateFailed          State = "Failed"
)

// EventType names a lifecycle event the orchestrator publishes as each
// stage starts and finishes.
type EventType string

const (
	EventStageStarted   EventType = "stage.started"
	EventStageCompleted EventType = "stage.completed"
	EventStageFailed    EventType = "stage.failed"
)

// Event is one lifecycle notification.
type Event struct {
	RequestID string
	Stage     diag.Stage
	Type      EventType
	State     State
	Payload   any
	Timestamp time.Time
}

// EventHandler receives published Events in pipeline order.
type EventHandler func(Event)

// GuardMode decides how a stage's accumulated warnings gate progress.
type GuardMode string

const (
	GuardNone           GuardMode = ""
	GuardFailOnWarning  GuardMode = "failOnWarning"
	GuardFailOnSeverity GuardMode = "failOnSeverity"
)

// Guard configures one stage's strictness. When Mode is GuardFailOnSeverity,
// MinSeverity sets the floor (default diag.SeverityError) at which the
// orchestrator halts.
type Guard struct {
	Mode        GuardMode
	MinSeverity diag.Severity
}

// Guards configures the five warning-producing stages named in the spec's
// guard config: template lint, resolution, prompt lint, AI validation,
// merge.
type Guards struct {
	TemplateLint Guard
	Resolution   Guard
	PromptLint   Guard
	Validation   Guard
	Merge        Guard
}

// GenerationOptions forwards to the LLM adapter.
type GenerationOptions = llmadapter.GenerationOptions

// Options configures one Run.
type Options struct {
	RequestID          string
	Generation         GenerationOptions
	Guards             Guards
	MockGeneration      *MockGeneration
	CapturePromptMetadata bool
	Verbose            bool
	EventHandler       EventHandler
}

// MockGeneration substitutes a fixed AI payload for the LLM call, used by
// callers (and tests) that want to exercise the pipeline without a live
// model.
type MockGeneration struct {
	Output map[string]any
}

// Output is the pipeline's result.
type Output struct {
	AIOutput       map[string]any
	Payload        map[string]any
	NASSnapshot    map[string]any
	Schemas        Schemas
	Usage          llmadapter.Usage
	Model          string
	ResponseID     string
	PromptID       string
	AIResponseMocked bool
	Warnings       diag.List
	Timing         []StageTiming
	PromptBundle   *promptc.Bundle
	State          State
}

// Schemas bundles the three derived JSON Schemas.
type Schemas struct {
	AIS *schema.Node
	NAS *schema.Node
	RPS *schema.Node
}

// StageTiming records how long one stage took.
type StageTiming struct {
	Stage    diag.Stage
	Duration time.Duration
}
