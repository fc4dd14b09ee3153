package a2askill

import (
	"context"
	"fmt"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/go-chi/chi/v5"
)

// AgentCard builds a dynamic AgentCard reflecting the currently registered
// templates — one skill per template, same "Name"/"Description"/examples
// shape the teacher's workflow-per-skill card uses.
func (e *Executor) AgentCard(baseURL string) *a2a.AgentCard {
	templates := e.Templates.List()
	skills := make([]a2a.AgentSkill, 0, len(templates))
	for _, tmpl := range templates {
		example := fmt.Sprintf(`{"template": "%s", "sourceData": {}}`, tmpl.ID)
		skills = append(skills, a2a.AgentSkill{
			ID:          tmpl.ID,
			Name:        tmpl.ID,
			Description: fmt.Sprintf("Compile note template %q (version %s)", tmpl.ID, tmpl.Version),
			Tags:        []string{"note-template", "compile"},
			Examples:    []string{example},
		})
	}
	return &a2a.AgentCard{
		Name:               "notegen",
		Description:        "Note template compiler. Each skill compiles one registered template.",
		URL:                baseURL + "/a2a",
		Version:            "0.1.0",
		ProtocolVersion:    "0.2",
		DefaultInputModes:  []string{"application/json", "text/plain"},
		DefaultOutputModes: []string{"text/plain"},
		Capabilities:       a2a.AgentCapabilities{Streaming: true},
		Skills:             skills,
	}
}

// Mount registers the A2A JSON-RPC endpoint and well-known agent-card
// route on r.
func Mount(r chi.Router, executor *Executor, baseURL string) {
	reqHandler := a2asrv.NewHandler(executor)

	cardProducer := a2asrv.AgentCardProducerFn(func(ctx context.Context) (*a2a.AgentCard, error) {
		return executor.AgentCard(baseURL), nil
	})
	r.Handle(a2asrv.WellKnownAgentCardPath, a2asrv.NewAgentCardHandler(cardProducer))
	r.Handle("/a2a", a2asrv.NewJSONRPCHandler(reqHandler))
}
