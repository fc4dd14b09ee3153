// Package promptc composes the two-message LLM prompt bundle and lints it
// against AIS, the field guide, and the context slices (C11).
package promptc

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/soochol/notegen/internal/diag"
	"github.com/soochol/notegen/internal/fieldguide"
	"github.com/soochol/notegen/internal/notetmpl"
	"github.com/soochol/notegen/internal/pathkey"
	"github.com/soochol/notegen/internal/pathset"
	"github.com/soochol/notegen/internal/schema"
)

// ResponseContract is the mandatory closing instruction the user message
// must carry; the message-role lint rule checks for its literal presence.
const ResponseContract = "Return a single JSON object that conforms to the provided JSON schema."

// Message is one prompt turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Bundle is the composer's output: everything the LLM adapter (C12) needs
// to make the call, plus everything a caller needs to audit it.
type Bundle struct {
	ID              string               `json:"id"`
	TemplateID      string               `json:"templateId"`
	TemplateVersion string               `json:"templateVersion"`
	Messages        []Message            `json:"messages"`
	JSONSchema      map[string]any       `json:"jsonSchema"`
	FieldGuide      []fieldguide.Entry   `json:"fieldGuide"`
	Context         fieldguide.Slices    `json:"context"`
}

// Compose builds the prompt bundle for tmpl given its AIS, field guide,
// and context slices, then lints the result.
func Compose(tmpl notetmpl.Template, ais *schema.Node, fg []fieldguide.Entry, ctx fieldguide.Slices, bundleID string) (Bundle, diag.List) {
	bundle := Bundle{
		ID:              bundleID,
		TemplateID:      tmpl.ID,
		TemplateVersion: tmpl.Version,
		JSONSchema:      ais.ToJSONSchema(),
		FieldGuide:      fg,
		Context:         ctx,
	}
	bundle.Messages = []Message{
		{Role: "system", Content: systemMessage(tmpl)},
		{Role: "user", Content: userMessage(tmpl, fg, ctx)},
	}

	lint := Lint(tmpl.Layout, ais, fg, ctx, bundle.Messages)
	return bundle, lint
}

func systemMessage(tmpl notetmpl.Template) string {
	var sb strings.Builder
	if tmpl.Prompt != nil && tmpl.Prompt.System != "" {
		sb.WriteString(tmpl.Prompt.System)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Respond with valid JSON only. Do not include commentary, markdown fences, or any text outside the JSON object. ")
	sb.WriteString("The field guide below is authoritative: follow every path, guidance note, and constraint it lists exactly.")
	return sb.String()
}

func userMessage(tmpl notetmpl.Template, fg []fieldguide.Entry, ctx fieldguide.Slices) string {
	var sb strings.Builder
	if tmpl.Prompt != nil && tmpl.Prompt.Main != "" {
		sb.WriteString(tmpl.Prompt.Main)
		sb.WriteString("\n\n")
	}
	for _, rule := range promptRules(tmpl) {
		sb.WriteString("- ")
		sb.WriteString(rule)
		sb.WriteString("\n")
	}

	sb.WriteString("\nContext (deterministic data already resolved; do not contradict it):\n")
	sb.WriteString(marshalDeterministic(ctx.NAS))
	sb.WriteString("\n")

	if len(ctx.FactPack) > 0 {
		sb.WriteString("\nFact pack:\n")
		sb.WriteString(marshalDeterministic(ctx.FactPack))
		sb.WriteString("\n")
	}

	sb.WriteString("\nField guide (one entry per value you must produce):\n")
	for _, entry := range fg {
		sb.WriteString(fieldGuideLine(entry))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(ResponseContract)
	return sb.String()
}

func promptRules(tmpl notetmpl.Template) []string {
	if tmpl.Prompt == nil {
		return nil
	}
	return tmpl.Prompt.Rules
}

func fieldGuideLine(e fieldguide.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- %s (path: %s)", e.ItemID, e.Path)
	for _, g := range e.Guidance {
		fmt.Fprintf(&sb, "; %s", g)
	}
	if e.Constraints != nil {
		if e.Constraints.Pattern != "" {
			fmt.Fprintf(&sb, "; pattern: %s", e.Constraints.Pattern)
		}
		if len(e.Constraints.Enum) > 0 {
			fmt.Fprintf(&sb, "; one of: %s", strings.Join(e.Constraints.Enum, ", "))
		}
	}
	deps := make([]string, 0, len(e.Dependencies))
	for _, d := range e.Dependencies {
		deps = append(deps, fmt.Sprintf("%s(%s)", d.Path, d.Source))
	}
	if len(deps) > 0 {
		fmt.Fprintf(&sb, "; depends on: %s", strings.Join(deps, ", "))
	}
	return sb.String()
}

// marshalDeterministic renders v with alphabetically-sorted object keys so
// byte-identical inputs always produce byte-identical prompt text
// (encoding/json already sorts map[string]any keys; this wrapper exists
// so that guarantee is documented at the call site, not assumed).
func marshalDeterministic(v any) string {
	if v == nil {
		v = map[string]any{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Lint runs the five-rule pass over a composed bundle and classifies
// findings into errors and warnings via their Severity.
func Lint(layout []notetmpl.Component, ais *schema.Node, fg []fieldguide.Entry, ctx fieldguide.Slices, messages []Message) diag.List {
	var out diag.List

	// Rule 1: coverage.
	want := notetmpl.CountAIItems(layout)
	if len(fg) != want {
		out = out.Add(diag.Warning{
			Stage: diag.StagePromptLint, Code: diag.CodeCoverage,
			Message:  fmt.Sprintf("field guide has %d entries, template has %d ai items", len(fg), want),
			Severity: diag.SeverityError,
		})
	}

	for _, entry := range fg {
		// Rule 2: path validity.
		path, err := pathkey.Parse(entry.Path)
		if err != nil || schema.Lookup(ais, path) == nil {
			out = out.Add(diag.Warning{
				Stage: diag.StagePromptLint, Code: diag.CodePathValidity,
				ItemID: entry.ItemID, Path: entry.Path,
				Message:  fmt.Sprintf("field guide path %q does not resolve in AIS", entry.Path),
				Severity: diag.SeverityError,
			})
		} else {
			// Rule 3: constraint harmony.
			checkConstraintHarmony(&out, entry, schema.Lookup(ais, path))
		}

		// Rule 4: dependencies resolvable.
		if len(entry.Dependencies) == 0 {
			out = out.Add(diag.Warning{
				Stage: diag.StagePromptLint, Code: diag.CodeMissingAIDeps,
				ItemID: entry.ItemID, Path: entry.Path,
				Message:  "ai item declares no aiDeps",
				Severity: diag.SeverityError,
			})
		}
		for _, dep := range entry.Dependencies {
			if !dependencyResolvable(dep, ctx) {
				out = out.Add(diag.Warning{
					Stage: diag.StagePromptLint, Code: diag.CodeDepNotInContext,
					ItemID: entry.ItemID, Path: dep.Path,
					Message:  fmt.Sprintf("dependency %q not present in %s context slice", dep.Path, dep.Source),
					Severity: diag.SeverityWarning,
				})
			}
		}
	}

	// Rule 5: message roles.
	if err := checkMessageRoles(messages); err != nil {
		out = out.Add(diag.Warning{
			Stage: diag.StagePromptLint, Code: diag.CodeMessageRoleOrder,
			Message:  err.Error(),
			Severity: diag.SeverityError,
		})
	}

	return out
}

func checkConstraintHarmony(out *diag.List, entry fieldguide.Entry, node *schema.Node) {
	if entry.Constraints == nil || node == nil || node.Kind != schema.KindLeaf {
		return
	}
	if entry.Constraints.Pattern != "" {
		if p, ok := node.Keywords["pattern"].(string); !ok || p != entry.Constraints.Pattern {
			*out = out.Add(diag.Warning{
				Stage: diag.StagePromptLint, Code: diag.CodeConstraintMismatch,
				ItemID: entry.ItemID, Path: entry.Path,
				Message:  "field guide pattern does not match the AIS node's pattern keyword",
				Severity: diag.SeverityWarning,
			})
		}
	}
	if len(entry.Constraints.Enum) > 0 {
		nodeEnum, _ := node.Keywords["enum"].([]string)
		if !sameStringSet(nodeEnum, entry.Constraints.Enum) {
			*out = out.Add(diag.Warning{
				Stage: diag.StagePromptLint, Code: diag.CodeConstraintMismatch,
				ItemID: entry.ItemID, Path: entry.Path,
				Message:  "field guide enum does not match the AIS node's enum keyword",
				Severity: diag.SeverityWarning,
			})
		}
	}
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string{}, a...)
	sb := append([]string{}, b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

func dependencyResolvable(dep fieldguide.Dependency, ctx fieldguide.Slices) bool {
	path, err := pathkey.Parse(dep.Path)
	if err != nil {
		return false
	}
	switch dep.Source {
	case fieldguide.DependencyFactPack:
		_, ok := pathset.Get(ctx.FactPack, path)
		return ok
	default:
		_, ok := pathset.Get(ctx.NAS, path)
		return ok
	}
}

func checkMessageRoles(messages []Message) error {
	if len(messages) < 2 {
		return fmt.Errorf("expected at least [system, user], got %d messages", len(messages))
	}
	if messages[0].Role != "system" {
		return fmt.Errorf("first message must have role %q, got %q", "system", messages[0].Role)
	}
	if messages[1].Role != "user" {
		return fmt.Errorf("second message must have role %q, got %q", "user", messages[1].Role)
	}
	if !strings.Contains(messages[1].Content, ResponseContract) {
		return fmt.Errorf("user message is missing the mandatory response contract sentence")
	}
	return nil
}
