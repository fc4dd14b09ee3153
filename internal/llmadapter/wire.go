package llmadapter

// Request is the Responses-API-shaped outgoing body. It is never the
// Chat Completions `messages`/`tool_calls` shape — the strict JSON-schema
// response contract requires the newer `text.format` envelope.
type Request struct {
	Model           string         `json:"model"`
	Input           []InputMessage `json:"input"`
	Text            TextFormat     `json:"text"`
	MaxOutputTokens int            `json:"max_output_tokens,omitempty"`
	Temperature     *float64       `json:"temperature,omitempty"`
}

type InputMessage struct {
	Role    string         `json:"role"`
	Content []InputContent `json:"content"`
}

type InputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type TextFormat struct {
	Format ResponseFormat `json:"format"`
}

type ResponseFormat struct {
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// Response is the incoming Responses-API shape. Fields are intentionally
// loose (any/omitempty) since different providers and mock stubs populate
// only a subset of the accepted shapes.
type Response struct {
	Status       string         `json:"status"`
	OutputText   string         `json:"output_text"`
	Output       []OutputItem   `json:"output"`
	IncompleteDetails *IncompleteDetails `json:"incomplete_details,omitempty"`
	Usage        *Usage         `json:"usage,omitempty"`
	Model        string         `json:"model,omitempty"`
	ID           string         `json:"id,omitempty"`
	PromptID     string         `json:"prompt_id,omitempty"`
}

type IncompleteDetails struct {
	Reason string `json:"reason"`
}

type OutputItem struct {
	Type    string          `json:"type,omitempty"`
	Text    string          `json:"text,omitempty"`
	Content []OutputContent `json:"content,omitempty"`
}

type OutputContent struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Refusal string `json:"refusal,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is C12's output shape.
type Result struct {
	Output     map[string]any
	Usage      Usage
	Model      string
	ResponseID string
	PromptID   string
	Warnings   []string
}
