package ai

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleDeveloper = "developer"
)

// Message is a role-tagged text message sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage carries the token accounting returned by the provider.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add merges another usage record into this one.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// Tool declares a capability the model may select during a decision call.
type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON schema object describing the tool arguments.
	Parameters map[string]any
}

// ToolCall is the model's request to invoke a declared tool.
type ToolCall struct {
	Name      string
	Arguments string
}

// Decision is the tagged outcome of a decision call: either the model
// answered directly (Call == nil, Text holds the reply) or it selected
// exactly one tool. When the model signals several calls, only the first
// is surfaced.
type Decision struct {
	Text  string
	Call  *ToolCall
	Usage Usage
}

// TextResult is a text answer plus its token accounting.
type TextResult struct {
	Text  string
	Usage Usage
}

// ImageResult is a generated image (base64-encoded bytes) plus usage.
type ImageResult struct {
	B64   string
	Usage Usage
}

// Provider is the generative-AI collaborator. Implementations must be
// safe for concurrent use; every method issues at most one network call
// chain and returns usage metadata for billing.
type Provider interface {
	// Decide sends the conversation window and capability declarations
	// to the model and returns either a direct reply or a tool selection.
	Decide(ctx context.Context, system string, window []Message, tools []Tool) (Decision, error)

	// GenerateImage creates one image from a text prompt.
	GenerateImage(ctx context.Context, prompt string) (ImageResult, error)

	// EditImage produces one image from an edit instruction and one or
	// more source images given as data URIs.
	EditImage(ctx context.Context, prompt string, images []string) (ImageResult, error)

	// Analyze answers a question about the referenced images.
	Analyze(ctx context.Context, prompt string, imageURLs []string) (TextResult, error)

	// WebSearch answers a query with web search enabled.
	WebSearch(ctx context.Context, query string) (TextResult, error)

	// Transcribe converts an audio recording to text.
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}
