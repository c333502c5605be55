package assistant

import "github.com/anisalabs/anisa-platform/internal/ai"

// ResultKind distinguishes text answers from produced images.
type ResultKind string

const (
	ResultText  ResultKind = "text"
	ResultImage ResultKind = "image"
)

// Capability names the AI action that produced a result.
type Capability string

const (
	CapabilityChat     Capability = "chat"
	CapabilitySearch   Capability = "web_search"
	CapabilityGenerate Capability = "generate_image"
	CapabilityEdit     Capability = "edit_image"
	CapabilityAnalyze  Capability = "analyze_image"
)

// Result is the canonical orchestration output. Every capability
// handler normalizes to this shape; the reply sink consumes it as-is.
type Result struct {
	Kind       ResultKind `json:"kind"`
	Text       string     `json:"text,omitempty"`
	ImageURL   string     `json:"image_url,omitempty"`
	Capability Capability `json:"capability,omitempty"`
	Usage      ai.Usage   `json:"usage"`
	Cost       float64    `json:"cost"`
}

// Empty reports whether the result carries nothing to deliver, as for
// an image-only upload acknowledged without a reply.
func (r Result) Empty() bool {
	return r.Kind == ResultText && r.Text == "" && r.ImageURL == ""
}

func textResult(text string, cap Capability, usage ai.Usage, cost float64) Result {
	return Result{Kind: ResultText, Text: text, Capability: cap, Usage: usage, Cost: cost}
}

func imageResult(url string, cap Capability, usage ai.Usage, cost float64) Result {
	return Result{Kind: ResultImage, ImageURL: url, Capability: cap, Usage: usage, Cost: cost}
}
