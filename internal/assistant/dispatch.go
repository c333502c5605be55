package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anisalabs/anisa-platform/internal/ai"
	"github.com/anisalabs/anisa-platform/pkg/logging"
)

// ErrNoPrompt signals that the window contains no usable latest user
// text. Callers must not dispatch such windows; seeing this error
// means the orchestrator skipped its own short-circuit.
var ErrNoPrompt = errors.New("assistant: window has no user prompt")

const systemPrompt = `You are Anisa, a friendly personal assistant chatting with the user over a messaging app.
Answer concisely and helpfully in the user's language.
You can also search the web for current information, generate images from a description, edit images the user sent, and analyze images the user sent.
Use a tool only when the user's request actually needs it; otherwise just answer.`

const (
	unknownCapabilityText = "I'm sorry, I don't know how to handle that request yet."
	capabilityFailureText = "I encountered an issue processing your request. Please try rephrasing it."
	searchFallbackText    = "I couldn't reach the web right now. Please try your search again in a bit."
)

// Uploads is the media collaborator the dispatcher needs: publishing
// produced images and inlining source images for edits.
type Uploads interface {
	UploadImage(ctx context.Context, b64 string) (string, error)
	Fetch(ctx context.Context, url string) (string, error)
}

// Dispatcher decides between answering directly and invoking one of
// the four capabilities, and executes the chosen handler.
type Dispatcher struct {
	provider ai.Provider
	media    Uploads
	logger   *logging.Logger
	debug    bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDebug short-circuits tool execution: the dispatcher reports
// which capability would run instead of running it.
func WithDebug(debug bool) DispatcherOption {
	return func(d *Dispatcher) { d.debug = debug }
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(logger *logging.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher creates a dispatcher over the AI provider and media
// store.
func NewDispatcher(provider ai.Provider, media Uploads, opts ...DispatcherOption) *Dispatcher {
	if provider == nil {
		panic("assistant: provider cannot be nil")
	}
	if media == nil {
		panic("assistant: media store cannot be nil")
	}
	d := &Dispatcher{provider: provider, media: media, logger: logging.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func capabilityTools() []ai.Tool {
	return []ai.Tool{
		{
			Name:        "search_in_web",
			Description: "Search the web for current or factual information the assistant does not know.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "The search query."},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "generate_image",
			Description: "Generate a new image from a text description.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"prompt": map[string]any{"type": "string", "description": "Description of the image to generate."},
				},
				"required": []string{"prompt"},
			},
		},
		{
			Name:        "edit_image",
			Description: "Edit an image the user recently sent, following an instruction.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"prompt": map[string]any{"type": "string", "description": "The edit instruction."},
				},
				"required": []string{"prompt"},
			},
		},
		{
			Name:        "analyze_image",
			Description: "Answer a question about an image the user recently sent.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"prompt": map[string]any{"type": "string", "description": "The question about the image."},
				},
				"required": []string{"prompt"},
			},
		},
	}
}

// Dispatch runs the decision call and the selected capability. It
// fails only by returning a text result describing the problem; the
// sole error it returns is ErrNoPrompt, a caller precondition.
func (d *Dispatcher) Dispatch(ctx context.Context, window []ai.Message, imageURLs []string) (Result, error) {
	prompt := latestUserText(window)
	if prompt == "" {
		return Result{}, ErrNoPrompt
	}

	decision, err := d.provider.Decide(ctx, systemPrompt, window, capabilityTools())
	if err != nil {
		d.logger.Error("decision call failed", "error", err)
		return textResult(capabilityFailureText, CapabilityChat, ai.Usage{}, 0), nil
	}

	if decision.Call == nil {
		return textResult(decision.Text, CapabilityChat, decision.Usage, CostFor(CapabilityChat, decision.Usage)), nil
	}

	call := *decision.Call
	args := parseArguments(call.Arguments)

	if d.debug {
		text := fmt.Sprintf("Debug mode: would invoke %s with arguments %s.", call.Name, call.Arguments)
		return textResult(text, CapabilityChat, decision.Usage, CostFor(CapabilityChat, decision.Usage)), nil
	}

	var (
		res    Result
		usage  ai.Usage
		runErr error
	)
	switch call.Name {
	case "search_in_web":
		return d.runSearch(ctx, args, prompt, decision.Usage), nil
	case "generate_image":
		res, usage, runErr = d.runGenerate(ctx, args, decision.Usage)
	case "edit_image":
		res, usage, runErr = d.runEdit(ctx, args, imageURLs, decision.Usage)
	case "analyze_image":
		res, usage, runErr = d.runAnalyze(ctx, args, prompt, imageURLs, decision.Usage)
	default:
		d.logger.Warn("model selected unknown capability", "name", call.Name)
		return textResult(unknownCapabilityText, CapabilityChat, decision.Usage, CostFor(CapabilityChat, decision.Usage)), nil
	}
	if runErr != nil {
		// Execution failures become the generic apology; the tokens
		// already incurred stay on the books.
		d.logger.Error("capability execution failed", "capability", call.Name, "error", runErr)
		return textResult(capabilityFailureText, Capability(call.Name), usage, EstimateCost(usage)), nil
	}
	return res, nil
}

func (d *Dispatcher) runSearch(ctx context.Context, args map[string]string, prompt string, incurred ai.Usage) Result {
	query := args["query"]
	if query == "" {
		query = prompt
	}
	res, err := d.provider.WebSearch(ctx, query)
	if err != nil {
		// Search degrades gracefully at zero cost instead of failing.
		d.logger.Warn("web search failed", "error", err)
		return textResult(searchFallbackText, CapabilitySearch, incurred, 0)
	}
	usage := incurred.Add(res.Usage)
	return textResult(res.Text, CapabilitySearch, usage, CostFor(CapabilitySearch, usage))
}

func (d *Dispatcher) runGenerate(ctx context.Context, args map[string]string, incurred ai.Usage) (Result, ai.Usage, error) {
	prompt := args["prompt"]
	if prompt == "" {
		return Result{}, incurred, errors.New("assistant: generate_image called without a prompt")
	}
	img, err := d.provider.GenerateImage(ctx, prompt)
	if err != nil {
		return Result{}, incurred, err
	}
	usage := incurred.Add(img.Usage)
	url, err := d.media.UploadImage(ctx, img.B64)
	if err != nil {
		return Result{}, usage, err
	}
	return imageResult(url, CapabilityGenerate, usage, CostFor(CapabilityGenerate, usage)), usage, nil
}

func (d *Dispatcher) runEdit(ctx context.Context, args map[string]string, imageURLs []string, incurred ai.Usage) (Result, ai.Usage, error) {
	prompt := args["prompt"]
	if prompt == "" {
		return Result{}, incurred, errors.New("assistant: edit_image called without a prompt")
	}
	if len(imageURLs) == 0 {
		return Result{}, incurred, errors.New("assistant: edit_image called without a source image")
	}

	inlined := make([]string, 0, len(imageURLs))
	for _, url := range imageURLs {
		dataURI, err := d.media.Fetch(ctx, url)
		if err != nil {
			return Result{}, incurred, fmt.Errorf("assistant: failed to inline source image: %w", err)
		}
		inlined = append(inlined, dataURI)
	}

	img, err := d.provider.EditImage(ctx, prompt, inlined)
	if err != nil {
		return Result{}, incurred, err
	}
	usage := incurred.Add(img.Usage)
	url, err := d.media.UploadImage(ctx, img.B64)
	if err != nil {
		return Result{}, usage, err
	}
	return imageResult(url, CapabilityEdit, usage, CostFor(CapabilityEdit, usage)), usage, nil
}

func (d *Dispatcher) runAnalyze(ctx context.Context, args map[string]string, prompt string, imageURLs []string, incurred ai.Usage) (Result, ai.Usage, error) {
	if len(imageURLs) == 0 {
		return Result{}, incurred, errors.New("assistant: analyze_image called without a source image")
	}
	question := args["prompt"]
	if question == "" {
		question = prompt
	}
	res, err := d.provider.Analyze(ctx, question, imageURLs)
	if err != nil {
		return Result{}, incurred, err
	}
	usage := incurred.Add(res.Usage)
	return textResult(res.Text, CapabilityAnalyze, usage, CostFor(CapabilityAnalyze, usage)), usage, nil
}

func latestUserText(window []ai.Message) string {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].Role == ai.RoleUser && strings.TrimSpace(window[i].Content) != "" {
			return window[i].Content
		}
	}
	return ""
}

func parseArguments(raw string) map[string]string {
	args := map[string]string{}
	if raw == "" {
		return args
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return args
	}
	for key, value := range decoded {
		if s, ok := value.(string); ok {
			args[key] = s
		}
	}
	return args
}
