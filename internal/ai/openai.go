package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/anisalabs/anisa-platform/pkg/logging"
)

// OpenAIConfig controls the OpenAI-backed provider.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	ImageModel  string
	SearchModel string
	HTTPClient  *http.Client
	Logger      *logging.Logger
}

// OpenAIProvider implements Provider against the OpenAI API.
type OpenAIProvider struct {
	client      *openai.Client
	chatModel   string
	imageModel  string
	searchModel string
	logger      *logging.Logger
}

// NewOpenAIProvider creates a configured provider with sane defaults.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("ai: OpenAI API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else {
		clientCfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = "gpt-4.1-nano"
	}
	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = "gpt-image-1"
	}
	searchModel := cfg.SearchModel
	if searchModel == "" {
		searchModel = "gpt-4o-mini-search-preview"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		chatModel:   chatModel,
		imageModel:  imageModel,
		searchModel: searchModel,
		logger:      logger,
	}, nil
}

// Decide sends the window plus tool declarations and maps the response
// into the tagged Decision variant.
func (p *OpenAIProvider) Decide(ctx context.Context, system string, window []Message, tools []Tool) (Decision, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(window)+1)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range window {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    chatRole(msg.Role),
			Content: msg.Content,
		})
	}

	declared := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		declared = append(declared, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.chatModel,
		Messages: messages,
		Tools:    declared,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("ai: decision call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Decision{}, errors.New("ai: decision call returned no choices")
	}

	choice := resp.Choices[0].Message
	decision := Decision{
		Text:  choice.Content,
		Usage: usageFrom(resp.Usage),
	}
	if len(choice.ToolCalls) > 0 {
		// Multiple simultaneous calls are not supported; only the first
		// signaled capability is honored.
		first := choice.ToolCalls[0]
		decision.Call = &ToolCall{
			Name:      first.Function.Name,
			Arguments: first.Function.Arguments,
		}
	}
	return decision, nil
}

// GenerateImage creates exactly one image and returns its base64 bytes.
func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt string) (ImageResult, error) {
	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Model:          p.imageModel,
		Prompt:         "draw " + prompt,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return ImageResult{}, fmt.Errorf("ai: image generation failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return ImageResult{}, errors.New("ai: image generation returned no image")
	}
	return ImageResult{B64: resp.Data[0].B64JSON}, nil
}

// EditImage runs a two-step edit: a vision pass turns the source images
// and the edit instruction into a full target description, then the
// image model renders that description. The combined usage is returned.
func (p *OpenAIProvider) EditImage(ctx context.Context, prompt string, images []string) (ImageResult, error) {
	if len(images) == 0 {
		return ImageResult{}, errors.New("ai: image edit requires at least one source image")
	}

	parts := make([]openai.ChatMessagePart, 0, len(images)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: "edit " + prompt,
	})
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    img,
				Detail: openai.ImageURLDetailLow,
			},
		})
	}

	visionResp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You prepare image edits. Describe the edited result as a single complete image-generation prompt, preserving everything the instruction does not change.",
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
	})
	if err != nil {
		return ImageResult{}, fmt.Errorf("ai: image edit vision pass failed: %w", err)
	}
	if len(visionResp.Choices) == 0 || strings.TrimSpace(visionResp.Choices[0].Message.Content) == "" {
		return ImageResult{}, errors.New("ai: image edit produced no target description")
	}

	rendered, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Model:          p.imageModel,
		Prompt:         visionResp.Choices[0].Message.Content,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return ImageResult{}, fmt.Errorf("ai: image edit render failed: %w", err)
	}
	if len(rendered.Data) == 0 || rendered.Data[0].B64JSON == "" {
		return ImageResult{}, errors.New("ai: image edit returned no image")
	}

	return ImageResult{
		B64:   rendered.Data[0].B64JSON,
		Usage: usageFrom(visionResp.Usage),
	}, nil
}

// Analyze answers a question about the referenced images.
func (p *OpenAIProvider) Analyze(ctx context.Context, prompt string, imageURLs []string) (TextResult, error) {
	if len(imageURLs) == 0 {
		return TextResult{}, errors.New("ai: image analysis requires at least one image URL")
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "You are the best image analyzer and will help with the images provided",
		},
	}
	for _, url := range imageURLs {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    url,
						Detail: openai.ImageURLDetailLow,
					},
				},
			},
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.chatModel,
		Messages: messages,
	})
	if err != nil {
		return TextResult{}, fmt.Errorf("ai: image analysis failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return TextResult{}, errors.New("ai: image analysis returned no choices")
	}
	return TextResult{
		Text:  resp.Choices[0].Message.Content,
		Usage: usageFrom(resp.Usage),
	}, nil
}

// WebSearch answers a query with a search-enabled model.
func (p *OpenAIProvider) WebSearch(ctx context.Context, query string) (TextResult, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.searchModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: query,
			},
		},
	})
	if err != nil {
		return TextResult{}, fmt.Errorf("ai: web search failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return TextResult{}, errors.New("ai: web search returned no choices")
	}
	p.logger.Debug("web search completed", "total_tokens", resp.Usage.TotalTokens)
	return TextResult{
		Text:  resp.Choices[0].Message.Content,
		Usage: usageFrom(resp.Usage),
	}, nil
}

// Transcribe converts an audio recording to text via Whisper.
func (p *OpenAIProvider) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", fmt.Errorf("ai: transcription failed: %w", err)
	}
	return resp.Text, nil
}

func chatRole(role string) string {
	switch role {
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case RoleSystem, RoleDeveloper:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}

func usageFrom(u openai.Usage) Usage {
	return Usage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
}
