package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anisalabs/anisa-platform/internal/ai"
)

func userWindow(texts ...string) []ai.Message {
	window := make([]ai.Message, 0, len(texts))
	for _, text := range texts {
		window = append(window, ai.Message{Role: ai.RoleUser, Content: text})
	}
	return window
}

func toolCall(name, args string) ai.Decision {
	return ai.Decision{
		Call:  &ai.ToolCall{Name: name, Arguments: args},
		Usage: ai.Usage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120},
	}
}

func TestDispatchPrecondition(t *testing.T) {
	d := NewDispatcher(&fakeProvider{}, &fakeMedia{})

	_, err := d.Dispatch(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoPrompt)

	_, err = d.Dispatch(context.Background(), []ai.Message{{Role: ai.RoleAssistant, Content: "hi"}}, nil)
	assert.ErrorIs(t, err, ErrNoPrompt)
}

func TestDispatchDirectReply(t *testing.T) {
	provider := &fakeProvider{decision: ai.Decision{
		Text:  "I'm doing great, thanks!",
		Usage: ai.Usage{InputTokens: 50, OutputTokens: 12, TotalTokens: 62},
	}}
	d := NewDispatcher(provider, &fakeMedia{})

	res, err := d.Dispatch(context.Background(), userWindow("hi how are you"), nil)
	require.NoError(t, err)
	assert.Equal(t, ResultText, res.Kind)
	assert.Equal(t, "I'm doing great, thanks!", res.Text)
	assert.Equal(t, CapabilityChat, res.Capability)
	assert.Equal(t, 62, res.Usage.TotalTokens)
	assert.InDelta(t, EstimateCost(res.Usage), res.Cost, 1e-12)
	assert.Len(t, provider.lastTools, 4)
}

func TestDispatchGenerateImage(t *testing.T) {
	provider := &fakeProvider{
		decision:  toolCall("generate_image", `{"prompt":"a cat"}`),
		generated: ai.ImageResult{B64: "aW1n", Usage: ai.Usage{TotalTokens: 10}},
	}
	media := &fakeMedia{uploadedURL: "https://media.example.com/uploads/cat.jpg"}
	d := NewDispatcher(provider, media)

	res, err := d.Dispatch(context.Background(), userWindow("draw a cat"), nil)
	require.NoError(t, err)
	assert.Equal(t, ResultImage, res.Kind)
	assert.Equal(t, "https://media.example.com/uploads/cat.jpg", res.ImageURL)
	assert.Equal(t, CapabilityGenerate, res.Capability)
	assert.Equal(t, imageGenerationCost, res.Cost)
	assert.Equal(t, 130, res.Usage.TotalTokens)
	assert.Equal(t, 1, media.uploads)
}

func TestDispatchEditWithoutSourceImage(t *testing.T) {
	provider := &fakeProvider{decision: toolCall("edit_image", `{"prompt":"remove the background"}`)}
	d := NewDispatcher(provider, &fakeMedia{})

	res, err := d.Dispatch(context.Background(), userWindow("remove the background"), nil)
	require.NoError(t, err)
	assert.Equal(t, ResultText, res.Kind)
	assert.Equal(t, capabilityFailureText, res.Text)
	// The decision tokens stay billed even though execution failed.
	assert.Equal(t, 120, res.Usage.TotalTokens)
}

func TestDispatchEdit(t *testing.T) {
	provider := &fakeProvider{
		decision: toolCall("edit_image", `{"prompt":"make it blue"}`),
		edited:   ai.ImageResult{B64: "aW1n", Usage: ai.Usage{TotalTokens: 80}},
	}
	media := &fakeMedia{uploadedURL: "https://media.example.com/uploads/blue.jpg"}
	d := NewDispatcher(provider, media)

	res, err := d.Dispatch(context.Background(), userWindow("make it blue"),
		[]string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"})
	require.NoError(t, err)
	assert.Equal(t, ResultImage, res.Kind)
	assert.Equal(t, CapabilityEdit, res.Capability)
	// Every candidate image is inlined and submitted.
	assert.Len(t, provider.editGot, 2)
	assert.InDelta(t, 200*imageEditTokenPrice, res.Cost, 1e-12)
}

func TestDispatchAnalyze(t *testing.T) {
	t.Run("with images", func(t *testing.T) {
		provider := &fakeProvider{
			decision: toolCall("analyze_image", `{"prompt":"what is this"}`),
			analysis: ai.TextResult{Text: "A sunflower.", Usage: ai.Usage{TotalTokens: 40}},
		}
		d := NewDispatcher(provider, &fakeMedia{})

		res, err := d.Dispatch(context.Background(), userWindow("what is this"),
			[]string{"https://cdn.example.com/1.jpg"})
		require.NoError(t, err)
		assert.Equal(t, "A sunflower.", res.Text)
		assert.Equal(t, CapabilityAnalyze, res.Capability)
	})

	t.Run("without images fails to apology", func(t *testing.T) {
		provider := &fakeProvider{decision: toolCall("analyze_image", `{"prompt":"what is this"}`)}
		d := NewDispatcher(provider, &fakeMedia{})

		res, err := d.Dispatch(context.Background(), userWindow("what is this"), nil)
		require.NoError(t, err)
		assert.Equal(t, capabilityFailureText, res.Text)
	})
}

func TestDispatchSearch(t *testing.T) {
	t.Run("success is flat rate", func(t *testing.T) {
		provider := &fakeProvider{
			decision:  toolCall("search_in_web", `{"query":"weather berlin"}`),
			searchRes: ai.TextResult{Text: "Sunny, 24C.", Usage: ai.Usage{TotalTokens: 90}},
		}
		d := NewDispatcher(provider, &fakeMedia{})

		res, err := d.Dispatch(context.Background(), userWindow("what's the weather in berlin"), nil)
		require.NoError(t, err)
		assert.Equal(t, "Sunny, 24C.", res.Text)
		assert.Equal(t, "weather berlin", provider.searchGot)
		assert.Equal(t, webSearchCost, res.Cost)
	})

	t.Run("transport failure degrades at zero cost", func(t *testing.T) {
		provider := &fakeProvider{
			decision:  toolCall("search_in_web", `{"query":"weather berlin"}`),
			searchErr: errBoom,
		}
		d := NewDispatcher(provider, &fakeMedia{})

		res, err := d.Dispatch(context.Background(), userWindow("what's the weather in berlin"), nil)
		require.NoError(t, err)
		assert.Equal(t, searchFallbackText, res.Text)
		assert.Zero(t, res.Cost)
	})
}

func TestDispatchUnknownCapability(t *testing.T) {
	provider := &fakeProvider{decision: toolCall("order_pizza", `{"size":"large"}`)}
	d := NewDispatcher(provider, &fakeMedia{})

	res, err := d.Dispatch(context.Background(), userWindow("order me a pizza"), nil)
	require.NoError(t, err)
	assert.Equal(t, unknownCapabilityText, res.Text)
	// Decision tokens are still billed.
	assert.Equal(t, 120, res.Usage.TotalTokens)
	assert.InDelta(t, EstimateCost(res.Usage), res.Cost, 1e-12)
}

func TestDispatchDebugShortCircuit(t *testing.T) {
	provider := &fakeProvider{
		decision:  toolCall("generate_image", `{"prompt":"a cat"}`),
		generated: ai.ImageResult{B64: "aW1n"},
	}
	media := &fakeMedia{uploadedURL: "https://media.example.com/uploads/cat.jpg"}
	d := NewDispatcher(provider, media, WithDebug(true))

	res, err := d.Dispatch(context.Background(), userWindow("draw a cat"), nil)
	require.NoError(t, err)
	assert.Equal(t, ResultText, res.Kind)
	assert.Contains(t, res.Text, "generate_image")
	// Debug reports the selection without executing it.
	assert.Zero(t, media.uploads)
	assert.Equal(t, 120, res.Usage.TotalTokens)
}

func TestDispatchNeverRaises(t *testing.T) {
	cases := map[string]*fakeProvider{
		"decision transport error": {decideErr: errBoom},
		"generation returns error": {
			decision:    toolCall("generate_image", `{"prompt":"a cat"}`),
			generateErr: errBoom,
		},
		"generation missing prompt": {decision: toolCall("generate_image", `{}`)},
		"malformed arguments":       {decision: toolCall("generate_image", `{not json`)},
	}
	for name, provider := range cases {
		t.Run(name, func(t *testing.T) {
			d := NewDispatcher(provider, &fakeMedia{uploadedURL: "https://media.example.com/x.jpg"})
			res, err := d.Dispatch(context.Background(), userWindow("draw a cat"), nil)
			require.NoError(t, err)
			assert.Equal(t, ResultText, res.Kind)
			assert.NotEmpty(t, res.Text)
		})
	}
}

func TestDispatchUploadFailurePreservesUsage(t *testing.T) {
	provider := &fakeProvider{
		decision:  toolCall("generate_image", `{"prompt":"a cat"}`),
		generated: ai.ImageResult{B64: "aW1n", Usage: ai.Usage{TotalTokens: 30}},
	}
	d := NewDispatcher(provider, &fakeMedia{uploadErr: errBoom})

	res, err := d.Dispatch(context.Background(), userWindow("draw a cat"), nil)
	require.NoError(t, err)
	assert.Equal(t, capabilityFailureText, res.Text)
	assert.Equal(t, 150, res.Usage.TotalTokens)
}
