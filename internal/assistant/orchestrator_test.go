package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anisalabs/anisa-platform/internal/ai"
	"github.com/anisalabs/anisa-platform/internal/history"
)

func newOrchestrator(hist History, provider ai.Provider, media Uploads) *Orchestrator {
	return NewOrchestrator(hist, NewDispatcher(provider, media), nil)
}

func TestRespondMissingIdentity(t *testing.T) {
	hist := newFakeHistory()
	o := newOrchestrator(hist, &fakeProvider{}, &fakeMedia{})

	res := o.Respond(context.Background(), InboundMessage{Text: "hello"})
	assert.Equal(t, genericErrorText, res.Text)
	// Nothing persisted without an identity.
	assert.Empty(t, hist.all(""))
}

func TestRespondTextMessage(t *testing.T) {
	hist := newFakeHistory()
	provider := &fakeProvider{decision: ai.Decision{
		Text:  "Hello!",
		Usage: ai.Usage{InputTokens: 40, OutputTokens: 8, TotalTokens: 48},
	}}
	o := newOrchestrator(hist, provider, &fakeMedia{})

	res := o.Respond(context.Background(), InboundMessage{UserID: "user-1", Text: "hi"})
	require.Equal(t, ResultText, res.Kind)
	assert.Equal(t, "Hello!", res.Text)

	turns := hist.all("user-1")
	require.Len(t, turns, 2)
	assert.Equal(t, history.RoleUser, turns[0].Role)
	assert.Equal(t, "hi", turns[0].Content)
	assert.Equal(t, history.RoleAssistant, turns[1].Role)
	assert.Equal(t, "Hello!", turns[1].Content)
}

func TestRespondImageOnlyUpload(t *testing.T) {
	hist := newFakeHistory()
	provider := &fakeProvider{}
	o := newOrchestrator(hist, provider, &fakeMedia{})

	res := o.Respond(context.Background(), InboundMessage{
		UserID:   "user-1",
		Kind:     KindImage,
		MediaURL: "https://cdn.example.com/photo.jpg",
	})
	assert.True(t, res.Empty())
	// The image turn and a developer note are persisted; no AI call.
	turns := hist.all("user-1")
	require.Len(t, turns, 2)
	require.NotNil(t, turns[0].Media)
	assert.Equal(t, "https://cdn.example.com/photo.jpg", turns[0].Media.URL)
	assert.Equal(t, history.RoleDeveloper, turns[1].Role)
	assert.Equal(t, imageUploadedNote, turns[1].Content)
	assert.Zero(t, provider.decideCalls)
}

func TestRespondPersistsImageReply(t *testing.T) {
	hist := newFakeHistory()
	provider := &fakeProvider{
		decision:  toolCall("generate_image", `{"prompt":"a cat"}`),
		generated: ai.ImageResult{B64: "aW1n", Usage: ai.Usage{TotalTokens: 10}},
	}
	o := newOrchestrator(hist, provider, &fakeMedia{uploadedURL: "https://media.example.com/uploads/cat.jpg"})

	res := o.Respond(context.Background(), InboundMessage{UserID: "user-1", Text: "draw a cat"})
	require.Equal(t, ResultImage, res.Kind)

	turns := hist.all("user-1")
	require.Len(t, turns, 2)
	outbound := turns[1]
	assert.Equal(t, history.RoleAssistant, outbound.Role)
	assert.Equal(t, imageReplyText, outbound.Content)
	require.NotNil(t, outbound.Media)
	assert.Equal(t, "https://media.example.com/uploads/cat.jpg", outbound.Media.URL)
}

func TestRespondHistoryFailures(t *testing.T) {
	t.Run("inbound persist failure short-circuits", func(t *testing.T) {
		hist := newFakeHistory()
		hist.appendErr = errBoom
		provider := &fakeProvider{}
		o := newOrchestrator(hist, provider, &fakeMedia{})

		res := o.Respond(context.Background(), InboundMessage{UserID: "user-1", Text: "hi"})
		assert.Equal(t, genericErrorText, res.Text)
		assert.Zero(t, provider.decideCalls)
	})

	t.Run("recent load failure degrades after persisting inbound", func(t *testing.T) {
		hist := newFakeHistory()
		hist.recentErr = errBoom
		o := newOrchestrator(hist, &fakeProvider{}, &fakeMedia{})

		res := o.Respond(context.Background(), InboundMessage{UserID: "user-1", Text: "hi"})
		assert.Equal(t, genericErrorText, res.Text)
		// The inbound turn made it in before the failure.
		assert.Len(t, hist.all("user-1"), 1)
	})
}

func TestRespondUsesBoundedWindow(t *testing.T) {
	hist := newFakeHistory()
	for i := 0; i < 20; i++ {
		turn := history.NewTurn("user-1", history.RoleUser, "old message", "")
		require.NoError(t, hist.Append(context.Background(), "user-1", turn))
	}
	provider := &fakeProvider{decision: ai.Decision{Text: "ok"}}
	o := newOrchestrator(hist, provider, &fakeMedia{})

	o.Respond(context.Background(), InboundMessage{UserID: "user-1", Text: "latest"})
	assert.LessOrEqual(t, len(provider.lastWindow), maxContextMessages)
	assert.Equal(t, "latest", provider.lastWindow[len(provider.lastWindow)-1].Content)
}
