package assistant

import (
	"context"

	"github.com/anisalabs/anisa-platform/internal/ai"
	"github.com/anisalabs/anisa-platform/internal/history"
	"github.com/anisalabs/anisa-platform/pkg/logging"
)

const (
	genericErrorText  = "Something went wrong on my side. Please try again in a moment."
	imageUploadedNote = "The user uploaded an image."
	imageReplyText    = "Here is the image you asked for."
)

// History is the conversation-store collaborator. Recent returns turns
// oldest first.
type History interface {
	Append(ctx context.Context, userID string, turn history.Turn) error
	Recent(ctx context.Context, userID string, limit int) ([]history.Turn, error)
}

// Orchestrator drives one inbound message through context building,
// capability dispatch and history persistence. It always produces a
// Result; internal failures degrade to a generic error text.
type Orchestrator struct {
	history    History
	dispatcher *Dispatcher
	logger     *logging.Logger
}

// NewOrchestrator wires the engine's collaborators together.
func NewOrchestrator(hist History, dispatcher *Dispatcher, logger *logging.Logger) *Orchestrator {
	if hist == nil {
		panic("assistant: history cannot be nil")
	}
	if dispatcher == nil {
		panic("assistant: dispatcher cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{history: hist, dispatcher: dispatcher, logger: logger}
}

// Respond processes one normalized inbound message. The inbound turn
// is persisted before any AI call; a failure after that point still
// returns a generic error Result but does not record an outbound turn,
// keeping non-answers out of history. Redelivery re-runs the whole
// pipeline; a duplicated inbound turn is the accepted consequence of
// at-least-once intake.
func (o *Orchestrator) Respond(ctx context.Context, msg InboundMessage) Result {
	if msg.UserID == "" {
		o.logger.Error("inbound message without user identity", "message_id", msg.ID)
		return textResult(genericErrorText, CapabilityChat, ai.Usage{}, 0)
	}
	log := o.logger.WithUser(msg.UserID)

	imageURL := ""
	if msg.Kind == KindImage {
		imageURL = msg.MediaURL
	}
	inbound := history.NewTurn(msg.UserID, history.RoleUser, msg.Text, imageURL)
	if err := o.history.Append(ctx, msg.UserID, inbound); err != nil {
		log.Error("failed to persist inbound turn", "error", err)
		return textResult(genericErrorText, CapabilityChat, ai.Usage{}, 0)
	}
	if imageURL != "" {
		note := history.NewTurn(msg.UserID, history.RoleDeveloper, imageUploadedNote, "")
		if err := o.history.Append(ctx, msg.UserID, note); err != nil {
			log.Error("failed to persist image note", "error", err)
			return textResult(genericErrorText, CapabilityChat, ai.Usage{}, 0)
		}
	}

	// Image-only uploads are acknowledged silently; nothing to answer
	// until the user asks something.
	if msg.Text == "" {
		return Result{Kind: ResultText, Capability: CapabilityChat}
	}

	turns, err := o.history.Recent(ctx, msg.UserID, maxContextMessages)
	if err != nil {
		log.Error("failed to load recent turns", "error", err)
		return textResult(genericErrorText, CapabilityChat, ai.Usage{}, 0)
	}

	promptCtx := BuildContext(turns)
	result, err := o.dispatcher.Dispatch(ctx, promptCtx.Window, promptCtx.ImageURLs)
	if err != nil {
		log.Error("dispatch rejected window", "error", err)
		return textResult(genericErrorText, CapabilityChat, ai.Usage{}, 0)
	}

	outbound := o.outboundTurn(msg.UserID, result)
	if err := o.history.Append(ctx, msg.UserID, outbound); err != nil {
		// The reply is still delivered; history misses this answer.
		log.Error("failed to persist outbound turn", "error", err)
		return textResult(genericErrorText, CapabilityChat, ai.Usage{}, 0)
	}

	log.Info("responded",
		"capability", string(result.Capability),
		"kind", string(result.Kind),
		"tokens", result.Usage.TotalTokens,
		"cost", result.Cost)
	return result
}

func (o *Orchestrator) outboundTurn(userID string, result Result) history.Turn {
	content := result.Text
	imageURL := ""
	if result.Kind == ResultImage {
		content = imageReplyText
		imageURL = result.ImageURL
	}
	return history.NewTurn(userID, history.RoleAssistant, content, imageURL)
}
