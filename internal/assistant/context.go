package assistant

import (
	"github.com/anisalabs/anisa-platform/internal/ai"
	"github.com/anisalabs/anisa-platform/internal/history"
)

const (
	maxContextMessages  = 8
	avgTokensPerMessage = 50
	maxContextTokens    = 8000
	maxContextImages    = 3
)

// Context is the compact prompt state handed to the dispatcher:
// a bounded role-tagged window plus the image URLs it references.
type Context struct {
	Window    []ai.Message
	ImageURLs []string
}

// BuildContext compresses stored turns into dispatcher input. It keeps
// the most recent maxContextMessages turns, shrinks further if the
// estimated token load exceeds the budget, and collects the most
// recent maxContextImages image references. Turns with empty text are
// left out of the window but still count toward truncation. Pure
// function of its input.
func BuildContext(turns []history.Turn) Context {
	kept := turns
	if len(kept) > maxContextMessages {
		kept = kept[len(kept)-maxContextMessages:]
	}
	if estimated := len(kept) * avgTokensPerMessage; estimated > maxContextTokens {
		budgeted := maxContextTokens / avgTokensPerMessage
		kept = kept[len(kept)-budgeted:]
	}

	window := make([]ai.Message, 0, len(kept))
	for _, turn := range kept {
		if turn.Content == "" {
			continue
		}
		window = append(window, ai.Message{Role: contextRole(turn.Role), Content: turn.Content})
	}

	var images []string
	for _, turn := range turns {
		if turn.Media != nil && turn.Media.Kind == history.MediaImage && turn.Media.URL != "" {
			images = append(images, turn.Media.URL)
		}
	}
	if len(images) > maxContextImages {
		images = images[len(images)-maxContextImages:]
	}

	return Context{Window: window, ImageURLs: images}
}

func contextRole(role string) string {
	switch role {
	case history.RoleAssistant:
		return ai.RoleAssistant
	case history.RoleDeveloper:
		return ai.RoleDeveloper
	default:
		return ai.RoleUser
	}
}
