package assistant

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anisalabs/anisa-platform/internal/ai"
	"github.com/anisalabs/anisa-platform/internal/history"
)

func turnsOf(n int) []history.Turn {
	turns := make([]history.Turn, 0, n)
	for i := 0; i < n; i++ {
		role := history.RoleUser
		if i%2 == 1 {
			role = history.RoleAssistant
		}
		turns = append(turns, history.NewTurn("user-1", role, fmt.Sprintf("message %d", i), ""))
	}
	return turns
}

func TestBuildContextIdentity(t *testing.T) {
	// Windows below the message cap come back unchanged.
	for n := 0; n <= maxContextMessages; n++ {
		ctx := BuildContext(turnsOf(n))
		require.Len(t, ctx.Window, n, "window of %d turns", n)
		for i, msg := range ctx.Window {
			assert.Equal(t, fmt.Sprintf("message %d", i), msg.Content)
		}
	}
}

func TestBuildContextTruncation(t *testing.T) {
	ctx := BuildContext(turnsOf(30))
	require.Len(t, ctx.Window, maxContextMessages)
	assert.Equal(t, "message 22", ctx.Window[0].Content)
	assert.Equal(t, "message 29", ctx.Window[len(ctx.Window)-1].Content)
	assert.LessOrEqual(t, len(ctx.Window)*avgTokensPerMessage, maxContextTokens)
}

func TestBuildContextEmptyTextCountsTowardTruncation(t *testing.T) {
	turns := turnsOf(maxContextMessages)
	turns[maxContextMessages-1].Content = ""
	// One extra turn pushes the oldest out even though a kept turn is
	// empty and absent from the prompt list.
	turns = append(turns, history.NewTurn("user-1", history.RoleUser, "latest", ""))

	ctx := BuildContext(turns)
	require.Len(t, ctx.Window, maxContextMessages-1)
	assert.Equal(t, "message 1", ctx.Window[0].Content)
	assert.Equal(t, "latest", ctx.Window[len(ctx.Window)-1].Content)
}

func TestBuildContextImageURLs(t *testing.T) {
	turns := []history.Turn{
		history.NewTurn("user-1", history.RoleUser, "first", "https://cdn.example.com/1.jpg"),
		history.NewTurn("user-1", history.RoleUser, "second", "https://cdn.example.com/2.jpg"),
		history.NewTurn("user-1", history.RoleUser, "third", "https://cdn.example.com/3.jpg"),
		history.NewTurn("user-1", history.RoleUser, "fourth", "https://cdn.example.com/4.jpg"),
	}

	ctx := BuildContext(turns)
	assert.Equal(t, []string{
		"https://cdn.example.com/2.jpg",
		"https://cdn.example.com/3.jpg",
		"https://cdn.example.com/4.jpg",
	}, ctx.ImageURLs)
}

func TestBuildContextRoles(t *testing.T) {
	turns := []history.Turn{
		history.NewTurn("user-1", history.RoleUser, "hello", ""),
		history.NewTurn("user-1", history.RoleDeveloper, "The user uploaded an image.", ""),
		history.NewTurn("user-1", history.RoleAssistant, "hi there", ""),
	}

	ctx := BuildContext(turns)
	require.Len(t, ctx.Window, 3)
	assert.Equal(t, ai.RoleUser, ctx.Window[0].Role)
	assert.Equal(t, ai.RoleDeveloper, ctx.Window[1].Role)
	assert.Equal(t, ai.RoleAssistant, ctx.Window[2].Role)
}

func TestBuildContextDeterministic(t *testing.T) {
	turns := turnsOf(12)
	first := BuildContext(turns)
	second := BuildContext(turns)
	assert.Equal(t, first, second)
}
