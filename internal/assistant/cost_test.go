package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anisalabs/anisa-platform/internal/ai"
)

func TestEstimateCost(t *testing.T) {
	t.Run("zero usage costs nothing", func(t *testing.T) {
		assert.Zero(t, EstimateCost(ai.Usage{}))
	})

	t.Run("linear in both token kinds", func(t *testing.T) {
		usage := ai.Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
		assert.InDelta(t, 0.1+0.4, EstimateCost(usage), 1e-12)
	})

	t.Run("deterministic", func(t *testing.T) {
		usage := ai.Usage{InputTokens: 137, OutputTokens: 42}
		assert.Equal(t, EstimateCost(usage), EstimateCost(usage))
	})
}

func TestCostFor(t *testing.T) {
	usage := ai.Usage{InputTokens: 500, OutputTokens: 200, TotalTokens: 700}

	t.Run("chat and analysis are token metered", func(t *testing.T) {
		assert.Equal(t, EstimateCost(usage), CostFor(CapabilityChat, usage))
		assert.Equal(t, EstimateCost(usage), CostFor(CapabilityAnalyze, usage))
	})

	t.Run("search is flat per call", func(t *testing.T) {
		assert.Equal(t, webSearchCost, CostFor(CapabilitySearch, usage))
		assert.Equal(t, webSearchCost, CostFor(CapabilitySearch, ai.Usage{}))
	})

	t.Run("generation is flat per call", func(t *testing.T) {
		assert.Equal(t, imageGenerationCost, CostFor(CapabilityGenerate, usage))
	})

	t.Run("editing is metered at its own rate", func(t *testing.T) {
		assert.InDelta(t, 700*imageEditTokenPrice, CostFor(CapabilityEdit, usage), 1e-12)
	})
}
