package assistant

import "github.com/anisalabs/anisa-platform/internal/ai"

// Pricing mirrors the provider's billing. Chat and analysis are
// token-metered; web search and image generation bill per call, image
// editing per token at its own rate.
const (
	inputTokenPrice  = 0.1 / 1_000_000
	outputTokenPrice = 0.4 / 1_000_000

	webSearchCost       = 0.01
	imageGenerationCost = 0.06
	imageEditTokenPrice = 0.000002
)

// EstimateCost converts token usage into a dollar estimate. Pure and
// deterministic; zero usage yields zero cost.
func EstimateCost(usage ai.Usage) float64 {
	return float64(usage.InputTokens)*inputTokenPrice + float64(usage.OutputTokens)*outputTokenPrice
}

// CostFor applies the capability-specific pricing rule to usage.
func CostFor(cap Capability, usage ai.Usage) float64 {
	switch cap {
	case CapabilitySearch:
		return webSearchCost
	case CapabilityGenerate:
		return imageGenerationCost
	case CapabilityEdit:
		return float64(usage.TotalTokens) * imageEditTokenPrice
	default:
		return EstimateCost(usage)
	}
}
