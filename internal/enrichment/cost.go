package enrichment

// Cost is the monetary and token accounting for a single language-model call.
// Stage costs are returned alongside every result and aggregated by the
// caller; there is no hidden process-wide accumulator.
type Cost struct {
	USD              float64
	PromptTokens     int
	CompletionTokens int
}

// Add returns the sum of two costs.
func (c Cost) Add(other Cost) Cost {
	return Cost{
		USD:              c.USD + other.USD,
		PromptTokens:     c.PromptTokens + other.PromptTokens,
		CompletionTokens: c.CompletionTokens + other.CompletionTokens,
	}
}

// PriceTable converts token usage into USD.
type PriceTable struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Price computes the cost of a call from its token counts.
func (p PriceTable) Price(promptTokens, completionTokens int) Cost {
	return Cost{
		USD: float64(promptTokens)/1_000_000*p.InputPerMTok +
			float64(completionTokens)/1_000_000*p.OutputPerMTok,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
	}
}
