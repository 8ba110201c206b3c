package enrichment

import (
	"math"
	"testing"
)

func TestPriceTable(t *testing.T) {
	prices := PriceTable{InputPerMTok: 0.10, OutputPerMTok: 0.40}

	cost := prices.Price(1_000_000, 500_000)
	want := 0.10 + 0.20
	if math.Abs(cost.USD-want) > 1e-9 {
		t.Errorf("USD = %f, want %f", cost.USD, want)
	}
	if cost.PromptTokens != 1_000_000 || cost.CompletionTokens != 500_000 {
		t.Errorf("token counts not carried: %+v", cost)
	}

	zero := prices.Price(0, 0)
	if zero.USD != 0 {
		t.Errorf("zero usage should cost nothing, got %f", zero.USD)
	}
}

func TestCostAdd(t *testing.T) {
	a := Cost{USD: 0.001, PromptTokens: 10, CompletionTokens: 5}
	b := Cost{USD: 0.002, PromptTokens: 20, CompletionTokens: 15}

	sum := a.Add(b)
	if math.Abs(sum.USD-0.003) > 1e-9 {
		t.Errorf("USD = %f, want 0.003", sum.USD)
	}
	if sum.PromptTokens != 30 || sum.CompletionTokens != 20 {
		t.Errorf("tokens = %+v", sum)
	}
}
