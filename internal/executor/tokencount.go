package executor

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/evmts/smithers/internal/scheduler"
)

// claude and claude-cli never get a provider-reported token count (spec
// §4.5 notes only claude-api parses Anthropic's own `usage` field), yet
// the rate/budget provider (component 11, spec §4.9) still needs
// something to debit against a model's token budget after each call.
// estimatedUsage fills that gap with a github.com/pkoukk/tiktoken-go
// encoding count, falling back further to a byte/4 heuristic when no
// encoding can be loaded (offline module cache, unknown runtime).
//
// Grounded on the expanded spec's explicit direction (SPEC_FULL.md §4.5):
// "falling back to the API's own reported usage afterward" generalized in
// the other direction here — tiktoken-go estimates fill in for the two
// executor variants that have no API usage field to report in the first
// place, rather than only backstopping claude-api's own parse failures.
var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	return enc
}

func countTokens(text string) int {
	if text == "" {
		return 0
	}
	if e := encoding(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

func estimatedUsage(model, promptText, responseText string) scheduler.Usage {
	input := countTokens(promptText)
	output := countTokens(responseText)
	return scheduler.Usage{
		InputTokens:  input,
		OutputTokens: output,
		CostUSD:      estimateCostUSD(model, input, output),
	}
}

// pricePerMillion is an approximate, illustrative USD-per-million-token
// rate table for budget estimation; real billing is reconciled out of
// band. Unknown models fall back to the Sonnet-tier rate.
var pricePerMillion = map[string][2]float64{
	"opus":   {15.00, 75.00},
	"sonnet": {3.00, 15.00},
	"haiku":  {0.80, 4.00},
}

func estimateCostUSD(model string, inputTokens, outputTokens int) float64 {
	rates := pricePerMillion["sonnet"]
	lower := strings.ToLower(model)
	for tier, r := range pricePerMillion {
		if strings.Contains(lower, tier) {
			rates = r
			break
		}
	}
	return float64(inputTokens)/1_000_000*rates[0] + float64(outputTokens)/1_000_000*rates[1]
}
