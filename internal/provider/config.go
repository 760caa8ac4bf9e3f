package provider

import "github.com/evmts/smithers/internal/node"

// ConfigFromNode reads a claude-provider node's props into a Config (spec
// §4.9). A nil node or one lacking any of these props degrades that
// dimension to unlimited (zero value), matching "when limits are removed
// (prop becomes undefined), effective limits revert to Infinity".
func ConfigFromNode(n *node.Node) Config {
	if n == nil {
		return Config{}
	}
	return Config{
		RequestsPerMinute: int64(n.PropInt("requestsPerMinute", 0)),
		TokensPerMinute:   int64(n.PropInt("tokensPerMinute", 0)),
		BudgetTokens:      int64(n.PropInt("budgetTokens", 0)),
		BudgetCostUSD:     n.PropFloat("budgetCostUSD", 0),
		BudgetWindow:      TimeWindow(n.PropString("budgetWindow", "")),
		QueueTimeoutMs:    int64(n.PropInt("queueTimeoutMs", 0)),
	}
}
