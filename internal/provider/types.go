// Package provider implements the rate/budget provider (spec §4.9): a
// `claude-provider` ancestor node establishes requests/min and tokens/min
// rate limits plus tokens/cost/time-window usage budgets enforced on every
// agent node executed within its subtree.
//
// Grounded on hector's pkg/ratelimit package: the Scope/LimitType/TimeWindow
// vocabulary, the fixed-window Store interface (GetUsage/IncrementUsage/
// SetUsage), and DefaultRateLimiter's Check/Record/CheckAndRecord shape are
// carried over near-verbatim and relabeled for Smithers's domain — scope
// becomes the claude-provider node's path, identifier becomes the model
// name, and a third LimitType (cost) is added for USD budget windows
// alongside hector's token/count pair.
package provider

import "time"

// LimitType names a tracked dimension. token and count mirror hector's
// pkg/ratelimit.LimitType; cost is new, tracking USD budget consumption in
// micro-dollars (1e-6 USD) so it fits the same int64 counter the token and
// count dimensions use.
type LimitType string

const (
	LimitTypeRequests LimitType = "requests"
	LimitTypeTokens   LimitType = "tokens"
	LimitTypeCost     LimitType = "cost"
)

// TimeWindow is a fixed rolling window a limit or budget resets on.
type TimeWindow string

const (
	WindowMinute TimeWindow = "minute"
	WindowHour   TimeWindow = "hour"
	WindowDay    TimeWindow = "day"
	WindowWeek   TimeWindow = "week"
	WindowMonth  TimeWindow = "month"
)

// Duration returns the wall-clock span of w, defaulting unknown strings to
// an hour (hector's pkg/ratelimit.TimeWindow.Duration does the same).
func (w TimeWindow) Duration() time.Duration {
	switch w {
	case WindowMinute:
		return time.Minute
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	case WindowWeek:
		return 7 * 24 * time.Hour
	case WindowMonth:
		return 30 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// costMicros converts a USD amount to the integer micro-dollar unit the
// cost dimension stores, matching money-as-integer practice so the Store
// interface never needs a float64 counter.
func costMicros(usd float64) int64 {
	return int64(usd * 1_000_000)
}

func microsToUSD(micros int64) float64 {
	return float64(micros) / 1_000_000
}

// LimitRule is one enforced dimension: a limit type, the window it resets
// on, and the maximum amount allowed within that window.
type LimitRule struct {
	Type   LimitType
	Window TimeWindow
	Limit  int64
}

// Usage reports current consumption for one LimitRule.
type Usage struct {
	Type      LimitType
	Window    TimeWindow
	Current   int64
	Limit     int64
	WindowEnd time.Time
}

// Exceeded reports whether current usage is at or past its limit.
func (u Usage) Exceeded() bool {
	return u.Current > u.Limit
}
