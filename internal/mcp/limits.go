package mcp

import (
	"fmt"

	"golang.org/x/time/rate"
)

// toolLimiters maps tool names to their token buckets.
type toolLimiters map[string]*rate.Limiter

// newToolLimiters creates the default per-tool limits. Comparisons run many
// trials, so they get the tightest bucket.
func newToolLimiters() toolLimiters {
	return toolLimiters{
		toolRun:     rate.NewLimiter(rate.Limit(1.0), 10),      // 60/minute, burst 10
		toolCompare: rate.NewLimiter(rate.Limit(10.0/60.0), 3), // 10/minute, burst 3
		toolHistory: rate.NewLimiter(rate.Limit(1.0), 10),      // 60/minute, burst 10
	}
}

// checkLimit returns an error if the tool's bucket is empty. Tools without a
// limiter are unlimited.
func (l toolLimiters) checkLimit(toolName string) error {
	limiter, ok := l[toolName]
	if !ok {
		return nil
	}
	if !limiter.Allow() {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}
	return nil
}
