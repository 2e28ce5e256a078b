// Package ratelimit provides per-tool rate limiting for MCP tools.
package ratelimit

import (
	"fmt"

	"golang.org/x/time/rate"
)

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*rate.Limiter

// NewToolLimiters creates the default set of per-tool rate limiters.
// Classification and results read artifacts and the index from disk, so
// they get tighter limits than validation.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"compsig_validate": rate.NewLimiter(rate.Limit(1.0), 10),       // 60/minute, burst 10
		"compsig_results":  rate.NewLimiter(rate.Limit(30.0/60.0), 5), // 30/minute, burst 5
		"compsig_classify": rate.NewLimiter(rate.Limit(30.0/60.0), 5), // 30/minute, burst 5
	}
}

// CheckLimit checks the rate limit for a given tool name.
// Returns nil if allowed, or an error if rate limited.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if !limiter.Allow() {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}
	return nil
}
