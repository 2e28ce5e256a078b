package ratelimit

import (
	"testing"

	"golang.org/x/time/rate"
)

func TestNewToolLimiters(t *testing.T) {
	limiters := NewToolLimiters()
	for _, tool := range []string{"compsig_validate", "compsig_results", "compsig_classify"} {
		if _, ok := limiters[tool]; !ok {
			t.Errorf("no limiter for %s", tool)
		}
	}
}

func TestCheckLimit_UnknownToolAllowed(t *testing.T) {
	limiters := ToolLimiters{}
	for i := 0; i < 100; i++ {
		if err := CheckLimit(limiters, "unknown"); err != nil {
			t.Fatalf("request %d: unexpected error %v", i, err)
		}
	}
}

func TestCheckLimit_ExceedsBurst(t *testing.T) {
	// Refill of one token per hour keeps the test independent of timing.
	limiters := ToolLimiters{"compsig_classify": rate.NewLimiter(rate.Limit(1.0/3600.0), 2)}

	for i := 0; i < 2; i++ {
		if err := CheckLimit(limiters, "compsig_classify"); err != nil {
			t.Fatalf("request %d within burst: %v", i+1, err)
		}
	}
	if err := CheckLimit(limiters, "compsig_classify"); err == nil {
		t.Error("third request should be rate limited")
	}
}

func TestCheckLimit_KeysIndependent(t *testing.T) {
	limiters := ToolLimiters{
		"a": rate.NewLimiter(rate.Limit(1.0/3600.0), 1),
		"b": rate.NewLimiter(rate.Limit(1.0/3600.0), 1),
	}
	if err := CheckLimit(limiters, "a"); err != nil {
		t.Fatal(err)
	}
	if err := CheckLimit(limiters, "a"); err == nil {
		t.Error("a should be exhausted")
	}
	if err := CheckLimit(limiters, "b"); err != nil {
		t.Errorf("b should be unaffected: %v", err)
	}
}
