package resilience

import (
	"errors"
	"testing"
	"time"
)

// newVendorGroup builds a two-backend group named like the extraction
// failover in production config: openai primary, anthropic fallback.
func newVendorGroup(cfg CircuitBreakerConfig) *FallbackGroup[string] {
	fg := NewFallbackGroup("openai", "openai", FallbackConfig{CircuitBreaker: cfg})
	fg.AddFallback("anthropic", "anthropic")
	return fg
}

func TestFallbackGroup_Execute(t *testing.T) {
	t.Run("healthy primary handles the call", func(t *testing.T) {
		fg := newVendorGroup(CircuitBreakerConfig{MaxFailures: 3})

		var served string
		err := fg.Execute(func(vendor string) error {
			served = vendor
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if served != "openai" {
			t.Fatalf("served by %q, want the primary", served)
		}
	})

	t.Run("primary failure falls through to the fallback", func(t *testing.T) {
		fg := newVendorGroup(CircuitBreakerConfig{MaxFailures: 3})

		var served string
		err := fg.Execute(func(vendor string) error {
			if vendor == "openai" {
				return errProviderDown
			}
			served = vendor
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if served != "anthropic" {
			t.Fatalf("served by %q, want the fallback", served)
		}
	})

	t.Run("all backends failing reports ErrAllFailed", func(t *testing.T) {
		fg := newVendorGroup(CircuitBreakerConfig{MaxFailures: 3})

		err := fg.Execute(func(string) error { return errProviderDown })
		if !errors.Is(err, ErrAllFailed) {
			t.Fatalf("err = %v, want ErrAllFailed", err)
		}
	})
}

func TestFallbackGroup_OpenBreakerSkipsPrimary(t *testing.T) {
	fg := newVendorGroup(CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})

	// Two failed extractions open the primary's breaker.
	for range 2 {
		_ = fg.Execute(func(vendor string) error {
			if vendor == "openai" {
				return errProviderDown
			}
			return nil
		})
	}

	// Subsequent calls must go straight to the fallback without poking the
	// broken primary.
	var primaryPoked bool
	var served string
	err := fg.Execute(func(vendor string) error {
		if vendor == "openai" {
			primaryPoked = true
		}
		served = vendor
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primaryPoked {
		t.Error("primary was called while its circuit was open")
	}
	if served != "anthropic" {
		t.Fatalf("served by %q, want the fallback", served)
	}
}

func TestExecuteWithResult(t *testing.T) {
	newGroup := func() *FallbackGroup[int] {
		fg := NewFallbackGroup(1, "primary", FallbackConfig{
			CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
		})
		fg.AddFallback("fallback", 2)
		return fg
	}

	t.Run("returns the primary's result", func(t *testing.T) {
		got, err := ExecuteWithResult(newGroup(), func(backend int) (string, error) {
			if backend == 1 {
				return "note from primary", nil
			}
			return "note from fallback", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "note from primary" {
			t.Fatalf("result = %q", got)
		}
	})

	t.Run("fails over and returns the fallback's result", func(t *testing.T) {
		got, err := ExecuteWithResult(newGroup(), func(backend int) (string, error) {
			if backend == 1 {
				return "", errProviderDown
			}
			return "note from fallback", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "note from fallback" {
			t.Fatalf("result = %q", got)
		}
	})

	t.Run("all backends failing reports ErrAllFailed", func(t *testing.T) {
		fg := NewFallbackGroup(1, "primary", FallbackConfig{
			CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
		})
		_, err := ExecuteWithResult(fg, func(int) (string, error) {
			return "", errProviderDown
		})
		if !errors.Is(err, ErrAllFailed) {
			t.Fatalf("err = %v, want ErrAllFailed", err)
		}
	})
}
