package client

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubDoer struct {
	getErr    error
	deleteErr error
	gets      int
	deletes   int
}

func (s *stubDoer) GetJSON(ctx context.Context, url string, out any) error {
	s.gets++
	return s.getErr
}

func (s *stubDoer) Delete(ctx context.Context, url string) error {
	s.deletes++
	return s.deleteErr
}

func TestBreakerPassesThrough(t *testing.T) {
	stub := &stubDoer{}
	b := NewBreakerClient(stub)

	var out map[string]any
	if err := b.GetJSON(context.Background(), "https://api.example.com/x", &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if err := b.Delete(context.Background(), "https://api.example.com/x"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if stub.gets != 1 || stub.deletes != 1 {
		t.Errorf("gets = %d, deletes = %d, want 1 and 1", stub.gets, stub.deletes)
	}
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	stub := &stubDoer{getErr: ErrUnavailable}
	b := NewBreakerClient(stub)

	var out map[string]any
	for range 5 {
		err := b.GetJSON(context.Background(), "https://api.example.com/x", &out)
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	}

	// Sixth call fails fast without reaching the Doer
	before := stub.gets
	err := b.GetJSON(context.Background(), "https://api.example.com/x", &out)
	if err == nil || !strings.Contains(err.Error(), "circuit breaker open") {
		t.Fatalf("expected open-breaker error, got %v", err)
	}
	if stub.gets != before {
		t.Errorf("Doer called %d times after trip, want 0", stub.gets-before)
	}

	states := b.State()
	if states["api.example.com"] != "open" {
		t.Errorf("breaker state = %q, want open", states["api.example.com"])
	}
}

func TestBreakerIgnoresRegistryAnswers(t *testing.T) {
	stub := &stubDoer{deleteErr: ErrNotFound}
	b := NewBreakerClient(stub)

	// Not-found responses are registry answers, not outages: they must be
	// surfaced but never trip the breaker.
	for range 10 {
		err := b.Delete(context.Background(), "https://api.example.com/x")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}

	states := b.State()
	if states["api.example.com"] != "closed" {
		t.Errorf("breaker state = %q, want closed", states["api.example.com"])
	}
}

func TestBreakersArePerHost(t *testing.T) {
	stub := &stubDoer{getErr: ErrUnavailable}
	b := NewBreakerClient(stub)

	var out map[string]any
	for range 5 {
		_ = b.GetJSON(context.Background(), "https://down.example.com/x", &out)
	}

	stub.getErr = nil
	if err := b.GetJSON(context.Background(), "https://up.example.com/x", &out); err != nil {
		t.Errorf("healthy host affected by sibling breaker: %v", err)
	}
}

func TestHostOf(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "api URL",
			url:      "https://api.github.com/users/acme/packages",
			expected: "api.github.com",
		},
		{
			name:     "invalid URL",
			url:      "not-a-valid-url",
			expected: "not-a-valid-url",
		},
		{
			name:     "long invalid URL",
			url:      strings.Repeat("x", 80),
			expected: strings.Repeat("x", 50),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hostOf(tt.url)
			if got != tt.expected {
				t.Errorf("hostOf(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}
