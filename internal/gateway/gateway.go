package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Gateway represents the external settlement network used to pay out
// withdrawals to a bound payout address.
type Gateway interface {
	// SendPayout pushes micros to an external address and returns the
	// settlement network's reference for the payout.
	SendPayout(ctx context.Context, address string, amountMicros int64) (string, error)
}

// MockGateway simulates the settlement network for development and tests.
type MockGateway struct {
	// FailureRate is the probability of failure (0.0 to 1.0).
	FailureRate float64
	// Delay approximates network latency per call.
	Delay time.Duration
}

// NewMockGateway creates a MockGateway with a 10% failure rate and a small
// simulated latency.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		FailureRate: 0.1,
		Delay:       250 * time.Millisecond,
	}
}

func (g *MockGateway) SendPayout(ctx context.Context, address string, amountMicros int64) (string, error) {
	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return "", fmt.Errorf("gateway call canceled: %w", ctx.Err())
		}
	}

	if rand.Float64() < g.FailureRate {
		return "", fmt.Errorf("gateway temporarily unavailable")
	}

	ref := fmt.Sprintf("MOCK-%s-%05d", time.Now().Format("20060102-150405"), rand.Intn(100000))
	return ref, nil
}
