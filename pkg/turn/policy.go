package turn

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

// Policy decides what happens to a submission that arrives while a turn is in flight.
type Policy string

const (
	// PolicyQueue serializes turns in arrival order.
	PolicyQueue Policy = "queue"
	// PolicyReject drops submissions while busy.
	PolicyReject Policy = "reject"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyQueue:
		return PolicyQueue, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", errors.Errorf("unknown busy policy %q (want queue or reject)", s)
	}
}

// gate admits one turn at a time. semaphore.Weighted wakes waiters in FIFO
// order, which is what keeps queued turns in submission order.
type gate struct {
	policy Policy
	sem    *semaphore.Weighted
}

func newGate(p Policy) *gate {
	return &gate{policy: p, sem: semaphore.NewWeighted(1)}
}

// enter blocks (queue) or fails fast (reject). The returned func releases the slot.
func (g *gate) enter(ctx context.Context) (func(), error) {
	switch g.policy {
	case PolicyReject:
		if !g.sem.TryAcquire(1) {
			return nil, ErrTurnInFlight
		}
	default:
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return nil, errors.Wrap(err, "turn: gave up waiting for the previous turn")
		}
	}
	return func() { g.sem.Release(1) }, nil
}
