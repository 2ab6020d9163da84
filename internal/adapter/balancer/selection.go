package balancer

import (
	"math/rand/v2"
	"time"

	"github.com/thushan/olla4/internal/core/domain"
)

// epsilon floors an endpoint's weight in the cost computation so a zero- or
// near-zero-weight endpoint doesn't produce a division blow-up; spec.md §4.2
// additionally excludes zero-weight endpoints from selection outright.
const epsilon = 1e-9

// Select runs one round of power-of-two-choices over live, picking two
// distinct endpoints uniformly at random (or the sole endpoint when there is
// only one) and returning the cheaper of the two by domain.Endpoint.Cost,
// breaking ties by lower ConsecutiveFailures. It retries against a fresh pair
// up to failureLimit+1 times when the chosen endpoint is inside its
// failure-penalty window, per spec.md §4.2. Returns nil if no eligible
// endpoint exists after exhausting retries.
func Select(rng *rand.Rand, live []*domain.Endpoint, now time.Time, failureLimit int, failurePenalty time.Duration) *domain.Endpoint {
	if len(live) == 0 {
		return nil
	}

	attempts := failureLimit + 1
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		candidate := pickBest(rng, live)
		if candidate == nil {
			return nil
		}
		if candidate.Eligible(now, failureLimit, failurePenalty) {
			return candidate
		}
	}
	return nil
}

// pickBest chooses two distinct indices uniformly at random (the single
// candidate when len(live) == 1) and returns the lower-cost endpoint.
func pickBest(rng *rand.Rand, live []*domain.Endpoint) *domain.Endpoint {
	if len(live) == 1 {
		return live[0]
	}

	i := rng.IntN(len(live))
	j := rng.IntN(len(live) - 1)
	if j >= i {
		j++
	}

	a, b := live[i], live[j]
	return cheaper(a, b)
}

func cheaper(a, b *domain.Endpoint) *domain.Endpoint {
	costA, costB := a.Cost(epsilon), b.Cost(epsilon)
	if costA < costB {
		return a
	}
	if costB < costA {
		return b
	}
	if a.ConsecutiveFailures <= b.ConsecutiveFailures {
		return a
	}
	return b
}
