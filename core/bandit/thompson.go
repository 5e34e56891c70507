package bandit

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// ThompsonSampling scores arms by drawing a weight vector from each
// arm's Gaussian posterior and taking its dot product with the query
// features. Draws are independent per arm per Select call.
type ThompsonSampling struct {
	alpha float64

	// rng is not safe for concurrent use; draws are serialized here
	// rather than under any arm's lock.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewThompsonSampling builds the policy. alpha is the exploration
// scale (DefaultThompsonAlpha when in doubt); alpha of zero is valid
// and degenerates to greedy selection on the posterior mean. A zero
// seed draws one from the clock; any other seed makes the draw
// sequence reproducible for tests.
func NewThompsonSampling(alpha float64, seed int64) (*ThompsonSampling, error) {
	if alpha < 0 {
		return nil, fmt.Errorf("%w: exploration scale must be non-negative, got %v", ErrInvalidConfig, alpha)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &ThompsonSampling{
		alpha: alpha,
		rng:   rand.New(rand.NewSource(seed)),
	}, nil
}

// Name implements Policy.
func (p *ThompsonSampling) Name() string {
	return "thompson"
}

// Score implements Policy. The standard-normal perturbation is drawn
// outside the arm's lock so the shared rng never nests inside per-arm
// critical sections.
func (p *ThompsonSampling) Score(s *ArmState, features []float64) (float64, error) {
	z := make([]float64, s.Dim())
	p.mu.Lock()
	for i := range z {
		z[i] = p.rng.NormFloat64()
	}
	p.mu.Unlock()

	return s.SampledValue(features, z, p.alpha)
}
