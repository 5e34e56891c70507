package bandit

import "fmt"

// UCB scores arms with the LinUCB rule: the ridge point estimate plus
// an ellipsoidal confidence bonus, score = theta^T x + alpha *
// sqrt(x^T A^-1 x). Fully deterministic given the accumulated state.
type UCB struct {
	alpha float64
}

// NewUCB builds the policy. alpha weights the confidence bonus
// (DefaultUCBAlpha when in doubt); zero is valid and yields pure
// exploitation of the point estimate.
func NewUCB(alpha float64) (*UCB, error) {
	if alpha < 0 {
		return nil, fmt.Errorf("%w: exploration weight must be non-negative, got %v", ErrInvalidConfig, alpha)
	}
	return &UCB{alpha: alpha}, nil
}

// Name implements Policy.
func (p *UCB) Name() string {
	return "ucb"
}

// Score implements Policy.
func (p *UCB) Score(s *ArmState, features []float64) (float64, error) {
	value, radius, err := s.Estimate(features)
	if err != nil {
		return 0, err
	}
	return value + p.alpha*radius, nil
}
