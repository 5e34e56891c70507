package bandit

import (
	"fmt"
	"math"
	"sync"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"
)

// ArmState holds the sufficient statistics for one linear contextual
// bandit arm: a Cholesky factorization of the regularized design
// matrix A = lambda*I + sum(x x^T) and the response accumulator
// b = sum(reward * x). Both Thompson Sampling and LinUCB share this
// update rule; they differ only in how they score against it.
//
// Each arm owns its matrices exclusively. All accessors serialize on
// the arm's mutex, so concurrent updates to different arms never
// contend while same-arm updates are strictly ordered.
type ArmState struct {
	mu   sync.Mutex
	chol mat.Cholesky
	b    *mat.VecDense
	dim  int
	n    int
}

func newArmState(dim int, lambda float64) (*ArmState, error) {
	prior := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		prior.SetSym(i, i, lambda)
	}

	s := &ArmState{
		b:   mat.NewVecDense(dim, nil),
		dim: dim,
	}
	if ok := s.chol.Factorize(prior); !ok {
		return nil, fmt.Errorf("%w: prior precision is not positive definite", ErrNumerical)
	}
	return s, nil
}

// Dim returns the feature-vector dimensionality this arm was
// initialized with.
func (s *ArmState) Dim() int {
	return s.dim
}

// Observations returns how many (context, reward) pairs this arm has
// absorbed.
func (s *ArmState) Observations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// update folds one observation into the statistics. The Cholesky
// factor is refactorized through a rank-one update; on failure the
// state is left untouched.
func (s *ArmState) update(reward float64, features []float64) error {
	x := mat.NewVecDense(s.dim, features)

	s.mu.Lock()
	defer s.mu.Unlock()

	var updated mat.Cholesky
	if ok := updated.SymRankOne(&s.chol, 1, x); !ok {
		return fmt.Errorf("%w: rank-one update lost positive definiteness", ErrNumerical)
	}
	s.chol = updated
	s.b.AddScaledVec(s.b, reward, x)
	s.n++
	return nil
}

// MeanEstimate returns a copy of the ridge point estimate
// theta = A^-1 b.
func (s *ArmState) MeanEstimate() ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meanLocked()
}

func (s *ArmState) meanLocked() ([]float64, error) {
	theta := mat.NewVecDense(s.dim, nil)
	if err := s.chol.SolveVecTo(theta, s.b); err != nil {
		return nil, fmt.Errorf("%w: solving for posterior mean: %v", ErrNumerical, err)
	}
	out := make([]float64, s.dim)
	copy(out, theta.RawVector().Data)
	return out, nil
}

// Estimate returns the point estimate's value along features
// (theta^T x) together with the confidence radius sqrt(x^T A^-1 x),
// both read under a single lock acquisition so they describe one
// consistent snapshot of the arm.
func (s *ArmState) Estimate(features []float64) (value, radius float64, err error) {
	x := mat.NewVecDense(s.dim, features)

	s.mu.Lock()
	defer s.mu.Unlock()

	theta, err := s.meanLocked()
	if err != nil {
		return 0, 0, err
	}

	y := mat.NewVecDense(s.dim, nil)
	if err := s.chol.SolveVecTo(y, x); err != nil {
		return 0, 0, fmt.Errorf("%w: solving for confidence radius: %v", ErrNumerical, err)
	}
	q := vek.Dot(features, y.RawVector().Data)
	if q < 0 {
		q = 0
	}
	return vek.Dot(features, theta), math.Sqrt(q), nil
}

// SampledValue draws from the arm's belief: it scores features against
// theta_hat + scale * L^-T z, where L is the lower Cholesky factor of
// A and z is a standard-normal vector supplied by the caller. The
// solve stretches z along directions the arm has little evidence for,
// which is exactly the posterior shape Thompson Sampling needs.
func (s *ArmState) SampledValue(features, z []float64, scale float64) (float64, error) {
	if len(z) != s.dim {
		return 0, fmt.Errorf("%w: perturbation length %d, want %d", ErrDimensionMismatch, len(z), s.dim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	theta, err := s.meanLocked()
	if err != nil {
		return 0, err
	}

	var u mat.TriDense
	s.chol.UTo(&u)

	// A = L L^T with L = U^T, so L^-T z solves U w = z.
	w := mat.NewVecDense(s.dim, nil)
	if err := w.SolveVec(&u, mat.NewVecDense(s.dim, z)); err != nil {
		return 0, fmt.Errorf("%w: solving posterior perturbation: %v", ErrNumerical, err)
	}

	perturbed := w.RawVector().Data
	for i := range theta {
		theta[i] += scale * perturbed[i]
	}
	return vek.Dot(features, theta), nil
}
