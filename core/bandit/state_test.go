package bandit

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"
)

func TestArmStateMatchesDirectSolve(t *testing.T) {
	const (
		dim    = 4
		lambda = 1.0
	)

	s, err := newArmState(dim, lambda)
	if err != nil {
		t.Fatalf("newArmState: %v", err)
	}

	// Accumulate the same observations into a dense A = lambda*I +
	// sum(x x^T) and b = sum(r*x), then compare the incremental
	// Cholesky state against a direct solve.
	rng := rand.New(rand.NewSource(42))
	direct := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		direct.Set(i, i, lambda)
	}
	b := make([]float64, dim)

	probe := []float64{0.5, -1.0, 0.25, 2.0}

	for k := 0; k < 25; k++ {
		x := make([]float64, dim)
		for i := range x {
			x[i] = rng.NormFloat64()
		}
		reward := rng.NormFloat64()

		if err := s.update(reward, x); err != nil {
			t.Fatalf("update %d: %v", k, err)
		}
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				direct.Set(i, j, direct.At(i, j)+x[i]*x[j])
			}
			b[i] += reward * x[i]
		}
	}

	t.Run("posterior mean agrees with dense solve", func(t *testing.T) {
		want := mat.NewVecDense(dim, nil)
		if err := want.SolveVec(direct, mat.NewVecDense(dim, b)); err != nil {
			t.Fatalf("dense solve: %v", err)
		}

		got, err := s.MeanEstimate()
		if err != nil {
			t.Fatalf("MeanEstimate: %v", err)
		}
		for i := 0; i < dim; i++ {
			if math.Abs(got[i]-want.AtVec(i)) > 1e-8 {
				t.Errorf("mean[%d] = %.12f, want %.12f", i, got[i], want.AtVec(i))
			}
		}
	})

	t.Run("confidence radius agrees with dense solve", func(t *testing.T) {
		y := mat.NewVecDense(dim, nil)
		if err := y.SolveVec(direct, mat.NewVecDense(dim, probe)); err != nil {
			t.Fatalf("dense solve: %v", err)
		}
		want := math.Sqrt(vek.Dot(probe, y.RawVector().Data))

		_, got, err := s.Estimate(probe)
		if err != nil {
			t.Fatalf("Estimate: %v", err)
		}
		if math.Abs(got-want) > 1e-8 {
			t.Errorf("radius = %.12f, want %.12f", got, want)
		}
	})

	t.Run("estimate value is mean dotted with probe", func(t *testing.T) {
		mean, err := s.MeanEstimate()
		if err != nil {
			t.Fatalf("MeanEstimate: %v", err)
		}
		want := vek.Dot(probe, mean)

		got, _, err := s.Estimate(probe)
		if err != nil {
			t.Fatalf("Estimate: %v", err)
		}
		if math.Abs(got-want) > 1e-10 {
			t.Errorf("value = %.12f, want %.12f", got, want)
		}
	})
}

func TestArmStateSampledValue(t *testing.T) {
	const dim = 3

	s, err := newArmState(dim, 1.0)
	if err != nil {
		t.Fatalf("newArmState: %v", err)
	}
	for k := 0; k < 10; k++ {
		x := []float64{1, float64(k % 2), 0.5}
		if err := s.update(1.0, x); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	probe := []float64{1, 0, 1}

	t.Run("zero scale reduces to point estimate", func(t *testing.T) {
		z := []float64{3.0, -2.0, 1.5}
		got, err := s.SampledValue(probe, z, 0)
		if err != nil {
			t.Fatalf("SampledValue: %v", err)
		}
		want, _, err := s.Estimate(probe)
		if err != nil {
			t.Fatalf("Estimate: %v", err)
		}
		if math.Abs(got-want) > 1e-10 {
			t.Errorf("sampled = %.12f, want point estimate %.12f", got, want)
		}
	})

	t.Run("zero perturbation reduces to point estimate", func(t *testing.T) {
		got, err := s.SampledValue(probe, make([]float64, dim), 0.3)
		if err != nil {
			t.Fatalf("SampledValue: %v", err)
		}
		want, _, err := s.Estimate(probe)
		if err != nil {
			t.Fatalf("Estimate: %v", err)
		}
		if math.Abs(got-want) > 1e-10 {
			t.Errorf("sampled = %.12f, want point estimate %.12f", got, want)
		}
	})

	t.Run("wrong perturbation length is rejected", func(t *testing.T) {
		_, err := s.SampledValue(probe, []float64{1, 2}, 0.3)
		if err == nil {
			t.Fatal("expected dimension error")
		}
	})
}

func TestArmStateConcurrentUpdates(t *testing.T) {
	const (
		dim          = 4
		observations = 40
		workers      = 8
	)

	rng := rand.New(rand.NewSource(123))
	contexts := make([][]float64, observations)
	rewards := make([]float64, observations)
	for k := range contexts {
		contexts[k] = make([]float64, dim)
		for i := range contexts[k] {
			contexts[k][i] = rng.NormFloat64()
		}
		rewards[k] = rng.NormFloat64()
	}

	threaded, err := newArmState(dim, 1.0)
	if err != nil {
		t.Fatalf("newArmState: %v", err)
	}

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range jobs {
				if err := threaded.update(rewards[k], contexts[k]); err != nil {
					t.Errorf("threaded update %d: %v", k, err)
				}
			}
		}()
	}
	for k := 0; k < observations; k++ {
		jobs <- k
	}
	close(jobs)
	wg.Wait()

	sequential, err := newArmState(dim, 1.0)
	if err != nil {
		t.Fatalf("newArmState: %v", err)
	}
	for k := 0; k < observations; k++ {
		if err := sequential.update(rewards[k], contexts[k]); err != nil {
			t.Fatalf("sequential update %d: %v", k, err)
		}
	}

	if threaded.Observations() != observations {
		t.Fatalf("threaded observations = %d, want %d", threaded.Observations(), observations)
	}

	// A and b are order-independent sums, so the posterior means must
	// agree up to floating-point reassociation.
	got, err := threaded.MeanEstimate()
	if err != nil {
		t.Fatalf("threaded MeanEstimate: %v", err)
	}
	want, err := sequential.MeanEstimate()
	if err != nil {
		t.Fatalf("sequential MeanEstimate: %v", err)
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-6 {
			t.Errorf("mean[%d] = %.9f, want %.9f", i, got[i], want[i])
		}
	}
}
