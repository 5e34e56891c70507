// Package bandit implements a concurrency-safe contextual
// multi-armed bandit engine. A Registry owns a set of arms, each
// pairing an opaque payload with private linear-model statistics, and
// exposes the add/select/observe protocol: register arms once, then
// each turn feed back the previous decision's reward via Observe and
// ask Select which arm should handle the current context.
//
// Selection policies (Thompson Sampling, LinUCB) are pluggable behind
// the Policy interface; both maintain the same ridge sufficient
// statistics and differ only in scoring.
package bandit

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"
)

// Policy is the scoring capability a Registry is generic over. New
// policies are added by implementing this interface. Score must be
// safe for concurrent calls across arms.
type Policy interface {
	Name() string
	Score(s *ArmState, features []float64) (float64, error)
}

// Arm pairs a unique id with the caller's opaque payload and the
// arm's private statistics. The id is assigned at registration and
// never changes; the engine never inspects Body.
type Arm struct {
	ID    int64
	Body  any
	state *ArmState
}

// State exposes the arm's statistics for read-only introspection.
func (a *Arm) State() *ArmState {
	return a.state
}

// ArmStats is a point-in-time summary of one arm's statistics.
type ArmStats struct {
	ArmID        int64
	Observations int
	Mean         []float64
}

// Registry orchestrates arm registration, selection, and statistic
// updates. It is safe for use from multiple goroutines: the arm set
// is a copy-on-write snapshot guarded by an RWMutex, so Select
// iterates a consistent view without blocking Add, and each arm's
// statistics carry their own lock so observes to different arms never
// contend.
type Registry struct {
	id     string
	cfg    Config
	policy Policy
	logger *slog.Logger

	mu   sync.RWMutex
	arms []*Arm
}

// New constructs a Registry for the given policy and configuration.
// A nil logger discards all log output.
func New(policy Policy, cfg Config, logger *slog.Logger) (*Registry, error) {
	if policy == nil {
		return nil, fmt.Errorf("%w: policy must not be nil", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	id := uuid.New().String()
	return &Registry{
		id:     id,
		cfg:    cfg,
		policy: policy,
		logger: logger.With("component", "bandit.registry", "registry_id", id, "policy", policy.Name()),
	}, nil
}

// ID returns the registry's unique instance identifier, the same one
// attached to its log records.
func (r *Registry) ID() string {
	return r.id
}

// ContextLength returns the fixed feature-vector dimensionality, so
// callers and context extractors can agree on it up front.
func (r *Registry) ContextLength() int {
	return r.cfg.ContextLength
}

// Add registers a new arm with freshly initialized statistics and
// returns it. Arm ids increase monotonically from zero. Registered
// arms are never removed.
func (r *Registry) Add(body any) (*Arm, error) {
	if body == nil {
		return nil, fmt.Errorf("%w: arm body must not be nil", ErrInvalidConfig)
	}

	state, err := newArmState(r.cfg.ContextLength, r.cfg.Lambda)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	arm := &Arm{
		ID:    int64(len(r.arms)),
		Body:  body,
		state: state,
	}
	next := make([]*Arm, len(r.arms)+1)
	copy(next, r.arms)
	next[len(r.arms)] = arm
	r.arms = next
	r.mu.Unlock()

	r.logger.Debug("registered arm", "arm", arm.ID)
	return arm, nil
}

// Select scores every registered arm against features using the
// policy and returns the arm with the maximum score. Ties break
// toward the lowest id so behavior is reproducible under test.
// Model state is not mutated; a Thompson policy's random draws are
// not persisted.
func (r *Registry) Select(features []float64) (*Arm, error) {
	if err := r.validateFeatures(features); err != nil {
		return nil, err
	}

	arms := r.snapshot()
	if len(arms) == 0 {
		return nil, ErrEmptyRegistry
	}

	var best *Arm
	bestScore := math.Inf(-1)
	for _, arm := range arms {
		score, err := r.policy.Score(arm.state, features)
		if err != nil {
			return nil, fmt.Errorf("scoring arm %d: %w", arm.ID, err)
		}
		if best == nil || score > bestScore {
			best = arm
			bestScore = score
		}
	}
	return best, nil
}

// Observe folds a (features, reward) observation into the identified
// arm's statistics. Validation happens before any mutation, so a
// failed Observe leaves the arm exactly as it was.
func (r *Registry) Observe(armID int64, reward float64, features []float64) error {
	if err := r.validateFeatures(features); err != nil {
		return err
	}
	if math.IsNaN(reward) || math.IsInf(reward, 0) {
		return fmt.Errorf("%w: reward is %v", ErrNonFinite, reward)
	}

	arm := r.lookup(armID)
	if arm == nil {
		return fmt.Errorf("%w: %d", ErrUnknownArm, armID)
	}

	reward = r.cfg.clipReward(reward)
	if err := arm.state.update(reward, features); err != nil {
		r.logger.Warn("rejected observation", "arm", armID, "error", err)
		return err
	}

	r.logger.Debug("observed reward", "arm", armID, "reward", reward)
	return nil
}

// Len returns the number of registered arms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.arms)
}

// Arms returns a snapshot of the registered arms in id order.
func (r *Registry) Arms() []*Arm {
	arms := r.snapshot()
	out := make([]*Arm, len(arms))
	copy(out, arms)
	return out
}

// ArmStats summarizes one arm's accumulated statistics.
func (r *Registry) ArmStats(armID int64) (ArmStats, error) {
	arm := r.lookup(armID)
	if arm == nil {
		return ArmStats{}, fmt.Errorf("%w: %d", ErrUnknownArm, armID)
	}

	mean, err := arm.state.MeanEstimate()
	if err != nil {
		return ArmStats{}, err
	}
	return ArmStats{
		ArmID:        arm.ID,
		Observations: arm.state.Observations(),
		Mean:         mean,
	}, nil
}

// ConfidenceRadius reports sqrt(x^T A^-1 x) for the identified arm
// along a probe direction. Repeated observations along that direction
// strictly shrink it.
func (r *Registry) ConfidenceRadius(armID int64, features []float64) (float64, error) {
	if err := r.validateFeatures(features); err != nil {
		return 0, err
	}
	arm := r.lookup(armID)
	if arm == nil {
		return 0, fmt.Errorf("%w: %d", ErrUnknownArm, armID)
	}
	_, radius, err := arm.state.Estimate(features)
	return radius, err
}

// TotalObservations counts observations across all arms.
func (r *Registry) TotalObservations() int {
	total := 0
	for _, arm := range r.snapshot() {
		total += arm.state.Observations()
	}
	return total
}

// snapshot returns the current copy-on-write arm slice. Callers must
// not mutate it.
func (r *Registry) snapshot() []*Arm {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.arms
}

// lookup resolves an arm by id. Ids are assigned sequentially, so the
// id doubles as the slice index.
func (r *Registry) lookup(armID int64) *Arm {
	arms := r.snapshot()
	if armID < 0 || armID >= int64(len(arms)) {
		return nil
	}
	return arms[armID]
}

func (r *Registry) validateFeatures(features []float64) error {
	if len(features) != r.cfg.ContextLength {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(features), r.cfg.ContextLength)
	}
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: feature %d is %v", ErrNonFinite, i, v)
		}
	}
	return nil
}
