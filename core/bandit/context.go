package bandit

import (
	"context"
	"fmt"
	"math"
)

// Context is the immutable numeric description of one decision turn:
// a fixed-length feature vector plus, from the second turn onward, the
// scalar feedback earned by the previous turn's decision.
type Context struct {
	features    []float64
	feedback    float64
	hasFeedback bool
}

// NewContext builds a context from a feature vector. The vector is
// copied; the caller may reuse its slice.
func NewContext(features []float64) (*Context, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: feature vector must not be empty", ErrInvalidConfig)
	}
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: feature %d is %v", ErrNonFinite, i, v)
		}
	}
	copied := make([]float64, len(features))
	copy(copied, features)
	return &Context{features: copied}, nil
}

// NewContextWithFeedback builds a context that also carries the reward
// observed for the previous turn's decision. Feedback is expected to
// be a bounded real number, consistently scaled across calls
// (typically [-1, 1] or [0, 1]).
func NewContextWithFeedback(features []float64, feedback float64) (*Context, error) {
	if math.IsNaN(feedback) || math.IsInf(feedback, 0) {
		return nil, fmt.Errorf("%w: feedback is %v", ErrNonFinite, feedback)
	}
	c, err := NewContext(features)
	if err != nil {
		return nil, err
	}
	c.feedback = feedback
	c.hasFeedback = true
	return c, nil
}

// Features returns a copy of the feature vector.
func (c *Context) Features() []float64 {
	out := make([]float64, len(c.features))
	copy(out, c.features)
	return out
}

// Len returns the feature-vector dimensionality.
func (c *Context) Len() int {
	return len(c.features)
}

// Feedback returns the prior-turn reward and whether one was set.
func (c *Context) Feedback() (float64, bool) {
	return c.feedback, c.hasFeedback
}

// ContextExtractor turns free-form input into a Context. The engine
// only consumes this contract; implementations (LLM-backed, rule
// based, ...) live outside the core and may block on I/O, hence the
// context.Context parameter.
type ContextExtractor interface {
	// ContextLength is the fixed dimensionality this extractor
	// produces. It must match the registry's configured length.
	ContextLength() int

	Extract(ctx context.Context, input string) (*Context, error)
}

// ActionExecutor runs a selected arm's payload against the input and
// reports the response along with the scalar feedback to carry into
// the next turn's Context.
type ActionExecutor interface {
	Execute(ctx context.Context, body any, input string) (response string, feedback float64, err error)
}
