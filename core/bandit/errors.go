package bandit

import "errors"

var (
	// ErrDimensionMismatch is returned when a feature vector's length
	// does not match the registry's configured context length.
	ErrDimensionMismatch = errors.New("feature vector length does not match context length")

	// ErrNonFinite is returned when a feature vector or reward contains
	// NaN or infinite values. State is never mutated on this error.
	ErrNonFinite = errors.New("input contains non-finite values")

	// ErrUnknownArm is returned by Observe for an id never returned by Add.
	ErrUnknownArm = errors.New("arm id is not registered")

	// ErrEmptyRegistry is returned by Select when no arms are registered.
	ErrEmptyRegistry = errors.New("no arms registered")

	// ErrInvalidConfig is returned for invalid registration input or
	// invalid policy hyperparameters.
	ErrInvalidConfig = errors.New("invalid bandit configuration")

	// ErrNumerical is returned when a linear-algebra operation fails in a
	// way the regularization prior cannot prevent. The affected arm's
	// statistics are left unchanged.
	ErrNumerical = errors.New("numerical failure in arm statistics")
)
