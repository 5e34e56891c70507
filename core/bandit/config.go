package bandit

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultLambda is the default ridge regularization strength. It acts
// as safety padding added before any data is seen: larger values make
// arms start more cautiously so early observations do not swing the
// estimates too hard, smaller values let arms adapt faster at the cost
// of noisier early behavior.
const DefaultLambda = 1.0

// DefaultThompsonAlpha is the default exploration scale for Thompson
// Sampling. It works like a temperature knob on the posterior draw:
// higher values inject more randomness so the policy keeps trying
// less-certain arms, lower values act more greedily.
const DefaultThompsonAlpha = 0.3

// DefaultUCBAlpha is the default exploration weight for the LinUCB
// confidence bonus. Higher values add a larger safety margin for
// uncertainty; smaller values commit to the best-known arm sooner.
const DefaultUCBAlpha = 0.5

// Config holds the registry-level hyperparameters shared by all arms.
type Config struct {
	// ContextLength is the fixed feature-vector dimensionality d.
	// Every vector passed to Select or Observe must have exactly this
	// many entries.
	ContextLength int `yaml:"context_length"`

	// Lambda is the ridge regularization strength applied to each new
	// arm's design matrix (A starts as Lambda * I). Must be positive;
	// this is what keeps the matrices invertible by construction.
	Lambda float64 `yaml:"lambda"`

	// ClipRewards enables clamping of observed rewards into
	// [RewardMin, RewardMax] before the statistics update. Disabled by
	// default: the engine is otherwise agnostic to reward scale.
	ClipRewards bool    `yaml:"clip_rewards"`
	RewardMin   float64 `yaml:"reward_min"`
	RewardMax   float64 `yaml:"reward_max"`
}

// DefaultConfig returns a configuration for the given context length
// with documented defaults and clipping disabled.
func DefaultConfig(contextLength int) Config {
	return Config{
		ContextLength: contextLength,
		Lambda:        DefaultLambda,
	}
}

// LoadConfig reads a YAML configuration file. Fields absent from the
// file keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading bandit config: %w", err)
	}

	cfg := Config{Lambda: DefaultLambda}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing bandit config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.ContextLength < 1 {
		return fmt.Errorf("%w: context length must be positive, got %d", ErrInvalidConfig, c.ContextLength)
	}
	if c.Lambda <= 0 || math.IsInf(c.Lambda, 0) || math.IsNaN(c.Lambda) {
		return fmt.Errorf("%w: lambda must be positive and finite, got %v", ErrInvalidConfig, c.Lambda)
	}
	if c.ClipRewards {
		if math.IsNaN(c.RewardMin) || math.IsNaN(c.RewardMax) ||
			math.IsInf(c.RewardMin, 0) || math.IsInf(c.RewardMax, 0) {
			return fmt.Errorf("%w: reward clip bounds must be finite", ErrInvalidConfig)
		}
		if c.RewardMin >= c.RewardMax {
			return fmt.Errorf("%w: reward_min %v must be below reward_max %v", ErrInvalidConfig, c.RewardMin, c.RewardMax)
		}
	}
	return nil
}

func (c Config) clipReward(reward float64) float64 {
	if !c.ClipRewards {
		return reward
	}
	if reward < c.RewardMin {
		return c.RewardMin
	}
	if reward > c.RewardMax {
		return c.RewardMax
	}
	return reward
}
