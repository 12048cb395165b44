package regflow

import "time"

// Profile is a named, immutable strategy configuration. Execution policy
// (retries, delays, parallelism) lives here; the pipeline reads it and never
// mutates it.
type Profile struct {
	Name           string        `yaml:"name" json:"name"`
	RetryCount     int           `yaml:"retry_count" json:"retry_count"`
	DelayMin       time.Duration `yaml:"delay_min" json:"delay_min"`
	DelayMax       time.Duration `yaml:"delay_max" json:"delay_max"`
	UseProxy       string        `yaml:"use_proxy" json:"use_proxy"` // "true" | "false" | "auto"
	RandomizeData  bool          `yaml:"randomize_data" json:"randomize_data"`
	HumanLikeDelay bool          `yaml:"human_like_delay" json:"human_like_delay"`
	ValidateSteps  bool          `yaml:"validate_steps" json:"validate_steps"`

	// Optional policy extensions.
	AdaptiveRetry      bool     `yaml:"adaptive_retry" json:"adaptive_retry"`
	ErrorRecovery      bool     `yaml:"error_recovery" json:"error_recovery"`
	ParallelAttempts   int      `yaml:"parallel_attempts" json:"parallel_attempts"`
	FallbackStrategies []string `yaml:"fallback_strategies" json:"fallback_strategies"`
}

// Built-in profile names.
const (
	ProfileStandard   = "standard"
	ProfileSmart      = "smart"
	ProfileAggressive = "aggressive"
)

// BuiltinProfiles returns the three built-in strategy profiles in
// declaration order. Declaration order breaks ties in recommendation.
func BuiltinProfiles() []Profile {
	return []Profile{
		{
			Name:           ProfileStandard,
			RetryCount:     3,
			DelayMin:       1000 * time.Millisecond,
			DelayMax:       3000 * time.Millisecond,
			UseProxy:       "false",
			RandomizeData:  false,
			HumanLikeDelay: true,
			ValidateSteps:  true,
		},
		{
			Name:           ProfileSmart,
			RetryCount:     5,
			DelayMin:       2000 * time.Millisecond,
			DelayMax:       5000 * time.Millisecond,
			UseProxy:       "auto",
			RandomizeData:  true,
			HumanLikeDelay: true,
			ValidateSteps:  true,
			AdaptiveRetry:  true,
			ErrorRecovery:  true,
		},
		{
			Name:             ProfileAggressive,
			RetryCount:       10,
			DelayMin:         500 * time.Millisecond,
			DelayMax:         2000 * time.Millisecond,
			UseProxy:         "true",
			RandomizeData:    true,
			HumanLikeDelay:   false,
			ValidateSteps:    false,
			ParallelAttempts: 3,
		},
	}
}
