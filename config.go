package c8r

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

type (
	// Config holds named policy configurations loaded by [LoadConfig].
	// Actual [Policy] instances are not created until [GetPolicy] is called,
	// allowing the caller to provide type parameters and code-level options.
	Config struct {
		Policies map[string]PolicyConfig `json:"policies" yaml:"policies"`
	}

	// PolicyConfig holds the decoded configuration for a single policy.
	// Embed it in your own app config structs for JSON or YAML unmarshaling,
	// then call [BuildOptions] to obtain options for [NewPolicy].
	PolicyConfig struct {
		// Retry configures the retry pattern.
		// Optional. Example: {"max_attempts": 3, "backoff": "exponential"}.
		Retry *RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
		// CircuitBreaker configures the circuit breaker pattern.
		// Optional. Example: {"threshold": 5, "cooldown": "30s"}.
		CircuitBreaker *CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
		// RateLimit configures the token bucket.
		// Optional. Example: {"capacity": 10, "rate": 5}.
		RateLimit *RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
		// Timeout is the maximum duration for a single call.
		// Optional. Example: "2s".
		Timeout *string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	}

	// RetryConfig holds retry configuration values.
	RetryConfig struct {
		// Backoff is the backoff strategy name.
		// Required. One of: "constant", "linear", "exponential",
		// "exponential_jitter".
		Backoff *string `json:"backoff,omitempty" yaml:"backoff,omitempty"`
		// BaseDelay is the base delay for backoff calculation.
		// Required. Example: "100ms".
		BaseDelay *string `json:"base_delay,omitempty" yaml:"base_delay,omitempty"`
		// MaxDelay caps the backoff delay.
		// Optional. Example: "30s".
		MaxDelay *string `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
		// PerAttemptTimeout bounds each attempt.
		// Optional. Example: "500ms".
		PerAttemptTimeout *string `json:"per_attempt_timeout,omitempty" yaml:"per_attempt_timeout,omitempty"`
		// Multiplier is the growth factor of exponential strategies.
		// Optional, defaults to 2.
		Multiplier *float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
		// MaxAttempts is the total number of calls, including the first.
		// Required. Example: 3.
		MaxAttempts *int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	}

	// CircuitBreakerConfig holds circuit breaker configuration values.
	CircuitBreakerConfig struct {
		// Cooldown is how long the breaker stays open.
		// Required. Example: "30s".
		Cooldown *string `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
		// Threshold is the number of consecutive failures before opening.
		// Required. Example: 5.
		Threshold *int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	}

	// RateLimitConfig holds token bucket configuration values.
	RateLimitConfig struct {
		// Capacity is the bucket size. Required.
		Capacity *int `json:"capacity,omitempty" yaml:"capacity,omitempty"`
		// Rate is the refill rate in tokens per second. Required; 0 never
		// refills.
		Rate *float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
		// Blocking makes calls wait for a token instead of failing.
		Blocking bool `json:"blocking,omitempty" yaml:"blocking,omitempty"`
	}
)

// defaultMultiplier is the exponential growth factor when none is configured.
const defaultMultiplier = 2.0

// LoadConfig reads a policy configuration file. Files ending in .yaml or
// .yml are decoded as YAML, anything else as JSON. Every policy is validated
// eagerly so errors surface at load time.
//
// Durations accept [time.ParseDuration] syntax plus "d" (day) and "w" (week)
// units.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("c8r: read config: %w", err)
	}

	var cfg Config

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}

	if err != nil {
		return nil, fmt.Errorf("c8r: parse config: %w", err)
	}

	for name, pc := range cfg.Policies {
		if _, buildErr := BuildOptions(&pc); buildErr != nil {
			return nil, fmt.Errorf("c8r: policy %q: %w", name, buildErr)
		}
	}

	return &cfg, nil
}

// parseDuration parses a configured duration field.
func parseDuration(field, s string) (time.Duration, error) {
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}

	return d, nil
}

// BuildOptions converts a [PolicyConfig] into option values suitable for
// [NewPolicy]. Parameter ranges are validated here too, so a config that
// builds also constructs.
func BuildOptions(pc *PolicyConfig) ([]any, error) {
	var opts []any

	if pc.Timeout != nil {
		d, err := parseDuration("timeout", *pc.Timeout)
		if err != nil {
			return nil, err
		}

		if d <= 0 {
			return nil, invalidf("timeout must be positive, got %v", d)
		}

		opts = append(opts, WithTimeout(d))
	}

	if pc.CircuitBreaker != nil {
		opt, err := circuitBreakerOption(pc.CircuitBreaker)
		if err != nil {
			return nil, err
		}

		opts = append(opts, opt)
	}

	if pc.RateLimit != nil {
		opt, err := rateLimitOption(pc.RateLimit)
		if err != nil {
			return nil, err
		}

		opts = append(opts, opt)
	}

	if pc.Retry != nil {
		params, err := retryParams(pc.Retry)
		if err != nil {
			return nil, err
		}

		opts = append(opts, WithRetry(params))
	}

	return opts, nil
}

func circuitBreakerOption(c *CircuitBreakerConfig) (any, error) {
	if c.Threshold == nil {
		return nil, invalidf("circuit_breaker.threshold is required")
	}

	if c.Cooldown == nil {
		return nil, invalidf("circuit_breaker.cooldown is required")
	}

	cooldown, err := parseDuration("circuit_breaker.cooldown", *c.Cooldown)
	if err != nil {
		return nil, err
	}

	if *c.Threshold < 1 || cooldown <= 0 {
		return nil, invalidf("circuit_breaker: threshold %d, cooldown %v", *c.Threshold, cooldown)
	}

	return WithCircuitBreaker(*c.Threshold, cooldown), nil
}

func rateLimitOption(c *RateLimitConfig) (any, error) {
	if c.Capacity == nil || c.Rate == nil {
		return nil, invalidf("rate_limit: capacity and rate are required")
	}

	var rlOpts []RateLimitOption
	if c.Blocking {
		rlOpts = append(rlOpts, RateLimitBlocking())
	}

	// Validate by construction; the limiter itself is discarded.
	if _, err := NewRateLimiter(*c.Capacity, *c.Rate, nil, nil, rlOpts...); err != nil {
		return nil, err
	}

	return WithRateLimit(*c.Capacity, *c.Rate, rlOpts...), nil
}

func retryParams(c *RetryConfig) (RetryParams, error) {
	var params RetryParams

	if c.MaxAttempts == nil {
		return params, invalidf("retry.max_attempts is required")
	}

	params.MaxAttempts = *c.MaxAttempts

	strategy, err := parseBackoffStrategy(c.Backoff, c.BaseDelay, c.Multiplier)
	if err != nil {
		return params, fmt.Errorf("retry: %w", err)
	}

	params.Strategy = strategy

	if c.MaxDelay != nil {
		if params.MaxDelay, err = parseDuration("retry.max_delay", *c.MaxDelay); err != nil {
			return params, err
		}
	}

	if c.PerAttemptTimeout != nil {
		if params.PerAttemptTimeout, err = parseDuration("retry.per_attempt_timeout", *c.PerAttemptTimeout); err != nil {
			return params, err
		}
	}

	if err = params.Validate(); err != nil {
		return params, err
	}

	return params, nil
}

// parseBackoffStrategy maps a backoff name, base delay and optional
// multiplier to a BackoffStrategy.
//
//nolint:ireturn // returns interface by design for strategy pattern
func parseBackoffStrategy(name, baseDelayStr *string, multiplier *float64) (BackoffStrategy, error) {
	if name == nil {
		return nil, invalidf("backoff is required")
	}

	if baseDelayStr == nil {
		return nil, invalidf("base_delay is required")
	}

	base, err := parseDuration("base_delay", *baseDelayStr)
	if err != nil {
		return nil, err
	}

	mult := defaultMultiplier
	if multiplier != nil {
		mult = *multiplier
	}

	switch *name {
	case "constant":
		return ConstantBackoff(base), nil
	case "linear":
		return LinearBackoff(base), nil
	case "exponential":
		return ExponentialBackoff(base, mult), nil
	case "exponential_jitter":
		return ExponentialJitterBackoff(base, mult), nil
	default:
		return nil, invalidf("unknown backoff strategy %q", *name)
	}
}

// GetPolicy builds a typed [Policy] from the named entry of cfg. Additional
// opts are applied after the configured ones (clock, hooks, extra patterns).
// An unknown name fails with [ErrInvalidConfiguration].
func GetPolicy[T any](cfg *Config, name string, opts ...any) (*Policy[T], error) {
	pc, ok := cfg.Policies[name]
	if !ok {
		return nil, invalidf("policy %q not found in config", name)
	}

	configOpts, err := BuildOptions(&pc)
	if err != nil {
		return nil, fmt.Errorf("c8r: policy %q: %w", name, err)
	}

	return NewPolicy[T](name, append(configOpts, opts...)...)
}
