package c8r

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	return path
}

const jsonConfig = `{
  "policies": {
    "payments": {
      "timeout": "2s",
      "circuit_breaker": {"threshold": 5, "cooldown": "1d"},
      "rate_limit": {"capacity": 10, "rate": 5},
      "retry": {
        "max_attempts": 3,
        "backoff": "exponential",
        "base_delay": "100ms",
        "max_delay": "30s",
        "multiplier": 3
      }
    },
    "plain": {}
  }
}`

const yamlConfig = `
policies:
  search:
    timeout: 500ms
    retry:
      max_attempts: 4
      backoff: exponential_jitter
      base_delay: 10ms
      per_attempt_timeout: 100ms
    rate_limit:
      capacity: 2
      rate: 1
      blocking: true
`

func TestLoadConfigJSON(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "policies.json", jsonConfig))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if len(cfg.Policies) != 2 {
		t.Fatalf("policies = %d, want 2", len(cfg.Policies))
	}

	pc := cfg.Policies["payments"]
	if pc.Retry == nil || *pc.Retry.MaxAttempts != 3 || *pc.Retry.Multiplier != 3 {
		t.Fatalf("retry config = %+v, want max_attempts 3, multiplier 3", pc.Retry)
	}

	p, err := GetPolicy[string](cfg, "payments")
	if err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}

	want := []string{"timeout", "circuit_breaker", "rate_limiter", "retry"}

	got := p.Patterns()
	if len(got) != len(want) {
		t.Fatalf("Patterns() = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Patterns() = %v, want %v", got, want)
		}
	}
}

func TestLoadConfigYAML(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "policies.yaml", yamlConfig))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	pc, ok := cfg.Policies["search"]
	if !ok {
		t.Fatal("policy \"search\" missing")
	}

	if pc.RateLimit == nil || !pc.RateLimit.Blocking || *pc.RateLimit.Capacity != 2 {
		t.Fatalf("rate limit config = %+v, want blocking capacity 2", pc.RateLimit)
	}

	if pc.Retry == nil || *pc.Retry.PerAttemptTimeout != "100ms" {
		t.Fatalf("retry config = %+v, want per_attempt_timeout 100ms", pc.Retry)
	}

	p, err := GetPolicy[int](cfg, "search")
	if err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}

	got, err := p.Do(context.Background(), func(context.Context) (int, error) { return 1, nil })
	if err != nil || got != 1 {
		t.Fatalf("Do() = %d, %v, want 1, nil", got, err)
	}
}

func TestBuildOptionsExtendedDurations(t *testing.T) {
	backoff := "constant"
	base := "1d"
	attempts := 2
	maxDelay := "1w"

	params, err := retryParams(&RetryConfig{
		Backoff:     &backoff,
		BaseDelay:   &base,
		MaxAttempts: &attempts,
		MaxDelay:    &maxDelay,
	})
	if err != nil {
		t.Fatalf("retryParams() error = %v", err)
	}

	if got := params.Strategy.Delay(0); got != 24*time.Hour {
		t.Fatalf("Delay(0) = %v, want 24h", got)
	}

	if params.MaxDelay != 7*24*time.Hour {
		t.Fatalf("MaxDelay = %v, want 168h", params.MaxDelay)
	}
}

func TestLoadConfigRejectsInvalidPolicies(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backoff", `{"policies": {"p": {"retry": {"max_attempts": 2, "backoff": "fibonacci", "base_delay": "1s"}}}}`},
		{"missing max_attempts", `{"policies": {"p": {"retry": {"backoff": "constant", "base_delay": "1s"}}}}`},
		{"missing base_delay", `{"policies": {"p": {"retry": {"max_attempts": 2, "backoff": "constant"}}}}`},
		{"zero attempts", `{"policies": {"p": {"retry": {"max_attempts": 0, "backoff": "constant", "base_delay": "1s"}}}}`},
		{"zero timeout", `{"policies": {"p": {"timeout": "0s"}}}`},
		{"breaker without cooldown", `{"policies": {"p": {"circuit_breaker": {"threshold": 1}}}}`},
		{"breaker zero threshold", `{"policies": {"p": {"circuit_breaker": {"threshold": 0, "cooldown": "1s"}}}}`},
		{"rate limit without rate", `{"policies": {"p": {"rate_limit": {"capacity": 1}}}}`},
		{"blocking with zero rate", `{"policies": {"p": {"rate_limit": {"capacity": 1, "rate": 0, "blocking": true}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "bad.json", tt.content))
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("LoadConfig() error = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	_, err := LoadConfig(writeFile(t, "bad.json", `{"policies": {"p": {"timeout": "soon"}}}`))
	if err == nil {
		t.Fatal("LoadConfig() error = nil, want a duration parse error")
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("LoadConfig(missing) error = nil")
	}

	if _, err := LoadConfig(writeFile(t, "broken.json", `{"policies": `)); err == nil {
		t.Fatal("LoadConfig(broken json) error = nil")
	}

	if _, err := LoadConfig(writeFile(t, "broken.yml", "policies: [")); err == nil {
		t.Fatal("LoadConfig(broken yaml) error = nil")
	}
}

func TestGetPolicyUnknownName(t *testing.T) {
	cfg := &Config{Policies: map[string]PolicyConfig{}}

	if _, err := GetPolicy[int](cfg, "nope"); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("GetPolicy() error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestGetPolicyAppendsCodeOptions(t *testing.T) {
	attempts := 2
	backoff := "linear"
	base := "1ms"

	cfg := &Config{Policies: map[string]PolicyConfig{
		"p": {Retry: &RetryConfig{MaxAttempts: &attempts, Backoff: &backoff, BaseDelay: &base}},
	}}

	clk := &immediateClock{}

	p, err := GetPolicy[int](cfg, "p", WithClock(clk))
	if err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}

	_, _ = p.Do(context.Background(), func(context.Context) (int, error) { return 0, errBoom })

	if sleeps := clk.sleeps(); len(sleeps) != 1 || sleeps[0] != time.Millisecond {
		t.Fatalf("sleeps = %v, want [1ms]", sleeps)
	}
}
