package bastion

import (
	"errors"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
)

type (
	// configFile is the top-level JSON structure.
	configFile struct {
		Pipelines map[string]PipelineConfig `json:"pipelines"`
	}

	// PipelineConfig holds the decoded configuration of one pipeline.
	// Embed it in your own app config struct for JSON or YAML unmarshaling,
	// then call [BuildPipeline].
	PipelineConfig struct {
		// Policies lists the pipeline's policies, outermost first.
		// Required, non-empty.
		Policies []PolicyConfig `json:"policies" yaml:"policies"`
	}

	// PolicyConfig holds the configuration of a single policy. Which fields
	// apply depends on Type.
	PolicyConfig struct {
		// Type is the policy kind.
		// Required. One of: "retry", "timeout", "fallback".
		Type string `json:"type" yaml:"type"`
		// Key names the policy in hooks. Optional.
		Key *string `json:"key,omitempty" yaml:"key,omitempty"`
		// Handle selects the fault predicate for retry and fallback.
		// Optional, default "any". One of: "any", "transient", "timeout".
		Handle *string `json:"handle,omitempty" yaml:"handle,omitempty"`

		// MaxAttempts is the number of retries (retry only).
		// Required for retry. Example: 3.
		MaxAttempts *int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
		// Backoff is the delay schedule name (retry only).
		// Optional, default "immediate". One of: "immediate", "constant",
		// "linear", "exponential", "list".
		Backoff *string `json:"backoff,omitempty" yaml:"backoff,omitempty"`
		// BaseDelay is the schedule's base delay. Required for "constant",
		// "linear" and "exponential". Parsed via time.ParseDuration.
		BaseDelay *string `json:"base_delay,omitempty" yaml:"base_delay,omitempty"`
		// MaxDelay caps every delay. Optional. Example: "30s".
		MaxDelay *string `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
		// Delays is the explicit delay list for backoff "list".
		Delays []string `json:"delays,omitempty" yaml:"delays,omitempty"`
		// Jitter adds a random offset to every delay. Optional.
		Jitter *JitterConfig `json:"jitter,omitempty" yaml:"jitter,omitempty"`

		// Timeout is the time budget (timeout only). Example: "2s".
		Timeout *string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
		// Strategy is "pessimistic" (default) or "optimistic" (timeout only).
		Strategy *string `json:"strategy,omitempty" yaml:"strategy,omitempty"`

		// Value is the JSON-encoded fallback value, decoded into the
		// pipeline's result type when the pipeline is built (fallback only).
		Value json.RawMessage `json:"value,omitempty" yaml:"value,omitempty"`
	}

	// JitterConfig holds jitter bounds as duration strings.
	JitterConfig struct {
		// Seed makes the jitter sequence reproducible. Optional.
		Seed *uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
		// Min is the smallest offset. Optional, default "0s".
		Min *string `json:"min,omitempty" yaml:"min,omitempty"`
		// Max is the exclusive upper bound of the offset. Required.
		Max *string `json:"max,omitempty" yaml:"max,omitempty"`
	}

	// policySpec is a PolicyConfig with every type-independent field parsed.
	policySpec struct {
		schedule    DelaySchedule
		key         string
		kind        string
		handle      string
		value       json.RawMessage
		maxAttempts int
		timeout     time.Duration
		strategy    TimeoutStrategy
	}
)

// LoadConfig reads a JSON configuration file and stores the pipeline
// configurations in a [Registry]. Pipelines are not built until
// [GetPipeline] is called, allowing the caller to provide the result type
// and code-level options such as hooks.
//
// Everything except fallback values is validated at load time.
func LoadConfig(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bastion: read config: %w", err)
	}

	var cfg configFile
	if err = json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("bastion: parse config: %w", err)
	}

	// Validate all pipelines eagerly so errors surface at load time.
	for name, pc := range cfg.Pipelines {
		if _, specErr := parsePipeline(&pc); specErr != nil {
			return nil, fmt.Errorf("bastion: pipeline %q: %w", name, specErr)
		}
	}

	reg := NewRegistry()
	for name, pc := range cfg.Pipelines {
		reg.Store(name, pc)
	}

	return reg, nil
}

// BuildPipeline converts a [PipelineConfig] into a [Pipeline]. opts are
// passed to every policy constructor, so hooks and clocks apply pipeline-wide.
func BuildPipeline[T any](pc *PipelineConfig, opts ...any) (*Pipeline[T], error) {
	specs, err := parsePipeline(pc)
	if err != nil {
		return nil, err
	}

	policies := make([]Policy[T], 0, len(specs))

	for i, spec := range specs {
		p, buildErr := buildPolicy[T](spec, opts)
		if buildErr != nil {
			return nil, fmt.Errorf("policies[%d] (%s): %w", i, spec.kind, buildErr)
		}

		policies = append(policies, p)
	}

	return Wrap(policies...)
}

// GetPipeline builds the named pipeline stored in reg. Additional opts apply
// to every policy of the pipeline.
func GetPipeline[T any](reg *Registry, name string, opts ...any) (*Pipeline[T], error) {
	pc, ok := reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("bastion: pipeline %q not found", name)
	}

	p, err := BuildPipeline[T](&pc, opts...)
	if err != nil {
		return nil, fmt.Errorf("bastion: pipeline %q: %w", name, err)
	}

	return p.Named(name), nil
}

func parsePipeline(pc *PipelineConfig) ([]policySpec, error) {
	if len(pc.Policies) == 0 {
		return nil, invalidConfig("pipeline has no policies")
	}

	specs := make([]policySpec, 0, len(pc.Policies))

	for i := range pc.Policies {
		spec, err := parsePolicy(&pc.Policies[i])
		if err != nil {
			if !errors.Is(err, ErrInvalidConfiguration) {
				err = fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
			}

			return nil, fmt.Errorf("policies[%d]: %w", i, err)
		}

		specs = append(specs, spec)
	}

	return specs, nil
}

func parsePolicy(pc *PolicyConfig) (policySpec, error) {
	spec := policySpec{kind: pc.Type, handle: "any"}

	if pc.Key != nil {
		spec.key = *pc.Key
	}

	if pc.Handle != nil {
		switch *pc.Handle {
		case "any", "transient", "timeout":
			spec.handle = *pc.Handle
		default:
			return spec, fmt.Errorf("unknown handle %q", *pc.Handle)
		}
	}

	switch pc.Type {
	case "retry":
		if pc.MaxAttempts == nil {
			return spec, fmt.Errorf("retry: max_attempts is required")
		}

		if *pc.MaxAttempts < 0 {
			return spec, invalidConfig("retry: max_attempts %d is negative", *pc.MaxAttempts)
		}

		spec.maxAttempts = *pc.MaxAttempts

		schedule, err := parseSchedule(pc)
		if err != nil {
			return spec, fmt.Errorf("retry: %w", err)
		}

		spec.schedule = schedule

	case "timeout":
		if pc.Timeout == nil {
			return spec, fmt.Errorf("timeout: timeout is required")
		}

		d, err := time.ParseDuration(*pc.Timeout)
		if err != nil {
			return spec, fmt.Errorf("timeout: %w", err)
		}

		if d <= 0 {
			return spec, invalidConfig("timeout: %s is not positive", d)
		}

		spec.timeout = d

		if pc.Strategy != nil {
			switch *pc.Strategy {
			case "pessimistic":
				spec.strategy = Pessimistic
			case "optimistic":
				spec.strategy = Optimistic
			default:
				return spec, fmt.Errorf("timeout: unknown strategy %q", *pc.Strategy)
			}
		}

	case "fallback":
		if len(pc.Value) == 0 {
			return spec, fmt.Errorf("fallback: value is required")
		}

		spec.value = pc.Value

	default:
		return spec, fmt.Errorf("unknown policy type %q", pc.Type)
	}

	return spec, nil
}

// parseSchedule maps the retry backoff fields to a DelaySchedule.
func parseSchedule(pc *PolicyConfig) (DelaySchedule, error) {
	name := "immediate"
	if pc.Backoff != nil {
		name = *pc.Backoff
	}

	var schedule DelaySchedule

	switch name {
	case "immediate":
		schedule = Immediate()
	case "list":
		delays := make([]time.Duration, 0, len(pc.Delays))

		for i, s := range pc.Delays {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("delays[%d]: %w", i, err)
			}

			delays = append(delays, d)
		}

		schedule = Durations(delays...)
	case "constant", "linear", "exponential":
		if pc.BaseDelay == nil {
			return nil, fmt.Errorf("base_delay is required for backoff %q", name)
		}

		base, err := time.ParseDuration(*pc.BaseDelay)
		if err != nil {
			return nil, fmt.Errorf("base_delay: %w", err)
		}

		switch name {
		case "constant":
			schedule = Constant(base)
		case "linear":
			schedule = Linear(base)
		default:
			schedule = Exponential(base)
		}
	default:
		return nil, fmt.Errorf("unknown backoff strategy: %q", name)
	}

	if pc.MaxDelay != nil {
		maxDelay, err := time.ParseDuration(*pc.MaxDelay)
		if err != nil {
			return nil, fmt.Errorf("max_delay: %w", err)
		}

		schedule = schedule.Capped(maxDelay)
	}

	if pc.Jitter != nil {
		j, err := parseJitter(pc.Jitter)
		if err != nil {
			return nil, fmt.Errorf("jitter: %w", err)
		}

		schedule = schedule.WithJitter(j)
	}

	return schedule, nil
}

func parseJitter(jc *JitterConfig) (*Jitter, error) {
	if jc.Max == nil {
		return nil, fmt.Errorf("max is required")
	}

	settings := JitterSettings{Seed: jc.Seed}

	maxOffset, err := time.ParseDuration(*jc.Max)
	if err != nil {
		return nil, fmt.Errorf("max: %w", err)
	}

	settings.Max = maxOffset

	if jc.Min != nil {
		minOffset, minErr := time.ParseDuration(*jc.Min)
		if minErr != nil {
			return nil, fmt.Errorf("min: %w", minErr)
		}

		settings.Min = minOffset
	}

	return NewJitter(settings)
}

func handlePredicate[T any](name string) FaultPredicate[T] {
	switch name {
	case "transient":
		return HandleTransient[T]()
	case "timeout":
		return HandleErrorIs[T](ErrTimeoutExceeded)
	default:
		return HandleError[T]()
	}
}

//nolint:ireturn // returns the Policy interface by design
func buildPolicy[T any](spec policySpec, opts []any) (Policy[T], error) {
	all := make([]any, 0, len(opts)+2)
	all = append(all, opts...)

	if spec.key != "" {
		all = append(all, WithKey(spec.key))
	}

	switch spec.kind {
	case "retry":
		return NewRetry(spec.maxAttempts, spec.schedule, handlePredicate[T](spec.handle), all...)
	case "timeout":
		return NewTimeout[T](spec.timeout, append(all, WithTimeoutStrategy(spec.strategy))...)
	default:
		var v T
		if err := json.Unmarshal(spec.value, &v); err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}

		return NewFallback(handlePredicate[T](spec.handle), FallbackValue(v), all...)
	}
}
