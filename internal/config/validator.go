package config

import (
	"fmt"
	"strings"
)

// ValidationResult holds the outcome of validating a Config.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result.
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result.
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors.
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error/warning report.
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() && len(vr.Warnings) == 0 {
		return ""
	}

	var sb strings.Builder
	if vr.HasErrors() {
		sb.WriteString("Configuration validation failed:\n")
		for _, err := range vr.Errors {
			sb.WriteString(fmt.Sprintf("  - %s\n", err))
		}
	}
	if len(vr.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}
	return sb.String()
}

// Validate checks the configuration for out-of-range or unknown values.
// Per the external-interfaces contract, unknown or invalid values are warned
// and replaced with the documented default rather than treated as fatal;
// only an empty store path is an error.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}
	def := Default()

	if c.Store.Path == "" {
		result.AddError("store path must not be empty")
	}
	if c.Store.PoolSize <= 0 {
		result.AddWarning("LIDX_POOL_SIZE invalid (%d), using default %d", c.Store.PoolSize, def.Store.PoolSize)
		c.Store.PoolSize = def.Store.PoolSize
	}
	if c.Store.PoolMinIdle < 0 || c.Store.PoolMinIdle > c.Store.PoolSize {
		result.AddWarning("LIDX_POOL_MIN_IDLE invalid (%d), using default %d", c.Store.PoolMinIdle, def.Store.PoolMinIdle)
		c.Store.PoolMinIdle = def.Store.PoolMinIdle
	}

	if c.Batch.BatchSize <= 0 {
		result.AddWarning("LIDX_BATCH_SIZE invalid (%d), using default %d", c.Batch.BatchSize, def.Batch.BatchSize)
		c.Batch.BatchSize = def.Batch.BatchSize
	}
	if c.Batch.FlushIntervalMS <= 0 {
		result.AddWarning("LIDX_FLUSH_INTERVAL_MS invalid (%d), using default %d", c.Batch.FlushIntervalMS, def.Batch.FlushIntervalMS)
		c.Batch.FlushIntervalMS = def.Batch.FlushIntervalMS
	}
	if c.Batch.MaxMemoryMB <= 0 {
		result.AddWarning("LIDX_MAX_MEMORY_MB invalid (%d), using default %d", c.Batch.MaxMemoryMB, def.Batch.MaxMemoryMB)
		c.Batch.MaxMemoryMB = def.Batch.MaxMemoryMB
	}

	switch c.Watch.Mode {
	case "off", "auto", "on":
	default:
		result.AddWarning("watch mode %q unknown, using default %q", c.Watch.Mode, def.Watch.Mode)
		c.Watch.Mode = def.Watch.Mode
	}
	if c.Watch.DebounceMS <= 0 {
		result.AddWarning("watch debounce invalid (%d), using default %d", c.Watch.DebounceMS, def.Watch.DebounceMS)
		c.Watch.DebounceMS = def.Watch.DebounceMS
	}
	if c.Watch.UrgentDebounceMS <= 0 {
		result.AddWarning("LIDX_URGENT_DEBOUNCE_MS invalid (%d), using default %d", c.Watch.UrgentDebounceMS, def.Watch.UrgentDebounceMS)
		c.Watch.UrgentDebounceMS = def.Watch.UrgentDebounceMS
	}
	if c.Watch.BatchThreshold <= 0 {
		result.AddWarning("LIDX_BATCH_THRESHOLD invalid (%d), using default %d", c.Watch.BatchThreshold, def.Watch.BatchThreshold)
		c.Watch.BatchThreshold = def.Watch.BatchThreshold
	}
	if c.Watch.UrgentWindowSecs <= 0 {
		result.AddWarning("LIDX_URGENT_WINDOW_SECS invalid (%d), using default %d", c.Watch.UrgentWindowSecs, def.Watch.UrgentWindowSecs)
		c.Watch.UrgentWindowSecs = def.Watch.UrgentWindowSecs
	}
	if c.Watch.MaxBatch <= 0 {
		result.AddWarning("watch max_batch invalid (%d), using default %d", c.Watch.MaxBatch, def.Watch.MaxBatch)
		c.Watch.MaxBatch = def.Watch.MaxBatch
	}

	if c.Search.TimeoutSecs <= 0 {
		result.AddWarning("LIDX_SEARCH_TIMEOUT_SECS invalid (%d), using default %d", c.Search.TimeoutSecs, def.Search.TimeoutSecs)
		c.Search.TimeoutSecs = def.Search.TimeoutSecs
	}
	if c.Search.PatternMaxLength <= 0 {
		result.AddWarning("LIDX_PATTERN_MAX_LENGTH invalid (%d), using default %d", c.Search.PatternMaxLength, def.Search.PatternMaxLength)
		c.Search.PatternMaxLength = def.Search.PatternMaxLength
	}

	return result
}
