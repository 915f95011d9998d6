package impact

import "github.com/lidxdev/lidx/internal/models"

// DirectConfig controls the direct BFS layer.
type DirectConfig struct {
	Enabled      bool
	MaxDepth     int
	Direction    models.TraversalDirection
	Kinds        []models.EdgeKind
	IncludeTests bool
	Languages    []string
}

// DefaultDirectConfig mirrors the direct layer's documented defaults.
func DefaultDirectConfig() DirectConfig {
	return DirectConfig{
		Enabled:      true,
		MaxDepth:     3,
		Direction:    models.DirectionBoth,
		IncludeTests: false,
	}
}

// TestConfig controls the test-linking layer.
type TestConfig struct {
	Enabled bool
}

// HistoricalConfig controls the co-change layer.
type HistoricalConfig struct {
	Enabled         bool
	TimeWindowDays  int64
	MinOccurrences  int
}

// DefaultHistoricalConfig mirrors the historical layer's documented defaults.
func DefaultHistoricalConfig() HistoricalConfig {
	return HistoricalConfig{
		Enabled:        true,
		TimeWindowDays: 180,
		MinOccurrences: 2,
	}
}

// MultiLayerConfig is the orchestrator's full configuration.
type MultiLayerConfig struct {
	Direct        DirectConfig
	Test          TestConfig
	Historical    HistoricalConfig
	IncludePaths  bool
	MinConfidence float64
	Limit         int
}

// DirectOnly returns a config with only the direct layer enabled, matching
// the pre-multi-layer analyze_impact behaviour.
func DirectOnly() MultiLayerConfig {
	cfg := defaultMultiLayerConfig()
	cfg.Direct.Enabled = true
	cfg.Test.Enabled = false
	cfg.Historical.Enabled = false
	return cfg
}

// AllLayers returns a config with every layer enabled.
func AllLayers() MultiLayerConfig {
	cfg := defaultMultiLayerConfig()
	cfg.Direct.Enabled = true
	cfg.Test.Enabled = true
	cfg.Historical.Enabled = true
	return cfg
}

func defaultMultiLayerConfig() MultiLayerConfig {
	return MultiLayerConfig{
		Direct:     DefaultDirectConfig(),
		Test:       TestConfig{},
		Historical: DefaultHistoricalConfig(),
		Limit:      10000,
	}
}

// ConfigBuilder provides a fluent API for assembling a MultiLayerConfig.
type ConfigBuilder struct {
	cfg MultiLayerConfig
}

// NewConfigBuilder starts a builder from the default configuration.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{cfg: defaultMultiLayerConfig()}
}

func (b *ConfigBuilder) MaxDepth(depth int) *ConfigBuilder {
	b.cfg.Direct.MaxDepth = depth
	return b
}

func (b *ConfigBuilder) Direction(direction models.TraversalDirection) *ConfigBuilder {
	b.cfg.Direct.Direction = direction
	return b
}

func (b *ConfigBuilder) IncludeTests(include bool) *ConfigBuilder {
	b.cfg.Direct.IncludeTests = include
	return b
}

func (b *ConfigBuilder) IncludePaths(include bool) *ConfigBuilder {
	b.cfg.IncludePaths = include
	return b
}

func (b *ConfigBuilder) MinConfidence(min float64) *ConfigBuilder {
	b.cfg.MinConfidence = min
	return b
}

func (b *ConfigBuilder) Limit(limit int) *ConfigBuilder {
	b.cfg.Limit = limit
	return b
}

func (b *ConfigBuilder) EnableTestLayer(enabled bool) *ConfigBuilder {
	b.cfg.Test.Enabled = enabled
	return b
}

func (b *ConfigBuilder) EnableHistoricalLayer(enabled bool) *ConfigBuilder {
	b.cfg.Historical.Enabled = enabled
	return b
}

func (b *ConfigBuilder) Build() MultiLayerConfig {
	return b.cfg
}
