package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lidxdev/lidx/internal/models"
)

func TestDirectOnly_DisablesOtherLayers(t *testing.T) {
	cfg := DirectOnly()
	assert.True(t, cfg.Direct.Enabled)
	assert.False(t, cfg.Test.Enabled)
	assert.False(t, cfg.Historical.Enabled)
}

func TestAllLayers_EnablesEveryLayer(t *testing.T) {
	cfg := AllLayers()
	assert.True(t, cfg.Direct.Enabled)
	assert.True(t, cfg.Test.Enabled)
	assert.True(t, cfg.Historical.Enabled)
}

func TestConfigBuilder_FluentOverrides(t *testing.T) {
	cfg := NewConfigBuilder().
		MaxDepth(5).
		Direction(models.DirectionUpstream).
		IncludeTests(true).
		IncludePaths(true).
		MinConfidence(0.9).
		Limit(50).
		EnableTestLayer(false).
		EnableHistoricalLayer(false).
		Build()

	assert.Equal(t, 5, cfg.Direct.MaxDepth)
	assert.Equal(t, models.DirectionUpstream, cfg.Direct.Direction)
	assert.True(t, cfg.Direct.IncludeTests)
	assert.True(t, cfg.IncludePaths)
	assert.Equal(t, 0.9, cfg.MinConfidence)
	assert.Equal(t, 50, cfg.Limit)
	assert.False(t, cfg.Test.Enabled)
	assert.False(t, cfg.Historical.Enabled)
}
