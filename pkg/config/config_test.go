package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 0.60, cfg.SimilarityThreshold)
	assert.Equal(t, 10, cfg.TopKCandidates)
	assert.Equal(t, 300, cfg.AgentTimeoutSeconds)
	assert.Equal(t, 10, cfg.MaxPriorityActions)

	sum := cfg.WeightSafety + cfg.WeightEnvironmental + cfg.WeightOperational + cfg.WeightLegal
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SIMILARITY_THRESHOLD", "0.75")
	t.Setenv("TOP_K_CANDIDATES", "5")
	t.Setenv("WEIGHT_SAFETY", "0.5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, 0.75, cfg.SimilarityThreshold)
	// Mapping floor tracks the similarity threshold unless set explicitly.
	assert.Equal(t, 0.75, cfg.MappingFloor)
	assert.Equal(t, 5, cfg.TopKCandidates)
	assert.Equal(t, 0.5, cfg.WeightSafety)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SIMILARITY_THRESHOLD", "not-a-float")
	t.Setenv("TOP_K_CANDIDATES", "many")

	cfg := Load()
	assert.Equal(t, 0.60, cfg.SimilarityThreshold)
	assert.Equal(t, 10, cfg.TopKCandidates)
}
