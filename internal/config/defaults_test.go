package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)
	assert.Equal(t, DefaultKafkaSummaryTopic, cfg.Kafka.SummaryTopic)
	assert.Equal(t, DefaultConfidenceFloor, cfg.Extraction.ConfidenceFloor)
	assert.Equal(t, DefaultLLMBudgetWindow, cfg.LLM.BudgetWindow)
	assert.Equal(t, DefaultHeuristicsDir, cfg.Heuristics.Dir)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Extraction.ConfidenceFloor = 0.40
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 0.40, cfg.Extraction.ConfidenceFloor)
}

func TestApplyDefaults_NilConfigDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
