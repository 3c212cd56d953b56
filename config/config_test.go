package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zykor/performance-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "performance.db", cfg.DBPath)
	assert.False(t, cfg.SchedulerEnabled)
	assert.Equal(t, 6, cfg.SchedulerIntervalHours)
	assert.Contains(t, cfg.AttractionKeywords, "artist")
	assert.Contains(t, cfg.PayrollCategories, "STAFF SALARY")
	assert.Contains(t, cfg.TicketKeywords, "admission")
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	// GIVEN: A config file overriding the port and the attraction vocabulary
	// WHEN: Loading it
	// THEN: File values win over defaults; untouched keys keep defaults

	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"port": 9090,
		"scheduler-enabled": true,
		"attraction-keywords": ["banda", "dj"]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.SchedulerEnabled)
	assert.Equal(t, []string{"banda", "dj"}, cfg.AttractionKeywords)
	assert.Equal(t, "performance.db", cfg.DBPath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 9090}`), 0o644))
	t.Setenv("PERF_PORT", "9999")
	t.Setenv("PERF_DB_PATH", "/tmp/override.db")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "/tmp/override.db", cfg.DBPath)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoad_NonPositiveIntervalRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"scheduler-interval-hours": 0}`), 0o644))

	_, err := config.Load(path)
	assert.ErrorContains(t, err, "scheduler-interval-hours")
}

func TestClassifier_BuiltFromConfig(t *testing.T) {
	cfg := &config.Config{
		AttractionKeywords: []string{"banda"},
		PayrollCategories:  []string{"SALARIO"},
		TicketKeywords:     []string{"ingresso"},
	}

	c := cfg.Classifier()
	assert.True(t, c.IsAttraction("Banda convidada"))
	assert.True(t, c.IsPayroll("SALARIO"))
	assert.True(t, c.IsAdmissionProduct("Ingresso Pista"))
}
