package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config that passes Validate after defaults.
func validConfig() *Config {
	cfg := &Config{}
	cfg.Database.User = "medimatch"
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_ServerPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	assert.ErrorContains(t, cfg.Validate(), "server.port")

	cfg.Server.Port = 70000
	assert.ErrorContains(t, cfg.Validate(), "server.port")
}

func TestValidate_ServerMode(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Mode = "production"
	assert.ErrorContains(t, cfg.Validate(), "server.mode")
}

func TestValidate_DatabaseRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Database.User = ""
	assert.ErrorContains(t, cfg.Validate(), "database.user")

	cfg = validConfig()
	cfg.Database.Host = ""
	assert.ErrorContains(t, cfg.Validate(), "database.host")

	cfg = validConfig()
	cfg.Database.DBName = ""
	assert.ErrorContains(t, cfg.Validate(), "database.db_name")
}

func TestValidate_Kafka(t *testing.T) {
	cfg := validConfig()
	cfg.Kafka.Brokers = nil
	assert.ErrorContains(t, cfg.Validate(), "kafka.brokers")

	cfg = validConfig()
	cfg.Kafka.GroupID = ""
	assert.ErrorContains(t, cfg.Validate(), "kafka.group_id")
}

func TestValidate_ExternalBaseURLs(t *testing.T) {
	cfg := validConfig()
	cfg.External.RxNorm.BaseURL = ""
	assert.ErrorContains(t, cfg.Validate(), "external.rxnorm.base_url")
}

func TestValidate_Prediction(t *testing.T) {
	cfg := validConfig()
	cfg.Prediction.FingerprintBits = 32
	assert.ErrorContains(t, cfg.Validate(), "prediction.fingerprint_bits")

	cfg = validConfig()
	cfg.Prediction.MinSimilarity = 1.5
	assert.ErrorContains(t, cfg.Validate(), "prediction.min_similarity")
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "verbose"
	assert.ErrorContains(t, cfg.Validate(), "log.level")

	cfg = validConfig()
	cfg.Log.Format = "xml"
	assert.ErrorContains(t, cfg.Validate(), "log.format")
}
