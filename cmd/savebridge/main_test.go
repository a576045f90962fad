package main

import (
	"io"
	"testing"
	"time"

	"github.com/opd-ai/savebridge/limits"
	"github.com/opd-ai/savebridge/protocol"
	"github.com/opd-ai/savebridge/session"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func validConfig() *CLIConfig {
	return &CLIConfig{
		mode:        "send",
		file:        "main.sav",
		port:        uint(protocol.DefaultPort),
		dialTimeout: 10 * time.Second,
		maxFileSize: limits.DefaultMaxFileSize,
		digest:      "sha256",
		logLevel:    "INFO",
	}
}

func TestParseCLIFlagsDefaults(t *testing.T) {
	config, _, err := parseCLIFlags([]string{"receive", "out.sav"}, envMap(nil), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "receive", config.mode)
	assert.Equal(t, "out.sav", config.file)
	assert.Equal(t, uint(34567), config.port)
	assert.Equal(t, "sha256", config.digest)
	assert.Equal(t, "INFO", config.logLevel)
	assert.Empty(t, config.backupDir)
	assert.NoError(t, validateCLIConfig(config))
}

func TestParseCLIFlagsEnvironment(t *testing.T) {
	env := envMap(map[string]string{
		envPort:        "40000",
		envLogLevel:    "DEBUG",
		envBackupDir:   "/tmp/bridge",
		envDigest:      "blake2b-256",
		envMetricsAddr: ":9100",
	})

	config, _, err := parseCLIFlags([]string{"send", "-address", "192.168.1.4", "main.sav"}, env, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, uint(40000), config.port)
	assert.Equal(t, "DEBUG", config.logLevel)
	assert.Equal(t, "/tmp/bridge", config.backupDir)
	assert.Equal(t, "blake2b-256", config.digest)
	assert.Equal(t, ":9100", config.metricsAddr)
	assert.Equal(t, "192.168.1.4", config.address)
}

func TestParseCLIFlagsOverrideEnvironment(t *testing.T) {
	env := envMap(map[string]string{envPort: "40000"})

	config, _, err := parseCLIFlags([]string{"send", "-port", "41000", "main.sav"}, env, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, uint(41000), config.port)
}

func TestParseCLIFlagsBadEnvironmentPort(t *testing.T) {
	_, _, err := parseCLIFlags([]string{"send"}, envMap(map[string]string{envPort: "huge"}), io.Discard)
	assert.Error(t, err)
}

func TestValidateCLIConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CLIConfig)
		wantErr bool
	}{
		{"valid", func(*CLIConfig) {}, false},
		{"unknown mode", func(c *CLIConfig) { c.mode = "sync" }, true},
		{"zero port", func(c *CLIConfig) { c.port = 0 }, true},
		{"port too large", func(c *CLIConfig) { c.port = 70000 }, true},
		{"missing file", func(c *CLIConfig) { c.file = "" }, true},
		{"zero dial timeout", func(c *CLIConfig) { c.dialTimeout = 0 }, true},
		{"negative readiness timeout", func(c *CLIConfig) { c.readinessTimeout = -time.Second }, true},
		{"zero max size", func(c *CLIConfig) { c.maxFileSize = 0 }, true},
		{"unknown digest", func(c *CLIConfig) { c.digest = "md5" }, true},
		{"bad log level", func(c *CLIConfig) { c.logLevel = "LOUD" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)
			err := validateCLIConfig(config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	level, err := parseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, level)

	level, err = parseLogLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, level)
}

func TestCreateOptions(t *testing.T) {
	config := validConfig()
	config.digest = "blake2b-256"
	config.address = "10.0.0.2"
	config.port = 40001

	options, err := createOptions(config)
	require.NoError(t, err)
	assert.Equal(t, uint16(40001), options.Port)
	assert.Equal(t, "10.0.0.2", options.Address)
	assert.Equal(t, session.BLAKE2b256.Name(), options.Digest.Name())
}

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, "0 bytes", formatProgress(0, 0))
	assert.Equal(t, "12288 / 40000 bytes (30.7%)", formatProgress(12288, 40000))
	assert.Equal(t, "40000 / 40000 bytes (100.0%)", formatProgress(40000, 40000))
}
