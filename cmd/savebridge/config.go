package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/opd-ai/savebridge/limits"
	"github.com/opd-ai/savebridge/protocol"
	"github.com/opd-ai/savebridge/session"
	"github.com/opd-ai/savebridge/transport"
)

// Environment variables consulted for flag defaults.
const (
	envPort        = "SAVEBRIDGE_PORT"
	envLogLevel    = "SAVEBRIDGE_LOG_LEVEL"
	envLogFile     = "SAVEBRIDGE_LOG_FILE"
	envMetricsAddr = "SAVEBRIDGE_METRICS_ADDR"
	envBackupDir   = "SAVEBRIDGE_BACKUP_DIR"
	envDigest      = "SAVEBRIDGE_DIGEST"
)

// CLI configuration
type CLIConfig struct {
	mode             string
	file             string
	address          string
	port             uint
	dialTimeout      time.Duration
	readinessTimeout time.Duration
	maxFileSize      uint64
	digest           string
	backupDir        string
	logLevel         string
	logFile          string
	metricsAddr      string
	help             bool
}

// loadEnv reads a .env file in the working directory into the process
// environment when one exists.
func loadEnv() {
	_ = godotenv.Load()
}

// parseCLIFlags parses "<send|receive> [options] <file>". getenv supplies the
// defaults that flags override.
func parseCLIFlags(args []string, getenv func(string) string, output io.Writer) (*CLIConfig, *flag.FlagSet, error) {
	config := &CLIConfig{}
	fs := flag.NewFlagSet("savebridge", flag.ContinueOnError)
	fs.SetOutput(output)

	port := uint(protocol.DefaultPort)
	if v := getenv(envPort); v != "" {
		p, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return nil, fs, fmt.Errorf("invalid %s %q: %w", envPort, v, err)
		}
		port = uint(p)
	}

	// Network configuration
	fs.UintVar(&config.port, "port", port, "TCP port to listen on or connect to")
	fs.StringVar(&config.address, "address", "", "Address of the receiving device (send only)")
	fs.DurationVar(&config.dialTimeout, "dial-timeout", transport.DefaultDialTimeout, "Connect timeout")
	fs.DurationVar(&config.readinessTimeout, "readiness-timeout", 0, "Wait up to this long for socket readiness before each segment (0 disables)")

	// Transfer configuration
	fs.Uint64Var(&config.maxFileSize, "max-size", limits.DefaultMaxFileSize, "Largest save accepted when receiving")
	fs.StringVar(&config.digest, "digest", envOr(getenv, envDigest, "sha256"), "Checksum algorithm (sha256, blake2b-256)")
	fs.StringVar(&config.backupDir, "backup-dir", getenv(envBackupDir), "Directory for timestamped backups of transferred saves")

	// Logging configuration
	fs.StringVar(&config.logLevel, "log-level", envOr(getenv, envLogLevel, "INFO"), "Log level (DEBUG, INFO, WARN, ERROR)")
	fs.StringVar(&config.logFile, "log-file", getenv(envLogFile), "Rotating log file path (default: stderr only)")
	fs.StringVar(&config.metricsAddr, "metrics-addr", getenv(envMetricsAddr), "Serve Prometheus metrics on this address")

	// Help
	fs.BoolVar(&config.help, "help", false, "Show help message")

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		config.mode = args[0]
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	if fs.NArg() > 0 {
		config.file = fs.Arg(0)
	}
	return config, fs, nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(config *CLIConfig) error {
	if config.mode != "send" && config.mode != "receive" {
		return fmt.Errorf("unknown mode %q: must be send or receive", config.mode)
	}

	if config.port == 0 || config.port > 65535 {
		return fmt.Errorf("invalid port: must be between 1 and 65535")
	}

	if config.file == "" {
		return fmt.Errorf("%s requires a save file path", config.mode)
	}

	if config.dialTimeout <= 0 {
		return fmt.Errorf("dial timeout must be positive")
	}

	if config.readinessTimeout < 0 {
		return fmt.Errorf("readiness timeout cannot be negative")
	}

	if config.maxFileSize == 0 || config.maxFileSize > limits.MaxFileSize {
		return fmt.Errorf("max size must be between 1 and %d", uint64(limits.MaxFileSize))
	}

	if _, err := session.DigestByName(config.digest); err != nil {
		return err
	}

	if _, err := parseLogLevel(config.logLevel); err != nil {
		return err
	}

	return nil
}
