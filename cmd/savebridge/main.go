// Package main provides the command-line front-end for the save bridge.
//
// It sends a save file to a device that is waiting to receive one, or waits
// for a device to send one and writes it to disk once its checksum matches.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/opd-ai/savebridge"
	"github.com/opd-ai/savebridge/backup"
	"github.com/opd-ai/savebridge/observability/prom"
	"github.com/opd-ai/savebridge/protocol"
	"github.com/opd-ai/savebridge/session"
	"github.com/opd-ai/savebridge/transport"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	infoColor  = color.New(color.FgGreen)
)

// printUsage prints the usage information.
func printUsage(fs interface{ PrintDefaults() }) {
	fmt.Println("Save Bridge")
	fmt.Println("===========")
	fmt.Println()
	fmt.Println("Moves a save file between two devices on the same network.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s send [options] <save file>\n", os.Args[0])
	fmt.Printf("  %s receive [options] <output file>\n", os.Args[0])
	fmt.Println()
	fmt.Println("Options:")
	fs.PrintDefaults()
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Printf("  %s, %s, %s,\n", envPort, envLogLevel, envLogFile)
	fmt.Printf("  %s, %s, %s\n", envMetricsAddr, envBackupDir, envDigest)
	fmt.Println("  are read from the process environment or a .env file.")
}

func parseLogLevel(level string) (logrus.Level, error) {
	switch strings.ToUpper(level) {
	case "WARN":
		return logrus.WarnLevel, nil
	default:
		return logrus.ParseLevel(strings.ToLower(level))
	}
}

// setupLogging configures logrus to write to stderr and, when a log file is
// configured, to a rotating file as well.
func setupLogging(config *CLIConfig) io.Closer {
	level, _ := parseLogLevel(config.logLevel)
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if config.logFile == "" {
		logrus.SetOutput(os.Stderr)
		return io.NopCloser(nil)
	}

	rotator := &lumberjack.Logger{
		Filename:   config.logFile,
		MaxSize:    10, // MB
		MaxBackups: 3,
		Compress:   false,
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return rotator
}

// serveMetrics exposes the registry on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, handler http.Handler) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithFields(logrus.Fields{
				"function": "serveMetrics",
				"addr":     addr,
				"error":    err.Error(),
			}).Error("Metrics server stopped")
		}
	}()
}

// createOptions converts CLI configuration to bridge options.
func createOptions(config *CLIConfig) (*savebridge.Options, error) {
	digest, err := session.DigestByName(config.digest)
	if err != nil {
		return nil, err
	}

	options := savebridge.NewOptions()
	options.Port = uint16(config.port)
	options.Address = config.address
	options.DialTimeout = config.dialTimeout
	options.ReadinessTimeout = config.readinessTimeout
	options.MaxFileSize = config.maxFileSize
	options.Digest = digest
	return options, nil
}

// formatProgress renders a progress line for cursor out of total bytes.
func formatProgress(cursor, total uint32) string {
	if total == 0 {
		return fmt.Sprintf("%d bytes", cursor)
	}
	return fmt.Sprintf("%d / %d bytes (%.1f%%)", cursor, total, float64(cursor)*100/float64(total))
}

func reportError(_ protocol.ErrorKind, message string, errno syscall.Errno) {
	fmt.Fprintln(os.Stderr)
	if errno != 0 {
		errorColor.Fprintf(os.Stderr, "✗ %s (errno %d: %v)\n", message, int(errno), errno)
		return
	}
	errorColor.Fprintf(os.Stderr, "✗ %s\n", message)
}

func reportProgress(cursor, total uint32) {
	if total == 0 && cursor == 0 {
		return
	}
	fmt.Printf("\r%s", formatProgress(cursor, total))
}

// writeBackup stores a copy of data when a backup directory is configured.
func writeBackup(config *CLIConfig, data []byte) {
	if config.backupDir == "" {
		return
	}
	if _, err := backup.Write(config.backupDir, data, time.Now()); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "writeBackup",
			"dir":      config.backupDir,
			"error":    err.Error(),
		}).Warn("Backup failed")
	}
}

func newBridge(config *CLIConfig, options *savebridge.Options) (*savebridge.Bridge, error) {
	switch config.mode {
	case "send":
		data, err := os.ReadFile(config.file)
		if err != nil {
			return nil, fmt.Errorf("read save: %w", err)
		}
		writeBackup(config, data)
		return savebridge.NewSender(options, savebridge.SaveSourceFunc(func() []byte { return data }))

	default:
		loader := savebridge.SaveLoaderFunc(func(data []byte) error {
			if err := os.WriteFile(config.file, data, 0o644); err != nil {
				return err
			}
			writeBackup(config, data)
			return nil
		})
		b, err := savebridge.NewReceiver(options, loader)
		if err != nil {
			return nil, err
		}
		if ip, err := transport.LocalIPv4(); err == nil {
			infoColor.Printf("Waiting for a save on %s:%d\n", ip, b.Port())
		} else {
			infoColor.Printf("Waiting for a save on port %d\n", b.Port())
		}
		return b, nil
	}
}

// setupSignalHandling sets up graceful shutdown on interrupt signals.
func setupSignalHandling(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		fmt.Printf("\nReceived signal %v, cancelling transfer...\n", sig)
		cancel()
	}()
}

func run(config *CLIConfig) int {
	closer := setupLogging(config)
	defer closer.Close()

	options, err := createOptions(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	if config.metricsAddr != "" {
		reg := prom.NewRegistry()
		options.Observer = prom.NewBridgeObserver(reg)
		serveMetrics(ctx, config.metricsAddr, prom.Handler(reg))
	}

	bridge, err := newBridge(config, options)
	if err != nil {
		var perr *protocol.Error
		if errors.As(err, &perr) {
			reportError(perr.Kind, options.Localizer.Localize(perr.Kind), perr.Errno)
		} else {
			errorColor.Fprintf(os.Stderr, "✗ %v\n", err)
		}
		return 1
	}
	bridge.OnProgress(reportProgress)
	bridge.OnError(reportError)

	err = bridge.Run(ctx)
	fmt.Println()
	switch {
	case err == nil:
		infoColor.Printf("Transfer complete (%s)\n", config.file)
		return 0
	case errors.Is(err, savebridge.ErrCancelled):
		fmt.Println("Transfer cancelled")
		return 130
	default:
		return 1
	}
}

// main is the entry point for the save bridge.
func main() {
	loadEnv()

	config, fs, err := parseCLIFlags(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}

	if config.help {
		printUsage(fs)
		os.Exit(0)
	}

	if err := validateCLIConfig(config); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Use -help for usage information.\n")
		os.Exit(1)
	}

	os.Exit(run(config))
}
