// Command jdi-mcp is a Model Context Protocol server that exposes a JVM
// symbolic debugger to LLM agents over stdio.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jdimcp/jdi-mcp/internal/config"
	"github.com/jdimcp/jdi-mcp/internal/jdwp"
	"github.com/jdimcp/jdi-mcp/internal/mcp"
	"github.com/jdimcp/jdi-mcp/internal/version"
)

func main() {
	var (
		configPath  string
		logLevel    string
		logFile     string
		showVersion bool
	)

	rootCmd := &cobra.Command{
		Use:   "jdi-mcp",
		Short: "MCP server exposing a JVM debugger to LLM agents",
		Long: `jdi-mcp is a Model Context Protocol server that lets an LLM agent drive
a JVM debugger: breakpoints, watchpoints, stepping, stack and variable
inspection, expression evaluation and method invocation, over stdio.

The target JVM is either launched by the server or attached to via a
JDWP socket (-agentlib:jdwp=transport=dt_socket,server=y,address=...).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Printf("jdi-mcp version %s\n", version.Version)
				return nil
			}
			return run(configPath, logLevel, logFile)
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "path to JSON configuration file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "log destination (default: stderr; stdout carries the protocol)")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath, logLevel, logFile string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}

	log, err := setupLogging(cfg)
	if err != nil {
		return err
	}

	server := mcp.NewServer(cfg, jdwp.NewAdapter(log), log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		server.Close()
		os.Exit(0)
	}()

	log.WithField("version", version.Version).Info("jdi-mcp server starting")
	if err := server.ServeStdio(); err != nil {
		server.Close()
		return fmt.Errorf("server error: %w", err)
	}
	server.Close()
	return nil
}

// setupLogging configures logrus. Stdout is the MCP transport, so logs
// default to stderr.
func setupLogging(cfg *config.Config) (*logrus.Entry, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("cannot open log file: %w", err)
		}
		logger.SetOutput(f)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logrus.NewEntry(logger), nil
}
