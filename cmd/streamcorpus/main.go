// Command streamcorpus inspects entity types and chunk files and manages a
// chunk archive backed by blob storage and a catalog database.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"streamcorpus/internal/config"
	"streamcorpus/internal/logging"
	"streamcorpus/internal/metrics"
)

var (
	exitFunc = os.Exit
	getenv   = os.Getenv
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

// app carries state shared by every subcommand.
type app struct {
	stdout, stderr io.Writer

	configPath  string
	logLevel    string
	metricsFile string

	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	// Failed commands still count, so metrics are written whatever the outcome.
	if ferr := a.flushMetrics(); ferr != nil {
		err = errors.Join(err, ferr)
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "streamcorpus",
		Short:         "Entity types, chunk files and the chunk archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML config file (default $"+config.EnvConfigPath+")")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	cmd.AddCommand(
		a.entityTypesCmd(),
		a.lookupCmd(),
		a.inspectCmd(),
		a.packCmd(),
		a.unpackCmd(),
		a.archiveCmd(),
		a.extractCmd(),
		a.catalogCmd(),
		a.statsCmd(),
		a.removeCmd(),
		a.schemaCmd(),
		a.versionCmd(),
	)
	return cmd
}

func (a *app) setup() error {
	path := a.configPath
	if path == "" {
		path = getenv(config.EnvConfigPath)
	}
	cfg, err := config.Load(path, getenv)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	logger, _, err := logging.New(cfg.Log, a.stderr)
	if err != nil {
		return err
	}
	a.registry = prometheus.NewRegistry()
	collector, err := metrics.NewCollector(a.registry)
	if err != nil {
		return err
	}
	a.cfg, a.logger, a.metrics = cfg, logger, collector
	return nil
}

func (a *app) flushMetrics() error {
	if a.metricsFile == "" || a.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
