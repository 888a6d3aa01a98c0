package testexec

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-testexec/filter"
	"github.com/ethereum-optimism/infra/op-testexec/flags"
	"github.com/ethereum-optimism/infra/op-testexec/registry"
	"github.com/ethereum-optimism/infra/op-testexec/service"
)

// Config holds the application configuration
type Config struct {
	PlanFile      string        // Optional run plan
	Gate          string        // Gate of the plan to run
	Groups        []string      // Group filter applied on top of the gate's groups
	Filter        string        // Expression filter applied on top of the gate's filter
	ListOnly      bool          // Print the selection and exit
	Serial        bool          // Run on a single worker
	SerialSet     bool          // Serial was given explicitly and overrides the plan
	Concurrency   int           // Worker count, 0 defers to the plan or GOMAXPROCS
	RunInterval   time.Duration // Interval between runs
	RunOnce       bool          // Exit after one run
	LogDir        string        // Directory for per-run logs and summaries
	ShowTests     bool          // Include individual tests in the results table
	MarshalEvents bool          // Deliver events on the lifecycle goroutine
	Service       service.Config
	Log           log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	var planFile string
	if p := ctx.String(flags.Plan.Name); p != "" {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for plan '%s': %w", p, err)
		}
		planFile = abs
	}

	logDir := ctx.String(flags.LogDir.Name)
	if logDir == "" {
		logDir = "logs"
	}
	logDir, err := filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
	}

	expr := ctx.String(flags.Filter.Name)
	if _, err := filter.Compile(expr); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	metricsCfg := opmetrics.ReadCLIConfig(ctx)

	return &Config{
		PlanFile:      planFile,
		Gate:          ctx.String(flags.Gate.Name),
		Groups:        flags.SplitGroups(ctx.StringSlice(flags.Groups.Name)),
		Filter:        expr,
		ListOnly:      ctx.Bool(flags.List.Name),
		Serial:        ctx.Bool(flags.Serial.Name),
		SerialSet:     ctx.IsSet(flags.Serial.Name),
		Concurrency:   ctx.Int(flags.Concurrency.Name),
		RunInterval:   runInterval,
		RunOnce:       runInterval == 0,
		LogDir:        logDir,
		ShowTests:     ctx.Bool(flags.ShowTests.Name),
		MarshalEvents: ctx.Bool(flags.MarshalEvents.Name),
		Service: service.Config{
			HealthzEnabled: ctx.Bool(flags.HealthzEnabled.Name),
			HealthzHost:    ctx.String(flags.HealthzAddr.Name),
			HealthzPort:    ctx.Int(flags.HealthzPort.Name),
			MetricsEnabled: metricsCfg.Enabled,
			MetricsHost:    metricsCfg.ListenAddr,
			MetricsPort:    metricsCfg.ListenPort,
		},
		Log: log,
	}, nil
}

// runOptions resolves the runner mode. Flags override the plan's defaults.
func (c *Config) runOptions(plan *registry.Plan) (concurrent bool, workers int) {
	if plan != nil {
		concurrent, workers = plan.Concurrent, plan.Workers
	}
	if c.SerialSet {
		concurrent = !c.Serial
	}
	if c.Concurrency > 0 {
		workers = c.Concurrency
	}
	if c.Serial {
		workers = 1
	}
	return concurrent, workers
}
