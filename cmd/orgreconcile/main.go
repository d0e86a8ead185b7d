// Command orgreconcile runs the membership reconciler once against MongoDB
// and prints the run report as JSON.
//
//	orgreconcile -verify-only          report drift without writing
//	orgreconcile -history 5            print the five most recent runs
//
// The exit status is 1 when the run aborted, when any repair failed, or
// when -verify-only found inconsistencies.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dalemusser/orghub/internal/app/bootstrap"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/orghub/internal/app/store/memberships"
	"github.com/dalemusser/orghub/internal/app/store/reconcileruns"
	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"github.com/dalemusser/orghub/internal/app/system/membership"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/dalemusser/orghub/internal/app/system/workers"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

type options struct {
	mongoURI      string
	mongoDatabase string
	verifyOnly    bool
	history       int64
	timeout       time.Duration
	auditMode     string
	verbose       bool
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("orgreconcile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.mongoURI, "mongo-uri", envOr("ORGHUB_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	fs.StringVar(&o.mongoDatabase, "mongo-database", envOr("ORGHUB_MONGO_DATABASE", "orghub"), "MongoDB database name")
	fs.BoolVar(&o.verifyOnly, "verify-only", false, "Report inconsistencies without repairing them")
	fs.Int64Var(&o.history, "history", 0, "Print the N most recent runs instead of running")
	fs.DurationVar(&o.timeout, "timeout", timeouts.DefaultSweep, "Deadline for the whole run")
	fs.StringVar(&o.auditMode, "audit", envOr("ORGHUB_AUDIT_LOG_MAINTENANCE", auditlog.ModeAll), "Audit mode for the run summary: all, db, log, off")
	fs.BoolVar(&o.verbose, "verbose", false, "Enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if err := wafflemongo.ValidateURI(o.mongoURI); err != nil {
		return options{}, fmt.Errorf("invalid -mongo-uri: %w", err)
	}
	if o.history < 0 {
		return options{}, fmt.Errorf("-history must not be negative")
	}
	if o.timeout <= 0 {
		return options{}, fmt.Errorf("-timeout must be positive")
	}
	if !auditlog.ValidMode(o.auditMode) {
		return options{}, fmt.Errorf("-audit must be one of all, db, log, off; got %q", o.auditMode)
	}
	return o, nil
}

// exitCode maps a finished run to the process exit status.
func exitCode(rep membership.Report, verifyOnly bool) int {
	if rep.Failures > 0 {
		return 1
	}
	if verifyOnly && rep.Residual.Total() > 0 {
		return 1
	}
	return 0
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func main() {
	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	os.Exit(run(opts))
}

func run(opts options) int {
	logger, err := newLogger(opts.verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := bootstrap.OpenMongo(ctx, bootstrap.AppConfig{
		MongoURI:      opts.mongoURI,
		MongoDatabase: opts.mongoDatabase,
	}, logger)
	if err != nil {
		logger.Error("connect failed", zap.Error(err))
		return 1
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := client.Database(opts.mongoDatabase)
	runs := reconcileruns.New(db)

	if opts.history > 0 {
		recent, err := runs.Recent(ctx, opts.history)
		if err != nil {
			logger.Error("load run history failed", zap.Error(err))
			return 1
		}
		if err := writeJSON(os.Stdout, recent); err != nil {
			logger.Error("write output failed", zap.Error(err))
			return 1
		}
		return 0
	}

	timeouts.Configure(timeouts.Config{Sweep: opts.timeout})
	reconciler := membership.NewReconciler(membershipstore.New(db), logger, timeouts.Store())
	auditLog := auditlog.New(audit.New(db), logger, auditlog.Uniform(opts.auditMode))
	worker := workers.NewReconcile(reconciler, runs, auditLog, logger, 0)

	runCtx, cancel := context.WithTimeout(ctx, timeouts.Sweep())
	defer cancel()

	rep, runErr := worker.RunOnce(runCtx, opts.verifyOnly)
	if rep.ID != "" {
		if err := writeJSON(os.Stdout, rep); err != nil {
			logger.Error("write output failed", zap.Error(err))
		}
	}
	if runErr != nil {
		return 1
	}
	return exitCode(rep, opts.verifyOnly)
}
