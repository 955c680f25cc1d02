package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-dashboard/src/config"
	pb "portfolio-dashboard/src/grpc_control"
	"portfolio-dashboard/src/interfaces"
	"portfolio-dashboard/src/logger"
	"portfolio-dashboard/src/scheduler"
	"portfolio-dashboard/src/server"
	"portfolio-dashboard/src/utils"

	"github.com/google/subcommands"
)

// -----------------------------------------------------------------------------
// serve
// -----------------------------------------------------------------------------

type serveCmd struct {
	configPath string
	drain      time.Duration
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the dashboard server and its refresh loop" }
func (*serveCmd) Usage() string {
	return `serve [-config <path>] [-drain <duration>]

  Serves the dashboard over HTTP and websocket, refreshes it from the
  portfolio API every refresh.interval_seconds and exposes the gRPC control
  service. Runs until SIGINT or SIGTERM.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", defaultConfigPath, "path to config file")
	f.DurationVar(&c.drain, "drain", 30*time.Second, "how long to wait for in-flight refreshes on shutdown")
}

func (c *serveCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	conf, appLogger, err := loadConfig(c.configPath)
	if err != nil {
		return subcommands.ExitFailure
	}
	cfg := conf.MConfig

	// 1. Archives
	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		appLogger.Critical("%v", err)
	}
	if db != nil {
		defer db.Close()
		if err := db.CleanupOldData(); err != nil {
			appLogger.Warning("Startup cleanup failed: %v", err)
		}
	}
	pub := setupPublisher(cfg, appLogger)
	if pub != nil {
		defer pub.Close()
	}

	// 2. Dashboard + refresh engine
	srv := server.NewDashboardServer(cfg, appLogger.Named("DashboardServer"))
	ref, err := setupRefresher(cfg, srv, appLogger)
	if err != nil {
		appLogger.Critical("Failed to set up refresher: %v", err)
	}
	if db != nil {
		ref.AddArchive(db)
		srv.Archive = db
	}
	if pub != nil {
		ref.AddArchive(pub)
	}

	market := utils.NewTradingCalendar(cfg.Market.MIC, appLogger.Named("Calendar"))
	srv.Refresh = ref
	srv.Market = market

	interval := time.Duration(cfg.Refresh.IntervalSeconds) * time.Second
	loop := scheduler.NewPollingLoop(interval, ref.RefreshAll, appLogger.Named("Scheduler"))

	// 3. Servers
	control := pb.NewControlService(ref, loop, market, appLogger.Named("ControlService"))
	grpcServer, err := startServers(cfg, srv, control, appLogger)
	if err != nil {
		appLogger.Critical("%v", err)
	}

	// 4. Refresh loop until a signal arrives
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := loop.Start(ctx); err != nil {
		appLogger.Critical("Failed to start refresh loop: %v", err)
	}
	if db != nil {
		go cleanupDaily(ctx, db, appLogger)
	}

	<-ctx.Done()
	appLogger.Info("Shutting down...")

	if err := loop.Stop(); err != nil {
		appLogger.Warning("%v", err)
	}
	if !waitFor(loop.Wait, c.drain) {
		appLogger.Warning("In-flight refreshes still running after %s", c.drain)
	}

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		appLogger.Error("Dashboard server shutdown: %v", err)
	}
	return subcommands.ExitSuccess
}

// -----------------------------------------------------------------------------

func cleanupDaily(ctx context.Context, db interfaces.IDatabase, appLogger *logger.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.CleanupOldData(); err != nil {
				appLogger.Warning("Cleanup failed: %v", err)
			}
		}
	}
}

// waitFor runs wait and reports whether it returned within d.
func waitFor(wait func(), d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

// -----------------------------------------------------------------------------
// refresh
// -----------------------------------------------------------------------------

type refreshCmd struct {
	configPath string
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "refresh the dashboard once and print its text elements" }
func (*refreshCmd) Usage() string {
	return `refresh [-config <path>]

  Runs the three refresh operations once against the portfolio API and
  prints the portfolio value, total gain and daily change. Exits non-zero
  when any operation failed.
`
}

func (c *refreshCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", defaultConfigPath, "path to config file")
}

func (c *refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	conf, appLogger, err := loadConfig(c.configPath)
	if err != nil {
		return subcommands.ExitFailure
	}

	sink := newConsoleSink()
	ref, err := setupRefresher(conf.MConfig, sink, appLogger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	ref.RefreshAll(ctx)
	sink.Print(os.Stdout)

	for _, st := range ref.Status() {
		if st.Failures > 0 {
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}

// -----------------------------------------------------------------------------
// check-config
// -----------------------------------------------------------------------------

type checkConfigCmd struct {
	configPath string
	write      string
}

func (*checkConfigCmd) Name() string     { return "check-config" }
func (*checkConfigCmd) Synopsis() string { return "validate the configuration and print it" }
func (*checkConfigCmd) Usage() string {
	return `check-config [-config <path>] [-write <path>]

  Loads the YAML file, .env and DASHBOARD_* environment overrides, validates
  the result and prints the effective configuration. With -write the
  effective configuration is also saved to the given path.
`
}

func (c *checkConfigCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", defaultConfigPath, "path to config file")
	f.StringVar(&c.write, "write", "", "save the effective configuration to this path")
}

func (c *checkConfigCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	conf, err := config.NewConfig(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	data, err := conf.YAML()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	os.Stdout.Write(data)

	if c.write != "" {
		if err := conf.Save(c.write); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(os.Stderr, "Saved effective configuration to %s\n", c.write)
	}
	return subcommands.ExitSuccess
}
