package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/actionsum/focuslens/internal/config"
	"github.com/actionsum/focuslens/internal/daemon"
	"github.com/actionsum/focuslens/internal/tracker"
	"github.com/actionsum/focuslens/internal/web"
	"github.com/actionsum/focuslens/pkg/detector"
)

const shutdownTimeout = 10 * time.Second

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the tracking daemon",
	Long: `Start tracking the focused window in the background.

Examples:
  focuslens start               # Detach and track in the background
  focuslens start --foreground  # Track in this terminal, logging to stderr`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tracking daemon with the JSON API",
	Long: `Start tracking in the background and serve the analytics API.

Examples:
  focuslens serve              # API on FOCUSLENS_WEB_HOST:FOCUSLENS_WEB_PORT
  focuslens serve --port 8080  # API on port 8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the tracking daemon",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and the currently focused window",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

// Flags
var (
	foreground   bool
	servePort    int
	pollInterval time.Duration
)

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)

	for _, cmd := range []*cobra.Command{startCmd, serveCmd} {
		cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in this process instead of detaching")
		cmd.Flags().DurationVar(&pollInterval, "interval", 0, "Window poll interval (default from FOCUSLENS_POLL_INTERVAL)")
	}
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from FOCUSLENS_WEB_PORT)")
}

func runStart(cmd *cobra.Command, args []string) error {
	return launch(cmd, false)
}

func runServe(cmd *cobra.Command, args []string) error {
	return launch(cmd, true)
}

// launch detaches into a child process unless running in the foreground or already the child.
func launch(cmd *cobra.Command, withWeb bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if pollInterval != 0 {
		if err := cfg.SetPollInterval(pollInterval); err != nil {
			return err
		}
	}
	if withWeb && servePort != 0 {
		if err := cfg.SetWebPort(servePort); err != nil {
			return err
		}
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return fmt.Errorf("daemon is already running (PID: %d)", pid)
	}

	out := cmd.OutOrStdout()
	if !foreground && !daemon.IsChild() {
		pid, err := daemon.Spawn(os.Args[1:])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Daemon started successfully (PID: %d)\n", pid)
		if withWeb {
			fmt.Fprintf(out, "Web API available at: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
		}
		fmt.Fprintf(out, "Logs: %s\n", cfg.Daemon.LogFile)
		return nil
	}

	var w io.Writer = os.Stderr
	if daemon.IsChild() {
		file, closeLog := openLogFile(cfg.Daemon.LogFile)
		defer closeLog()
		w = file
	}

	return runDaemon(cmd.Context(), cfg, dm, newLogger(cfg, w), withWeb)
}

func runDaemon(parent context.Context, cfg *config.Config, dm *daemon.Daemon, logger *slog.Logger, withWeb bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := NewAppContext(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer closeCancel()
		if err := app.Close(closeCtx); err != nil {
			logger.Warn("failed to close resources", slog.Any("error", err))
		}
	}()

	det, err := detector.New(cfg.Tracker.IdleThreshold)
	if err != nil {
		return fmt.Errorf("failed to initialize window detector: %w", err)
	}
	defer det.Close()
	logger.Info("window detector initialized", slog.String("display_server", det.GetDisplayServer()))

	if err := dm.WritePID(); err != nil {
		return err
	}
	defer func() {
		if err := dm.RemovePID(); err != nil {
			logger.Warn("failed to remove PID file", slog.Any("error", err))
		}
	}()

	svc := tracker.NewService(cfg, app.Engine, app.Repo, det, logger,
		tracker.WithCategories(app.Engine.Categories()),
		tracker.WithUsage(app.Collector))

	if cfg.Monitor.Interval > 0 {
		go func() {
			if err := app.Monitor.Start(ctx, cfg.Monitor.Interval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("resource monitor stopped", slog.Any("error", err))
			}
		}()
	}

	var server *web.Server
	if withWeb {
		server = web.NewServer(cfg, web.NewHandler(cfg, app.Repo, app.Engine, logger), 0, logger)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("web server error", slog.Any("error", err))
				cancel()
			}
		}()
		logger.Info("web API available", slog.String("address", "http://"+server.GetAddress()))
	}

	logger.Info("starting focuslens daemon", slog.Int("pid", os.Getpid()))
	logger.Debug(cfg.String())

	err = svc.Start(ctx)

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down web server", slog.Any("error", err))
		}
	}
	app.Monitor.Stop()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("tracker error: %w", err)
	}
	logger.Info("daemon stopped")
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	pid, err := daemon.New(cfg.Daemon.PIDFile).Stop()
	if errors.Is(err, daemon.ErrNotRunning) {
		fmt.Fprintln(out, "Daemon is not running")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	fmt.Fprintf(out, "Sent stop signal to daemon (PID: %d)\n", pid)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	running, pid, err := daemon.New(cfg.Daemon.PIDFile).IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		fmt.Fprintf(out, "Status: Running (PID: %d)\n", pid)
		fmt.Fprintf(out, "Poll Interval: %v\n", cfg.Tracker.PollInterval)
	} else {
		fmt.Fprintln(out, "Status: Not running")
	}

	det, err := detector.New(cfg.Tracker.IdleThreshold)
	if err != nil {
		fmt.Fprintf(out, "\nCould not detect current window: %v\n", err)
		return nil
	}
	defer det.Close()

	if info, err := det.GetFocusedWindow(); err == nil && info != nil {
		fmt.Fprintln(out, "\nCurrent Window:")
		fmt.Fprintf(out, "  App:     %s\n", info.AppName)
		fmt.Fprintf(out, "  Title:   %s\n", info.WindowTitle)
		fmt.Fprintf(out, "  Display: %s\n", info.DisplayServer)
	}

	if idle, err := det.GetIdleInfo(); err == nil && idle != nil {
		fmt.Fprintln(out, "\nSystem State:")
		fmt.Fprintf(out, "  Idle:      %v\n", idle.IsIdle)
		fmt.Fprintf(out, "  Locked:    %v\n", idle.IsLocked)
		fmt.Fprintf(out, "  Idle Time: %s\n", idle.IdleTime.Round(time.Second))
	}
	return nil
}
