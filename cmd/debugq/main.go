package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/npratt/debugq/internal/config"
	"github.com/npratt/debugq/internal/debugger"
	"github.com/npratt/debugq/internal/events"
	"github.com/npratt/debugq/internal/session"
	"github.com/npratt/debugq/internal/shutdown"
	"github.com/npratt/debugq/internal/tui"
)

var version = "dev"

// Flag names shared between commands and viper keys.
const (
	FlagVerbose  = "verbose"
	FlagConfig   = "config"
	FlagLogFile  = "log-file"
	FlagSession  = "session"
	FlagDebugger = "debugger"
	FlagFile     = "file"
)

// newCDBFactory starts one debugger process per opened session. The
// target arguments (dump file, pid, ...) are passed through to the
// debugger binary.
func newCDBFactory(ctx context.Context, cfg *config.Config, logger *slog.Logger, targetArgs []string) session.Factory {
	return session.FactoryFunc(func(sessionID string) (debugger.Driver, debugger.RecoveryService, error) {
		drv := debugger.NewCDB(cfg.Debugger)
		if err := drv.Start(ctx, targetArgs...); err != nil {
			return nil, nil, err
		}
		return drv, debugger.NewProcessRecovery(drv, logger), nil
	})
}

// loadConfigWithOverrides merges config sources and applies CLI flag
// overrides that were explicitly set.
func loadConfigWithOverrides(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed(FlagLogFile) {
		cfg.Paths.Log = viper.GetString(FlagLogFile)
	}
	if cmd.Flags().Changed(FlagDebugger) {
		cfg.Debugger.Path = viper.GetString(FlagDebugger)
	}
	return cfg, nil
}

func main() {
	logLevel := &slog.LevelVar{}
	logger := NewConsoleLogger(logLevel)

	viper.SetEnvPrefix("DEBUGQ")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "debugq",
		Short: "Serialized command queues for native debugger sessions",
		Long: `debugq queues debugger commands per session and executes them one at a
time against a console debugger process, with per-command timeouts,
heartbeats, cancellation, and a bounded result cache.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool(FlagVerbose, false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().String(FlagConfig, "", "Config file path (default: .debugq/config.yaml)")
	rootCmd.PersistentFlags().String(FlagLogFile, "", "Log file path")
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("debugq %s\n", version)
		},
	}

	runCmd := &cobra.Command{
		Use:   "run [-- debugger args]",
		Short: "Run an interactive command shell against one debugger session",
		Long: `Start a debugger process, open a session queue for it, and read
commands from stdin one line at a time. Each command is submitted to the
queue and its result printed when it completes. "quit" exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if viper.GetBool(FlagVerbose) {
				logLevel.Set(slog.LevelDebug)
			}

			cfg, err := loadConfigWithOverrides(cmd)
			if err != nil {
				return err
			}

			fileLogger, err := NewRotatingLogger(cfg.Paths.Log, cfg.LogRotation, logLevel)
			if err != nil {
				return fmt.Errorf("open log: %w", err)
			}

			router := events.NewRouter(events.DefaultBufferSize)
			sinkCtx, sinkCancel := context.WithCancel(cmd.Context())
			defer sinkCancel()

			sink := events.NewLogSink(fileLogger)
			if err := sink.Start(sinkCtx, router.Subscribe().Events()); err != nil {
				return fmt.Errorf("start log sink: %w", err)
			}

			host := session.NewHost(cfg, newCDBFactory(cmd.Context(), cfg, fileLogger, args), router, fileLogger)

			sessionID := viper.GetString(FlagSession)
			svc, err := host.Open(sessionID)
			if err != nil {
				return err
			}

			logger.Info("session ready",
				"session", sessionID,
				"debugger", cfg.Debugger.Path,
			)

			err = shutdown.RunWithGracefulShutdown(
				cmd.Context(),
				logger,
				cfg.Shutdown.Shutdown+cfg.Shutdown.Force,
				func(runCtx context.Context) error {
					return commandShell(runCtx, svc)
				},
				func(shutdownCtx context.Context) error {
					return host.CloseAll()
				},
			)

			_ = host.CloseAll()
			router.Close()
			_ = sink.Stop()
			return err
		},
	}
	runCmd.Flags().String(FlagSession, "default", "Session id for the command queue")
	runCmd.Flags().String(FlagDebugger, "", "Debugger binary (default: cdb)")
	runCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	monitorCmd := &cobra.Command{
		Use:   "monitor <command> [command ...]",
		Short: "Execute commands through the queue with a live monitor",
		Long: `Submit the given debugger commands to a session queue and render the
live monitor TUI while they execute: current command, heartbeats, queue
events, and statistics. Exits when all commands have settled.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if viper.GetBool(FlagVerbose) {
				logLevel.Set(slog.LevelDebug)
			}

			commands := args
			if file := viper.GetString(FlagFile); file != "" {
				fromFile, err := readCommandFile(file)
				if err != nil {
					return err
				}
				commands = append(commands, fromFile...)
			}
			if len(commands) == 0 {
				return fmt.Errorf("no commands given (pass them as arguments or via --file)")
			}

			cfg, err := loadConfigWithOverrides(cmd)
			if err != nil {
				return err
			}

			fileLogger, err := NewRotatingLogger(cfg.Paths.Log, cfg.LogRotation, logLevel)
			if err != nil {
				return fmt.Errorf("open log: %w", err)
			}

			router := events.NewRouter(events.DefaultBufferSize)
			host := session.NewHost(cfg, newCDBFactory(cmd.Context(), cfg, fileLogger, nil), router, fileLogger)

			svc, err := host.Open(viper.GetString(FlagSession))
			if err != nil {
				return err
			}

			tuiEvents := router.SubscribeBuffered(5000).Events()

			ids := make([]string, 0, len(commands))
			for _, text := range commands {
				id, err := svc.Submit(text)
				if err != nil {
					_ = host.CloseAll()
					router.Close()
					return fmt.Errorf("submit %q: %w", text, err)
				}
				ids = append(ids, id)
			}

			// Close the router when every command has settled; the
			// monitor quits when its subscription ends.
			go func() {
				for _, id := range ids {
					_, _ = svc.AwaitResult(cmd.Context(), id)
				}
				_ = host.CloseAll()
				router.Close()
			}()

			_, err = tui.New(tuiEvents).Run()
			return err
		},
	}
	monitorCmd.Flags().String(FlagSession, "default", "Session id for the command queue")
	monitorCmd.Flags().String(FlagDebugger, "", "Debugger binary (default: cdb)")
	monitorCmd.Flags().String(FlagFile, "", "File with one debugger command per line")
	monitorCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(monitorCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// commandShell reads commands from stdin and runs them through the queue.
func commandShell(ctx context.Context, svc interface {
	Submit(text string) (string, error)
	AwaitResult(ctx context.Context, id string) (string, error)
}) error {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		if interactive {
			fmt.Print("dbg> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "quit" || text == "exit" {
			return nil
		}

		id, err := svc.Submit(text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "submit failed: %v\n", err)
			continue
		}
		result, err := svc.AwaitResult(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "await failed: %v\n", err)
			continue
		}
		fmt.Println(result)
	}
}

// readCommandFile reads one debugger command per line, skipping blanks
// and # comments.
func readCommandFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var commands []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		commands = append(commands, line)
	}
	return commands, nil
}
