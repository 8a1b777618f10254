// Package cmd wires the synchronization profiler's components behind a
// cobra CLI: version reporting sourced from embedded build info when
// ldflags leave it at its default, a single root command with one
// subcommand doing the real work.
package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/SoftwareStartups/sync-prof/internal/alertbus"
	"github.com/SoftwareStartups/sync-prof/internal/driver"
	"github.com/SoftwareStartups/sync-prof/internal/logging"
	"github.com/SoftwareStartups/sync-prof/internal/model"
	"github.com/SoftwareStartups/sync-prof/internal/spconfig"
	"github.com/SoftwareStartups/sync-prof/internal/view"
)

var (
	Version string = "dev"
	Commit  string = "none"
	Date    string = "unknown"
	OsExit         = os.Exit
)

func init() {
	bi, ok := debug.ReadBuildInfo()
	if !ok || Version != "dev" {
		return
	}
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		Version = bi.Main.Version
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			Commit = setting.Value
		case "vcs.time":
			Date = setting.Value
		}
	}
}

// Execute builds and runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the syncprof root command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "syncprof",
		Short: "Synchronization profiler for debugger-attached multithreaded traces",
		Long: `syncprof drives a debugger against a running target, records every
synchronization primitive it touches, and renders a causal trace in text or
Chrome trace-event format.`,
		Run: func(cmd *cobra.Command, args []string) {
			versionFlag, _ := cmd.Flags().GetBool("version")
			if versionFlag {
				fmt.Println(PrintVersion())
				OsExit(0)
				return
			}
			_ = cmd.Help()
		},
	}
	cmd.Flags().BoolP("version", "v", false, "Print version information")
	cmd.Version = Version
	cmd.AddCommand(NewTraceCommand())
	return cmd
}

// PrintVersion renders the version banner.
func PrintVersion() string {
	return fmt.Sprintf("syncprof v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// NewTraceCommand builds the `trace` subcommand: load configuration, attach
// the GDB driver to the target, run it to completion, and render the trace.
func NewTraceCommand() *cobra.Command {
	var configPath string
	var debugLog bool

	cmd := &cobra.Command{
		Use:   "trace -- <target> [target-args...]",
		Short: "Trace a target process's synchronization primitives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(configPath, debugLog, args[0], args[1:])
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "syncprof.toml", "path to the primitive/output configuration file")
	cmd.Flags().BoolVar(&debugLog, "debug", false, "enable debug-level logging")
	return cmd
}

func runTrace(configPath string, debugLog bool, targetPath string, targetArgs []string) error {
	logger, err := logging.NewZap(debugLog)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	cfg, err := spconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("create output %s: %w", cfg.OutputPath, err)
	}

	sessionID := uuid.NewString()
	logger.Info("starting trace session", "session_id", sessionID, "target", targetPath)

	v, err := newView(cfg.OutputFormat, out)
	if err != nil {
		_ = out.Close()
		return err
	}

	bus := alertbus.New(targetPath)
	m := model.New(v, logger, bus)

	gdb, err := driver.NewGDB(targetPath, targetArgs...)
	if err != nil {
		return fmt.Errorf("start gdb: %w", err)
	}
	defer gdb.Close()

	ctrl := driver.NewController(m, logger, driver.OpaqueTable(cfg.OpaqueTable()))
	for _, name := range cfg.Names() {
		if err := gdb.InstallBreakpoint(name); err != nil {
			return fmt.Errorf("install breakpoint %s: %w", name, err)
		}
	}
	if err := gdb.Run(); err != nil {
		return fmt.Errorf("run target: %w", err)
	}

	for {
		_, err := gdb.NextStop()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Error("gdb read failed", "error", err)
			break
		}
		// A complete MI record parser maps each stop to OnEntry/OnFinish calls
		// against ctrl; left as the driver's responsibility.
	}

	if err := ctrl.Shutdown(); err != nil {
		logger.Error("flush trace failed", "error", err)
		return fmt.Errorf("flush trace: %w", err)
	}

	summary := m.Summary()
	for _, name := range cfg.Names() {
		fmt.Fprintf(os.Stdout, "%-32s %d\n", name, summary[name])
	}
	return nil
}

func newView(format string, out *os.File) (view.View, error) {
	switch format {
	case "text":
		return view.NewText(out), nil
	case "chrome":
		return view.NewChrome(out), nil
	default:
		return nil, fmt.Errorf("unrecognized output format %q", format)
	}
}
