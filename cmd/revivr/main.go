package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/loykin/revivr"
	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, revivr.ErrVerifyFailed) {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
	NoColor    bool
}

// buildRoot creates the root command. Running revivr with no subcommand
// performs a restart with the built-in defaults, so the classic
// zero-argument invocation still works.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	restartFlags := &RestartFlags{}
	watchFlags := &WatchFlags{}

	c := command{flags: globalFlags}

	root := &cobra.Command{
		Use:   "revivr",
		Short: "Restart and supervise a single background process",
		Long: `Revivr finds a running process by pidfile or command-line pattern,
stops it (gracefully, then forcibly), relaunches it detached with its output
redirected to a log file, and verifies the relaunch.

Examples:
  revivr                          # restart with built-in defaults
  revivr restart --config bot.toml
  revivr status --config bot.toml
  revivr watch --config bot.toml  # keep it running, with HTTP API`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Restart(*restartFlags)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().BoolVar(&globalFlags.NoColor, "no-color", false, "disable colored console output")

	root.AddCommand(
		createRestartCommand(c, restartFlags),
		createStatusCommand(c),
		createStopCommand(c),
		createWatchCommand(c, watchFlags),
	)
	return root
}

func createRestartCommand(c command, flags *RestartFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop any running instance and relaunch it",
		Long: `Stop every process matching the configured identity, relaunch a fresh
instance detached from this session, and verify it is alive.

Exit status is 0 on a verified relaunch and 1 when the new process is not
alive after the verify window (check the log file in that case).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Restart(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Script, "script", "", "override configured script")
	cmd.Flags().StringVar(&flags.Interpreter, "interpreter", "", "override configured interpreter")
	cmd.Flags().StringVar(&flags.WorkDir, "workdir", "", "override configured working directory")
	return cmd
}

func createStatusCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the supervised process is alive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Status()
		},
	}
}

func createStopCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the supervised process without relaunching it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Stop()
		},
	}
}

func createWatchCommand(c command, flags *WatchFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Restart the process and relaunch it whenever it dies",
		Long: `Restart the process, then keep polling its liveness and relaunch it on
death. When a listen address is configured (or passed via --listen) an HTTP
API with status, restart, stop and Prometheus metrics endpoints is served.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Watch(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Listen, "listen", "", "HTTP API listen address (overrides config)")
	return cmd
}
