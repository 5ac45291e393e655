package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"deninstall/internal/app"
	"deninstall/internal/config"
	denerrors "deninstall/internal/errors"
	"deninstall/internal/ui"
)

// version is set at build time via ldflags
var version = "dev"

const caveats = `Den manages a set of global services on the docker host machine. You
will need to have Docker installed and docker compose available in your
local $PATH configuration prior to starting Den.

To start Den simply run:

  den svc up

This command will automatically run "den install" to setup a trusted
local root certificate and sign an SSL certificate for use by services
managed by Den via the "den sign-certificate den.test" command.

To print a complete list of available commands simply run "den" without
any arguments.`

var rootCmd = &cobra.Command{
	Use:     "deninstall",
	Short:   "Den installer - checks Docker and installs Den",
	Version: version,
	Long: `deninstall checks that Docker Engine and the Docker Compose plugin are
installed, running and recent enough, then installs a Den release and starts
its dashboard service with docker compose.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that this host meets Den's runtime requirements",
	Run: func(cmd *cobra.Command, args []string) {
		a, closer := mustLoadApp(cmd)
		defer closer()

		decision, err := a.Check(cmd.Context())
		exitOnError(err)

		if decision.Deferred {
			fmt.Println("Docker is installed; start it before using Den.")
			return
		}
		fmt.Printf("Docker %s, Docker Compose %s: OK\n", decision.Probe.ServerVersion, decision.Probe.ComposeVersion)
	},
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install Den and start its dashboard service",
	Long: `Install evaluates the runtime requirements first. Only when they are met
is the release payload copied into the prefix and the dashboard service built
and started with docker compose.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := app.Options{}
		opts.PayloadRoot, _ = cmd.Flags().GetString("payload")
		opts.Prefix, _ = cmd.Flags().GetString("prefix")
		opts.Head, _ = cmd.Flags().GetBool("head")
		opts.Branch, _ = cmd.Flags().GetString("branch")
		opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
		opts.SkipBootstrap, _ = cmd.Flags().GetBool("skip-bootstrap")

		a, closer := mustLoadApp(cmd)
		defer closer()

		exitOnError(a.Run(cmd.Context(), opts))

		if !opts.DryRun {
			fmt.Println()
			fmt.Println(caveats)
		}
	},
}

var postinstallCmd = &cobra.Command{
	Use:   "postinstall",
	Short: "Build and start the dashboard service of an existing install",
	Run: func(cmd *cobra.Command, args []string) {
		prefix, _ := cmd.Flags().GetString("prefix")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		a, closer := mustLoadApp(cmd)
		defer closer()

		exitOnError(a.PostInstall(cmd.Context(), prefix, dryRun))
	},
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the environment Den's services run with",
	Long: `Env prints export lines for the variables the installer hands to docker
compose, so they can be persisted with: eval "$(deninstall env --prefix <dir>)"`,
	Run: func(cmd *cobra.Command, args []string) {
		prefix, _ := cmd.Flags().GetString("prefix")

		a, closer := mustLoadApp(cmd)
		defer closer()

		env, err := a.Environment(prefix)
		exitOnError(err)

		console := ui.NewConsole()
		for _, line := range env.Exports() {
			console.Println(line)
		}
	},
}

var caveatsCmd = &cobra.Command{
	Use:   "caveats",
	Short: "Print post-install notes",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(caveats)
	},
}

func mustLoadApp(cmd *cobra.Command) (*app.App, func()) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		exitOnError(denerrors.NewConfigError(
			"Invalid configuration",
			err.Error(),
			"Fix the config file or the DEN_INSTALLER_* environment variables",
			err,
		))
	}

	deps, closer, err := app.NewComponentFactory(cfg).Dependencies()
	if err != nil {
		exitOnError(denerrors.NewConfigError(
			"Failed to set up the installer",
			err.Error(),
			"Check runtime.probe and that this operating system is supported",
			err,
		))
	}

	a, err := app.New(cfg, deps)
	if err != nil {
		closer()
		exitOnError(err)
	}
	return a, closer
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	denerrors.HandleError(err)
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")

	installCmd.Flags().String("payload", "", "Path to an unpacked Den release")
	installCmd.Flags().String("prefix", "", "Directory to install Den into (required)")
	installCmd.Flags().Bool("head", false, "Install from the development branch instead of a release")
	installCmd.Flags().String("branch", "", "Branch to fetch with --head (default from source.branch)")
	installCmd.Flags().Bool("dry-run", false, "Print what would be done without making any changes")
	installCmd.Flags().Bool("skip-bootstrap", false, "Install the files but do not build or start the dashboard")
	if err := installCmd.MarkFlagRequired("prefix"); err != nil {
		slog.Error("Failed to mark prefix flag as required for install command", "error", err)
	}
	installCmd.MarkFlagsMutuallyExclusive("payload", "head")

	postinstallCmd.Flags().String("prefix", "", "Den install prefix (required)")
	postinstallCmd.Flags().Bool("dry-run", false, "Print the docker compose commands without running them")
	if err := postinstallCmd.MarkFlagRequired("prefix"); err != nil {
		slog.Error("Failed to mark prefix flag as required for postinstall command", "error", err)
	}

	envCmd.Flags().String("prefix", "", "Den install prefix (required)")
	if err := envCmd.MarkFlagRequired("prefix"); err != nil {
		slog.Error("Failed to mark prefix flag as required for env command", "error", err)
	}

	rootCmd.AddCommand(checkCmd, installCmd, postinstallCmd, envCmd, caveatsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
