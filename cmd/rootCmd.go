package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nind/pkg"
	"nind/pkg/config"
	"nind/pkg/log"
	"nind/pkg/runtime"
)

// app carries what the subcommands share. It is filled in by the root
// command's PersistentPreRunE once flags are parsed.
type app struct {
	configPath string
	mode       string
	verbose    bool
	logJSON    bool

	newRuntime func(zerolog.Logger) (runtime.Runtime, error)

	log     zerolog.Logger
	rt      runtime.Runtime
	manager *pkg.Manager
}

func dockerRuntime(logger zerolog.Logger) (runtime.Runtime, error) {
	return runtime.NewDockerRuntime(logger)
}

// NewRootCmd builds the nind command tree talking to the local Docker engine.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{newRuntime: dockerRuntime})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nind",
		Short: "Node-in-Docker NAT topology tool",
		Long: `nind builds simulated internet topologies out of Docker containers:
NAT routers bridging a WAN network to an isolated LAN, and nodes placed
behind them. Every resource it creates is labelled operator=nind.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&a.mode, "mode", "", "How in-container network state is configured: exec or netns")
	flags.BoolVar(&a.logJSON, "log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(
		newBuildImageCmd(a),
		newCreateNatCmd(a),
		newCreateNodeCmd(a),
		newCleanCmd(a),
		newApplyCmd(a),
		newShowCmd(a),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.mode != "" {
		cfg.Mode = config.Mode(a.mode)
		if err = cfg.Validate(); err != nil {
			return err
		}
	}

	level := log.InfoLevel
	if a.verbose {
		level = log.DebugLevel
	}
	a.log = log.New(log.Config{
		Level:      level,
		JSONOutput: a.logJSON,
		Output:     cmd.ErrOrStderr(),
	})

	a.rt, err = a.newRuntime(a.log)
	if err != nil {
		return err
	}
	a.manager = pkg.NewManager(a.rt, cfg, a.log)
	a.log.Debug().Str("mode", string(cfg.Mode)).Str("command", cmd.Name()).Msg("Ready")
	return nil
}

func (a *app) teardown(*cobra.Command, []string) error {
	if a.rt == nil {
		return nil
	}
	return a.rt.Close()
}

// Execute runs the command line in os.Args until ctx is cancelled.
// This is called by main.main().
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// printResult writes an operator handle to stdout.
func printResult(cmd *cobra.Command, res fmt.Stringer) {
	fmt.Fprintln(cmd.OutOrStdout(), res)
}
