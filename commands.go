package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/spaghettifunk/skirmish/engine"
	"github.com/spaghettifunk/skirmish/engine/config"
	"github.com/spaghettifunk/skirmish/testbed"
)

var (
	cfgFile  string
	logLevel string
	headless bool
	frames   uint64
	level    string
)

var rootCmd = &cobra.Command{
	Use:   "skirmish",
	Short: "A small arena running on the skirmish engine",
	Long: `Skirmish loads a level, spawns a player and a ring of enemies and
renders them either through Vulkan or through the headless backend.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the game loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)
		cmd.Printf("%+v\n", *cfg)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./skirmish.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	rootCmd.PersistentFlags().StringVar(&level, "level", "", "override the level file")

	runCmd.Flags().BoolVar(&headless, "headless", false, "render without a window or GPU")
	runCmd.Flags().Uint64Var(&frames, "frames", 0, "stop after this many frames (0 runs until closed)")

	rootCmd.AddCommand(runCmd, configCmd)
}

// applyFlags layers explicitly set command line flags over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("level") {
		cfg.Level.File = level
	}
	if flags.Changed("headless") && headless {
		cfg.Renderer.Backend = config.BackendHeadless
	}
	if flags.Changed("frames") {
		cfg.Renderer.MaxFrames = frames
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	game := testbed.NewTestGame(cfg)
	e, err := engine.New(game.Game)
	if err != nil {
		return errors.Wrap(err, "creating engine")
	}
	if err := e.Initialize(); err != nil {
		return errors.CombineErrors(errors.Wrap(err, "initializing engine"), e.Shutdown())
	}
	runErr := e.Run(ctx)
	return errors.CombineErrors(runErr, e.Shutdown())
}
