package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/config"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/logging"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/ui"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/theatharvamuley10/phillipCap-rewardToken/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir    string
	cfg       *config.Config
	logger    *logrus.Logger
	verbose   bool
	assumeYes bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "prt",
	Short: "Phillip Reward Token client",
	Long: `prt connects a local wallet to the Phillip Reward Token (PRT) contract.

  Check your PRT balance, transfer tokens, and claim rewards from the
  terminal, the full-screen dApp (prt app), or over HTTP (prt serve).

Keys live in the OS keychain. Set PRT_CONFIG_DIR or --config to use a
different configuration directory (default: ~/.prt).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		os.Exit(1)
	}
}

func init() {
	// PRT_CONFIG_DIR sets the default; an explicit --config still wins.
	if envDir := os.Getenv(config.EnvConfigDir); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.prt)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "approve account requests and confirmations without asking")

	rootCmd.AddCommand(
		walletCmd,
		configCmd,
		connectCmd,
		balanceCmd,
		ownerCmd,
		transferCmd,
		rewardCmd,
		convertCmd,
		appCmd,
		serveCmd,
	)
}
