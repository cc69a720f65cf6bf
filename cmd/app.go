package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/logging"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/provider"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/ui"
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Open the full-screen dApp",
	Long: `Open the Phillip Reward Token dApp in the terminal.

Press c to connect the default wallet, tab to move between the transfer and
reward forms, and enter to submit. Logs go to prt.log in the config
directory so they do not draw over the screen.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		log, closeLog, err := logging.OpenFile(level, cfg.LogPath())
		if err != nil {
			return err
		}
		defer closeLog() //nolint:errcheck

		// Pressing connect is the approval.
		d, err := newDapp(log, provider.AutoApprove())
		if err != nil {
			return err
		}
		log.WithField("version", Version).Info("app started")
		if err := ui.RunApp(ui.AppDeps{
			Ctx:      cmd.Context(),
			Sessions: d.sessions,
			Balance:  d.balance,
			Forms:    d.forms,
		}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Logs: "+cfg.LogPath()))
		return nil
	},
}
