package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/rpc"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/ui"
)

var configRPCAddFlag bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n\n", ui.StyleTitle.Render("Current Configuration"))
		fmt.Fprintln(out, string(data))
		fmt.Fprintln(out, ui.Meta("Config directory: "+cfg.Dir()))
		return nil
	},
}

var configSetRPCCmd = &cobra.Command{
	Use:   "set-rpc <url>...",
	Short: "Set the JSON-RPC endpoints",
	Long: `Replace the configured JSON-RPC endpoints, or append to them with --add.

With more than one endpoint, connect probes them all and picks one using
rpc_algorithm (fastest, round-robin or failover).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !configRPCAddFlag {
			cfg.RPCURLs = nil
		}
		for _, u := range args {
			if err := cfg.AddRPC(u); err != nil {
				return err
			}
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%d RPC endpoint(s) configured", len(cfg.RPCURLs))))
		return nil
	},
}

var configRemoveRPCCmd = &cobra.Command{
	Use:   "remove-rpc <url>",
	Short: "Remove a JSON-RPC endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveRPC(args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Removed "+args[0]))
		return nil
	},
}

var configSetAlgorithmCmd = &cobra.Command{
	Use:   "set-algorithm <fastest|round-robin|failover>",
	Short: "Set how an RPC endpoint is chosen",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		algo, err := rpc.ParseAlgorithm(args[0])
		if err != nil {
			return err
		}
		cfg.RPCAlgorithm = string(algo)
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("RPC algorithm set to %q", algo)))
		return nil
	},
}

var configSetChainIDCmd = &cobra.Command{
	Use:   "set-chain-id <id>",
	Short: "Set the chain the wallet must be on (0 accepts any)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chain ID %q", args[0])
		}
		cfg.ChainID = id
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Chain ID set to %d", id)))
		return nil
	},
}

func init() {
	configSetRPCCmd.Flags().BoolVar(&configRPCAddFlag, "add", false, "append instead of replacing")

	configCmd.AddCommand(
		configListCmd,
		configSetRPCCmd,
		configRemoveRPCCmd,
		configSetAlgorithmCmd,
		configSetChainIDCmd,
	)
}
