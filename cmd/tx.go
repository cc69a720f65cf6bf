package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/contract"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/txflow"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/ui"
)

var (
	transferToFlag     string
	transferAmountFlag string
	rewardUserFlag     string
	rewardAmountFlag   string
)

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer PRT to another address",
	Example: `  prt transfer --to 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 --amount 10.5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForm(cmd, txflow.Transfer, transferToFlag, transferAmountFlag)
	},
}

var rewardCmd = &cobra.Command{
	Use:   "reward",
	Short: "Reward a user with newly minted PRT",
	Long: `Call rewardUser on the contract. Only the contract owner may reward;
other accounts see the transaction revert.`,
	Example: `  prt reward --user 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 --amount 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForm(cmd, txflow.Reward, rewardUserFlag, rewardAmountFlag)
	},
}

// runForm connects, submits through the form of the given kind and waits for
// the outcome.
func runForm(cmd *cobra.Command, kind txflow.Kind, target, amount string) error {
	d, sess, err := connectSession(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	results, err := d.forms.Get(kind.Name).Submit(cmd.Context(), target, amount)
	if err != nil {
		return err
	}

	spin := ui.NewSpinner(cmd.ErrOrStderr(), txflow.LabelPending)
	spin.Start()
	res := <-results
	spin.Stop()

	if res.Hash != (common.Hash{}) {
		fmt.Fprintln(out, ui.Meta("tx: "+res.Hash.Hex()))
	}
	if res.Err != nil {
		fmt.Fprintln(out, ui.Err(kind.FailureNotice))
		return res.Err
	}
	fmt.Fprintln(out, ui.Success(txflow.LabelSucceeded))
	fmt.Fprintln(out, ui.KeyValueBlock(ui.BalanceTitle, [][2]string{
		{"Account", sess.Account.Hex()},
		{"Balance", d.balance.Value() + " " + contract.TokenSymbol},
	}))
	return nil
}

func init() {
	transferCmd.Flags().StringVar(&transferToFlag, "to", "", "recipient address")
	transferCmd.Flags().StringVar(&transferAmountFlag, "amount", "", "amount of PRT, e.g. 10.5")
	rewardCmd.Flags().StringVar(&rewardUserFlag, "user", "", "address to reward")
	rewardCmd.Flags().StringVar(&rewardAmountFlag, "amount", "", "amount of PRT, e.g. 100")
}
