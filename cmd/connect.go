package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/balance"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/config"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/contract"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/provider"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/session"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/ui"
)

var balanceOfFlag string

// connectHint explains what to do about a failed connect.
func connectHint(err error) string {
	switch {
	case errors.Is(err, provider.ErrUnavailable):
		return "Add a wallet with `prt wallet add <name>` and an endpoint with `prt config set-rpc <url>`."
	case errors.Is(err, provider.ErrUserRejected):
		return "The account request was declined. Pass --yes to approve it automatically."
	case errors.Is(err, session.ErrWrongNetwork):
		return "Point the RPC endpoint at the right chain, or change it with `prt config set-chain-id`."
	}
	return ""
}

// connectSession builds the dApp and connects, printing a hint on failure.
func connectSession(ctx context.Context, errOut io.Writer) (*dapp, *session.Session, error) {
	d, err := newDapp(logger, newApprover())
	if err != nil {
		return nil, nil, err
	}
	sess, err := d.connect(ctx)
	if err != nil {
		if hint := connectHint(err); hint != "" {
			fmt.Fprintln(errOut, ui.Hint(hint))
		}
		return nil, nil, err
	}
	return d, sess, nil
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the default wallet and show the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, sess, err := connectSession(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), config.ReadTimeout)
		defer cancel()
		bal, err := d.balance.Refresh(ctx, sess)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Warn("Could not fetch balance: "+err.Error()))
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Connected", [][2]string{
			{"Account", sess.Account.Hex()},
			{"Chain ID", sess.ChainID.String()},
			{"Contract", contract.TokenAddress},
			{ui.BalanceTitle, bal + " " + contract.TokenSymbol},
		}))
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the PRT balance of the connected account",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, sess, err := connectSession(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		account := sess.Account
		if balanceOfFlag != "" {
			if !common.IsHexAddress(balanceOfFlag) {
				return fmt.Errorf("invalid address %q", balanceOfFlag)
			}
			account = common.HexToAddress(balanceOfFlag)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.ReadTimeout)
		defer cancel()
		bal, err := balance.Fetch(ctx, sess.Gateway, account)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Token(bal, contract.TokenSymbol))
		return nil
	},
}

var ownerCmd = &cobra.Command{
	Use:   "owner",
	Short: "Show the contract owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, sess, err := connectSession(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), config.ReadTimeout)
		defer cancel()
		owner, err := d.balance.RefreshOwner(ctx, sess)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Contract Owner", [][2]string{
			{"Owner", owner.Hex()},
			{"You", strconv.FormatBool(owner == sess.Account)},
		}))
		return nil
	},
}

func init() {
	balanceCmd.Flags().StringVar(&balanceOfFlag, "of", "", "address to query instead of the connected account")
}
