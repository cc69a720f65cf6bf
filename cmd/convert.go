package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/contract"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/ui"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/units"
)

var (
	convertToBaseFlag   bool
	convertFromBaseFlag bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <amount>",
	Short: "Convert between PRT and base units",
	Long: `Convert a decimal PRT amount to base units (18 decimals) with --to-base,
the default, or back with --from-base.

Examples:
  prt convert 10.5                              # → 10500000000000000000
  prt convert --from-base 10500000000000000000  # → 10.5
  prt convert --from-base 0x91b77e5e5d9a0000    # hex input is accepted`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if convertToBaseFlag && convertFromBaseFlag {
			return fmt.Errorf("--to-base and --from-base cannot be used together")
		}
		out := cmd.OutOrStdout()
		if convertFromBaseFlag {
			amount, err := fromBaseUnits(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s  %s\n", ui.Token(amount, contract.TokenSymbol), ui.Meta("("+args[0]+" base units)"))
			return nil
		}
		base, err := toBaseUnits(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  %s\n", ui.Val(base), ui.Meta("base units"))
		return nil
	},
}

// toBaseUnits turns a decimal token amount into an integer string.
func toBaseUnits(amount string) (string, error) {
	v, err := units.ParseToken(amount)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// fromBaseUnits formats an integer amount, decimal or 0x hex, as tokens.
func fromBaseUnits(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	base := 10
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		s, base = s[2:], 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok || v.Sign() < 0 {
		return "", fmt.Errorf("invalid base-unit amount %q", raw)
	}
	return units.FormatToken(v), nil
}

func init() {
	convertCmd.Flags().BoolVar(&convertToBaseFlag, "to-base", false, "input is in PRT (default)")
	convertCmd.Flags().BoolVar(&convertFromBaseFlag, "from-base", false, "input is in base units")
}
