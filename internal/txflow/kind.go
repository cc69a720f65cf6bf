package txflow

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/contract"
)

// Labels shared by every form.
const (
	LabelPending   = "Processing..."
	LabelSucceeded = "✅ Transaction Successful!"
)

// Kind describes one action form: what it is called, what it shows and
// which contract call it makes.
type Kind struct {
	Name          string
	Title         string
	Verb          string
	TargetLabel   string
	AmountLabel   string
	InvalidNotice string
	FailureNotice string

	send func(ctx context.Context, gw contract.Gateway, target common.Address, amount *big.Int) (contract.TxHandle, error)
}

// Transfer moves tokens from the connected account to a recipient.
var Transfer = Kind{
	Name:          "transfer",
	Title:         "Transfer Tokens",
	Verb:          "Transfer",
	TargetLabel:   "Recipient address",
	AmountLabel:   "Amount",
	InvalidNotice: "Enter valid address and amount",
	FailureNotice: "Transfer failed!",
	send: func(ctx context.Context, gw contract.Gateway, to common.Address, amount *big.Int) (contract.TxHandle, error) {
		return gw.Transfer(ctx, to, amount)
	},
}

// Reward asks the contract to mint a reward to a user.
var Reward = Kind{
	Name:          "reward",
	Title:         "Reward User",
	Verb:          "Reward Me",
	TargetLabel:   "User address",
	AmountLabel:   "Amount",
	InvalidNotice: "Enter valid user address and amount",
	FailureNotice: "Reward transaction failed!",
	send: func(ctx context.Context, gw contract.Gateway, user common.Address, amount *big.Int) (contract.TxHandle, error) {
		return gw.RewardUser(ctx, user, amount)
	},
}

// Kinds lists the forms in display order.
func Kinds() []Kind { return []Kind{Transfer, Reward} }

// KindByName finds a form kind by its Name.
func KindByName(name string) (Kind, bool) {
	for _, k := range Kinds() {
		if k.Name == name {
			return k, true
		}
	}
	return Kind{}, false
}
