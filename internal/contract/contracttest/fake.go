// Package contracttest provides an in-memory contract.Gateway for tests.
package contracttest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/chain"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/contract"
)

// Call is one recorded state-changing call.
type Call struct {
	Method string
	Target common.Address
	Amount *big.Int
}

// Gateway is a scriptable contract.Gateway. Zero value is ready to use;
// set the exported fields to inject failures. Wait blocks on Release when
// it is non-nil.
type Gateway struct {
	mu sync.Mutex

	Balances  map[common.Address]*big.Int
	OwnerAddr common.Address

	BalanceErr error
	OwnerErr   error
	SendErr    error
	WaitErr    error
	Release    chan struct{}

	calls        []Call
	balanceCalls int
	nonce        uint64
}

var _ contract.Gateway = (*Gateway)(nil)

// SetBalance sets what BalanceOf returns for account.
func (g *Gateway) SetBalance(account common.Address, v *big.Int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Balances == nil {
		g.Balances = make(map[common.Address]*big.Int)
	}
	g.Balances[account] = new(big.Int).Set(v)
}

// SetBalanceErr sets the error BalanceOf returns.
func (g *Gateway) SetBalanceErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.BalanceErr = err
}

// Calls returns the recorded state-changing calls.
func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// BalanceCalls returns how many times BalanceOf ran.
func (g *Gateway) BalanceCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balanceCalls
}

func (g *Gateway) BalanceOf(_ context.Context, account common.Address) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balanceCalls++
	if g.BalanceErr != nil {
		return nil, g.BalanceErr
	}
	if v, ok := g.Balances[account]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (g *Gateway) Owner(context.Context) (common.Address, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.OwnerAddr, g.OwnerErr
}

func (g *Gateway) Transfer(_ context.Context, to common.Address, amount *big.Int) (contract.TxHandle, error) {
	return g.send("transfer", to, amount)
}

func (g *Gateway) RewardUser(_ context.Context, user common.Address, amount *big.Int) (contract.TxHandle, error) {
	return g.send("rewardUser", user, amount)
}

func (g *Gateway) send(method string, target common.Address, amount *big.Int) (contract.TxHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Method: method, Target: target, Amount: new(big.Int).Set(amount)})
	if g.SendErr != nil {
		return nil, g.SendErr
	}
	g.nonce++
	hash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s/%d", method, g.nonce)))
	return &handle{hash: hash, g: g}, nil
}

type handle struct {
	hash common.Hash
	g    *Gateway
}

func (h *handle) Hash() common.Hash { return h.hash }

func (h *handle) Wait(ctx context.Context) (*chain.Receipt, error) {
	h.g.mu.Lock()
	release, waitErr := h.g.Release, h.g.WaitErr
	h.g.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if waitErr != nil {
		return nil, waitErr
	}
	return &chain.Receipt{TxHash: h.hash, Status: 1, BlockNumber: 1}, nil
}
