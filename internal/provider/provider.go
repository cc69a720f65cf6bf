// Package provider is the wallet capability the app connects through: it
// hands out the account (after the user approves), a transaction signer and
// the chain backend.
package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/chain"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/config"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/contract"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/rpc"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/wallet"
)

// Errors.
var (
	// ErrUnavailable means no wallet capability is present: nothing to
	// connect to, or no wallet to connect with.
	ErrUnavailable = errors.New("wallet provider not available")
	// ErrUserRejected means the user declined the account request.
	ErrUserRejected = errors.New("user rejected the request")
)

// Provider is a detected wallet.
type Provider interface {
	// RequestAccounts asks the user to expose their account. The first
	// address is the selected one.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Signer(account common.Address) (contract.Signer, error)
	Backend() contract.Backend
}

// Detector looks for a provider. It returns an error wrapping ErrUnavailable
// when there is none.
type Detector interface {
	Detect(ctx context.Context) (Provider, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context) (Provider, error)

func (f DetectorFunc) Detect(ctx context.Context) (Provider, error) { return f(ctx) }

// Approver decides whether an account may be exposed to the app.
type Approver interface {
	Approve(ctx context.Context, account common.Address) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, account common.Address) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, account common.Address) (bool, error) {
	return f(ctx, account)
}

// AutoApprove approves every request.
func AutoApprove() Approver {
	return ApproverFunc(func(context.Context, common.Address) (bool, error) { return true, nil })
}

// Local is a keychain wallet talking to a JSON-RPC node.
type Local struct {
	wallet   *wallet.Wallet
	ks       wallet.KeystoreBackend
	client   *chain.EVMClient
	approver Approver
}

// NewLocal builds a provider from its parts.
func NewLocal(w *wallet.Wallet, ks wallet.KeystoreBackend, client *chain.EVMClient, approver Approver) *Local {
	if approver == nil {
		approver = AutoApprove()
	}
	return &Local{wallet: w, ks: ks, client: client, approver: approver}
}

// RequestAccounts asks the approver before exposing the wallet address.
func (p *Local) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	ok, err := p.approver.Approve(ctx, p.wallet.Address)
	if err != nil {
		return nil, fmt.Errorf("account request: %w", err)
	}
	if !ok {
		return nil, ErrUserRejected
	}
	return []common.Address{p.wallet.Address}, nil
}

// ChainID asks the node which chain it serves.
func (p *Local) ChainID(ctx context.Context) (*big.Int, error) {
	return p.client.ChainID(ctx)
}

// Signer returns a signer for account, which must be the wallet's own.
func (p *Local) Signer(account common.Address) (contract.Signer, error) {
	if account != p.wallet.Address {
		return nil, fmt.Errorf("account %s is not managed by wallet %q", account.Hex(), p.wallet.Name)
	}
	return wallet.NewSigner(p.wallet, p.ks), nil
}

// Backend returns the node client.
func (p *Local) Backend() contract.Backend { return p.client }

// URL returns the RPC endpoint in use.
func (p *Local) URL() string { return p.client.URL() }

// LocalDetector finds the configured wallet and a reachable RPC endpoint.
type LocalDetector struct {
	Config   *config.Config
	Wallets  *wallet.Manager
	Picker   *rpc.Picker
	Approver Approver
	Log      *logrus.Entry
}

// Detect resolves the default wallet and selects an RPC endpoint.
func (d *LocalDetector) Detect(ctx context.Context) (Provider, error) {
	if len(d.Config.RPCURLs) == 0 {
		return nil, fmt.Errorf("%w: no RPC endpoint configured", ErrUnavailable)
	}
	w, err := d.Wallets.Resolve(d.Config.DefaultWallet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	selCtx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()
	url, err := rpc.Select(selCtx, d.Picker, d.Config.RPCURLs, d.Config.ChainID, d.Log)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	d.Log.WithFields(logrus.Fields{"wallet": w.Name, "rpc": url}).Debug("wallet provider detected")
	return NewLocal(w, d.Wallets.Keystore(), chain.NewEVMClient(url), d.Approver), nil
}
