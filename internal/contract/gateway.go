// Package contract is the typed gateway to the deployed PRT contract.
package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/chain"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/config"
)

// Errors.
var (
	// ErrReverted means the contract rejected the call, either while
	// simulating it or after it was mined.
	ErrReverted = errors.New("transaction reverted")
	// ErrInvalidAmount is returned for nil, negative or over-uint256 amounts.
	ErrInvalidAmount = errors.New("amount must be a non-negative uint256")
)

// Gateway is everything the client does with the PRT contract.
type Gateway interface {
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	Owner(ctx context.Context) (common.Address, error)
	Transfer(ctx context.Context, to common.Address, amount *big.Int) (TxHandle, error)
	RewardUser(ctx context.Context, user common.Address, amount *big.Int) (TxHandle, error)
}

// TxHandle is a broadcast transaction awaiting finality.
type TxHandle interface {
	Hash() common.Hash
	// Wait blocks until the transaction is mined. A mined but reverted
	// transaction returns its receipt together with ErrReverted.
	Wait(ctx context.Context) (*chain.Receipt, error)
}

// Backend is the chain access a Token needs. *chain.EVMClient satisfies it.
type Backend interface {
	CallContract(ctx context.Context, from, to common.Address, data []byte) ([]byte, error)
	EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	PendingNonce(ctx context.Context, addr common.Address) (uint64, error)
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash, interval time.Duration) (*chain.Receipt, error)
}

// Signer signs transactions for one account. *wallet.Signer satisfies it.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error)
}

var _ Gateway = (*Token)(nil)

// Token is the Gateway for one PRT deployment, bound to one signer and one
// chain. It holds no mutable state and is safe for concurrent use.
type Token struct {
	desc    *Descriptor
	backend Backend
	signer  Signer
	chainID *big.Int
	poll    time.Duration
	log     *logrus.Entry
}

// Option configures a Token.
type Option func(*Token)

// WithPollInterval sets how often Wait polls for the receipt.
func WithPollInterval(d time.Duration) Option {
	return func(t *Token) { t.poll = d }
}

// WithLogger sets the token's log entry.
func WithLogger(log *logrus.Entry) Option {
	return func(t *Token) { t.log = log }
}

// NewToken validates desc and binds it to backend, signer and chainID.
func NewToken(desc *Descriptor, backend Backend, signer Signer, chainID *big.Int, opts ...Option) (*Token, error) {
	if desc == nil || backend == nil || signer == nil || chainID == nil {
		return nil, errors.New("contract: descriptor, backend, signer and chain ID are required")
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	t := &Token{
		desc:    desc,
		backend: backend,
		signer:  signer,
		chainID: new(big.Int).Set(chainID),
		poll:    config.DefaultReceiptPoll,
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.WithFields(logrus.Fields{
		"component": "contract",
		"contract":  desc.Address.Hex(),
		"account":   signer.Address().Hex(),
	})
	return t, nil
}

// Account returns the address the token signs for.
func (t *Token) Account() common.Address { return t.signer.Address() }

// BalanceOf reads balanceOf(account).
func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	out, err := t.call(ctx, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

// Owner reads the OWNER constant.
func (t *Token) Owner(ctx context.Context) (common.Address, error) {
	out, err := t.call(ctx, "OWNER")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// Transfer sends transfer(to, amount). amount is in base units.
func (t *Token) Transfer(ctx context.Context, to common.Address, amount *big.Int) (TxHandle, error) {
	return t.send(ctx, config.GasLimitTransfer, "transfer", to, amount)
}

// RewardUser sends rewardUser(user, amount). amount is in base units.
func (t *Token) RewardUser(ctx context.Context, user common.Address, amount *big.Int) (TxHandle, error) {
	return t.send(ctx, config.GasLimitReward, "rewardUser", user, amount)
}

func (t *Token) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := t.desc.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	raw, err := t.backend.CallContract(ctx, t.signer.Address(), t.desc.Address, data)
	if err != nil {
		if chain.IsRevert(err) {
			return nil, fmt.Errorf("%s: %w: %v", method, ErrReverted, err)
		}
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	out, err := t.desc.ABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("decoding %s: empty result", method)
	}
	return out, nil
}

func (t *Token) send(ctx context.Context, fallbackGas uint64, method string, target common.Address, amount *big.Int) (TxHandle, error) {
	if amount == nil || amount.Sign() < 0 || amount.Cmp(math.MaxBig256) > 0 {
		return nil, ErrInvalidAmount
	}
	data, err := t.desc.ABI.Pack(method, target, amount)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	from := t.signer.Address()
	log := t.log.WithFields(logrus.Fields{"method": method, "target": target.Hex(), "amount": amount.String()})

	gas, err := t.backend.EstimateGas(ctx, from, t.desc.Address, data)
	switch {
	case chain.IsRevert(err):
		return nil, fmt.Errorf("%s: %w: %v", method, ErrReverted, err)
	case err != nil:
		log.WithError(err).Debug("gas estimate failed, using fallback limit")
		gas = fallbackGas
	}

	gasPrice, err := t.backend.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}
	nonce, err := t.backend.PendingNonce(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}

	to := t.desc.Address
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   t.chainID,
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	})

	raw, err := t.signer.SignTx(tx, t.chainID)
	if err != nil {
		return nil, fmt.Errorf("signing %s: %w", method, err)
	}
	hash, err := t.backend.SendRawTransaction(ctx, raw)
	if err != nil {
		if chain.IsRevert(err) {
			return nil, fmt.Errorf("%s: %w: %v", method, ErrReverted, err)
		}
		return nil, fmt.Errorf("broadcasting %s: %w", method, err)
	}

	log.WithFields(logrus.Fields{"tx": hash.Hex(), "nonce": nonce, "gas": gas}).Info("transaction sent")
	return &pendingTx{hash: hash, backend: t.backend, poll: t.poll, method: method}, nil
}

type pendingTx struct {
	hash    common.Hash
	backend Backend
	poll    time.Duration
	method  string
}

func (p *pendingTx) Hash() common.Hash { return p.hash }

func (p *pendingTx) Wait(ctx context.Context) (*chain.Receipt, error) {
	receipt, err := p.backend.WaitForReceipt(ctx, p.hash, p.poll)
	if err != nil {
		return nil, fmt.Errorf("waiting for %s %s: %w", p.method, p.hash.Hex(), err)
	}
	if !receipt.Succeeded() {
		return receipt, fmt.Errorf("%s %s in block %d: %w", p.method, p.hash.Hex(), receipt.BlockNumber, ErrReverted)
	}
	return receipt, nil
}
