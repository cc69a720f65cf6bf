// Package session owns the connection to the user's wallet. The Manager is
// the only writer of the current Session; everything else reads it.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/contract"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/metrics"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/provider"
)

// ErrWrongNetwork is returned when the wallet's node serves a different chain
// than the one configured.
var ErrWrongNetwork = errors.New("wallet is on the wrong network")

// Session is a connected account and the gateway bound to it.
type Session struct {
	Account common.Address
	ChainID *big.Int
	Gateway contract.Gateway
}

// ShortAccount renders the account as 0x1234...abcd.
func (s *Session) ShortAccount() string {
	if s == nil {
		return ""
	}
	return ShortAddress(s.Account)
}

// ShortAddress renders the first six and last four characters of addr.
func ShortAddress(addr common.Address) string {
	h := addr.Hex()
	return h[:6] + "..." + h[len(h)-4:]
}

// GatewayFactory builds the gateway for a freshly connected account.
type GatewayFactory func(desc *contract.Descriptor, backend contract.Backend, signer contract.Signer, chainID *big.Int) (contract.Gateway, error)

// Manager connects and disconnects the wallet.
type Manager struct {
	detector    provider.Detector
	desc        *contract.Descriptor
	wantChainID uint64
	newGateway  GatewayFactory
	log         *logrus.Entry
	metrics     *metrics.Metrics

	connectMu sync.Mutex // one Connect at a time
	mu        sync.RWMutex
	current   *Session

	subMu   sync.Mutex
	subs    map[int]func(*Session)
	nextSub int
}

// Option configures a Manager.
type Option func(*Manager)

// WithChainID requires the wallet's node to serve id. 0 accepts any chain.
func WithChainID(id uint64) Option {
	return func(m *Manager) { m.wantChainID = id }
}

// WithDescriptor overrides the compiled-in contract descriptor.
func WithDescriptor(d *contract.Descriptor) Option {
	return func(m *Manager) { m.desc = d }
}

// WithGatewayFactory overrides how gateways are built.
func WithGatewayFactory(f GatewayFactory) Option {
	return func(m *Manager) { m.newGateway = f }
}

// WithLogger sets the log entry.
func WithLogger(log *logrus.Entry) Option {
	return func(m *Manager) { m.log = log }
}

// WithMetrics records connection attempts.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// TokenFactory returns the default GatewayFactory: a contract.Token polling
// receipts every poll.
func TokenFactory(poll time.Duration, log *logrus.Entry) GatewayFactory {
	return func(desc *contract.Descriptor, backend contract.Backend, signer contract.Signer, chainID *big.Int) (contract.Gateway, error) {
		return contract.NewToken(desc, backend, signer, chainID,
			contract.WithPollInterval(poll), contract.WithLogger(log))
	}
}

// NewManager creates a Manager that finds wallets with detector.
func NewManager(detector provider.Detector, opts ...Option) *Manager {
	m := &Manager{
		detector: detector,
		desc:     contract.DefaultDescriptor(),
		log:      logrus.NewEntry(logrus.StandardLogger()),
		subs:     make(map[int]func(*Session)),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.WithField("component", "session")
	if m.newGateway == nil {
		m.newGateway = TokenFactory(0, m.log)
	}
	return m
}

// Connect detects the wallet, requests the account, checks the network and
// builds the gateway. On failure the current session is left as it was and
// Connect may be called again.
func (m *Manager) Connect(ctx context.Context) (*Session, error) {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	s, err := m.connect(ctx)
	if err != nil {
		entry := m.log.WithError(err)
		switch {
		case errors.Is(err, provider.ErrUnavailable):
			m.metrics.Connect(metrics.ResultError)
			entry.Warn("wallet provider not available")
		case errors.Is(err, provider.ErrUserRejected):
			m.metrics.Connect(metrics.ResultRejected)
			entry.Info("wallet connection rejected")
		default:
			m.metrics.Connect(metrics.ResultError)
			entry.Error("wallet connection failed")
		}
		return nil, err
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	m.metrics.Connect(metrics.ResultOK)
	m.log.WithFields(logrus.Fields{
		"account":  s.Account.Hex(),
		"chain_id": s.ChainID.String(),
	}).Info("wallet connected")
	m.notify(s)
	return s, nil
}

func (m *Manager) connect(ctx context.Context) (*Session, error) {
	p, err := m.detector.Detect(ctx)
	if err != nil {
		if errors.Is(err, provider.ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}

	accounts, err := p.RequestAccounts(ctx)
	if err != nil {
		if errors.Is(err, provider.ErrUserRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("requesting accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, errors.New("requesting accounts: wallet returned no accounts")
	}
	account := accounts[0]

	chainID, err := p.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading chain ID: %w", err)
	}
	if m.wantChainID != 0 && chainID.Uint64() != m.wantChainID {
		return nil, fmt.Errorf("%w: node serves chain %s, want %d", ErrWrongNetwork, chainID, m.wantChainID)
	}

	signer, err := p.Signer(account)
	if err != nil {
		return nil, fmt.Errorf("getting signer: %w", err)
	}
	gw, err := m.newGateway(m.desc, p.Backend(), signer, chainID)
	if err != nil {
		return nil, fmt.Errorf("building contract gateway: %w", err)
	}

	return &Session{Account: account, ChainID: chainID, Gateway: gw}, nil
}

// Disconnect drops the current session.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	had := m.current != nil
	m.current = nil
	m.mu.Unlock()

	if had {
		m.log.Info("wallet disconnected")
		m.notify(nil)
	}
}

// Current returns the connected session, or nil.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe calls fn with the new session after every connect, and with nil
// after a disconnect. The returned function unsubscribes.
func (m *Manager) Subscribe(fn func(*Session)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Manager) notify(s *Session) {
	m.subMu.Lock()
	fns := make([]func(*Session), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
