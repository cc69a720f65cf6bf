// Package wallet manages named signing wallets. Metadata lives in
// wallets.json; private keys live in the OS keychain.
package wallet

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/config"
)

// Errors.
var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrWalletExists   = errors.New("wallet already exists")
	ErrInvalidKey     = errors.New("invalid private key")
	ErrInvalidName    = errors.New("invalid wallet name")
)

// Wallet holds metadata for a single wallet.
type Wallet struct {
	Name      string
	Address   common.Address
	KeyRef    string // keychain reference for the private key
	IsDefault bool
	CreatedAt string
}

// Store is an interface for persisting wallet metadata.
type Store interface {
	Load() ([]*Wallet, error)
	Save([]*Wallet) error
}

// Manager handles wallet CRUD.
type Manager struct {
	store   Store
	ks      KeystoreBackend
	wallets map[string]*Wallet
	loaded  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore sets the metadata store.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithKeystore sets where private keys go.
func WithKeystore(ks KeystoreBackend) Option {
	return func(m *Manager) { m.ks = ks }
}

// NewManager creates a wallet manager. Without options it keeps everything
// in memory.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		wallets: make(map[string]*Wallet),
		store:   &memStore{},
		ks:      NewInMemoryKeystore(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Keystore returns the key backend the manager writes to.
func (m *Manager) Keystore() KeystoreBackend { return m.ks }

// AddWithKey derives the address from a hex private key, stores the key in
// the keystore and records the wallet. The first wallet becomes the default.
func (m *Manager) AddWithKey(name, hexKey string) (*Wallet, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	if name == "" || strings.ContainsAny(name, " /\\") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if _, exists := m.wallets[name]; exists {
		return nil, ErrWalletExists
	}

	privKey, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	ref, err := m.ks.Store(name, hexKey)
	if err != nil {
		return nil, fmt.Errorf("storing key: %w", err)
	}

	w := &Wallet{
		Name:      name,
		Address:   crypto.PubkeyToAddress(privKey.PublicKey),
		KeyRef:    ref,
		IsDefault: len(m.wallets) == 0,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	m.wallets[name] = w
	if err := m.persist(); err != nil {
		return nil, err
	}
	return w, nil
}

// Get returns a wallet by name.
func (m *Manager) Get(name string) (*Wallet, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	w, ok := m.wallets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, name)
	}
	return w, nil
}

// Remove deletes a wallet and its stored key.
func (m *Manager) Remove(name string) error {
	if err := m.load(); err != nil {
		return err
	}
	w, ok := m.wallets[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrWalletNotFound, name)
	}
	if err := m.ks.Delete(w.KeyRef); err != nil {
		return err
	}
	delete(m.wallets, name)
	return m.persist()
}

// List returns all wallets sorted by name.
func (m *Manager) List() ([]*Wallet, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	out := make([]*Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, b *Wallet) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// SetDefault marks a wallet as the default.
func (m *Manager) SetDefault(name string) error {
	if err := m.load(); err != nil {
		return err
	}
	if _, ok := m.wallets[name]; !ok {
		return fmt.Errorf("%w: %s", ErrWalletNotFound, name)
	}
	for _, w := range m.wallets {
		w.IsDefault = w.Name == name
	}
	return m.persist()
}

// Default returns the default wallet, or nil if none.
func (m *Manager) Default() (*Wallet, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	for _, w := range m.wallets {
		if w.IsDefault {
			return w, nil
		}
	}
	// Fallback: a lone wallet is the default.
	if len(m.wallets) == 1 {
		for _, w := range m.wallets {
			return w, nil
		}
	}
	return nil, nil
}

// Resolve returns the named wallet, or the default when name is empty.
func (m *Manager) Resolve(name string) (*Wallet, error) {
	if name != "" {
		return m.Get(name)
	}
	w, err := m.Default()
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("%w: no default wallet", ErrWalletNotFound)
	}
	return w, nil
}

// --- internal ---

func (m *Manager) load() error {
	if m.loaded {
		return nil
	}
	wallets, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("loading wallets: %w", err)
	}
	for _, w := range wallets {
		m.wallets[w.Name] = w
	}
	m.loaded = true
	return nil
}

func (m *Manager) persist() error {
	wallets := make([]*Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		wallets = append(wallets, w)
	}
	slices.SortFunc(wallets, func(a, b *Wallet) int { return strings.Compare(a.Name, b.Name) })
	if err := m.store.Save(wallets); err != nil {
		return fmt.Errorf("saving wallets: %w", err)
	}
	return nil
}

// --- in-memory store ---

type memStore struct {
	wallets []*Wallet
}

func (s *memStore) Load() ([]*Wallet, error) { return s.wallets, nil }

func (s *memStore) Save(wallets []*Wallet) error {
	s.wallets = wallets
	return nil
}

// --- config-backed store ---

// ConfigStore persists wallets to wallets.json in the config dir.
type ConfigStore struct {
	cfg *config.Config
}

// NewConfigStore creates a store writing through cfg.
func NewConfigStore(cfg *config.Config) *ConfigStore {
	return &ConfigStore{cfg: cfg}
}

func (s *ConfigStore) Load() ([]*Wallet, error) {
	wf, err := s.cfg.LoadWallets()
	if err != nil {
		return nil, err
	}
	out := make([]*Wallet, 0, len(wf.Wallets))
	for _, e := range wf.Wallets {
		if !common.IsHexAddress(e.Address) {
			return nil, fmt.Errorf("wallet %q: bad address %q", e.Name, e.Address)
		}
		out = append(out, &Wallet{
			Name:      e.Name,
			Address:   common.HexToAddress(e.Address),
			KeyRef:    e.KeyRef,
			IsDefault: e.IsDefault,
			CreatedAt: e.CreatedAt,
		})
	}
	return out, nil
}

func (s *ConfigStore) Save(wallets []*Wallet) error {
	wf := &config.WalletsFile{Wallets: make([]config.Wallet, 0, len(wallets))}
	for _, w := range wallets {
		wf.Wallets = append(wf.Wallets, config.Wallet{
			Name:      w.Name,
			Address:   w.Address.Hex(),
			KeyRef:    w.KeyRef,
			IsDefault: w.IsDefault,
			CreatedAt: w.CreatedAt,
		})
	}
	return s.cfg.SaveWallets(wf)
}
