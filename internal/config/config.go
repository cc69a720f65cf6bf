// Package config loads and saves prt's JSON settings and wallet metadata.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	configFile  = "config.json"
	walletsFile = "wallets.json"
	logFile     = "prt.log"
)

// Load reads config from dir (or creates defaults). dir defaults to ~/.prt.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".prt")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.configDir = dir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	return saveJSON(filepath.Join(c.configDir, configFile), c)
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.RPCAlgorithm {
	case "", "fastest", "round-robin", "failover":
	default:
		return fmt.Errorf("config: unknown rpc_algorithm %q", c.RPCAlgorithm)
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if c.ReceiptPollMS < 0 || c.SettleDelayMS < 0 || c.TxConfirmTimeoutS < 0 {
		return errors.New("config: durations must not be negative")
	}
	for _, u := range c.RPCURLs {
		if err := checkURL(u); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

// AddRPC appends an RPC URL.
func (c *Config) AddRPC(rawURL string) error {
	if err := checkURL(rawURL); err != nil {
		return err
	}
	if slices.Contains(c.RPCURLs, rawURL) {
		return fmt.Errorf("RPC %s already configured", rawURL)
	}
	c.RPCURLs = append(c.RPCURLs, rawURL)
	return nil
}

// RemoveRPC removes an RPC URL.
func (c *Config) RemoveRPC(rawURL string) error {
	idx := slices.Index(c.RPCURLs, rawURL)
	if idx == -1 {
		return fmt.Errorf("RPC %s not configured", rawURL)
	}
	c.RPCURLs = slices.Delete(c.RPCURLs, idx, idx+1)
	return nil
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// LogPath is where the full-screen app writes its log.
func (c *Config) LogPath() string {
	return filepath.Join(c.configDir, logFile)
}

// ReceiptPoll returns how often pending transactions are polled.
func (c *Config) ReceiptPoll() time.Duration {
	return msOr(c.ReceiptPollMS, DefaultReceiptPoll)
}

// SettleDelay returns how long a form shows success before going idle.
func (c *Config) SettleDelay() time.Duration {
	return msOr(c.SettleDelayMS, DefaultSettleDelay)
}

// ConfirmTimeout returns the receipt wait bound; 0 means none.
func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.TxConfirmTimeoutS) * time.Second
}

// LoadWallets reads wallets.json.
func (c *Config) LoadWallets() (*WalletsFile, error) {
	return loadJSON[WalletsFile](filepath.Join(c.configDir, walletsFile))
}

// SaveWallets writes wallets.json.
func (c *Config) SaveWallets(wf *WalletsFile) error {
	return saveJSON(filepath.Join(c.configDir, walletsFile), wf)
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		RPCURLs:      []string{DefaultRPCURL},
		RPCAlgorithm: DefaultAlgorithm,
		ChainID:      DefaultChainID,
		LogLevel:     DefaultLogLevel,
		ListenAddr:   DefaultListenAddr,
		configDir:    dir,
	}
}

func msOr(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func checkURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid RPC URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("invalid RPC URL %q: want http(s)://host", rawURL)
	}
	return nil
}

func loadJSON[T any](path string) (*T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &zero, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return &v, nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
