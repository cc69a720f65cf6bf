package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/config"
)

func TestLoadDefaultConfig(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []string{"http://127.0.0.1:8545"}, cfg.RPCURLs)
	assert.Equal(t, "fastest", cfg.RPCAlgorithm)
	assert.Equal(t, uint64(31337), cfg.ChainID)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.False(t, cfg.AutoApprove)
}

func TestDefaultDurations(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.ReceiptPoll())
	assert.Equal(t, 2*time.Second, cfg.SettleDelay())
	assert.Zero(t, cfg.ConfirmTimeout(), "no confirm timeout unless configured")
}

func TestConfiguredDurations(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	cfg.ReceiptPollMS = 250
	cfg.SettleDelayMS = 500
	cfg.TxConfirmTimeoutS = 90

	assert.Equal(t, 250*time.Millisecond, cfg.ReceiptPoll())
	assert.Equal(t, 500*time.Millisecond, cfg.SettleDelay())
	assert.Equal(t, 90*time.Second, cfg.ConfirmTimeout())
}

func TestSaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.DefaultWallet = "mywallet"
	cfg.RPCAlgorithm = "round-robin"
	cfg.ChainID = 11155111
	cfg.AutoApprove = true
	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "mywallet", reloaded.DefaultWallet)
	assert.Equal(t, "round-robin", reloaded.RPCAlgorithm)
	assert.Equal(t, uint64(11155111), reloaded.ChainID)
	assert.True(t, reloaded.AutoApprove)
}

func TestConfigFileMode(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	require.NoError(t, cfg.Save())

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadRejectsBadAlgorithm(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"rpc_algorithm":"random"}`), 0o600))

	_, err := config.Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc_algorithm")
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"log_level":"loud"}`), 0o600))

	_, err := config.Load(dir)
	assert.Error(t, err)
}

func TestLoadRejectsNegativeDuration(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"settle_delay_ms":-1}`), 0o600))

	_, err := config.Load(dir)
	assert.Error(t, err)
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{`), 0o600))

	_, err := config.Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestAddAndRemoveRPC(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())

	require.NoError(t, cfg.AddRPC("https://rpc.sepolia.org"))
	assert.Contains(t, cfg.RPCURLs, "https://rpc.sepolia.org")

	assert.Error(t, cfg.AddRPC("https://rpc.sepolia.org"), "duplicate")

	require.NoError(t, cfg.RemoveRPC("http://127.0.0.1:8545"))
	assert.Equal(t, []string{"https://rpc.sepolia.org"}, cfg.RPCURLs)

	assert.Error(t, cfg.RemoveRPC("https://nonexistent.rpc"))
}

func TestAddRPCRejectsBadURL(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())

	for _, u := range []string{"", "localhost:8545", "ws://node:8546", "https://"} {
		assert.Error(t, cfg.AddRPC(u), u)
	}
}

func TestConfigDirAndLogPath(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	assert.Equal(t, dir, cfg.Dir())
	assert.Equal(t, filepath.Join(dir, "prt.log"), cfg.LogPath())
}

func TestLoadFromNonExistentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "subdir")
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, "fastest", cfg.RPCAlgorithm)
}

func TestWalletsRoundTrip(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())

	wf, err := cfg.LoadWallets()
	require.NoError(t, err)
	assert.Empty(t, wf.Wallets)

	wf.Wallets = append(wf.Wallets, config.Wallet{Name: "deployer", Address: "0xabc", KeyRef: "prt-deployer", IsDefault: true})
	require.NoError(t, cfg.SaveWallets(wf))

	got, err := cfg.LoadWallets()
	require.NoError(t, err)
	require.Len(t, got.Wallets, 1)
	assert.Equal(t, "deployer", got.Wallets[0].Name)
	assert.True(t, got.Wallets[0].IsDefault)
}
