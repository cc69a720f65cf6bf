package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/config"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/contract"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/provider"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/session"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/txflow"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/units"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/wallet"
)

const (
	// Well-known local development keys.
	devKey0    = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	devAddr0   = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	devAddr1   = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	devChainID = "0x7a69"
)

// lockedBuffer is written to by the spinner and the logger at once.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// runCLI executes prt with args against dir and returns stdout and stderr.
func runCLI(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	walletKeyFlag, balanceOfFlag = "", ""
	transferToFlag, transferAmountFlag = "", ""
	rewardUserFlag, rewardAmountFlag = "", ""
	convertToBaseFlag, convertFromBaseFlag, configRPCAddFlag = false, false, false
	assumeYes, verbose = false, false
	serveAddrFlag = ""

	var stdout, stderr lockedBuffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--config", dir}, args...))
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func newCLIDir(t *testing.T) string {
	t.Helper()
	t.Setenv(wallet.EnvKeyPassword, "test-password")
	t.Setenv(wallet.EnvPrivateKey, "")
	return t.TempDir()
}

// devNode answers the JSON-RPC calls the token client makes, holding a
// balance that transfers move.
type devNode struct {
	mu      sync.Mutex
	balance *big.Int
	owner   common.Address
	sent    []*types.Transaction
}

func word(b []byte) string {
	return hexutil.Encode(common.LeftPadBytes(b, 32))
}

func (n *devNode) serve(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
			ID     int64             `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		n.mu.Lock()
		var result interface{}
		switch req.Method {
		case "eth_chainId":
			result = devChainID
		case "eth_call":
			var args struct {
				Data hexutil.Bytes `json:"data"`
			}
			_ = json.Unmarshal(req.Params[0], &args)
			switch hexutil.Encode(args.Data[:4]) {
			case "0x70a08231":
				result = word(n.balance.Bytes())
			case "0x117803e3":
				result = word(n.owner.Bytes())
			}
		case "eth_estimateGas":
			result = "0xea60"
		case "eth_gasPrice":
			result = "0x3b9aca00"
		case "eth_getTransactionCount":
			result = hexutil.EncodeUint64(uint64(len(n.sent)))
		case "eth_sendRawTransaction":
			var raw hexutil.Bytes
			_ = json.Unmarshal(req.Params[0], &raw)
			tx := new(types.Transaction)
			if err := tx.UnmarshalBinary(raw); err == nil {
				n.sent = append(n.sent, tx)
				if amount, ok := new(big.Int).SetString(hexutil.Encode(tx.Data()[36:68])[2:], 16); ok {
					n.balance = new(big.Int).Sub(n.balance, amount)
				}
				result = tx.Hash().Hex()
			}
		case "eth_getTransactionReceipt":
			result = map[string]interface{}{"status": "0x1", "blockNumber": "0x2", "gasUsed": "0xea60"}
		}
		n.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (n *devNode) transactions() []*types.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*types.Transaction(nil), n.sent...)
}

// setupConnected configures dir with a dev wallet and the node's URL.
func setupConnected(t *testing.T, node *devNode) string {
	t.Helper()
	dir := newCLIDir(t)
	srv := node.serve(t)
	_, _, err := runCLI(t, dir, "config", "set-rpc", srv.URL)
	require.NoError(t, err)
	_, _, err = runCLI(t, dir, "wallet", "add", "dev", "--key", devKey0)
	require.NoError(t, err)
	return dir
}

func tokens(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := units.ParseToken(s)
	require.NoError(t, err)
	return v
}

func TestConfigSetRPCAndList(t *testing.T) {
	dir := newCLIDir(t)

	out, _, err := runCLI(t, dir, "config", "set-rpc", "http://127.0.0.1:8545", "http://127.0.0.1:9545")
	require.NoError(t, err)
	assert.Contains(t, out, "2 RPC endpoint(s) configured")

	_, _, err = runCLI(t, dir, "config", "set-rpc", "--add", "https://rpc.example.org")
	require.NoError(t, err)
	_, _, err = runCLI(t, dir, "config", "remove-rpc", "http://127.0.0.1:9545")
	require.NoError(t, err)

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://127.0.0.1:8545", "https://rpc.example.org"}, cfg.RPCURLs)

	out, _, err = runCLI(t, dir, "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "https://rpc.example.org")
	assert.Contains(t, out, dir)
}

func TestConfigSetRPCRejectsBadURL(t *testing.T) {
	_, _, err := runCLI(t, newCLIDir(t), "config", "set-rpc", "not a url")
	assert.Error(t, err)
}

func TestConfigSetChainID(t *testing.T) {
	dir := newCLIDir(t)
	_, _, err := runCLI(t, dir, "config", "set-chain-id", "1")
	require.NoError(t, err)
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cfg.ChainID)

	_, _, err = runCLI(t, dir, "config", "set-chain-id", "mainnet")
	assert.Error(t, err)
}

func TestConfigSetAlgorithm(t *testing.T) {
	dir := newCLIDir(t)
	_, _, err := runCLI(t, dir, "config", "set-algorithm", "failover")
	require.NoError(t, err)
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "failover", cfg.RPCAlgorithm)

	_, _, err = runCLI(t, dir, "config", "set-algorithm", "random")
	assert.Error(t, err)
}

func TestWalletAddListUseRemove(t *testing.T) {
	dir := newCLIDir(t)

	out, _, err := runCLI(t, dir, "wallet", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No wallets configured yet.")

	out, _, err = runCLI(t, dir, "wallet", "add", "dev", "--key", "0x"+devKey0)
	require.NoError(t, err)
	assert.Contains(t, out, devAddr0)

	_, _, err = runCLI(t, dir, "wallet", "add", "dev", "--key", devKey0)
	assert.ErrorIs(t, err, wallet.ErrWalletExists)

	out, _, err = runCLI(t, dir, "wallet", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
	assert.Contains(t, out, devAddr0)
	assert.Contains(t, out, "1 wallet(s) configured")

	_, _, err = runCLI(t, dir, "wallet", "use", "dev")
	require.NoError(t, err)
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.DefaultWallet)

	out, _, err = runCLI(t, dir, "--yes", "wallet", "remove", "dev")
	require.NoError(t, err)
	assert.Contains(t, out, `Wallet "dev" removed.`)
	cfg, err = config.Load(dir)
	require.NoError(t, err)
	assert.Empty(t, cfg.DefaultWallet)
}

func TestWalletAddFromEnv(t *testing.T) {
	dir := newCLIDir(t)
	t.Setenv(wallet.EnvPrivateKey, devKey0)

	out, _, err := runCLI(t, dir, "wallet", "add", "ci")
	require.NoError(t, err)
	assert.Contains(t, out, devAddr0)
}

func TestWalletAddRejectsBadKey(t *testing.T) {
	_, _, err := runCLI(t, newCLIDir(t), "wallet", "add", "dev", "--key", "0x1234")
	assert.ErrorIs(t, err, wallet.ErrInvalidKey)
}

func TestConvertCommand(t *testing.T) {
	dir := newCLIDir(t)
	out, _, err := runCLI(t, dir, "convert", "--to-base", "10.5")
	require.NoError(t, err)
	assert.Contains(t, out, "10500000000000000000")

	out, _, err = runCLI(t, dir, "convert", "--from-base", "10500000000000000000")
	require.NoError(t, err)
	assert.Contains(t, out, "10.5 PRT")
}

func TestConnectWithoutWallet(t *testing.T) {
	_, stderr, err := runCLI(t, newCLIDir(t), "--yes", "connect")
	assert.ErrorIs(t, err, provider.ErrUnavailable)
	assert.Contains(t, stderr, "prt wallet add")
}

func TestConnectShowsSession(t *testing.T) {
	node := &devNode{balance: tokens(t, "42")}
	dir := setupConnected(t, node)

	out, _, err := runCLI(t, dir, "--yes", "connect")
	require.NoError(t, err)
	assert.Contains(t, out, devAddr0)
	assert.Contains(t, out, "31337")
	assert.Contains(t, out, contract.TokenAddress)
	assert.Contains(t, out, "42.0 PRT")
}

func TestConnectWrongNetwork(t *testing.T) {
	node := &devNode{balance: tokens(t, "1")}
	dir := setupConnected(t, node)
	_, _, err := runCLI(t, dir, "config", "set-chain-id", "1")
	require.NoError(t, err)

	_, stderr, err := runCLI(t, dir, "--yes", "connect")
	assert.ErrorIs(t, err, session.ErrWrongNetwork)
	assert.Contains(t, stderr, "set-chain-id")
}

func TestBalanceCommand(t *testing.T) {
	node := &devNode{balance: tokens(t, "12.25")}
	dir := setupConnected(t, node)

	out, _, err := runCLI(t, dir, "--yes", "balance")
	require.NoError(t, err)
	assert.Contains(t, out, "12.25 PRT")

	_, _, err = runCLI(t, dir, "--yes", "balance", "--of", "0xnope")
	assert.Error(t, err)
}

func TestOwnerCommand(t *testing.T) {
	node := &devNode{balance: tokens(t, "1"), owner: common.HexToAddress(devAddr0)}
	dir := setupConnected(t, node)

	out, _, err := runCLI(t, dir, "--yes", "owner")
	require.NoError(t, err)
	assert.Contains(t, out, devAddr0)
	assert.Contains(t, out, "true")
}

func TestTransferCommand(t *testing.T) {
	node := &devNode{balance: tokens(t, "42")}
	dir := setupConnected(t, node)

	out, _, err := runCLI(t, dir, "--yes", "transfer", "--to", devAddr1, "--amount", "10")
	require.NoError(t, err)
	assert.Contains(t, out, txflow.LabelSucceeded)
	assert.Contains(t, out, "32.0 PRT")

	sent := node.transactions()
	require.Len(t, sent, 1)
	tx := sent[0]
	assert.Equal(t, common.HexToAddress(contract.TokenAddress), *tx.To())
	assert.Equal(t, "0xa9059cbb", hexutil.Encode(tx.Data()[:4]))
	assert.Equal(t, common.HexToAddress(devAddr1), common.BytesToAddress(tx.Data()[4:36]))
	assert.Equal(t, big.NewInt(31337), tx.ChainId())
	assert.Contains(t, out, tx.Hash().Hex())
}

func TestRewardCommandSelector(t *testing.T) {
	node := &devNode{balance: tokens(t, "100")}
	dir := setupConnected(t, node)

	_, _, err := runCLI(t, dir, "--yes", "reward", "--user", devAddr0, "--amount", "1")
	require.NoError(t, err)

	sent := node.transactions()
	require.Len(t, sent, 1)
	assert.Equal(t, "0xe4e103dc", hexutil.Encode(sent[0].Data()[:4]))
}

func TestTransferRejectsBadInput(t *testing.T) {
	node := &devNode{balance: tokens(t, "42")}
	dir := setupConnected(t, node)

	cases := [][]string{
		{"--to", "", "--amount", "1"},
		{"--to", devAddr1, "--amount", ""},
		{"--to", "0x1234", "--amount", "1"},
		{"--to", devAddr1, "--amount", "ten"},
	}
	for _, c := range cases {
		_, _, err := runCLI(t, dir, append([]string{"--yes", "transfer"}, c...)...)
		var verr *txflow.ValidationError
		require.ErrorAs(t, err, &verr, strings.Join(c, " "))
		assert.Equal(t, "Enter valid address and amount", verr.Notice)
	}
	assert.Empty(t, node.transactions())
}

func TestConnectHint(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{provider.ErrUnavailable, "prt wallet add"},
		{fmt.Errorf("wrapped: %w", provider.ErrUserRejected), "--yes"},
		{session.ErrWrongNetwork, "set-chain-id"},
		{fmt.Errorf("dial tcp: refused"), ""},
	}
	for _, c := range cases {
		if c.want == "" {
			assert.Empty(t, connectHint(c.err))
			continue
		}
		assert.Contains(t, connectHint(c.err), c.want)
	}
}
