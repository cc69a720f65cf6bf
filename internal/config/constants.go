package config

import "time"

// Gas limits used as EstimateGas fallbacks when the node cannot simulate the tx.
// These are conservative upper bounds; actual gas used will be lower.
const (
	GasLimitTransfer = uint64(60_000) // PRT transfer
	GasLimitReward   = uint64(80_000) // rewardUser mints to the beneficiary
)

// Timeouts for operations that are never left unbounded.
const (
	RPCSelectTimeout = 10 * time.Second // probing configured endpoints
	ConnectTimeout   = 30 * time.Second // account request + chain ID check
	ReadTimeout      = 15 * time.Second // balanceOf / OWNER reads
)

const (
	DefaultRPCURL      = "http://127.0.0.1:8545"
	DefaultChainID     = uint64(31337)
	DefaultAlgorithm   = "fastest"
	DefaultLogLevel    = "info"
	DefaultReceiptPoll = 2 * time.Second
	DefaultSettleDelay = 2 * time.Second
	DefaultListenAddr  = "127.0.0.1:8080"

	// EnvConfigDir overrides the --config flag.
	EnvConfigDir = "PRT_CONFIG_DIR"
)
