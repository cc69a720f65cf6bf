package config

// Config holds all prt configuration.
type Config struct {
	RPCURLs       []string `json:"rpc_urls"`
	RPCAlgorithm  string   `json:"rpc_algorithm"` // "fastest" | "round-robin" | "failover"
	ChainID       uint64   `json:"chain_id"`      // 0 accepts whatever chain the node serves
	DefaultWallet string   `json:"default_wallet"`
	LogLevel      string   `json:"log_level"`

	ReceiptPollMS     int    `json:"receipt_poll_ms"`
	SettleDelayMS     int    `json:"settle_delay_ms"`
	TxConfirmTimeoutS int    `json:"tx_confirm_timeout_sec"` // 0 waits forever
	AutoApprove       bool   `json:"auto_approve"`
	ListenAddr        string `json:"listen_addr"`

	// internal: config dir path used for Save()
	configDir string
}

// Wallet represents a stored wallet entry. The private key itself lives in
// the OS keychain under KeyRef.
type Wallet struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	KeyRef    string `json:"key_ref"`
	IsDefault bool   `json:"is_default"`
	CreatedAt string `json:"created_at"`
}

// WalletsFile is the structure of wallets.json.
type WalletsFile struct {
	Wallets []Wallet `json:"wallets"`
}
