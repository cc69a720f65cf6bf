package contract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ErrBadDescriptor is returned when an ABI does not describe a usable PRT
// contract.
var ErrBadDescriptor = errors.New("contract descriptor invalid")

// PRT deployment constants.
const (
	TokenAddress  = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	TokenName     = "Phillip Reward Token"
	TokenSymbol   = "PRT"
	TokenDecimals = 18
)

// prtABI is the Phillip Reward Token interface: ERC-20 plus an owner-gated
// rewardUser that mints to a beneficiary and a public OWNER constant.
//
// Function selectors:
//
//	name()                      → 0x06fdde03
//	symbol()                    → 0x95d89b41
//	decimals()                  → 0x313ce567
//	totalSupply()               → 0x18160ddd
//	balanceOf(address)          → 0x70a08231
//	allowance(address,address)  → 0xdd62ed3e
//	transfer(address,uint256)   → 0xa9059cbb
//	approve(address,uint256)    → 0x095ea7b3
//	transferFrom(a,a,uint256)   → 0x23b872dd
//	rewardUser(address,uint256) → 0xe4e103dc
//	OWNER()                     → 0x117803e3
const prtABI = `[
  {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"rewardUser","stateMutability":"nonpayable","inputs":[{"name":"user","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"OWNER","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"event","name":"Transfer","anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}]},
  {"type":"event","name":"Approval","anonymous":false,"inputs":[{"indexed":true,"name":"owner","type":"address"},{"indexed":true,"name":"spender","type":"address"},{"indexed":false,"name":"value","type":"uint256"}]}
]`

// methodSpec is what the client relies on for one contract method.
type methodSpec struct {
	name    string
	sig     string
	view    bool
	outputs []string
}

var requiredMethods = []methodSpec{
	{name: "balanceOf", sig: "balanceOf(address)", view: true, outputs: []string{"uint256"}},
	{name: "OWNER", sig: "OWNER()", view: true, outputs: []string{"address"}},
	{name: "transfer", sig: "transfer(address,uint256)", view: false},
	{name: "rewardUser", sig: "rewardUser(address,uint256)", view: false},
}

// Descriptor binds a contract address to its parsed interface.
type Descriptor struct {
	Address  common.Address
	Symbol   string
	Decimals int
	ABI      abi.ABI
}

// ParseDescriptor parses abiJSON and checks it against what the client needs.
func ParseDescriptor(address, abiJSON string) (*Descriptor, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: bad contract address %q", ErrBadDescriptor, address)
	}
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDescriptor, err)
	}
	d := &Descriptor{
		Address:  common.HexToAddress(address),
		Symbol:   TokenSymbol,
		Decimals: TokenDecimals,
		ABI:      parsed,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// DefaultDescriptor returns the compiled-in PRT descriptor.
func DefaultDescriptor() *Descriptor {
	d, err := ParseDescriptor(TokenAddress, prtABI)
	if err != nil {
		panic(fmt.Sprintf("compiled-in PRT ABI: %v", err))
	}
	return d
}

// Validate checks every method the client calls: present, same signature,
// same mutability, expected outputs, and a selector matching the
// Keccak-256 of its signature.
func (d *Descriptor) Validate() error {
	if d.Address == (common.Address{}) {
		return fmt.Errorf("%w: zero contract address", ErrBadDescriptor)
	}
	for _, spec := range requiredMethods {
		m, ok := d.ABI.Methods[spec.name]
		if !ok {
			return fmt.Errorf("%w: method %s missing", ErrBadDescriptor, spec.name)
		}
		if m.Sig != spec.sig {
			return fmt.Errorf("%w: %s has signature %s, want %s", ErrBadDescriptor, spec.name, m.Sig, spec.sig)
		}
		if m.IsConstant() != spec.view {
			return fmt.Errorf("%w: %s is %s, want view=%t", ErrBadDescriptor, spec.name, m.StateMutability, spec.view)
		}
		if spec.outputs != nil {
			if len(m.Outputs) != len(spec.outputs) {
				return fmt.Errorf("%w: %s returns %d values, want %d", ErrBadDescriptor, spec.name, len(m.Outputs), len(spec.outputs))
			}
			for i, want := range spec.outputs {
				if got := m.Outputs[i].Type.String(); got != want {
					return fmt.Errorf("%w: %s output %d is %s, want %s", ErrBadDescriptor, spec.name, i, got, want)
				}
			}
		}
		if sel := selector(spec.sig); !bytes.Equal(m.ID, sel) {
			return fmt.Errorf("%w: %s selector %x, want %x", ErrBadDescriptor, spec.name, m.ID, sel)
		}
	}
	return nil
}

// selector computes the 4-byte function selector for a canonical signature.
func selector(sig string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(sig))
	return h.Sum(nil)[:4]
}
