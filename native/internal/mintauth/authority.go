// Package mintauth models the token issuance capability. It lives under
// native/internal so only the native ledger modules can construct an
// Authority value: the RPC layer and external tooling can read the authority
// address recorded in token metadata, but cannot present one at mint time.
package mintauth

import ethcrypto "github.com/ethereum/go-ethereum/crypto"

// Authority is the capability presented when minting. The zero value is
// never a valid authority, so a forged or default-constructed value fails
// the ledger's gate even against a zero authority address.
type Authority struct {
	addr  [20]byte
	valid bool
}

// Derive binds an authority to a program label: the truncated keccak hash of
// the label bytes. The derivation is deterministic, so a restarted process
// arrives at the same identity without storing key material.
func Derive(label string) Authority {
	hash := ethcrypto.Keccak256([]byte(label))
	var addr [20]byte
	copy(addr[:], hash[12:])
	return Authority{addr: addr, valid: true}
}

// Address returns the 20-byte address form recorded in token metadata.
func (a Authority) Address() [20]byte {
	return a.addr
}

// Valid reports whether the authority was properly derived.
func (a Authority) Valid() bool {
	return a.valid
}
