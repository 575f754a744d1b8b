package token

import (
	"errors"
	"fmt"
	"math"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"mapchain/core/state"
	"mapchain/native/internal/mintauth"
)

// Storage abstracts the subset of state manager functionality required by the
// token ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	NewBatch() *state.Batch
}

var (
	metadataPrefix = []byte("token/meta:")
	balancePrefix  = []byte("token/balance:")
)

var (
	// ErrMintExists indicates a token symbol has already been registered.
	ErrMintExists = errors.New("token: mint already registered")
	// ErrUnknownToken indicates the referenced token symbol is not registered.
	ErrUnknownToken = errors.New("token: unknown token")
	// ErrMintAuthorityMismatch indicates the presented authority does not match
	// the registered mint authority.
	ErrMintAuthorityMismatch = errors.New("token: mint authority mismatch")
	// ErrZeroAmount indicates a mint of zero units was requested.
	ErrZeroAmount = errors.New("token: amount must be positive")
	// ErrSupplyOverflow indicates a mint would overflow the recipient balance
	// or the total supply counter.
	ErrSupplyOverflow = errors.New("token: supply overflow")
)

// Metadata describes a registered token type.
type Metadata struct {
	Symbol        string
	Name          string
	Decimals      uint8
	MintAuthority [20]byte
	TotalSupply   uint64
}

// MetadataKey returns the derived storage key for a token's metadata record.
// The derivation is part of the external contract so that tooling can locate
// records without a separate index.
func MetadataKey(symbol string) []byte {
	return ethcrypto.Keccak256(append(append([]byte(nil), metadataPrefix...), NormalizeSymbol(symbol)...))
}

// BalanceKey returns the derived storage key for a holder's balance record.
func BalanceKey(symbol string, addr [20]byte) []byte {
	buf := append(append([]byte(nil), balancePrefix...), NormalizeSymbol(symbol)...)
	buf = append(buf, ':')
	buf = append(buf, addr[:]...)
	return ethcrypto.Keccak256(buf)
}

// NormalizeSymbol trims and upper-cases a token symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Ledger persists token metadata and holder balances in the underlying state.
type Ledger struct {
	store Storage
}

// NewLedger constructs a token ledger bound to the provided storage backend.
func NewLedger(store Storage) *Ledger {
	return &Ledger{store: store}
}

// Register records a new token type. Registration is one-shot: a second call
// for the same symbol fails with ErrMintExists rather than overwriting the
// existing metadata.
func (l *Ledger) Register(symbol, name string, decimals uint8, mintAuthority mintauth.Authority) error {
	normalized := NormalizeSymbol(symbol)
	if normalized == "" {
		return fmt.Errorf("token: symbol required")
	}
	key := MetadataKey(normalized)
	exists, err := l.store.KVGet(key, nil)
	if err != nil {
		return err
	}
	if exists {
		return ErrMintExists
	}
	if !mintAuthority.Valid() {
		return fmt.Errorf("token: mint authority required")
	}
	meta := Metadata{
		Symbol:        normalized,
		Name:          strings.TrimSpace(name),
		Decimals:      decimals,
		MintAuthority: mintAuthority.Address(),
	}
	return l.store.KVPut(key, &meta)
}

// Metadata loads the metadata record for a symbol. The boolean reports whether
// the token is registered.
func (l *Ledger) Metadata(symbol string) (*Metadata, bool, error) {
	var meta Metadata
	ok, err := l.store.KVGet(MetadataKey(symbol), &meta)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &meta, true, nil
}

// Exists reports whether the symbol is registered.
func (l *Ledger) Exists(symbol string) (bool, error) {
	return l.store.KVGet(MetadataKey(symbol), nil)
}

// Mint credits newly issued units to the recipient in its own atomic batch.
// The presented capability must carry the mint authority recorded at
// registration time; only the native ledger modules can construct one, so
// holding the Ledger itself never grants issuance.
func (l *Ledger) Mint(authority mintauth.Authority, symbol string, to [20]byte, amount uint64) error {
	batch := l.store.NewBatch()
	if err := l.MintTo(batch, authority, symbol, to, amount); err != nil {
		return err
	}
	return batch.Commit()
}

// MintTo stages a mint into the caller's batch so the issuance commits
// together with the caller's own record writes. The caller owns the commit;
// nothing is persisted if it never happens.
func (l *Ledger) MintTo(batch *state.Batch, authority mintauth.Authority, symbol string, to [20]byte, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	meta, ok, err := l.Metadata(symbol)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownToken
	}
	if !authority.Valid() || meta.MintAuthority != authority.Address() {
		return ErrMintAuthorityMismatch
	}
	balance, err := l.BalanceOf(symbol, to)
	if err != nil {
		return err
	}
	if balance > math.MaxUint64-amount || meta.TotalSupply > math.MaxUint64-amount {
		return ErrSupplyOverflow
	}
	if err := batch.KVPut(BalanceKey(symbol, to), balance+amount); err != nil {
		return err
	}
	meta.TotalSupply += amount
	return batch.KVPut(MetadataKey(symbol), meta)
}

// BalanceOf returns the recipient's balance for the symbol. Unregistered
// holders report zero.
func (l *Ledger) BalanceOf(symbol string, addr [20]byte) (uint64, error) {
	var balance uint64
	ok, err := l.store.KVGet(BalanceKey(symbol, addr), &balance)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return balance, nil
}
