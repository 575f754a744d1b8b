package depin

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"mapchain/native/internal/mintauth"
)

// Record labels. The derived keys below are part of the external contract:
// compatible tooling locates records by recomputing the same derivation, so
// the labels must never change for a deployed ledger.
const (
	programStateLabel = "depin/program-state"
	userActivityLabel = "depin/user-activity:"
)

// ProgramStateKey returns the derived storage key of the singleton program
// state record.
func ProgramStateKey() []byte {
	return ethcrypto.Keccak256([]byte(programStateLabel))
}

// UserActivityKey returns the derived storage key of a user's activity record.
func UserActivityKey(user [20]byte) []byte {
	buf := make([]byte, 0, len(userActivityLabel)+len(user))
	buf = append(buf, userActivityLabel...)
	buf = append(buf, user[:]...)
	return ethcrypto.Keccak256(buf)
}

// programAuthority returns the issuance capability bound to the program
// state label. Only the engine's transition logic presents it at mint time;
// it is derived on demand and never stored.
func programAuthority() mintauth.Authority {
	return mintauth.Derive(programStateLabel)
}

// ProgramAddress returns the address form of the program's own identity: the
// truncated hash of the program state label. It is the mint authority address
// recorded in the reward token's metadata. The address alone carries no
// issuance power.
func ProgramAddress() [20]byte {
	return programAuthority().Address()
}
