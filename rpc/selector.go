package rpc

import "crypto/sha256"

// Operation names dispatched on the raw invoke path.
const (
	OpInitialize       = "initialize"
	OpSubmitActivity   = "submit_activity"
	OpVerifyAndReward  = "verify_and_reward"
	OpCreateRewardMint = "create_reward_mint"
)

// SelectorSize is the length of an operation selector in bytes.
const SelectorSize = 8

// Selector derives the dispatch key for an operation name: the first eight
// bytes of the SHA-256 digest of "global:<name>". The oracle relay recomputes
// the same bytes independently; on the raw invoke path they are the sole
// dispatch key, so the derivation must never change.
func Selector(name string) [SelectorSize]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var selector [SelectorSize]byte
	copy(selector[:], sum[:SelectorSize])
	return selector
}
