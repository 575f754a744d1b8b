package rpc

import (
	"encoding/json"
	"fmt"
	"strconv"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"mapchain/native/depin"
)

const jsonRPCVersion = "2.0"

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeLedgerRejected = -32050
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// SubmitActivityParams is the payload of depin_submitActivity. The signature
// is a 65-byte recoverable secp256k1 signature over SubmitActivityDigest,
// proving the submission comes from the user's own signing identity.
type SubmitActivityParams struct {
	User           string  `json:"user"`
	GpsLat         float64 `json:"gpsLat"`
	GpsLong        float64 `json:"gpsLong"`
	SignalStrength int8    `json:"signalStrength"`
	Signature      string  `json:"signature"`
}

// VerifyAndRewardParams is the payload of depin_verifyAndReward. Any caller
// may trigger verification for any user; the ledger's timing checks are the
// only gate on this path.
type VerifyAndRewardParams struct {
	User string `json:"user"`
}

// InitializeParams is the payload of depin_initialize.
type InitializeParams struct {
	Authority  string `json:"authority"`
	RewardMint string `json:"rewardMint"`
}

// InvokeParams is the payload of program_invoke: a raw call consisting of an
// account reference list and an opaque byte payload whose leading eight bytes
// select the operation.
type InvokeParams struct {
	Accounts []string `json:"accounts"`
	Data     string   `json:"data"`
}

// UserActivityResult is the externally visible form of a user activity record.
type UserActivityResult struct {
	User                    string  `json:"user"`
	GpsLat                  float64 `json:"gpsLat"`
	GpsLong                 float64 `json:"gpsLong"`
	SignalStrength          int8    `json:"signalStrength"`
	LastSubmissionTimestamp int64   `json:"lastSubmissionTimestamp"`
	DailySubmissions        uint8   `json:"dailySubmissions"`
	TotalSubmissions        uint64  `json:"totalSubmissions"`
	TotalRewardsEarned      uint64  `json:"totalRewardsEarned"`
	PendingVerification     bool    `json:"pendingVerification"`
}

// ProgramStateResult is the externally visible form of the program record.
type ProgramStateResult struct {
	Authority               string `json:"authority"`
	RewardMint              string `json:"rewardMint"`
	TotalRewardsDistributed uint64 `json:"totalRewardsDistributed"`
}

// VerifyResult reports a settled verification.
type VerifyResult struct {
	User         string `json:"user"`
	RewardAmount uint64 `json:"rewardAmount"`
}

// BalanceResult reports a token balance.
type BalanceResult struct {
	Address string `json:"address"`
	Token   string `json:"token"`
	Amount  uint64 `json:"amount"`
}

// SubmitActivityDigest computes the canonical signing digest for a
// submission. Floats are rendered with the shortest round-trip decimal form
// so signer and verifier always hash identical bytes.
func SubmitActivityDigest(user string, gpsLat, gpsLong float64, signalStrength int8) ([]byte, error) {
	canonical := struct {
		User           string `json:"user"`
		GpsLat         string `json:"gpsLat"`
		GpsLong        string `json:"gpsLong"`
		SignalStrength int64  `json:"signalStrength"`
	}{
		User:           user,
		GpsLat:         strconv.FormatFloat(gpsLat, 'f', -1, 64),
		GpsLong:        strconv.FormatFloat(gpsLong, 'f', -1, 64),
		SignalStrength: int64(signalStrength),
	}
	if canonical.User == "" {
		return nil, fmt.Errorf("user required")
	}
	payload, err := json.Marshal(canonical)
	if err != nil {
		return nil, err
	}
	return ethcrypto.Keccak256(payload), nil
}

func activityResult(activity *depin.UserActivity, user string) *UserActivityResult {
	return &UserActivityResult{
		User:                    user,
		GpsLat:                  activity.GpsLat,
		GpsLong:                 activity.GpsLong,
		SignalStrength:          activity.SignalStrength,
		LastSubmissionTimestamp: activity.LastSubmissionTimestamp,
		DailySubmissions:        activity.DailySubmissions,
		TotalSubmissions:        activity.TotalSubmissions,
		TotalRewardsEarned:      activity.TotalRewardsEarned,
		PendingVerification:     activity.PendingVerification,
	}
}
