package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"mapchain/core/state"
	"mapchain/crypto"
	"mapchain/native/depin"
	"mapchain/native/token"
	"mapchain/storage"
)

const testAuthToken = "test-admin-token"

type testHarness struct {
	server *Server
	tokens *token.Ledger
	now    time.Time
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	tokens := token.NewLedger(manager)
	engine, err := depin.NewEngine(manager, tokens, depin.DefaultParams())
	require.NoError(t, err)

	h := &testHarness{
		server: NewServer(engine, tokens, testAuthToken),
		tokens: tokens,
		now:    time.Unix(1_700_000_000, 0),
	}
	h.server.SetNow(func() time.Time { return h.now })
	return h
}

func (h *testHarness) call(t *testing.T, method string, params interface{}, auth bool) *RPCResponse {
	t.Helper()
	var rawParams []json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		require.NoError(t, err)
		rawParams = append(rawParams, encoded)
	}
	body, err := json.Marshal(&RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: rawParams, ID: 1})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/", bytes.NewReader(body))
	if auth {
		req.Header.Set("Authorization", "Bearer "+testAuthToken)
	}
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)

	var resp RPCResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return &resp
}

func (h *testHarness) setup(t *testing.T, authority string) {
	t.Helper()
	resp := h.call(t, "depin_createRewardMint", nil, true)
	require.Nil(t, resp.Error)
	resp = h.call(t, "depin_initialize", &InitializeParams{Authority: authority, RewardMint: depin.RewardTokenSymbol}, true)
	require.Nil(t, resp.Error)
}

func signedSubmit(t *testing.T, key *crypto.PrivateKey, lat, long float64, signal int8) *SubmitActivityParams {
	t.Helper()
	user := key.PubKey().Address().String()
	digest, err := SubmitActivityDigest(user, lat, long, signal)
	require.NoError(t, err)
	sig, err := key.Sign(digest)
	require.NoError(t, err)
	return &SubmitActivityParams{
		User:           user,
		GpsLat:         lat,
		GpsLong:        long,
		SignalStrength: signal,
		Signature:      hex.EncodeToString(sig),
	}
}

func decodeResult(t *testing.T, resp *RPCResponse, out interface{}) {
	t.Helper()
	encoded, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(encoded, out))
}

func TestAdminMethodsRequireToken(t *testing.T) {
	h := newHarness(t)
	resp := h.call(t, "depin_createRewardMint", nil, false)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	resp = h.call(t, "depin_initialize", &InitializeParams{Authority: key.PubKey().Address().String(), RewardMint: "MAP"}, false)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestInitializeTwiceFails(t *testing.T) {
	h := newHarness(t)
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	authority := key.PubKey().Address().String()
	h.setup(t, authority)

	resp := h.call(t, "depin_initialize", &InitializeParams{Authority: authority, RewardMint: depin.RewardTokenSymbol}, true)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeLedgerRejected, resp.Error.Code)
}

func TestSubmitRequiresMatchingSignature(t *testing.T) {
	h := newHarness(t)
	authorityKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	h.setup(t, authorityKey.PubKey().Address().String())

	userKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	otherKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	params := signedSubmit(t, userKey, 34.0522, -118.2437, -45)
	// Replace the signature with one from a different key.
	digest, err := SubmitActivityDigest(params.User, params.GpsLat, params.GpsLong, params.SignalStrength)
	require.NoError(t, err)
	forged, err := otherKey.Sign(digest)
	require.NoError(t, err)
	params.Signature = hex.EncodeToString(forged)

	resp := h.call(t, "depin_submitActivity", params, false)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestSubmitVerifyFlow(t *testing.T) {
	h := newHarness(t)
	authorityKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	h.setup(t, authorityKey.PubKey().Address().String())

	userKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	user := userKey.PubKey().Address().String()

	resp := h.call(t, "depin_submitActivity", signedSubmit(t, userKey, 34.0522, -118.2437, -45), false)
	require.Nil(t, resp.Error, "submit failed: %v", resp.Error)
	var activity UserActivityResult
	decodeResult(t, resp, &activity)
	require.True(t, activity.PendingVerification)
	require.Equal(t, uint64(1), activity.TotalSubmissions)

	// Verification before the latency floor is rejected.
	h.now = h.now.Add(59 * time.Second)
	resp = h.call(t, "depin_verifyAndReward", &VerifyAndRewardParams{User: user}, false)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeLedgerRejected, resp.Error.Code)

	h.now = h.now.Add(1 * time.Second)
	resp = h.call(t, "depin_verifyAndReward", &VerifyAndRewardParams{User: user}, false)
	require.Nil(t, resp.Error, "verify failed: %v", resp.Error)
	var verified VerifyResult
	decodeResult(t, resp, &verified)
	require.Equal(t, uint64(5_000_000), verified.RewardAmount)

	resp = h.call(t, "token_getBalance", map[string]string{"address": user, "token": depin.RewardTokenSymbol}, false)
	require.Nil(t, resp.Error)
	var balance BalanceResult
	decodeResult(t, resp, &balance)
	require.Equal(t, uint64(5_000_000), balance.Amount)

	resp = h.call(t, "depin_getProgramState", nil, false)
	require.Nil(t, resp.Error)
	var program ProgramStateResult
	decodeResult(t, resp, &program)
	require.Equal(t, uint64(5_000_000), program.TotalRewardsDistributed)
}

func TestProgramInvokeDispatchesOnSelector(t *testing.T) {
	h := newHarness(t)
	authorityKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	h.setup(t, authorityKey.PubKey().Address().String())

	userKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	user := userKey.PubKey().Address().String()
	relayKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	relay := relayKey.PubKey().Address().String()

	resp := h.call(t, "depin_submitActivity", signedSubmit(t, userKey, 48.8566, 2.3522, -70), false)
	require.Nil(t, resp.Error)

	h.now = h.now.Add(2 * time.Minute)
	selector := Selector(OpVerifyAndReward)
	resp = h.call(t, "program_invoke", &InvokeParams{
		Accounts: []string{relay, user},
		Data:     "0x" + hex.EncodeToString(selector[:]),
	}, false)
	require.Nil(t, resp.Error, "invoke failed: %v", resp.Error)
	var verified VerifyResult
	decodeResult(t, resp, &verified)
	require.Equal(t, user, verified.User)

	// A second invoke for the same pending cycle must fail, not double mint.
	resp = h.call(t, "program_invoke", &InvokeParams{
		Accounts: []string{relay, user},
		Data:     "0x" + hex.EncodeToString(selector[:]),
	}, false)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeLedgerRejected, resp.Error.Code)
}

func TestProgramInvokeRejectsUnknownSelector(t *testing.T) {
	h := newHarness(t)
	resp := h.call(t, "program_invoke", &InvokeParams{
		Accounts: []string{"map1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq"},
		Data:     "0x0000000000000000",
	}, false)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestSubmitCooldownOverRPC(t *testing.T) {
	h := newHarness(t)
	authorityKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	h.setup(t, authorityKey.PubKey().Address().String())

	userKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	resp := h.call(t, "depin_submitActivity", signedSubmit(t, userKey, 10, 20, -50), false)
	require.Nil(t, resp.Error)

	h.now = h.now.Add(30 * time.Minute)
	resp = h.call(t, "depin_submitActivity", signedSubmit(t, userKey, 10, 20, -50), false)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeLedgerRejected, resp.Error.Code)
	require.Contains(t, resp.Error.Message, "cooldown")
}

func TestMethodNotFound(t *testing.T) {
	h := newHarness(t)
	resp := h.call(t, "depin_unknownMethod", nil, false)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestSubmitDigestDeterministic(t *testing.T) {
	a, err := SubmitActivityDigest("map1xyz", 34.0522, -118.2437, -45)
	require.NoError(t, err)
	b, err := SubmitActivityDigest("map1xyz", 34.0522, -118.2437, -45)
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := SubmitActivityDigest("map1xyz", 34.0521, -118.2437, -45)
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestResponsesCarryRequestID(t *testing.T) {
	h := newHarness(t)
	body, err := json.Marshal(&RPCRequest{JSONRPC: jsonRPCVersion, Method: "depin_getProgramState", ID: 1})
	require.NoError(t, err)

	first := httptest.NewRecorder()
	h.server.ServeHTTP(first, httptest.NewRequest("POST", "/", bytes.NewReader(body)))
	firstID := first.Header().Get("X-Request-Id")
	require.NotEmpty(t, firstID)
	_, err = uuid.Parse(firstID)
	require.NoError(t, err)

	second := httptest.NewRecorder()
	h.server.ServeHTTP(second, httptest.NewRequest("POST", "/", bytes.NewReader(body)))
	require.NotEqual(t, firstID, second.Header().Get("X-Request-Id"))
}
