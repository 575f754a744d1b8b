package rpc

import (
	"encoding/hex"
	"net/http"
	"strings"

	"mapchain/crypto"
)

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "administrative token required", nil)
		return
	}
	var params InitializeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	authority, err := crypto.DecodeAddress(params.Authority)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid authority address", err.Error())
		return
	}
	mint := params.RewardMint
	if strings.TrimSpace(mint) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "rewardMint required", nil)
		return
	}
	state, err := s.engine.Initialize(authority.Array(), mint)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, ledgerErrorCode(err), err.Error(), nil)
		return
	}
	s.log.Info("program state initialised", "authority", params.Authority, "rewardMint", state.RewardMint)
	writeResult(w, req.ID, &ProgramStateResult{
		Authority:               params.Authority,
		RewardMint:              state.RewardMint,
		TotalRewardsDistributed: state.TotalRewardsDistributed,
	})
}

func (s *Server) handleCreateRewardMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "administrative token required", nil)
		return
	}
	if err := s.engine.CreateRewardMint(); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, ledgerErrorCode(err), err.Error(), nil)
		return
	}
	s.log.Info("reward mint created")
	writeResult(w, req.ID, map[string]bool{"created": true})
}

func (s *Server) handleSubmitActivity(w http.ResponseWriter, req *RPCRequest) {
	var params SubmitActivityParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	user, err := crypto.DecodeAddress(params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid user address", err.Error())
		return
	}
	digest, err := SubmitActivityDigest(params.User, params.GpsLat, params.GpsLong, params.SignalStrength)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(params.Signature, "0x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid signature encoding", nil)
		return
	}
	signer, err := crypto.RecoverAddress(digest, sig)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "signature recovery failed", err.Error())
		return
	}
	if signer.Array() != user.Array() {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "signature does not match user", nil)
		return
	}

	now := s.now().UTC().Unix()
	activity, err := s.engine.SubmitActivity(user.Array(), params.GpsLat, params.GpsLong, params.SignalStrength, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, ledgerErrorCode(err), err.Error(), nil)
		return
	}
	s.log.Info("activity submitted",
		"user", params.User,
		"gpsLat", params.GpsLat,
		"gpsLong", params.GpsLong,
		"signalStrength", params.SignalStrength,
	)
	writeResult(w, req.ID, activityResult(activity, params.User))
}

func (s *Server) handleVerifyAndReward(w http.ResponseWriter, req *RPCRequest) {
	var params VerifyAndRewardParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	s.verifyAndReward(w, req, params.User)
}

func (s *Server) verifyAndReward(w http.ResponseWriter, req *RPCRequest, userStr string) {
	user, err := crypto.DecodeAddress(userStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid user address", err.Error())
		return
	}
	now := s.now().UTC().Unix()
	reward, err := s.engine.VerifyAndReward(user.Array(), now)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, ledgerErrorCode(err), err.Error(), nil)
		return
	}
	s.log.Info("activity verified", "user", userStr, "rewardAmount", reward)
	writeResult(w, req.ID, &VerifyResult{User: userStr, RewardAmount: reward})
}

func (s *Server) handleGetUserActivity(w http.ResponseWriter, req *RPCRequest) {
	var params VerifyAndRewardParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	user, err := crypto.DecodeAddress(params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid user address", err.Error())
		return
	}
	activity, ok, err := s.engine.UserActivity(user.Array())
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeLedgerRejected, "user activity not found", params.User)
		return
	}
	writeResult(w, req.ID, activityResult(activity, params.User))
}

func (s *Server) handleGetProgramState(w http.ResponseWriter, req *RPCRequest) {
	state, ok, err := s.engine.ProgramState()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeLedgerRejected, "program state not initialised", nil)
		return
	}
	writeResult(w, req.ID, &ProgramStateResult{
		Authority:               crypto.NewAddress(state.Authority[:]).String(),
		RewardMint:              state.RewardMint,
		TotalRewardsDistributed: state.TotalRewardsDistributed,
	})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Address string `json:"address"`
		Token   string `json:"token"`
	}
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := crypto.DecodeAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	amount, err := s.tokens.BalanceOf(params.Token, addr.Array())
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, &BalanceResult{Address: params.Address, Token: params.Token, Amount: amount})
}

// handleProgramInvoke dispatches a raw call on its leading 8-byte selector.
// The account reference list supplies the call context: the first entry is
// the caller's signing identity and the final entry names the target user.
// Only the verification operation is reachable this way; the remaining
// operations require their typed methods.
func (s *Server) handleProgramInvoke(w http.ResponseWriter, req *RPCRequest) {
	var params InvokeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	data, err := hex.DecodeString(strings.TrimPrefix(params.Data, "0x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid data encoding", nil)
		return
	}
	if len(data) < SelectorSize {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "payload shorter than selector", nil)
		return
	}
	if len(params.Accounts) == 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "account list required", nil)
		return
	}
	var selector [SelectorSize]byte
	copy(selector[:], data[:SelectorSize])

	switch selector {
	case Selector(OpVerifyAndReward):
		target := params.Accounts[len(params.Accounts)-1]
		s.verifyAndReward(w, req, target)
	default:
		writeError(w, http.StatusBadRequest, req.ID, codeMethodNotFound, "unknown operation selector", hex.EncodeToString(selector[:]))
	}
}
