package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"mapchain/native/depin"
	"mapchain/native/token"
)

const maxRequestBytes = 1 << 20 // 1 MiB

// Server exposes the ledger operations over JSON-RPC 2.0. Administrative
// methods (initialize, createRewardMint) require the configured bearer token;
// submissions require the user's own signature; the verify path is open to
// any caller by design.
type Server struct {
	engine    *depin.Engine
	tokens    *token.Ledger
	authToken string
	now       func() time.Time
	log       *slog.Logger
}

// NewServer builds an RPC server around the ledger engine. An empty authToken
// disables the administrative methods entirely.
func NewServer(engine *depin.Engine, tokens *token.Ledger, authToken string) *Server {
	return &Server{
		engine:    engine,
		tokens:    tokens,
		authToken: strings.TrimSpace(authToken),
		now:       time.Now,
		log:       slog.Default().With("component", "rpc"),
	}
}

// SetNow overrides the clock source. It is intended for tests.
func (s *Server) SetNow(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.now = now
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "unable to read request body", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON-RPC payload", nil)
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported JSON-RPC version", nil)
		return
	}

	rs := s.forRequest(requestID)
	switch req.Method {
	case "depin_initialize":
		rs.handleInitialize(w, r, &req)
	case "depin_createRewardMint":
		rs.handleCreateRewardMint(w, r, &req)
	case "depin_submitActivity":
		rs.handleSubmitActivity(w, &req)
	case "depin_verifyAndReward":
		rs.handleVerifyAndReward(w, &req)
	case "depin_getUserActivity":
		rs.handleGetUserActivity(w, &req)
	case "depin_getProgramState":
		rs.handleGetProgramState(w, &req)
	case "token_getBalance":
		rs.handleGetBalance(w, &req)
	case "program_invoke":
		rs.handleProgramInvoke(w, &req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}

// forRequest returns a shallow copy of the server whose logger carries the
// request correlation id, so every line a handler logs ties back to exactly
// one call. The same id travels to the client in the X-Request-Id header.
func (s *Server) forRequest(requestID string) *Server {
	clone := *s
	clone.log = s.log.With("requestId", requestID)
	return &clone
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return false
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	presented := strings.TrimSpace(header[len(prefix):])
	return subtle.ConstantTimeCompare([]byte(presented), []byte(s.authToken)) == 1
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("expected a single parameter object")
	}
	return json.Unmarshal(req.Params[0], out)
}

// ledgerErrorCode distinguishes policy rejections from infrastructure
// failures so callers can tell a retryable condition from a bug.
func ledgerErrorCode(err error) int {
	switch {
	case errors.Is(err, depin.ErrCooldownNotMet),
		errors.Is(err, depin.ErrDailyCapExceeded),
		errors.Is(err, depin.ErrInvalidGpsCoordinates),
		errors.Is(err, depin.ErrInvalidSignalStrength),
		errors.Is(err, depin.ErrNoPendingVerification),
		errors.Is(err, depin.ErrVerificationTooSoon),
		errors.Is(err, depin.ErrAlreadyInitialized),
		errors.Is(err, depin.ErrNotInitialized),
		errors.Is(err, token.ErrMintExists),
		errors.Is(err, token.ErrUnknownToken):
		return codeLedgerRejected
	default:
		return codeServerError
	}
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}
