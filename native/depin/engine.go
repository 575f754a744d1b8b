package depin

import (
	"fmt"
	"sync"

	"mapchain/core/state"
	"mapchain/native/internal/mintauth"
	"mapchain/observability/metrics"
)

// TokenLedger is the slice of token functionality the engine drives: one-time
// mint registration and capability-gated issuance staged into the engine's
// own commit batch.
type TokenLedger interface {
	Register(symbol, name string, decimals uint8, mintAuthority mintauth.Authority) error
	Exists(symbol string) (bool, error)
	MintTo(batch *state.Batch, authority mintauth.Authority, symbol string, to [20]byte, amount uint64) error
}

// Engine owns the submission/verification state machine. Every exported
// method is a single atomic transition: the mutex serializes transitions so
// two concurrent calls never interleave between load and persist, state is
// mutated on working copies, and multi-record writes land in one batch.
// Timestamps are supplied by the caller so the engine stays deterministic;
// the node passes its own clock at the RPC boundary and never trusts a
// device-reported time.
type Engine struct {
	mu        sync.Mutex
	store     Storage
	tokens    TokenLedger
	params    Params
	telemetry *metrics.DepinMetrics
}

// NewEngine constructs a ledger engine bound to the provided storage and
// token ledger.
func NewEngine(store Storage, tokens TokenLedger, params Params) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("depin: storage required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("depin: token ledger required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		store:     store,
		tokens:    tokens,
		params:    params,
		telemetry: metrics.Depin(),
	}, nil
}

// Params returns the active policy parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Initialize creates the singleton program state record. A second call fails
// with ErrAlreadyInitialized rather than silently overwriting the existing
// deployment record.
func (e *Engine) Initialize(authority [20]byte, rewardMint string) (*ProgramState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, exists, err := e.loadProgramState()
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyInitialized
	}
	registered, err := e.tokens.Exists(rewardMint)
	if err != nil {
		return nil, err
	}
	if !registered {
		return nil, fmt.Errorf("depin: reward mint %q not registered", rewardMint)
	}
	state := &ProgramState{Authority: authority, RewardMint: rewardMint}
	if err := e.saveProgramState(state); err != nil {
		return nil, err
	}
	return state.Copy(), nil
}

// CreateRewardMint registers the reward token with six decimal places and the
// program's own derived address as mint authority. One-time setup; a second
// call surfaces the token ledger's already-exists error.
func (e *Engine) CreateRewardMint() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tokens.Register(RewardTokenSymbol, RewardTokenName, RewardTokenDecimals, programAuthority())
}

// SubmitActivity validates and records a physical-presence report. Checks run
// in a fixed order and the record is persisted only when all of them pass, so
// a rejected submission leaves no partial state (in particular the daily
// counter reset stays unpersisted when a later check fails).
func (e *Engine) SubmitActivity(user [20]byte, gpsLat, gpsLong float64, signalStrength int8, now int64) (*UserActivity, error) {
	if now <= 0 {
		return nil, fmt.Errorf("depin: timestamp must be positive")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	activity, exists, err := e.loadUserActivity(user)
	if err != nil {
		return nil, err
	}
	if !exists {
		activity = &UserActivity{User: user}
	}

	if activity.LastSubmissionTimestamp > 0 {
		if now-activity.LastSubmissionTimestamp < int64(e.params.SubmissionCooldownSeconds) {
			e.telemetry.RecordSubmission("cooldown")
			return nil, ErrCooldownNotMet
		}
	}

	if DayBucket(now) == DayBucket(activity.LastSubmissionTimestamp) {
		if activity.DailySubmissions >= e.params.DailySubmissionCap {
			e.telemetry.RecordSubmission("daily_cap")
			return nil, ErrDailyCapExceeded
		}
	} else {
		activity.DailySubmissions = 0
	}

	if gpsLat < MinLatitude || gpsLat > MaxLatitude || gpsLong < MinLongitude || gpsLong > MaxLongitude {
		e.telemetry.RecordSubmission("invalid_gps")
		return nil, ErrInvalidGpsCoordinates
	}
	if signalStrength < MinSignalStrength || signalStrength > MaxSignalStrength {
		e.telemetry.RecordSubmission("invalid_signal")
		return nil, ErrInvalidSignalStrength
	}

	activity.GpsLat = gpsLat
	activity.GpsLong = gpsLong
	activity.SignalStrength = signalStrength
	activity.LastSubmissionTimestamp = now
	activity.DailySubmissions++
	activity.TotalSubmissions++
	activity.PendingVerification = true

	if err := e.saveUserActivity(user, activity); err != nil {
		return nil, err
	}
	e.telemetry.RecordSubmission("accepted")
	return activity.Copy(), nil
}

// VerifyAndReward settles a pending submission: it mints the fixed reward to
// the user under the program's own authority, clears the pending flag and
// bumps both accumulators. All four record writes land in one batch, so a
// failure at any point commits nothing.
func (e *Engine) VerifyAndReward(user [20]byte, now int64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	program, exists, err := e.loadProgramState()
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrNotInitialized
	}
	activity, exists, err := e.loadUserActivity(user)
	if err != nil {
		return 0, err
	}
	if !exists || !activity.PendingVerification {
		return 0, ErrNoPendingVerification
	}
	if now-activity.LastSubmissionTimestamp < int64(e.params.VerificationDelaySeconds) {
		return 0, ErrVerificationTooSoon
	}

	reward := e.params.RewardAmount
	batch := e.store.NewBatch()
	if err := e.tokens.MintTo(batch, programAuthority(), program.RewardMint, user, reward); err != nil {
		return 0, fmt.Errorf("depin: mint reward: %w", err)
	}

	activity.PendingVerification = false
	activity.TotalRewardsEarned += reward
	program.TotalRewardsDistributed += reward
	if err := e.stageUserActivity(batch, user, activity); err != nil {
		return 0, err
	}
	if err := e.stageProgramState(batch, program); err != nil {
		return 0, err
	}
	if err := batch.Commit(); err != nil {
		return 0, err
	}
	e.telemetry.RecordReward(reward)
	return reward, nil
}

// ProgramState returns a copy of the singleton record. The boolean reports
// whether Initialize has run.
func (e *Engine) ProgramState() (*ProgramState, bool, error) {
	state, ok, err := e.loadProgramState()
	if err != nil || !ok {
		return nil, ok, err
	}
	return state.Copy(), true, nil
}

// UserActivity returns a copy of the user's record. The boolean reports
// whether the user has ever submitted.
func (e *Engine) UserActivity(user [20]byte) (*UserActivity, bool, error) {
	activity, ok, err := e.loadUserActivity(user)
	if err != nil || !ok {
		return nil, ok, err
	}
	return activity.Copy(), true, nil
}
