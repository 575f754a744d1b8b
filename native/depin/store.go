package depin

import (
	"math"

	"mapchain/core/state"
)

// Storage abstracts the subset of state manager functionality the engine
// needs. Records are RLP encoded, which cannot represent signed or floating
// point values directly, so the stored forms below carry bit-pattern shims.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	NewBatch() *state.Batch
}

type storedProgramState struct {
	Authority               [20]byte
	RewardMint              string
	TotalRewardsDistributed uint64
}

type storedUserActivity struct {
	User                    [20]byte
	GpsLatBits              uint64
	GpsLongBits             uint64
	SignalStrength          uint8
	LastSubmissionTimestamp uint64
	DailySubmissions        uint8
	TotalSubmissions        uint64
	TotalRewardsEarned      uint64
	PendingVerification     bool
}

func (e *Engine) loadProgramState() (*ProgramState, bool, error) {
	var stored storedProgramState
	ok, err := e.store.KVGet(ProgramStateKey(), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &ProgramState{
		Authority:               stored.Authority,
		RewardMint:              stored.RewardMint,
		TotalRewardsDistributed: stored.TotalRewardsDistributed,
	}, true, nil
}

func encodeProgramState(program *ProgramState) *storedProgramState {
	return &storedProgramState{
		Authority:               program.Authority,
		RewardMint:              program.RewardMint,
		TotalRewardsDistributed: program.TotalRewardsDistributed,
	}
}

func (e *Engine) saveProgramState(program *ProgramState) error {
	return e.store.KVPut(ProgramStateKey(), encodeProgramState(program))
}

func (e *Engine) stageProgramState(batch *state.Batch, program *ProgramState) error {
	return batch.KVPut(ProgramStateKey(), encodeProgramState(program))
}

func (e *Engine) loadUserActivity(user [20]byte) (*UserActivity, bool, error) {
	var stored storedUserActivity
	ok, err := e.store.KVGet(UserActivityKey(user), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &UserActivity{
		User:                    stored.User,
		GpsLat:                  math.Float64frombits(stored.GpsLatBits),
		GpsLong:                 math.Float64frombits(stored.GpsLongBits),
		SignalStrength:          int8(stored.SignalStrength),
		LastSubmissionTimestamp: int64(stored.LastSubmissionTimestamp),
		DailySubmissions:        stored.DailySubmissions,
		TotalSubmissions:        stored.TotalSubmissions,
		TotalRewardsEarned:      stored.TotalRewardsEarned,
		PendingVerification:     stored.PendingVerification,
	}, true, nil
}

func encodeUserActivity(activity *UserActivity) *storedUserActivity {
	return &storedUserActivity{
		User:                    activity.User,
		GpsLatBits:              math.Float64bits(activity.GpsLat),
		GpsLongBits:             math.Float64bits(activity.GpsLong),
		SignalStrength:          uint8(activity.SignalStrength),
		LastSubmissionTimestamp: uint64(activity.LastSubmissionTimestamp),
		DailySubmissions:        activity.DailySubmissions,
		TotalSubmissions:        activity.TotalSubmissions,
		TotalRewardsEarned:      activity.TotalRewardsEarned,
		PendingVerification:     activity.PendingVerification,
	}
}

func (e *Engine) saveUserActivity(user [20]byte, activity *UserActivity) error {
	return e.store.KVPut(UserActivityKey(user), encodeUserActivity(activity))
}

func (e *Engine) stageUserActivity(batch *state.Batch, user [20]byte, activity *UserActivity) error {
	return batch.KVPut(UserActivityKey(user), encodeUserActivity(activity))
}
