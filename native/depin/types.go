package depin

// ProgramState is the singleton deployment record. It is created once by
// Initialize and mutated only by the verify-and-reward transition.
type ProgramState struct {
	// Authority is the account permitted to administer the deployment.
	Authority [20]byte
	// RewardMint is the symbol of the token issued as rewards.
	RewardMint string
	// TotalRewardsDistributed accumulates every minor unit ever minted
	// through verification. Monotonically non-decreasing.
	TotalRewardsDistributed uint64
}

// Copy returns a deep copy to avoid callers mutating shared pointers.
func (s *ProgramState) Copy() *ProgramState {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// UserActivity is the per-user record, lazily created on first submission.
type UserActivity struct {
	// User is the owning identity.
	User [20]byte
	// GpsLat and GpsLong are the last reported coordinates; each accepted
	// submission overwrites them.
	GpsLat  float64
	GpsLong float64
	// SignalStrength is the last reported WiFi signal in dBm.
	SignalStrength int8
	// LastSubmissionTimestamp is the unix time of the most recent accepted
	// submission. Zero means the user has never submitted.
	LastSubmissionTimestamp int64
	// DailySubmissions counts accepted submissions in the current day
	// bucket. Reset to zero when a submission lands in a new bucket.
	DailySubmissions uint8
	// TotalSubmissions and TotalRewardsEarned are lifetime accumulators.
	TotalSubmissions   uint64
	TotalRewardsEarned uint64
	// PendingVerification is true from the moment a submission is accepted
	// until a reward is issued for it.
	PendingVerification bool
}

// Copy returns a deep copy to avoid callers mutating shared pointers.
func (a *UserActivity) Copy() *UserActivity {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// DayBucket returns the calendar day bucket of a unix timestamp.
func DayBucket(timestamp int64) int64 {
	return timestamp / SecondsPerDay
}
