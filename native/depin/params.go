package depin

import "fmt"

const (
	// SecondsPerDay defines the day bucket used for the daily submission cap.
	// A submission's bucket is its unix timestamp divided by this constant.
	SecondsPerDay = 86400

	// MinLatitude and friends bound the accepted GPS coordinate ranges.
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0

	// MinSignalStrength and MaxSignalStrength bound the accepted WiFi signal
	// readings in dBm.
	MinSignalStrength = -100
	MaxSignalStrength = 0

	// RewardTokenSymbol is the token issued for verified activity.
	RewardTokenSymbol = "MAP"
	// RewardTokenName is the display name recorded at mint registration.
	RewardTokenName = "MAP Network Reward"
	// RewardTokenDecimals is the minor-unit precision of the reward token.
	RewardTokenDecimals = 6
)

// Params captures the tunable submission and reward policy. The defaults
// mirror the deployed policy; tests shrink the windows to keep fixtures small.
type Params struct {
	// SubmissionCooldownSeconds is the minimum spacing between accepted
	// submissions for a single user.
	SubmissionCooldownSeconds uint64
	// DailySubmissionCap limits accepted submissions within one day bucket.
	DailySubmissionCap uint8
	// VerificationDelaySeconds is the minimum age a submission must reach
	// before it can be verified, modelling oracle processing latency.
	VerificationDelaySeconds uint64
	// RewardAmount is the fixed payout per verified submission in minor units.
	RewardAmount uint64
}

// DefaultParams returns the production policy: one submission per hour, at
// most 24 per day, one minute of oracle latency, 5 MAP per verified report.
func DefaultParams() Params {
	return Params{
		SubmissionCooldownSeconds: 3600,
		DailySubmissionCap:        24,
		VerificationDelaySeconds:  60,
		RewardAmount:              5_000_000,
	}
}

// Validate checks the parameters for internal consistency.
func (p Params) Validate() error {
	if p.SubmissionCooldownSeconds == 0 {
		return fmt.Errorf("depin: submission cooldown must be positive")
	}
	if p.DailySubmissionCap == 0 {
		return fmt.Errorf("depin: daily submission cap must be positive")
	}
	if p.RewardAmount == 0 {
		return fmt.Errorf("depin: reward amount must be positive")
	}
	return nil
}
