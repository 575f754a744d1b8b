package depin

import "errors"

var (
	// ErrCooldownNotMet indicates a submission arrived before the cooldown
	// window elapsed. Callers should wait and retry.
	ErrCooldownNotMet = errors.New("depin: cooldown period not met")
	// ErrDailyCapExceeded indicates the user exhausted the submission
	// allowance for the current day bucket.
	ErrDailyCapExceeded = errors.New("depin: daily submission cap exceeded")
	// ErrInvalidGpsCoordinates indicates latitude or longitude outside the
	// accepted ranges.
	ErrInvalidGpsCoordinates = errors.New("depin: gps coordinates out of range")
	// ErrInvalidSignalStrength indicates a signal reading outside the
	// accepted dBm range.
	ErrInvalidSignalStrength = errors.New("depin: signal strength out of range")
	// ErrNoPendingVerification indicates there is no accepted submission
	// awaiting a reward for the user.
	ErrNoPendingVerification = errors.New("depin: no pending verification")
	// ErrVerificationTooSoon indicates the submission has not aged past the
	// verification latency floor.
	ErrVerificationTooSoon = errors.New("depin: verification too soon")
	// ErrAlreadyInitialized indicates the program state record already exists.
	ErrAlreadyInitialized = errors.New("depin: program state already initialised")
	// ErrNotInitialized indicates an operation requires the program state
	// record before it has been created.
	ErrNotInitialized = errors.New("depin: program state not initialised")
)
