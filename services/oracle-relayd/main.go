package oraclerelayd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"mapchain/crypto"
	"mapchain/native/depin"
	"mapchain/observability/logging"
	"mapchain/rpc"
	sdkdepin "mapchain/sdk/depin"
)

// operationSelector recomputes the 8-byte dispatch key for an operation name.
// The relay derives it independently of the ledger; the two sides agreeing on
// these bytes is the whole of the dispatch contract.
func operationSelector(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var selector [8]byte
	copy(selector[:], sum[:8])
	return selector
}

// judge decides whether a fetched activity record warrants a verification
// call. Mirrors the ledger's own gates so the relay does not burn an
// invocation on a call the ledger would reject anyway.
func judge(activity *rpc.UserActivityResult, params depin.Params, now int64) error {
	if activity == nil {
		return fmt.Errorf("no activity record")
	}
	if !activity.PendingVerification {
		return fmt.Errorf("no pending verification for %s", activity.User)
	}
	if activity.GpsLat < depin.MinLatitude || activity.GpsLat > depin.MaxLatitude ||
		activity.GpsLong < depin.MinLongitude || activity.GpsLong > depin.MaxLongitude {
		return fmt.Errorf("implausible coordinates (%f, %f)", activity.GpsLat, activity.GpsLong)
	}
	if activity.SignalStrength < depin.MinSignalStrength || activity.SignalStrength > depin.MaxSignalStrength {
		return fmt.Errorf("implausible signal strength %d dBm", activity.SignalStrength)
	}
	age := now - activity.LastSubmissionTimestamp
	if age < int64(params.VerificationDelaySeconds) {
		return fmt.Errorf("submission too fresh: %ds old, need %ds", age, params.VerificationDelaySeconds)
	}
	return nil
}

// Main runs one relay invocation: fetch the target user's record, judge it,
// and emit the verification call. Every failure is fatal to the invocation;
// the scheduler retriggers the process, not the process itself.
func Main() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/oracle-relayd/config.yaml", "path to oracle relay config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("MAPCHAIN_ENV"))
	logger := logging.Setup("oracle-relayd", env)

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	keyBytes, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(cfg.SignerKey), "0x"))
	if err != nil {
		return fmt.Errorf("decode signer key: %w", err)
	}
	signer, err := crypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		return fmt.Errorf("load signer key: %w", err)
	}
	signerAddr := signer.PubKey().Address().String()
	logger.Info("oracle signer ready", "address", signerAddr)

	store, err := OpenSeenStore(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open seen store: %w", err)
	}
	defer func() { _ = store.Close() }()

	client := sdkdepin.New(cfg.RPCEndpoint)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	defer cancel()

	activity, err := client.GetUserActivity(ctx, cfg.User)
	if err != nil {
		return fmt.Errorf("fetch activity: %w", err)
	}
	logger.Info("judging activity",
		"user", cfg.User,
		"gpsLat", activity.GpsLat,
		"gpsLong", activity.GpsLong,
		"submittedAt", activity.LastSubmissionTimestamp,
	)

	now := time.Now().UTC().Unix()
	if err := judge(activity, depin.DefaultParams(), now); err != nil {
		return fmt.Errorf("judge activity: %w", err)
	}

	handled, err := store.Handled(cfg.User, activity.LastSubmissionTimestamp)
	if err != nil {
		return fmt.Errorf("check seen store: %w", err)
	}
	if handled {
		logger.Info("cycle already relayed, nothing to do",
			"user", cfg.User, "submittedAt", activity.LastSubmissionTimestamp)
		return nil
	}

	selector := operationSelector("verify_and_reward")
	accounts := []string{signerAddr, cfg.User}
	result, err := client.Invoke(ctx, accounts, selector[:])
	if err != nil {
		return fmt.Errorf("emit verification call: %w", err)
	}
	if err := store.Mark(cfg.User, activity.LastSubmissionTimestamp); err != nil {
		return fmt.Errorf("mark cycle relayed: %w", err)
	}

	logger.Info("activity verified and rewarded",
		"user", result.User,
		"rewardAmount", result.RewardAmount,
	)
	return nil
}
