package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mapchain/crypto"
	"mapchain/native/depin"
	"mapchain/rpc"
	sdkdepin "mapchain/sdk/depin"
)

var rpcEndpoint = defaultRPCEndpoint()

func main() {
	args, err := applyGlobalFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	if err := dispatch(command, args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		os.Exit(1)
	}
}

func dispatch(command string, args []string) error {
	switch command {
	case "gen-key":
		return genKey(args)
	case "submit":
		return submit(args)
	case "status":
		return status(args)
	case "balance":
		return balance(args)
	case "program-state":
		return programState(args)
	case "init":
		return initProgram(args)
	case "create-mint":
		return createMint(args)
	default:
		printUsage()
		return fmt.Errorf("unknown command")
	}
}

func printUsage() {
	fmt.Println(`map-cli - mapchain operator and device tooling

Usage: map-cli [--rpc <endpoint>] <command> [args]

Commands:
  gen-key <file>                         generate a key and write it hex-encoded
  submit <keyfile> <lat> <long> <dbm>    sign and submit an activity report
  status <address>                       show a user's activity record
  balance <address>                      show a user's MAP balance
  program-state                          show the program record
  init <keyfile|address>                 initialize the program (needs MAPCHAIN_RPC_TOKEN)
  create-mint                            register the MAP mint (needs MAPCHAIN_RPC_TOKEN)`)
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("MAPCHAIN_RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8545"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		out = append(out, args[i])
	}
	return out, nil
}

func newClient() *sdkdepin.Client {
	token := strings.TrimSpace(os.Getenv("MAPCHAIN_RPC_TOKEN"))
	return sdkdepin.New(rpcEndpoint, sdkdepin.WithAuthToken(token))
}

func callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}

func loadKey(path string) (*crypto.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	keyBytes, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode key file: %w", err)
	}
	return crypto.PrivateKeyFromBytes(keyBytes)
}

func genKey(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: gen-key <file>")
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	encoded := hex.EncodeToString(key.Bytes())
	if err := os.WriteFile(args[0], []byte(encoded+"\n"), 0o600); err != nil {
		return err
	}
	fmt.Printf("Address: %s\n", key.PubKey().Address())
	return nil
}

func submit(args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: submit <keyfile> <lat> <long> <dbm>")
	}
	key, err := loadKey(args[0])
	if err != nil {
		return err
	}
	lat, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid latitude: %w", err)
	}
	long, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid longitude: %w", err)
	}
	dbm, err := strconv.ParseInt(args[3], 10, 8)
	if err != nil {
		return fmt.Errorf("invalid signal strength: %w", err)
	}

	user := key.PubKey().Address().String()
	digest, err := rpc.SubmitActivityDigest(user, lat, long, int8(dbm))
	if err != nil {
		return err
	}
	sig, err := key.Sign(digest)
	if err != nil {
		return err
	}

	ctx, cancel := callContext()
	defer cancel()
	activity, err := newClient().SubmitActivity(ctx, &rpc.SubmitActivityParams{
		User:           user,
		GpsLat:         lat,
		GpsLong:        long,
		SignalStrength: int8(dbm),
		Signature:      hex.EncodeToString(sig),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Submission accepted for %s (total %d, pending verification)\n", user, activity.TotalSubmissions)
	return nil
}

func status(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: status <address>")
	}
	ctx, cancel := callContext()
	defer cancel()
	activity, err := newClient().GetUserActivity(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("User:               %s\n", activity.User)
	fmt.Printf("GPS:                (%f, %f)\n", activity.GpsLat, activity.GpsLong)
	fmt.Printf("Signal:             %d dBm\n", activity.SignalStrength)
	fmt.Printf("Last submission:    %d\n", activity.LastSubmissionTimestamp)
	fmt.Printf("Daily submissions:  %d\n", activity.DailySubmissions)
	fmt.Printf("Total submissions:  %d\n", activity.TotalSubmissions)
	fmt.Printf("Rewards earned:     %d\n", activity.TotalRewardsEarned)
	fmt.Printf("Pending:            %v\n", activity.PendingVerification)
	return nil
}

func balance(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: balance <address>")
	}
	ctx, cancel := callContext()
	defer cancel()
	result, err := newClient().GetBalance(ctx, args[0], depin.RewardTokenSymbol)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d %s minor units\n", result.Address, result.Amount, result.Token)
	return nil
}

func programState(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: program-state")
	}
	ctx, cancel := callContext()
	defer cancel()
	state, err := newClient().GetProgramState(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Authority:           %s\n", state.Authority)
	fmt.Printf("Reward mint:         %s\n", state.RewardMint)
	fmt.Printf("Total distributed:   %d\n", state.TotalRewardsDistributed)
	return nil
}

func initProgram(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: init <keyfile|address>")
	}
	authority := args[0]
	if _, err := crypto.DecodeAddress(authority); err != nil {
		key, keyErr := loadKey(authority)
		if keyErr != nil {
			return fmt.Errorf("argument is neither an address nor a key file: %v", keyErr)
		}
		authority = key.PubKey().Address().String()
	}
	ctx, cancel := callContext()
	defer cancel()
	state, err := newClient().Initialize(ctx, authority, depin.RewardTokenSymbol)
	if err != nil {
		return err
	}
	fmt.Printf("Program initialised with authority %s\n", state.Authority)
	return nil
}

func createMint(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: create-mint")
	}
	ctx, cancel := callContext()
	defer cancel()
	if err := newClient().CreateRewardMint(ctx); err != nil {
		return err
	}
	fmt.Printf("%s mint registered with program-held authority\n", depin.RewardTokenSymbol)
	return nil
}
