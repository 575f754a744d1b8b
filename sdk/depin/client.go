// Package depin provides a thin JSON-RPC client for the mapchain ledger,
// used by the oracle relay and operator tooling.
package depin

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mapchain/rpc"
)

// Client talks to a mapchain node's JSON-RPC endpoint.
type Client struct {
	endpoint  string
	authToken string
	http      *http.Client
}

// Option customises the client.
type Option func(*Client)

// WithAuthToken attaches a bearer token used for administrative methods.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = strings.TrimSpace(token)
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// New builds a client for the provided endpoint.
func New(endpoint string, opts ...Option) *Client {
	client := &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	var rawParams []json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		rawParams = append(rawParams, encoded)
	}
	payload, err := json.Marshal(&rpc.RPCRequest{JSONRPC: "2.0", Method: method, Params: rawParams, ID: 1})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var decoded struct {
		Result json.RawMessage `json:"result"`
		Error  *rpc.RPCError   `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("%s: node rejected call: %w", method, decoded.Error)
	}
	if out != nil && len(decoded.Result) > 0 {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

// GetUserActivity fetches a user's activity record.
func (c *Client) GetUserActivity(ctx context.Context, user string) (*rpc.UserActivityResult, error) {
	var result rpc.UserActivityResult
	if err := c.call(ctx, "depin_getUserActivity", map[string]string{"user": user}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetProgramState fetches the singleton program record.
func (c *Client) GetProgramState(ctx context.Context) (*rpc.ProgramStateResult, error) {
	var result rpc.ProgramStateResult
	if err := c.call(ctx, "depin_getProgramState", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetBalance fetches a holder's token balance.
func (c *Client) GetBalance(ctx context.Context, address, tokenSymbol string) (*rpc.BalanceResult, error) {
	var result rpc.BalanceResult
	params := map[string]string{"address": address, "token": tokenSymbol}
	if err := c.call(ctx, "token_getBalance", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitActivity submits a signed physical-presence report.
func (c *Client) SubmitActivity(ctx context.Context, params *rpc.SubmitActivityParams) (*rpc.UserActivityResult, error) {
	var result rpc.UserActivityResult
	if err := c.call(ctx, "depin_submitActivity", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Initialize creates the program state record. Requires the admin token.
func (c *Client) Initialize(ctx context.Context, authority, rewardMint string) (*rpc.ProgramStateResult, error) {
	var result rpc.ProgramStateResult
	params := &rpc.InitializeParams{Authority: authority, RewardMint: rewardMint}
	if err := c.call(ctx, "depin_initialize", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateRewardMint registers the reward token. Requires the admin token.
func (c *Client) CreateRewardMint(ctx context.Context) error {
	return c.call(ctx, "depin_createRewardMint", nil, nil)
}

// Invoke emits a raw call: an account reference list plus an opaque payload
// whose leading eight bytes select the operation.
func (c *Client) Invoke(ctx context.Context, accounts []string, data []byte) (*rpc.VerifyResult, error) {
	var result rpc.VerifyResult
	params := &rpc.InvokeParams{Accounts: accounts, Data: "0x" + hex.EncodeToString(data)}
	if err := c.call(ctx, "program_invoke", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
