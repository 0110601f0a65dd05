// Package solanarpc is a minimal Solana JSON-RPC client covering the two
// calls the broadcast pipeline makes.
package solanarpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync/atomic"

	"atoll-wallet/go-core/internal/chain"
	"atoll-wallet/go-core/internal/walleterr"

	"github.com/gagliardetto/solana-go"
)

const (
	methodGetLatestBlockhash = "getLatestBlockhash"
	methodSendTransaction    = "sendTransaction"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type Client struct {
	transport Transport
	nextID    atomic.Uint64
}

func NewClient(transport Transport) *Client {
	return &Client{transport: transport}
}

func (c *Client) call(ctx context.Context, endpoint, method string, params ...any) ([]byte, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, walleterr.Input("Unable to encode the `%s` request: %v", method, err)
	}
	return c.transport.Post(ctx, endpoint, body)
}

// LatestBlockhash fetches a finalized blockhash from endpoint.
func (c *Client) LatestBlockhash(ctx context.Context, endpoint string) (solana.Hash, error) {
	body, err := c.call(ctx, endpoint, methodGetLatestBlockhash, map[string]any{
		"commitment": chain.Finalized.String(),
	})
	if err != nil {
		return solana.Hash{}, err
	}

	var resp struct {
		Result *struct {
			Value *struct {
				Blockhash *string `json:"blockhash"`
			} `json:"value"`
		} `json:"result"`
		Error *rpcError `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return solana.Hash{}, walleterr.Cast("Unable to decode the `getLatestBlockhash` response: %v", err)
	}
	if resp.Error != nil {
		return solana.Hash{}, walleterr.Input("%s", resp.Error.Message)
	}
	if resp.Result == nil || resp.Result.Value == nil || resp.Result.Value.Blockhash == nil {
		return solana.Hash{}, walleterr.Cast("The `getLatestBlockhash` response has no `value.blockhash`")
	}
	hash, err := solana.HashFromBase58(*resp.Result.Value.Blockhash)
	if err != nil {
		return solana.Hash{}, walleterr.Input("The blockhash %q returned by the RPC is invalid: %v", *resp.Result.Value.Blockhash, err)
	}
	return hash, nil
}

// SendTransaction submits a signed wire transaction and classifies the
// response. Transport failures are returned as errors; RPC failures are
// returned as a failure Outcome.
func (c *Client) SendTransaction(ctx context.Context, endpoint string, wire []byte, opts SendOptions) (Outcome, error) {
	body, err := c.call(ctx, endpoint, methodSendTransaction,
		base64.StdEncoding.EncodeToString(wire),
		opts.params(),
	)
	if err != nil {
		return Outcome{}, err
	}
	return Classify(body), nil
}
