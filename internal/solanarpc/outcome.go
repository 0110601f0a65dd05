package solanarpc

import (
	"encoding/json"

	"atoll-wallet/go-core/internal/walleterr"

	"github.com/gagliardetto/solana-go"
)

type OutcomeKind uint8

const (
	OutcomeOpaque OutcomeKind = iota
	OutcomeSuccess
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "opaque"
	}
}

// Outcome is a classified sendTransaction response. Opaque outcomes keep
// the body as received.
type Outcome struct {
	Kind    OutcomeKind
	Result  string
	Code    int
	Message string
	Raw     []byte
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Classify checks the error shape first, then the success shape (a non-null
// string result). Anything else is opaque.
func Classify(body []byte) Outcome {
	raw := append([]byte(nil), body...)
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Outcome{Kind: OutcomeOpaque, Raw: raw}
	}
	if env.Error != nil {
		return Outcome{Kind: OutcomeFailure, Code: env.Error.Code, Message: env.Error.Message, Raw: raw}
	}
	var result *string
	if len(env.Result) > 0 && json.Unmarshal(env.Result, &result) == nil && result != nil {
		return Outcome{Kind: OutcomeSuccess, Result: *result, Raw: raw}
	}
	return Outcome{Kind: OutcomeOpaque, Raw: raw}
}

// Err converts a failure into the Input error relayed to the dapp.
func (o Outcome) Err() error {
	if o.Kind != OutcomeFailure {
		return nil
	}
	return walleterr.Input("%s", o.Message)
}

// Signature decodes a success result as a transaction signature.
func (o Outcome) Signature() (solana.Signature, error) {
	if o.Kind != OutcomeSuccess {
		return solana.Signature{}, walleterr.Cast("The RPC response does not carry a transaction signature")
	}
	sig, err := solana.SignatureFromBase58(o.Result)
	if err != nil {
		return solana.Signature{}, walleterr.Input("The RPC returned an invalid transaction signature %q: %v", o.Result, err)
	}
	return sig, nil
}
