package solanarpc

import (
	"encoding/json"

	"atoll-wallet/go-core/internal/chain"
)

// SendOptions are forwarded to sendTransaction. MaxRetries is applied by the
// RPC node, never locally.
type SendOptions struct {
	PreflightCommitment chain.Commitment
	SkipPreflight       bool
	MaxRetries          uint64
	MinContextSlot      *uint64
}

// ParseSendOptions reads dapp supplied options. Missing or mistyped keys
// keep their defaults.
func ParseSendOptions(raw json.RawMessage) SendOptions {
	var opts SendOptions
	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil {
		return opts
	}

	var commitment string
	if json.Unmarshal(fields["preflightCommitment"], &commitment) == nil {
		opts.PreflightCommitment = chain.ParseCommitment(commitment)
	}
	var skip bool
	if json.Unmarshal(fields["skipPreflight"], &skip) == nil {
		opts.SkipPreflight = skip
	}
	if n, ok := nonNegative(fields["maxRetries"]); ok {
		opts.MaxRetries = n
	}
	if n, ok := nonNegative(fields["minContextSlot"]); ok {
		opts.MinContextSlot = &n
	}
	return opts
}

func nonNegative(raw json.RawMessage) (uint64, bool) {
	var v float64
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil || v < 0 {
		return 0, false
	}
	return uint64(v), true
}

func (o SendOptions) params() map[string]any {
	p := map[string]any{
		"preflightCommitment": o.PreflightCommitment.String(),
		"skip_preflight":      o.SkipPreflight,
		"max_retries":         o.MaxRetries,
		"encoding":            "base64",
	}
	if o.MinContextSlot != nil {
		p["minContextSlot"] = *o.MinContextSlot
	}
	return p
}
