// Package siws builds Sign-In-With-Solana messages. Parse validates the
// untrusted input and Format renders the exact bytes the wallet signs.
package siws

import (
	"strings"
	"time"
	"unicode"

	"atoll-wallet/go-core/internal/chain"
	"atoll-wallet/go-core/internal/walleterr"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const minNonceLength = 8

// Clock reports the current time. Errors are fatal to parsing.
type Clock func() (time.Time, error)

func SystemClock() (time.Time, error) {
	return time.Now(), nil
}

// Request is a validated sign-in request. Empty strings are absent fields.
type Request struct {
	Domain         string
	Address        string
	Statement      string
	URI            string
	Version        string
	ChainID        string
	Nonce          string
	IssuedAt       string
	ExpirationTime string
	NotBefore      string
	RequestID      string
	Resources      []string

	issuedAt       time.Time
	expirationTime time.Time
	notBefore      time.Time
}

// Parse trims and validates every supplied field.
func Parse(f Fields, clock Clock) (*Request, error) {
	if clock == nil {
		clock = SystemClock
	}
	req := &Request{
		Domain:    trimmed(f.Domain),
		Statement: trimmed(f.Statement),
		URI:       trimmed(f.URI),
		Version:   trimmed(f.Version),
		RequestID: trimmed(f.RequestID),
	}

	if addr := trimmed(f.Address); addr != "" {
		if err := validateAddress(addr); err != nil {
			return nil, err
		}
		req.Address = addr
	}
	if strings.ContainsAny(req.Statement, "\r\n") {
		return nil, walleterr.Input("The `statement` value for Sign In With Solana should not have any line breaks")
	}
	if id := trimmed(f.ChainID); id != "" {
		req.ChainID = chain.ParseCluster(id).Identifier()
	}
	if nonce := trimmed(f.Nonce); nonce != "" {
		if err := validateNonce(nonce); err != nil {
			return nil, err
		}
		req.Nonce = nonce
	}

	var err error
	if req.IssuedAt, req.issuedAt, err = parseTimestamp(f.IssuedAt); err != nil {
		return nil, err
	}
	if req.ExpirationTime, req.expirationTime, err = parseTimestamp(f.ExpirationTime); err != nil {
		return nil, err
	}
	if req.ExpirationTime != "" {
		if err := req.checkExpiration(clock); err != nil {
			return nil, err
		}
	}
	if req.NotBefore, req.notBefore, err = parseTimestamp(f.NotBefore); err != nil {
		return nil, err
	}
	if req.NotBefore != "" {
		if err := req.checkNotBefore(clock); err != nil {
			return nil, err
		}
	}

	for _, res := range f.Resources {
		if res = strings.TrimSpace(res); res != "" {
			req.Resources = append(req.Resources, res)
		}
	}
	return req, nil
}

func (r *Request) checkExpiration(clock Clock) error {
	now, err := clock()
	if err != nil {
		return walleterr.Input("Unable to read the current time: %v", err)
	}
	if !r.expirationTime.After(now) {
		return walleterr.Input("The `expirationTime` %s is not in the future", r.ExpirationTime)
	}
	if r.IssuedAt != "" && !r.expirationTime.After(r.issuedAt) {
		return walleterr.Input("The `expirationTime` %s must be later than `issuedAt` %s", r.ExpirationTime, r.IssuedAt)
	}
	return nil
}

func (r *Request) checkNotBefore(clock Clock) error {
	now, err := clock()
	if err != nil {
		return walleterr.Input("Unable to read the current time: %v", err)
	}
	if !r.notBefore.After(now) {
		return walleterr.Input("The `notBefore` %s is not in the future", r.NotBefore)
	}
	if r.ExpirationTime != "" && !r.notBefore.Before(r.expirationTime) {
		return walleterr.Input("The `notBefore` %s must be earlier than `expirationTime` %s", r.NotBefore, r.ExpirationTime)
	}
	return nil
}

func parseTimestamp(raw *string) (string, time.Time, error) {
	if raw == nil {
		return "", time.Time{}, nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return "", time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return "", time.Time{}, walleterr.InvalidTimestamp(*raw)
	}
	return value, ts, nil
}

func validateAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return walleterr.Input("The `address` %q is not valid base58", addr)
	}
	if len(raw) != 32 {
		return walleterr.Input("The `address` %q must decode to 32 bytes, got %d", addr, len(raw))
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return walleterr.Input("The `address` %q is not an ed25519 public key", addr)
	}
	return nil
}

func validateNonce(nonce string) error {
	if len(nonce) < minNonceLength {
		return walleterr.Input("The `nonce` value for Sign In With Solana should be %d or more characters", minNonceLength)
	}
	for _, r := range nonce {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return walleterr.Input("The `nonce` value for Sign In With Solana must be alphanumeric")
		}
	}
	return nil
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
