// Package privacylog wraps a slog handler so wallet logs never carry key
// material and never link a dapp origin or account address in clear text.
package privacylog

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const redactedValue = "[REDACTED]"

var bootKey = randomKey()

// Policy decides which attribute keys are redacted outright and which are
// replaced by a per-process fingerprint. Sensitive parts match anywhere in
// the key; fingerprinted parts must be whole words ("dapp_origin").
type Policy struct {
	Sensitive     []string
	Fingerprinted []string
}

var DefaultPolicy = Policy{
	Sensitive: []string{
		"mnemonic", "passphrase", "seed", "private", "secret",
		"token", "password", "authorization",
	},
	Fingerprinted: []string{"origin", "address", "public_key", "domain", "uri"},
}

type SanitizingHandler struct {
	next   slog.Handler
	policy Policy
}

func WrapHandler(next slog.Handler) slog.Handler {
	return Wrap(next, DefaultPolicy)
}

func Wrap(next slog.Handler, policy Policy) slog.Handler {
	if next == nil {
		return nil
	}
	return &SanitizingHandler{next: next, policy: policy}
}

func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SanitizingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(h.policy.SanitizeAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SanitizingHandler{next: h.next.WithAttrs(h.policy.sanitizeAttrs(attrs)), policy: h.policy}
}

func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{next: h.next.WithGroup(name), policy: h.policy}
}

func (p Policy) SanitizeAttr(attr slog.Attr) slog.Attr {
	attr.Value = attr.Value.Resolve()
	key := strings.TrimSpace(attr.Key)
	lowerKey := strings.ToLower(key)
	switch {
	case matchesAny(lowerKey, p.Sensitive):
		return slog.String(key, redactedValue)
	case matchesWord(lowerKey, p.Fingerprinted):
		return slog.String(fingerprintKeyName(key), Fingerprint(valueToString(attr.Value)))
	case attr.Value.Kind() == slog.KindGroup:
		return slog.Attr{Key: key, Value: slog.GroupValue(p.sanitizeAttrs(attr.Value.Group())...)}
	case attr.Value.Kind() == slog.KindAny:
		if b, ok := attr.Value.Any().([]byte); ok {
			return slog.String(key, fmt.Sprintf("<%d bytes>", len(b)))
		}
	}
	return attr
}

func (p Policy) sanitizeAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, p.SanitizeAttr(attr))
	}
	return out
}

// SanitizeArgs applies DefaultPolicy to slog-style key/value arguments.
func SanitizeArgs(args ...any) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, 0, len(args))
	for i := 0; i < len(args); i++ {
		key, ok := args[i].(string)
		if !ok || i+1 >= len(args) {
			out = append(out, args[i])
			continue
		}
		attr := DefaultPolicy.SanitizeAttr(slog.Any(key, args[i+1]))
		i++
		out = append(out, attr.Key, attr.Value.Any())
	}
	return out
}

// Fingerprint is a keyed BLAKE2b digest of value. The key changes on every
// process start, so fingerprints correlate log lines of one run only.
func Fingerprint(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	h, err := blake2b.New256(bootKey)
	if err != nil {
		return redactedValue
	}
	h.Write([]byte(trimmed))
	return "fp_" + hex.EncodeToString(h.Sum(nil)[:8])
}

func fingerprintKeyName(key string) string {
	if strings.HasSuffix(strings.ToLower(key), "_fp") {
		return key
	}
	return key + "_fp"
}

func matchesAny(key string, parts []string) bool {
	for _, part := range parts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

// matchesWord matches parts as whole underscore separated words of key.
func matchesWord(key string, parts []string) bool {
	for _, part := range parts {
		if key == part || strings.HasPrefix(key, part+"_") || strings.HasSuffix(key, "_"+part) ||
			strings.Contains(key, "_"+part+"_") {
			return true
		}
	}
	return false
}

func valueToString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if b, ok := v.Any().([]byte); ok {
			return hex.EncodeToString(b)
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func randomKey() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return []byte("atoll-privacylog-fallback-key-00")
	}
	return buf
}
