// Package walleterr defines the error taxonomy shared by every wallet
// pipeline. Errors carry a Kind so callers can branch on the class of
// failure (input, authorization, host shape, protocol) without parsing
// messages; the dispatcher is the only place that flattens them to text.
package walleterr

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindInput Kind = iota + 1
	KindCast
	KindUnauthorized
	KindUnsupportedMessage
	KindMissingField
	KindInvalidTimestamp
	KindBip39
	KindKeyDerivation
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindCast:
		return "cast"
	case KindUnauthorized:
		return "unauthorized"
	case KindUnsupportedMessage:
		return "unsupported_message"
	case KindMissingField:
		return "missing_field"
	case KindInvalidTimestamp:
		return "invalid_timestamp"
	case KindBip39:
		return "bip39"
	case KindKeyDerivation:
		return "key_derivation"
	default:
		return "unknown"
	}
}

// Error is a classified wallet error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same Kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

var (
	ErrInput              = &Error{Kind: KindInput, Message: "invalid input"}
	ErrCast               = &Error{Kind: KindCast, Message: "unexpected value shape"}
	ErrUnauthorized       = Unauthorized()
	ErrUnsupportedMessage = &Error{Kind: KindUnsupportedMessage, Message: "unsupported message"}
	ErrMissingField       = &Error{Kind: KindMissingField, Message: "missing field"}
	ErrInvalidTimestamp   = &Error{Kind: KindInvalidTimestamp, Message: "invalid timestamp"}
	ErrBip39              = &Error{Kind: KindBip39, Message: "bip39 failure"}
	ErrKeyDerivation      = &Error{Kind: KindKeyDerivation, Message: "key derivation failure"}
)

func Input(format string, args ...any) *Error {
	return &Error{Kind: KindInput, Message: fmt.Sprintf(format, args...)}
}

// Cast reports a payload whose shape does not match the host contract.
func Cast(format string, args ...any) *Error {
	return &Error{Kind: KindCast, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized() *Error {
	return &Error{
		Kind:    KindUnauthorized,
		Message: "A request was made to authorize a dapp but a keypair doesn't exist yet",
	}
}

func UnsupportedMessage(resource string) *Error {
	return &Error{
		Kind:    KindUnsupportedMessage,
		Message: fmt.Sprintf("The message `%s` is not supported", resource),
	}
}

func MissingField(field string) *Error {
	return &Error{
		Kind:    KindMissingField,
		Message: fmt.Sprintf("The `%s` field not found in the message object.", field),
	}
}

func InvalidTimestamp(value string) *Error {
	return &Error{
		Kind:    KindInvalidTimestamp,
		Message: fmt.Sprintf("The `%s` timestamp is not a valid ISO8601 timestamp.", value),
	}
}

func Bip39(err error) *Error {
	return &Error{
		Kind:    KindBip39,
		Message: fmt.Sprintf("Encountered an error when performing Bip39 operation. Error: `%v`", err),
	}
}

func KeyDerivation(err error) *Error {
	return &Error{
		Kind:    KindKeyDerivation,
		Message: fmt.Sprintf("Encountered an error when trying to convert a mnemonic to a keypair. Error: `%v`", err),
	}
}

// KindOf returns the Kind of err, or zero when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
