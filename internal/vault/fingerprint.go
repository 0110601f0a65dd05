package vault

import (
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

// Fingerprint is a BLAKE3-256 content hash. It keys keypairs (hash of the
// public key, never of private material) and dapp sessions (hash of the
// origin URI).
type Fingerprint [32]byte

// ZeroFingerprint is the active fingerprint of a vault that has no keypair
// selected yet. No derivable key hashes to it.
var ZeroFingerprint = Fingerprint(blake3.Sum256(make([]byte, 32)))

func FingerprintOf(publicKey []byte) Fingerprint {
	return blake3.Sum256(publicKey)
}

func OriginFingerprint(origin string) Fingerprint {
	return blake3.Sum256([]byte(origin))
}

func ParseFingerprint(raw string) (Fingerprint, error) {
	var fp Fingerprint
	b, err := hex.DecodeString(raw)
	if err != nil {
		return fp, fmt.Errorf("decode fingerprint: %w", err)
	}
	if len(b) != len(fp) {
		return fp, fmt.Errorf("fingerprint must be %d bytes, got %d", len(fp), len(b))
	}
	copy(fp[:], b)
	return fp, nil
}

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}
