package vault

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"testing"

	"atoll-wallet/go-core/internal/walleterr"
)

const (
	testMnemonic   = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testPassphrase = "quick brown fox"
)

// RFC 8032 section 7.1, test 1.
const (
	rfcSeedHex      = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	rfcPublicHex    = "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a"
	rfcSignatureHex = "e5564300c360ac729086e2cc806e828a84877f1eb8e5d974d873e065224901555fb8821590a33bacc61e39701cf9b46bd25bf5f0595bbe24655141438e7a100b"

	// Signature of 32 zero bytes under the RFC seed.
	zeroMessageSignatureHex = "355c74053a380ab58b298de23adcca49f39b7ca50a2cec5b861f6c7fddf87c8a53b78c7bb3959268c0db1edeb0440786839ef5defaad623290076198560b3c02"

	// solana-keygen address of testMnemonic with an empty passphrase.
	testMnemonicAddress = "EHqmfkN89RJ7Y33CXM6uCzhVeuywHoJXZZLszBHHZy7o"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode hex: %v", err)
	}
	return b
}

func TestDeriveDeterministic(t *testing.T) {
	k1, err := Derive(testMnemonic, testPassphrase)
	if err != nil {
		t.Fatalf("derive 1 failed: %v", err)
	}
	k2, err := Derive("  "+testMnemonic+"\n", testPassphrase)
	if err != nil {
		t.Fatalf("derive 2 failed: %v", err)
	}
	if k1.Fingerprint() != k2.Fingerprint() {
		t.Fatal("same mnemonic and passphrase must give the same fingerprint")
	}
	if k1.Address() != k2.Address() {
		t.Fatal("addresses should match")
	}

	k3, err := Derive(testMnemonic, "")
	if err != nil {
		t.Fatalf("derive without passphrase failed: %v", err)
	}
	if k3.Fingerprint() == k1.Fingerprint() {
		t.Fatal("passphrase must change the derived key")
	}
	if got := k3.Address(); got != testMnemonicAddress {
		t.Fatalf("unexpected address for test mnemonic: %s", got)
	}
}

func TestDeriveRejectsInvalidMnemonic(t *testing.T) {
	bad := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon"
	if _, err := Derive(bad, ""); !errors.Is(err, walleterr.ErrBip39) {
		t.Fatalf("expected bip39 error, got %v", err)
	}
	if _, err := Derive("   ", ""); !errors.Is(err, walleterr.ErrBip39) {
		t.Fatalf("expected bip39 error for empty mnemonic, got %v", err)
	}
}

func TestGenerateProducesImportableMnemonic(t *testing.T) {
	kp, mnemonic, err := Generate("pass")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	again, err := Derive(mnemonic, "pass")
	if err != nil {
		t.Fatalf("derive generated mnemonic failed: %v", err)
	}
	if kp.Fingerprint() != again.Fingerprint() {
		t.Fatal("generated keypair must be reproducible from its mnemonic")
	}
}

func TestSignRegressionFixture(t *testing.T) {
	kp, err := KeypairFromSeed(mustHex(t, rfcSeedHex))
	if err != nil {
		t.Fatalf("keypair from seed failed: %v", err)
	}
	if !bytes.Equal(kp.PublicKey(), mustHex(t, rfcPublicHex)) {
		t.Fatalf("unexpected public key %x", kp.PublicKey())
	}
	sig, err := kp.Sign(nil)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if !bytes.Equal(sig, mustHex(t, rfcSignatureHex)) {
		t.Fatalf("unexpected signature %x", sig)
	}
}

func TestSignZeroMessageFixture(t *testing.T) {
	kp, err := KeypairFromSeed(mustHex(t, rfcSeedHex))
	if err != nil {
		t.Fatalf("keypair from seed failed: %v", err)
	}
	msg := make([]byte, 32)
	s1, err := kp.Sign(msg)
	if err != nil {
		t.Fatalf("sign 1 failed: %v", err)
	}
	s2, err := kp.Sign(msg)
	if err != nil {
		t.Fatalf("sign 2 failed: %v", err)
	}
	if len(s1) != ed25519.SignatureSize {
		t.Fatalf("unexpected signature length %d", len(s1))
	}
	if !bytes.Equal(s1, s2) {
		t.Fatal("ed25519 signatures over the same message must be identical")
	}
	if !bytes.Equal(s1, mustHex(t, zeroMessageSignatureHex)) {
		t.Fatalf("unexpected signature %x", s1)
	}
	if !ed25519.Verify(kp.PublicKey(), msg, s1) {
		t.Fatal("signature must verify")
	}
}

func TestDestroyedKeypairRefusesToSign(t *testing.T) {
	kp, err := KeypairFromSeed(make([]byte, 32))
	if err != nil {
		t.Fatalf("keypair from seed failed: %v", err)
	}
	kp.Destroy()
	if _, err := kp.Sign([]byte("x")); !errors.Is(err, walleterr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized after destroy, got %v", err)
	}
}

func TestKeypairFromSeedRejectsWrongLength(t *testing.T) {
	if _, err := KeypairFromSeed(make([]byte, 31)); !errors.Is(err, walleterr.ErrKeyDerivation) {
		t.Fatalf("expected key derivation error, got %v", err)
	}
}

func TestFingerprintCoversPublicKeyOnly(t *testing.T) {
	kp, err := KeypairFromSeed(mustHex(t, rfcSeedHex))
	if err != nil {
		t.Fatalf("keypair from seed failed: %v", err)
	}
	if kp.Fingerprint() != FingerprintOf(mustHex(t, rfcPublicHex)) {
		t.Fatal("fingerprint must be the hash of the public key")
	}
	parsed, err := ParseFingerprint(kp.Fingerprint().String())
	if err != nil {
		t.Fatalf("parse fingerprint: %v", err)
	}
	if parsed != kp.Fingerprint() {
		t.Fatal("fingerprint string round trip mismatch")
	}
	if _, err := ParseFingerprint("abcd"); err == nil {
		t.Fatal("expected short fingerprint to fail")
	}
}
