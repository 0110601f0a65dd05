package signing

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"testing"

	"atoll-wallet/go-core/internal/vault"
	"atoll-wallet/go-core/internal/walleterr"

	"github.com/gagliardetto/solana-go"
)

func testKeypair(t *testing.T, fill byte) *vault.Keypair {
	t.Helper()
	kp, err := vault.KeypairFromSeed(bytes.Repeat([]byte{fill}, ed25519.SeedSize))
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	return kp
}

func transferMessage(signers ...solana.PublicKey) solana.Message {
	keys := append(solana.PublicKeySlice{}, signers...)
	keys = append(keys, solana.PublicKeyFromBytes(bytes.Repeat([]byte{9}, 32)), solana.SystemProgramID)
	return solana.Message{
		Header: solana.MessageHeader{
			NumRequiredSignatures:       uint8(len(signers)),
			NumReadonlyUnsignedAccounts: 1,
		},
		AccountKeys:     keys,
		RecentBlockhash: solana.Hash{1, 2, 3, 4},
		Instructions: []solana.CompiledInstruction{{
			ProgramIDIndex: uint16(len(keys) - 1),
			Accounts:       []uint16{0, uint16(len(keys) - 2)},
			Data:           solana.Base58{2, 0, 0, 0, 64, 66, 15, 0, 0, 0, 0, 0},
		}},
	}
}

func wireTransaction(t *testing.T, signers ...solana.PublicKey) []byte {
	t.Helper()
	tx := &solana.Transaction{
		Signatures: make([]solana.Signature, len(signers)),
		Message:    transferMessage(signers...),
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func signerKey(kp *vault.Keypair) solana.PublicKey {
	return solana.PublicKeyFromBytes(kp.PublicKey())
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	raw := wireTransaction(t, signerKey(testKeypair(t, 1)))
	tx, err := DecodeTransaction(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := EncodeTransaction(tx)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(raw, out) {
		t.Fatal("round trip changed the wire bytes")
	}
}

func TestSignTransactionVerifiesOverMessage(t *testing.T) {
	kp := testKeypair(t, 1)
	signed, err := SignTransaction(kp, kp.PublicKey(), wireTransaction(t, signerKey(kp)))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	tx, err := DecodeTransaction(signed)
	if err != nil {
		t.Fatalf("decode signed: %v", err)
	}
	message, err := tx.Message.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	if !ed25519.Verify(kp.PublicKey(), message, tx.Signatures[0][:]) {
		t.Fatal("signature does not verify over the message bytes")
	}
	if tx.Message.RecentBlockhash != (solana.Hash{1, 2, 3, 4}) {
		t.Fatal("signing must not touch the blockhash")
	}
}

func TestSignTransactionUsesSignerSlot(t *testing.T) {
	other := testKeypair(t, 2)
	kp := testKeypair(t, 3)
	tx := &solana.Transaction{
		Signatures: []solana.Signature{{}, {}},
		Message:    transferMessage(signerKey(other), signerKey(kp)),
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	signed, err := SignTransaction(kp, nil, raw)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	decoded, err := DecodeTransaction(signed)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Signatures[0] != (solana.Signature{}) {
		t.Fatal("foreign signer slot must stay empty")
	}
	message, _ := decoded.Message.MarshalBinary()
	if !ed25519.Verify(kp.PublicKey(), message, decoded.Signatures[1][:]) {
		t.Fatal("second slot does not carry the keypair signature")
	}
}

func TestSignTransactionRejectsNonSigner(t *testing.T) {
	kp := testKeypair(t, 1)
	raw := wireTransaction(t, signerKey(testKeypair(t, 2)))
	_, err := SignTransaction(kp, nil, raw)
	if !errors.Is(err, walleterr.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestDecodeRejectsMalformedWire(t *testing.T) {
	kp := testKeypair(t, 1)
	valid := wireTransaction(t, signerKey(kp))

	message := transferMessage(signerKey(kp))
	body, err := message.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	tooManySignatures := append([]byte{2}, make([]byte, 2*64)...)
	tooManySignatures = append(tooManySignatures, body...)

	unsigned := transferMessage()
	unsignedBody, err := unsigned.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	noSigners := append([]byte{0}, unsignedBody...)

	cases := map[string][]byte{
		"empty":               nil,
		"garbage":             []byte{0xff, 0xff, 0xff},
		"truncated":           valid[:len(valid)-5],
		"trailing bytes":      append(append([]byte(nil), valid...), 0),
		"too many signatures": tooManySignatures,
		"no required signers": noSigners,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeTransaction(raw); !errors.Is(err, walleterr.ErrInput) {
				t.Fatalf("expected input error, got %v", err)
			}
		})
	}
}

func TestDecodePadsMissingSignatures(t *testing.T) {
	kp := testKeypair(t, 1)
	message := transferMessage(signerKey(kp))
	body, err := message.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	tx, err := DecodeTransaction(append([]byte{0}, body...))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tx.Signatures) != 1 || tx.Signatures[0] != (solana.Signature{}) {
		t.Fatalf("expected one empty signature slot, got %d", len(tx.Signatures))
	}
}

func TestStampBlockhashClearsSignatures(t *testing.T) {
	kp := testKeypair(t, 1)
	tx, err := DecodeTransaction(wireTransaction(t, signerKey(kp)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := Sign(tx, kp); err != nil {
		t.Fatalf("sign: %v", err)
	}
	hash := solana.Hash{7, 7, 7}
	StampBlockhash(tx, hash)
	if tx.Message.RecentBlockhash != hash {
		t.Fatal("blockhash not stamped")
	}
	if tx.Signatures[0] != (solana.Signature{}) {
		t.Fatal("stale signature survived the stamp")
	}
}

func TestSignMessage(t *testing.T) {
	kp := testKeypair(t, 4)
	sig, err := SignMessage(kp, nil, []byte{})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	again, _ := SignMessage(kp, nil, []byte{})
	if !bytes.Equal(sig, again) || !ed25519.Verify(kp.PublicKey(), []byte{}, sig) {
		t.Fatal("empty message signature must be reproducible and verify")
	}
	if _, err := SignMessage(nil, nil, []byte("x")); !errors.Is(err, walleterr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
