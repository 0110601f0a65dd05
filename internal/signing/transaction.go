// Package signing signs arbitrary messages and Solana wire transactions
// with a vault keypair.
package signing

import (
	"atoll-wallet/go-core/internal/vault"
	"atoll-wallet/go-core/internal/walleterr"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// DecodeTransaction parses a wire-format transaction. Signature slots are
// padded with zero signatures up to the number of required signers.
func DecodeTransaction(raw []byte) (tx *solana.Transaction, err error) {
	if len(raw) == 0 {
		return nil, walleterr.Input("The transaction bytes must not be empty")
	}
	defer func() {
		if r := recover(); r != nil {
			tx, err = nil, walleterr.Input("Unable to decode the transaction: %v", r)
		}
	}()

	decoder := bin.NewBinDecoder(raw)
	tx = new(solana.Transaction)
	if err := tx.UnmarshalWithDecoder(decoder); err != nil {
		return nil, walleterr.Input("Unable to decode the transaction: %v", err)
	}
	if rest := decoder.Remaining(); rest > 0 {
		return nil, walleterr.Input("The transaction has %d trailing bytes", rest)
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	switch {
	case required == 0:
		return nil, walleterr.Input("The transaction message declares no required signers")
	case len(tx.Message.AccountKeys) < required:
		return nil, walleterr.Input("The transaction lists %d account keys but requires %d signers",
			len(tx.Message.AccountKeys), required)
	case len(tx.Signatures) > required:
		return nil, walleterr.Input("The transaction carries %d signatures but only %d signers are required",
			len(tx.Signatures), required)
	}
	for len(tx.Signatures) < required {
		tx.Signatures = append(tx.Signatures, solana.Signature{})
	}
	return tx, nil
}

// EncodeTransaction serializes tx back to wire format.
func EncodeTransaction(tx *solana.Transaction) ([]byte, error) {
	out, err := tx.MarshalBinary()
	if err != nil {
		return nil, walleterr.Input("Unable to encode the transaction: %v", err)
	}
	return out, nil
}

// StampBlockhash replaces the recent blockhash. Existing signatures become
// invalid and are cleared.
func StampBlockhash(tx *solana.Transaction, hash solana.Hash) {
	tx.Message.RecentBlockhash = hash
	for i := range tx.Signatures {
		tx.Signatures[i] = solana.Signature{}
	}
}

// SignerIndex returns the keypair's slot among the required signers.
func SignerIndex(tx *solana.Transaction, pub solana.PublicKey) (int, error) {
	required := int(tx.Message.Header.NumRequiredSignatures)
	for i := 0; i < required && i < len(tx.Message.AccountKeys); i++ {
		if tx.Message.AccountKeys[i].Equals(pub) {
			return i, nil
		}
	}
	return -1, walleterr.Input("The account %s is not a required signer of this transaction", pub)
}

// Sign signs tx's serialized message with kp in place. The recent
// blockhash is left untouched; the payload is the message bytes, not a
// message hash stamped into the blockhash field.
func Sign(tx *solana.Transaction, kp *vault.Keypair) error {
	pub := solana.PublicKeyFromBytes(kp.PublicKey())
	idx, err := SignerIndex(tx, pub)
	if err != nil {
		return err
	}
	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return walleterr.Input("Unable to serialize the transaction message: %v", err)
	}
	sig, err := kp.Sign(message)
	if err != nil {
		return err
	}
	tx.Signatures[idx] = solana.SignatureFromBytes(sig)
	return nil
}

// SignTransaction decodes raw, signs it with kp and returns the signed
// wire bytes. claimed is the public key the dapp believes it is talking to;
// it is not checked against kp.
func SignTransaction(kp *vault.Keypair, claimed []byte, raw []byte) ([]byte, error) {
	if kp == nil {
		return nil, walleterr.Unauthorized()
	}
	tx, err := DecodeTransaction(raw)
	if err != nil {
		return nil, err
	}
	if err := Sign(tx, kp); err != nil {
		return nil, err
	}
	return EncodeTransaction(tx)
}

// SignMessage returns the ed25519 signature of message.
func SignMessage(kp *vault.Keypair, claimed []byte, message []byte) ([]byte, error) {
	if kp == nil {
		return nil, walleterr.Unauthorized()
	}
	return kp.Sign(message)
}
