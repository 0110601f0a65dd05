package vault

import (
	"crypto/ed25519"
	"errors"
	"strings"

	"atoll-wallet/go-core/internal/walleterr"

	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip39"
)

var (
	ErrMnemonicRequired = errors.New("mnemonic is required")
	ErrInvalidMnemonic  = errors.New("invalid mnemonic")
	ErrInvalidSeed      = errors.New("seed must be 32 bytes")
)

// Keypair is an ed25519 signing key. The key material never changes after
// construction; sessions attached to it are only touched under the owning
// Vault's mapping lock.
type Keypair struct {
	private  ed25519.PrivateKey
	public   ed25519.PublicKey
	sessions map[Fingerprint]*DappSession
}

// Identity is the public view of a keypair.
type Identity struct {
	Address   string
	PublicKey [ed25519.PublicKeySize]byte
}

// Derive rebuilds a keypair from a BIP-39 mnemonic the way Solana wallets
// do: the first 32 bytes of the BIP-39 seed are the ed25519 seed.
func Derive(mnemonic, passphrase string) (*Keypair, error) {
	mnemonic = normalizeMnemonic(mnemonic)
	if mnemonic == "" {
		return nil, walleterr.Bip39(ErrMnemonicRequired)
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, walleterr.Bip39(ErrInvalidMnemonic)
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, walleterr.KeyDerivation(err)
	}
	defer zeroBytes(seed)
	return KeypairFromSeed(seed[:ed25519.SeedSize])
}

// Generate creates a fresh 12-word mnemonic and its keypair.
func Generate(passphrase string) (*Keypair, string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return nil, "", walleterr.Bip39(err)
	}
	defer zeroBytes(entropy)
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, "", walleterr.Bip39(err)
	}
	kp, err := Derive(mnemonic, passphrase)
	if err != nil {
		return nil, "", err
	}
	return kp, mnemonic, nil
}

func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, walleterr.KeyDerivation(ErrInvalidSeed)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Keypair{
		private:  priv,
		public:   append(ed25519.PublicKey(nil), priv.Public().(ed25519.PublicKey)...),
		sessions: make(map[Fingerprint]*DappSession),
	}, nil
}

func (k *Keypair) PublicKey() ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), k.public...)
}

// Address is the base58 form of the public key.
func (k *Keypair) Address() string {
	return base58.Encode(k.public)
}

func (k *Keypair) Fingerprint() Fingerprint {
	return FingerprintOf(k.public)
}

func (k *Keypair) Identity() Identity {
	id := Identity{Address: k.Address()}
	copy(id.PublicKey[:], k.public)
	return id
}

// Sign returns an ed25519 signature over message. A destroyed keypair
// refuses to sign.
func (k *Keypair) Sign(message []byte) ([]byte, error) {
	if len(k.private) != ed25519.PrivateKeySize {
		return nil, walleterr.Unauthorized()
	}
	return ed25519.Sign(k.private, message), nil
}

// Destroy zeroizes the private key.
func (k *Keypair) Destroy() {
	zeroBytes(k.private)
	k.private = nil
}

func normalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(mnemonic), " ")
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
