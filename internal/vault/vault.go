package vault

import (
	"sync"

	"atoll-wallet/go-core/internal/walleterr"
)

// Vault maps keypair fingerprints to keypairs and tracks the active one.
// The mapping and the active fingerprint are guarded by separate locks so
// that reading one never waits on a writer of the other. Insertion is the
// only way the mapping grows; nothing is removed until Close.
type Vault struct {
	activeMu sync.RWMutex
	active   Fingerprint

	mu       sync.RWMutex
	keypairs map[Fingerprint]*Keypair
}

func New() *Vault {
	return &Vault{
		active:   ZeroFingerprint,
		keypairs: make(map[Fingerprint]*Keypair),
	}
}

// Insert stores kp and returns its fingerprint. Re-inserting a key that is
// already present keeps the existing entry and its sessions; the duplicate
// copy is zeroized.
func (v *Vault) Insert(kp *Keypair) Fingerprint {
	fp := kp.Fingerprint()
	v.mu.Lock()
	defer v.mu.Unlock()
	existing, ok := v.keypairs[fp]
	if !ok {
		v.keypairs[fp] = kp
		return fp
	}
	if existing != kp {
		kp.Destroy()
	}
	return fp
}

// Import derives a keypair from mnemonic and inserts it.
func (v *Vault) Import(mnemonic, passphrase string) (Fingerprint, error) {
	kp, err := Derive(mnemonic, passphrase)
	if err != nil {
		return Fingerprint{}, err
	}
	return v.Insert(kp), nil
}

// SetActive selects fp as the active keypair. Unknown fingerprints are
// rejected so the active cell always points at a vault entry.
func (v *Vault) SetActive(fp Fingerprint) error {
	if !v.Has(fp) {
		return walleterr.Unauthorized()
	}
	v.activeMu.Lock()
	v.active = fp
	v.activeMu.Unlock()
	return nil
}

func (v *Vault) Active() Fingerprint {
	v.activeMu.RLock()
	defer v.activeMu.RUnlock()
	return v.active
}

func (v *Vault) Has(fp Fingerprint) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.keypairs[fp]
	return ok
}

// Lookup returns the keypair for fp. A missing entry is an authorization
// failure, never a fallback to some other key.
func (v *Vault) Lookup(fp Fingerprint) (*Keypair, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	kp, ok := v.keypairs[fp]
	if !ok {
		return nil, walleterr.Unauthorized()
	}
	return kp, nil
}

func (v *Vault) ActiveKeypair() (*Keypair, error) {
	return v.Lookup(v.Active())
}

// View runs fn with the keypair for fp while holding the mapping read lock.
// fn must not block on network I/O.
func (v *Vault) View(fp Fingerprint, fn func(*Keypair) error) error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	kp, ok := v.keypairs[fp]
	if !ok {
		return walleterr.Unauthorized()
	}
	return fn(kp)
}

// ViewActive is View on the active fingerprint.
func (v *Vault) ViewActive(fn func(*Keypair) error) error {
	return v.View(v.Active(), fn)
}

// update is View with the write lock, for session mutations.
func (v *Vault) update(fp Fingerprint, fn func(*Keypair) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	kp, ok := v.keypairs[fp]
	if !ok {
		return walleterr.Unauthorized()
	}
	return fn(kp)
}

func (v *Vault) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.keypairs)
}

// Close zeroizes every keypair and empties the vault.
func (v *Vault) Close() {
	v.mu.Lock()
	for fp, kp := range v.keypairs {
		kp.Destroy()
		delete(v.keypairs, fp)
	}
	v.mu.Unlock()

	v.activeMu.Lock()
	v.active = ZeroFingerprint
	v.activeMu.Unlock()
}
