package vault

import (
	"strings"
	"time"

	"atoll-wallet/go-core/internal/walleterr"
)

// DappSession is the per-origin state of a keypair.
type DappSession struct {
	Origin      string
	ConnectedAt time.Time
	SignIn      *SignInRecord
}

// SignInRecord is a completed Sign-In-With-Solana exchange.
type SignInRecord struct {
	Message   string
	Signature []byte
	SignedAt  time.Time
}

// SessionRegistry records dapp sessions on the vault's keypairs. Sessions
// are keyed by the origin fingerprint and are never revoked.
//
// Signing paths do not consult the registry yet.
type SessionRegistry struct {
	vault *Vault
	now   func() time.Time
}

func NewSessionRegistry(v *Vault) *SessionRegistry {
	return &SessionRegistry{vault: v, now: time.Now}
}

// Connect records origin on the keypair fp, overwriting a previous session
// for the same origin, and returns the keypair identity.
func (r *SessionRegistry) Connect(fp Fingerprint, origin string) (Identity, error) {
	if strings.TrimSpace(origin) == "" {
		return Identity{}, walleterr.Input("The origin URI for `standard:connect` must not be empty")
	}
	var id Identity
	err := r.vault.update(fp, func(kp *Keypair) error {
		kp.sessions[OriginFingerprint(origin)] = &DappSession{
			Origin:      origin,
			ConnectedAt: r.now(),
		}
		id = kp.Identity()
		return nil
	})
	return id, err
}

// RecordSignIn attaches rec to the origin's session, creating the session
// when the dapp signed in without connecting first.
func (r *SessionRegistry) RecordSignIn(fp Fingerprint, origin string, rec SignInRecord) error {
	if strings.TrimSpace(origin) == "" {
		return walleterr.Input("The origin URI for `solana:signIn` must not be empty")
	}
	rec.Signature = append([]byte(nil), rec.Signature...)
	if rec.SignedAt.IsZero() {
		rec.SignedAt = r.now()
	}
	return r.vault.update(fp, func(kp *Keypair) error {
		key := OriginFingerprint(origin)
		sess, ok := kp.sessions[key]
		if !ok {
			sess = &DappSession{Origin: origin, ConnectedAt: rec.SignedAt}
			kp.sessions[key] = sess
		}
		sess.SignIn = &rec
		return nil
	})
}

// Session returns a copy of the session for origin on keypair fp.
func (r *SessionRegistry) Session(fp Fingerprint, origin string) (DappSession, bool, error) {
	var (
		out   DappSession
		found bool
	)
	err := r.vault.View(fp, func(kp *Keypair) error {
		sess, ok := kp.sessions[OriginFingerprint(origin)]
		if !ok {
			return nil
		}
		found = true
		out = *sess
		if sess.SignIn != nil {
			rec := *sess.SignIn
			rec.Signature = append([]byte(nil), rec.Signature...)
			out.SignIn = &rec
		}
		return nil
	})
	return out, found, err
}

// Count returns the number of sessions held by keypair fp.
func (r *SessionRegistry) Count(fp Fingerprint) (int, error) {
	n := 0
	err := r.vault.View(fp, func(kp *Keypair) error {
		n = len(kp.sessions)
		return nil
	})
	return n, err
}
