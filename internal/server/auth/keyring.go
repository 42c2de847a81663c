package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/labandina/internal/common"
)

var (
	errUnknownKey = errors.New("unknown signing key")
	errKeyRetired = errors.New("signing key retired")
)

// Key is an HMAC signing secret together with its public identifier. The id
// travels in the token's "kid" header.
type Key struct {
	ID     string
	Secret []byte
}

// NewKey derives the key id from the secret so that replicas configured with
// the same secret agree on it.
func NewKey(secret string) Key {
	sum := sha256.Sum256([]byte(secret))
	return Key{
		ID:     hex.EncodeToString(sum[:8]),
		Secret: []byte(secret),
	}
}

// keySet is immutable once published.
type keySet struct {
	current   Key
	previous  *Key
	retiredAt time.Time
}

// Keyring holds the current signing key and at most one previous key. Tokens
// signed with the previous key verify until retiredAt+grace; a zero grace
// window rejects them immediately after rotation.
type Keyring struct {
	set   atomic.Pointer[keySet]
	grace time.Duration
	now   func() time.Time
}

// NewKeyring builds a keyring. previous may be empty; when set it is treated
// as retired at construction time.
func NewKeyring(current, previous string, grace time.Duration, now func() time.Time) (*Keyring, error) {
	if current == "" {
		return nil, fmt.Errorf("%w: signing secret is empty", common.ErrorValidation)
	}
	if grace < 0 {
		return nil, fmt.Errorf("%w: negative grace window", common.ErrorValidation)
	}
	if now == nil {
		now = time.Now
	}

	k := &Keyring{grace: grace, now: now}
	set := &keySet{current: NewKey(current)}
	if previous != "" && previous != current {
		prev := NewKey(previous)
		set.previous = &prev
		set.retiredAt = now()
	}
	k.set.Store(set)

	return k, nil
}

// Current returns the key new tokens are signed with.
func (k *Keyring) Current() Key {
	return k.set.Load().current
}

// GraceWindow reports how long a retired key keeps verifying.
func (k *Keyring) GraceWindow() time.Duration {
	return k.grace
}

// Rotate makes secret the current key and retires the old current key.
// Rotating to the secret already in use is a no-op. Readers see either the
// old or the new key set, never a mix.
func (k *Keyring) Rotate(secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: signing secret is empty", common.ErrorValidation)
	}
	next := NewKey(secret)

	for {
		old := k.set.Load()
		if old.current.ID == next.ID {
			return nil
		}
		prev := old.current
		set := &keySet{
			current:   next,
			previous:  &prev,
			retiredAt: k.now(),
		}
		if k.set.CompareAndSwap(old, set) {
			return nil
		}
	}
}

// verificationKey resolves the secret for a token's kid header. Tokens
// without a kid only verify against the current key.
func (k *Keyring) verificationKey(kid string) ([]byte, error) {
	set := k.set.Load()

	switch {
	case kid == "" || kid == set.current.ID:
		return set.current.Secret, nil
	case set.previous != nil && kid == set.previous.ID:
		if !k.now().Before(set.retiredAt.Add(k.grace)) {
			return nil, errKeyRetired
		}
		return set.previous.Secret, nil
	default:
		return nil, errUnknownKey
	}
}
