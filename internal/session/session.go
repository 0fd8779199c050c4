// Package session mediates PIN entry, key reuse and rotation for a single
// active user session, so the user is not forced to re-enter a PIN for
// every operation inside the validity window.
package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	cr "github.com/subramanyaSgb/FInVault-sub001/internal/crypto"
	"github.com/subramanyaSgb/FInVault-sub001/internal/keystore"
)

const (
	// DefaultMaxAttempts failed verifications inside the attempt window
	// lock the key id out until the budget refills.
	DefaultMaxAttempts = 5

	// DefaultAttemptWindow is the refill window for the attempt budget.
	DefaultAttemptWindow = time.Minute

	limiterIdleTTL = time.Hour
)

// Manager drives the PIN/passphrase lifecycle over the key store.
type Manager struct {
	keys    *keystore.Manager
	limiter *attemptLimiter
}

func NewManager(keys *keystore.Manager) *Manager {
	return NewManagerWithLimits(keys, DefaultMaxAttempts, DefaultAttemptWindow)
}

func NewManagerWithLimits(keys *keystore.Manager, maxAttempts int, window time.Duration) *Manager {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultAttemptWindow
	}
	perSecond := rate.Limit(float64(maxAttempts) / window.Seconds())
	return &Manager{
		keys:    keys,
		limiter: newAttemptLimiter(perSecond, maxAttempts, limiterIdleTTL),
	}
}

// InitializeCryptoSession derives a master key from a new PIN with a fresh
// salt, stores it under a new key id in both scopes, and returns the id and
// the live key. The caller owns the key and should Destroy it when done.
func (m *Manager) InitializeCryptoSession(pin string) (string, *cr.MasterKey, error) {
	key, err := cr.DeriveMasterKey(pin, nil, 0)
	if err != nil {
		return "", nil, err
	}
	keyID := uuid.NewString()
	if err := m.keys.StoreMasterKey(keyID, key, false); err != nil {
		key.Destroy()
		return "", nil, err
	}
	if err := m.keys.StoreMasterKey(keyID, key, true); err != nil {
		key.Destroy()
		return "", nil, err
	}
	log.Info().Str("key_id", keyID).Msg("crypto session initialized")
	return keyID, key, nil
}

// VerifyPINAndGetKey checks a PIN against the stored key for keyID. When a
// stored key exists, a candidate is re-derived with the stored salt and
// iteration count and its exported material compared in constant time.
// When none exists but a profile salt is supplied, the key is derived from
// the PIN and that salt, stored for future reuse, and returned.
func (m *Manager) VerifyPINAndGetKey(pin, keyID string, profileSalt []byte) (*cr.MasterKey, error) {
	const op = "session.VerifyPINAndGetKey"
	if !m.limiter.allow(keyID) {
		return nil, cr.Errorf(op, cr.KindMaxAttemptsExceeded, "too many attempts for key %q", keyID)
	}
	if pin == "" {
		return nil, cr.Errorf(op, cr.KindWrongPIN, "empty pin")
	}

	stored, err := m.keys.RetrieveMasterKey(keyID)
	switch {
	case err == nil:
		candidate, err := cr.DeriveMasterKey(pin, stored.Salt(), stored.Iterations())
		if err != nil {
			stored.Destroy()
			return nil, err
		}
		match := candidate.Equal(stored)
		candidate.Destroy()
		if !match {
			stored.Destroy()
			log.Warn().Str("key_id", keyID).Msg("pin verification failed")
			return nil, cr.Errorf(op, cr.KindWrongPIN, "pin does not match stored key")
		}
		m.limiter.reset(keyID)
		// Refresh the session record so the validity window restarts.
		if err := m.keys.StoreMasterKey(keyID, stored, true); err != nil {
			stored.Destroy()
			return nil, err
		}
		return stored, nil

	case cr.IsKind(err, cr.KindKeyNotFound):
		if len(profileSalt) == 0 {
			return nil, cr.Errorf(op, cr.KindWrongPIN, "no stored key and no profile salt for %q", keyID)
		}
		key, err := cr.DeriveMasterKey(pin, profileSalt, 0)
		if err != nil {
			return nil, err
		}
		if err := m.keys.StoreMasterKey(keyID, key, false); err != nil {
			key.Destroy()
			return nil, err
		}
		if err := m.keys.StoreMasterKey(keyID, key, true); err != nil {
			key.Destroy()
			return nil, err
		}
		m.limiter.reset(keyID)
		log.Info().Str("key_id", keyID).Msg("key re-derived from profile salt")
		return key, nil

	default:
		return nil, err
	}
}

// ChangePIN verifies the old PIN, derives a brand-new key from the new PIN
// with a fresh salt, persists it as the new record for keyID, and returns
// it. Callers re-encrypt previously-encrypted payloads via ReEncryptData;
// no automatic sweep happens here.
func (m *Manager) ChangePIN(oldPin, newPin, keyID string, profileSalt []byte) (*cr.MasterKey, error) {
	old, err := m.VerifyPINAndGetKey(oldPin, keyID, profileSalt)
	if err != nil {
		return nil, err
	}
	old.Destroy()

	newKey, err := cr.DeriveMasterKey(newPin, nil, 0)
	if err != nil {
		return nil, err
	}
	if err := m.keys.StoreMasterKey(keyID, newKey, false); err != nil {
		newKey.Destroy()
		return nil, err
	}
	if err := m.keys.StoreMasterKey(keyID, newKey, true); err != nil {
		newKey.Destroy()
		return nil, err
	}
	log.Info().Str("key_id", keyID).Msg("pin changed")
	return newKey, nil
}

// ReEncryptData is the rotation primitive: decrypt under the old key,
// encrypt under the new one. The result is a fresh payload with a new IV
// and tag.
func (m *Manager) ReEncryptData(p *cr.EncryptedPayload, oldKey, newKey *cr.MasterKey) (*cr.EncryptedPayload, error) {
	pt, err := cr.DecryptData(p, oldKey)
	if err != nil {
		return nil, err
	}
	defer cr.Zero(pt)
	return cr.EncryptData(pt, newKey)
}

// Logout clears the session scope so the next operation requires the PIN
// again.
func (m *Manager) Logout() error {
	return m.keys.ClearSession()
}
