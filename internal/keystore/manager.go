// Package keystore persists derived key material across two storage scopes:
// a session scope whose records expire after a fixed validity window, and a
// persistent scope that survives until explicit removal.
package keystore

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	cr "github.com/subramanyaSgb/FInVault-sub001/internal/crypto"
	"github.com/subramanyaSgb/FInVault-sub001/internal/storage"
)

const (
	keyPrefix = "finvault:key:"

	// DefaultSessionTTL is the validity window for session-scoped records.
	DefaultSessionTTL = 30 * time.Minute
)

// Manager owns the key lifecycle: absent -> stored(session) -> expired ->
// absent, or stored(persistent) -> removed. Expiry is enforced at retrieval
// only; there is no background eviction.
type Manager struct {
	session    storage.Store
	persistent storage.Store
	secret     []byte
	sessionTTL time.Duration
	now        func() time.Time
}

func NewManager(session, persistent storage.Store, deviceSecret []byte) (*Manager, error) {
	const op = "keystore.NewManager"
	if len(deviceSecret) != DeviceSecretSize {
		return nil, cr.Errorf(op, cr.KindStorageError, "device secret must be %d bytes, got %d", DeviceSecretSize, len(deviceSecret))
	}
	return &Manager{
		session:    session,
		persistent: persistent,
		secret:     append([]byte(nil), deviceSecret...),
		sessionTTL: DefaultSessionTTL,
		now:        time.Now,
	}, nil
}

// SetSessionTTL overrides the session validity window.
func (m *Manager) SetSessionTTL(d time.Duration) {
	if d > 0 {
		m.sessionTTL = d
	}
}

func storageKey(keyID string) string { return keyPrefix + keyID }

// StoreMasterKey wraps the key's exported material and writes a record
// under keyID. Session-scoped records carry an absolute expiry computed at
// write time.
func (m *Manager) StoreMasterKey(keyID string, key *cr.MasterKey, sessionScoped bool) error {
	const op = "keystore.StoreMasterKey"
	if keyID == "" {
		return cr.Errorf(op, cr.KindStorageError, "empty key id")
	}
	if key == nil {
		return cr.Errorf(op, cr.KindStorageError, "nil key")
	}

	material := key.Export()
	defer cr.Zero(material)

	wrapSalt, err := cr.NewSalt()
	if err != nil {
		return cr.E(op, cr.KindStorageError, err)
	}
	sealed, err := wrapMaterial(m.secret, material, wrapSalt, keyID)
	if err != nil {
		return cr.E(op, cr.KindStorageError, err)
	}

	now := m.now()
	rec := &StoredKeyRecord{
		Material:   sealed,
		WrapSalt:   wrapSalt,
		Salt:       key.Salt(),
		Iterations: key.Iterations(),
		Version:    key.Version(),
		CreatedAt:  now.Unix(),
	}
	scope := m.persistent
	scopeName := "persistent"
	if sessionScoped {
		rec.ExpiresAt = now.Add(m.sessionTTL).Unix()
		scope = m.session
		scopeName = "session"
	}

	b, err := rec.encode()
	if err != nil {
		return cr.E(op, cr.KindStorageError, err)
	}
	if err := scope.Set(storageKey(keyID), b); err != nil {
		return cr.E(op, cr.KindStorageError, err)
	}
	log.Debug().Str("key_id", keyID).Str("scope", scopeName).Msg("master key stored")
	return nil
}

// RetrieveMasterKey re-imports the stored key. The session scope is checked
// first; an expired session record is removed and treated as absent before
// falling back to the persistent scope.
func (m *Manager) RetrieveMasterKey(keyID string) (*cr.MasterKey, error) {
	const op = "keystore.RetrieveMasterKey"
	if rec, err := m.read(m.session, keyID); err != nil {
		return nil, err
	} else if rec != nil {
		if m.expired(rec) {
			if err := m.session.Delete(storageKey(keyID)); err != nil {
				return nil, cr.E(op, cr.KindStorageError, err)
			}
			log.Debug().Str("key_id", keyID).Msg("expired session key removed")
		} else {
			return m.importRecord(keyID, rec)
		}
	}

	rec, err := m.read(m.persistent, keyID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, cr.Errorf(op, cr.KindKeyNotFound, "no stored key for %q", keyID)
	}
	return m.importRecord(keyID, rec)
}

// HasMasterKey probes both scopes without side effects. An expired session
// record counts as absent but is left in place for the next retrieval to
// clean up.
func (m *Manager) HasMasterKey(keyID string) (bool, error) {
	if rec, err := m.read(m.session, keyID); err != nil {
		return false, err
	} else if rec != nil && !m.expired(rec) {
		return true, nil
	}
	rec, err := m.read(m.persistent, keyID)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// RemoveMasterKey deletes the record from both scopes.
func (m *Manager) RemoveMasterKey(keyID string) error {
	const op = "keystore.RemoveMasterKey"
	if err := m.session.Delete(storageKey(keyID)); err != nil {
		return cr.E(op, cr.KindStorageError, err)
	}
	if err := m.persistent.Delete(storageKey(keyID)); err != nil {
		return cr.E(op, cr.KindStorageError, err)
	}
	log.Debug().Str("key_id", keyID).Msg("master key removed")
	return nil
}

// ClearSession drops every namespaced record from the session scope, as on
// logout.
func (m *Manager) ClearSession() error {
	const op = "keystore.ClearSession"
	return m.clearScope(op, m.session)
}

// ClearAll drops every namespaced record from both scopes.
func (m *Manager) ClearAll() error {
	const op = "keystore.ClearAll"
	if err := m.clearScope(op, m.session); err != nil {
		return err
	}
	return m.clearScope(op, m.persistent)
}

func (m *Manager) clearScope(op string, scope storage.Store) error {
	keys, err := scope.Scan(keyPrefix)
	if err != nil {
		return cr.E(op, cr.KindStorageError, err)
	}
	for _, k := range keys {
		if err := scope.Delete(k); err != nil {
			return cr.E(op, cr.KindStorageError, err)
		}
	}
	return nil
}

// read loads and decodes a record; a missing record is (nil, nil). A record
// that cannot be decoded is a storage error, never a silently corrupt key.
func (m *Manager) read(scope storage.Store, keyID string) (*StoredKeyRecord, error) {
	const op = "keystore.read"
	b, err := scope.Get(storageKey(keyID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, cr.E(op, cr.KindStorageError, err)
	}
	return decodeRecord(b)
}

func (m *Manager) expired(rec *StoredKeyRecord) bool {
	return rec.ExpiresAt != 0 && m.now().Unix() >= rec.ExpiresAt
}

func (m *Manager) importRecord(keyID string, rec *StoredKeyRecord) (*cr.MasterKey, error) {
	const op = "keystore.importRecord"
	material, err := unwrapMaterial(m.secret, rec.Material, rec.WrapSalt, keyID)
	if err != nil {
		return nil, cr.E(op, cr.KindStorageError, err)
	}
	defer cr.Zero(material)
	return cr.ImportMasterKey(material, rec.Salt, rec.Iterations, rec.Version)
}
