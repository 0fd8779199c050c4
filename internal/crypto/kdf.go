package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the length of derived master keys.
	KeySize = 32

	// DefaultIterations is the PBKDF2 iteration count for key format
	// version 1. It is fixed per version so a key can always be re-derived
	// from a stored salt.
	DefaultIterations = 100_000

	// KeyFormatVersion is the current master key format version.
	KeyFormatVersion = 1
)

// MasterKey is the symmetric key handle derived from a user PIN or password,
// bound to the salt and iteration count that produced it. The raw bytes
// never leave the handle except through Export; Destroy zeroes them.
type MasterKey struct {
	key        []byte
	salt       []byte
	iterations int
	version    int
}

// DeriveMasterKey derives a master key from password with PBKDF2-SHA256.
// A nil or empty salt generates a fresh random one; iterations <= 0 uses
// DefaultIterations. The same password, salt and iteration count always
// reproduce identical key material.
func DeriveMasterKey(password string, salt []byte, iterations int) (*MasterKey, error) {
	const op = "crypto.DeriveMasterKey"
	if password == "" {
		return nil, Errorf(op, KindKeyGenerationFailed, "empty password")
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	if len(salt) == 0 {
		fresh, err := NewSalt()
		if err != nil {
			return nil, E(op, KindKeyGenerationFailed, err)
		}
		salt = fresh
	} else if len(salt) != SaltSize {
		return nil, Errorf(op, KindKeyGenerationFailed, "salt must be %d bytes, got %d", SaltSize, len(salt))
	}
	key := pbkdf2.Key([]byte(password), salt, iterations, KeySize, sha256.New)
	_ = lockMemory(key) // best effort
	return &MasterKey{
		key:        key,
		salt:       append([]byte(nil), salt...),
		iterations: iterations,
		version:    KeyFormatVersion,
	}, nil
}

// ImportMasterKey rebuilds a key handle from previously exported material
// plus the derivation parameters that produced it.
func ImportMasterKey(material, salt []byte, iterations, version int) (*MasterKey, error) {
	const op = "crypto.ImportMasterKey"
	if len(material) != KeySize {
		return nil, Errorf(op, KindKeyGenerationFailed, "key material must be %d bytes, got %d", KeySize, len(material))
	}
	if version <= 0 || version > KeyFormatVersion {
		return nil, Errorf(op, KindInvalidVersion, "unsupported key format version %d", version)
	}
	if iterations <= 0 {
		return nil, Errorf(op, KindKeyGenerationFailed, "invalid iteration count %d", iterations)
	}
	key := append([]byte(nil), material...)
	_ = lockMemory(key)
	return &MasterKey{
		key:        key,
		salt:       append([]byte(nil), salt...),
		iterations: iterations,
		version:    version,
	}, nil
}

// Salt returns a copy of the derivation salt.
func (k *MasterKey) Salt() []byte { return append([]byte(nil), k.salt...) }

// Iterations returns the iteration count the key was derived with.
func (k *MasterKey) Iterations() int { return k.iterations }

// Version returns the key format version.
func (k *MasterKey) Version() int { return k.version }

// Export returns a copy of the raw key material in its portable form.
// Callers own the copy and should Zero it when done.
func (k *MasterKey) Export() []byte { return append([]byte(nil), k.key...) }

// Equal compares the two keys' material in constant time.
func (k *MasterKey) Equal(other *MasterKey) bool {
	if k == nil || other == nil || k.key == nil || other.key == nil {
		return false
	}
	return ConstantTimeEqual(k.key, other.key)
}

// Destroy zeroes the key material and releases the memory lock. The handle
// is unusable afterwards.
func (k *MasterKey) Destroy() {
	if k == nil || k.key == nil {
		return
	}
	Zero(k.key)
	_ = unlockMemory(k.key)
	k.key = nil
}
