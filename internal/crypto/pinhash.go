package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2idParams tunes the PIN verifier hash stored on profile records.
// This hash is an app-level check only; key release always goes through
// DeriveMasterKey.
type Argon2idParams struct {
	Memory      uint32 // in KiB
	Time        uint32 // iterations
	Parallelism uint8
	SaltLen     int
	KeyLen      uint32
}

var DefaultArgon2id = Argon2idParams{
	Memory:      64 * 1024,
	Time:        3,
	Parallelism: 1,
	SaltLen:     16,
	KeyLen:      32,
}

var ErrInvalidPINHash = errors.New("invalid pin hash")

// HashPIN produces an encoded verifier string for a profile record.
// Encoded format: argon2id$m=<M>,t=<T>,p=<P>$<b64(salt)>$<b64(key)>
func HashPIN(pin string, p Argon2idParams) (string, error) {
	const op = "crypto.HashPIN"
	if pin == "" {
		return "", Errorf(op, KindKeyGenerationFailed, "empty pin")
	}
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", E(op, KindKeyGenerationFailed, err)
	}
	key := argon2.IDKey([]byte(pin), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("argon2id$m=%d,t=%d,p=%d$%s$%s",
		p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPINHash checks a PIN against an encoded verifier.
func VerifyPINHash(pin, encoded string) (bool, error) {
	const prefix = "argon2id$"
	if !strings.HasPrefix(encoded, prefix) {
		return false, ErrInvalidPINHash
	}
	parts := strings.Split(encoded[len(prefix):], "$")
	if len(parts) != 3 {
		return false, ErrInvalidPINHash
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[0], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return false, ErrInvalidPINHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false, ErrInvalidPINHash
	}
	keyRef, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false, ErrInvalidPINHash
	}

	key := argon2.IDKey([]byte(pin), salt, t, m, p, uint32(len(keyRef)))
	defer Zero(key)
	return ConstantTimeEqual(key, keyRef), nil
}
