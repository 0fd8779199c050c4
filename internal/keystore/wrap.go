package keystore

import (
	"crypto/sha256"
	"errors"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	cr "github.com/subramanyaSgb/FInVault-sub001/internal/crypto"
)

const wrapInfo = "finvault/key-wrap/v1"

// deriveStoreKey stretches the device secret into a per-record wrapping key.
func deriveStoreKey(deviceSecret, wrapSalt []byte) ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	stream := hkdf.New(sha256.New, deviceSecret, wrapSalt, []byte(wrapInfo))
	if _, err := io.ReadFull(stream, key); err != nil {
		return nil, err
	}
	return key, nil
}

// wrapMaterial seals exported key material under the store key. The key id
// binds the box to its record. Layout: [nonce||ciphertext+tag].
func wrapMaterial(deviceSecret, material, wrapSalt []byte, keyID string) ([]byte, error) {
	storeKey, err := deriveStoreKey(deviceSecret, wrapSalt)
	if err != nil {
		return nil, err
	}
	defer cr.Zero(storeKey)

	aead, err := chacha20poly1305.NewX(storeKey)
	if err != nil {
		return nil, err
	}
	nonce, err := cr.RandomBytes(aead.NonceSize())
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(material)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, material, []byte("key-wrap:"+keyID)), nil
}

// unwrapMaterial reverses wrapMaterial.
func unwrapMaterial(deviceSecret, sealed, wrapSalt []byte, keyID string) ([]byte, error) {
	storeKey, err := deriveStoreKey(deviceSecret, wrapSalt)
	if err != nil {
		return nil, err
	}
	defer cr.Zero(storeKey)

	aead, err := chacha20poly1305.NewX(storeKey)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("sealed key material too short")
	}
	nonce := sealed[:aead.NonceSize()]
	box := sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, box, []byte("key-wrap:"+keyID))
}

// DeviceSecretSize is the length of the device secret backing record
// wrapping.
const DeviceSecretSize = 32

// LoadOrCreateDeviceSecret reads the device secret file, creating it with a
// fresh random secret on first use. The write goes through a temp file so a
// crash never leaves a truncated secret behind.
func LoadOrCreateDeviceSecret(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err == nil {
		if len(b) != DeviceSecretSize {
			return nil, errors.New("device secret file has wrong length")
		}
		return b, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	secret, err := cr.RandomBytes(DeviceSecretSize)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, secret, 0o600); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}
	return secret, nil
}
