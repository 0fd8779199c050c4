package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"time"
)

func gcmFor(key *MasterKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal encrypts plaintext under key with a fresh random IV and returns the
// base64 ciphertext, IV and tag separately. Every encryption in the engine
// goes through here so the one-cipher discipline holds everywhere.
func seal(key *MasterKey, plaintext []byte, op string) (ct, iv, tag string, err error) {
	if key == nil || key.key == nil {
		return "", "", "", Errorf(op, KindEncryptionFailed, "destroyed or missing key")
	}
	aead, err := gcmFor(key)
	if err != nil {
		return "", "", "", E(op, KindEncryptionFailed, err)
	}
	nonce, err := RandomBytes(aead.NonceSize())
	if err != nil {
		return "", "", "", E(op, KindEncryptionFailed, err)
	}
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	body, mac := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]
	return b64(body), b64(nonce), b64(mac), nil
}

// open reassembles ciphertext and tag and runs the verify-then-decrypt step.
// Any tag or key mismatch surfaces as DECRYPTION_FAILED with no partial
// plaintext.
func open(key *MasterKey, ct, iv, tag []byte, op string) ([]byte, error) {
	if key == nil || key.key == nil {
		return nil, Errorf(op, KindDecryptionFailed, "destroyed or missing key")
	}
	aead, err := gcmFor(key)
	if err != nil {
		return nil, E(op, KindDecryptionFailed, err)
	}
	sealed := make([]byte, 0, len(ct)+len(tag))
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)
	pt, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, E(op, KindDecryptionFailed, err)
	}
	return pt, nil
}

// EncryptData encrypts a byte payload and embeds the key's salt so the
// result can later be decrypted from the password alone.
func EncryptData(plaintext []byte, key *MasterKey) (*EncryptedPayload, error) {
	const op = "crypto.EncryptData"
	ct, iv, tag, err := seal(key, plaintext, op)
	if err != nil {
		return nil, err
	}
	p := &EncryptedPayload{
		Ciphertext: ct,
		IV:         iv,
		Tag:        tag,
		Algorithm:  AlgorithmID,
		Version:    PayloadVersion,
		CreatedAt:  time.Now().Unix(),
	}
	if len(key.salt) > 0 {
		p.Salt = b64(key.salt)
	}
	return p, nil
}

// DecryptData validates the payload shape, gates on version, then verifies
// and decrypts.
func DecryptData(p *EncryptedPayload, key *MasterKey) ([]byte, error) {
	const op = "crypto.DecryptData"
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ct, iv, tag, err := p.decode()
	if err != nil {
		return nil, err
	}
	return open(key, ct, iv, tag, op)
}

// DecryptWithPassword re-derives the key from the payload's embedded salt
// before decrypting. The iteration count is fixed per payload version.
func DecryptWithPassword(p *EncryptedPayload, password string) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	salt, err := p.EmbeddedSalt()
	if err != nil {
		return nil, err
	}
	key, err := DeriveMasterKey(password, salt, DefaultIterations)
	if err != nil {
		return nil, err
	}
	defer key.Destroy()
	return DecryptData(p, key)
}
