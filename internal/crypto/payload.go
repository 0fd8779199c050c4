package crypto

const (
	// AlgorithmID is the single cipher this engine produces and accepts.
	AlgorithmID = "AES-256-GCM"

	// PayloadVersion is the current payload format version. Decryption
	// fails closed on anything newer.
	PayloadVersion = 1

	ivSize  = 12
	tagSize = 16
)

// EncryptedPayload is the stable, JSON-serializable shape handed to the
// storage layer. Ciphertext, IV and tag are base64 encoded; the salt is
// present only when the payload should be decryptable from a password alone.
type EncryptedPayload struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Tag        string `json:"tag"`
	Salt       string `json:"salt,omitempty"`
	Algorithm  string `json:"algorithm"`
	Version    int    `json:"version"`
	CreatedAt  int64  `json:"createdAt"`
}

// Validate checks the payload shape before any cipher work, so a malformed
// or future-versioned payload is rejected without touching the key.
func (p *EncryptedPayload) Validate() error {
	const op = "crypto.EncryptedPayload.Validate"
	if p == nil {
		return Errorf(op, KindCorruptData, "nil payload")
	}
	if p.Version > PayloadVersion {
		return Errorf(op, KindInvalidVersion, "payload version %d exceeds supported %d", p.Version, PayloadVersion)
	}
	if p.Version <= 0 {
		return Errorf(op, KindCorruptData, "missing payload version")
	}
	if p.Algorithm != AlgorithmID {
		return Errorf(op, KindCorruptData, "unknown algorithm %q", p.Algorithm)
	}
	if p.Ciphertext == "" || p.IV == "" || p.Tag == "" {
		return Errorf(op, KindCorruptData, "missing ciphertext, iv or tag")
	}
	return nil
}

func (p *EncryptedPayload) decode() (ct, iv, tag []byte, err error) {
	const op = "crypto.EncryptedPayload.decode"
	if ct, err = unb64(p.Ciphertext); err != nil {
		return nil, nil, nil, E(op, KindCorruptData, err)
	}
	if iv, err = unb64(p.IV); err != nil {
		return nil, nil, nil, E(op, KindCorruptData, err)
	}
	if tag, err = unb64(p.Tag); err != nil {
		return nil, nil, nil, E(op, KindCorruptData, err)
	}
	if len(iv) != ivSize {
		return nil, nil, nil, Errorf(op, KindCorruptData, "iv must be %d bytes, got %d", ivSize, len(iv))
	}
	if len(tag) != tagSize {
		return nil, nil, nil, Errorf(op, KindCorruptData, "tag must be %d bytes, got %d", tagSize, len(tag))
	}
	return ct, iv, tag, nil
}

// EmbeddedSalt returns the decoded salt, or an error when the payload
// carries none.
func (p *EncryptedPayload) EmbeddedSalt() ([]byte, error) {
	const op = "crypto.EncryptedPayload.EmbeddedSalt"
	if p.Salt == "" {
		return nil, Errorf(op, KindCorruptData, "payload has no embedded salt")
	}
	salt, err := unb64(p.Salt)
	if err != nil {
		return nil, E(op, KindCorruptData, err)
	}
	return salt, nil
}
