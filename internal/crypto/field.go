package crypto

// EncryptedField is the narrower payload shape used for single sensitive
// record attributes. No salt is embedded: the caller is expected to already
// hold the right key.
type EncryptedField struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Tag        string `json:"tag"`
	Version    int    `json:"version"`
}

// Validate checks the field shape and version gate before cipher work.
func (f *EncryptedField) Validate() error {
	const op = "crypto.EncryptedField.Validate"
	if f == nil {
		return Errorf(op, KindCorruptData, "nil field")
	}
	if f.Version > PayloadVersion {
		return Errorf(op, KindInvalidVersion, "field version %d exceeds supported %d", f.Version, PayloadVersion)
	}
	if f.Version <= 0 {
		return Errorf(op, KindCorruptData, "missing field version")
	}
	if f.Ciphertext == "" || f.IV == "" || f.Tag == "" {
		return Errorf(op, KindCorruptData, "missing ciphertext, iv or tag")
	}
	return nil
}

// EncryptField encrypts a single attribute value.
func EncryptField(value string, key *MasterKey) (*EncryptedField, error) {
	const op = "crypto.EncryptField"
	ct, iv, tag, err := seal(key, []byte(value), op)
	if err != nil {
		return nil, err
	}
	return &EncryptedField{
		Ciphertext: ct,
		IV:         iv,
		Tag:        tag,
		Version:    PayloadVersion,
	}, nil
}

// DecryptField recovers the attribute value.
func DecryptField(f *EncryptedField, key *MasterKey) (string, error) {
	const op = "crypto.DecryptField"
	if err := f.Validate(); err != nil {
		return "", err
	}
	p := &EncryptedPayload{Ciphertext: f.Ciphertext, IV: f.IV, Tag: f.Tag, Algorithm: AlgorithmID, Version: f.Version}
	ct, iv, tag, err := p.decode()
	if err != nil {
		return "", err
	}
	pt, err := open(key, ct, iv, tag, op)
	if err != nil {
		return "", err
	}
	value := string(pt)
	Zero(pt)
	return value, nil
}
