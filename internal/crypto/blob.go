package crypto

import "time"

// Blob is a decrypted binary attachment together with the identity it
// should reconstruct with.
type Blob struct {
	Data     []byte
	MIMEType string
	Name     string
}

// EncryptedBlob carries an encrypted attachment plus the metadata needed to
// reconstitute it: original MIME type, filename and plaintext size.
type EncryptedBlob struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Tag        string `json:"tag"`
	Salt       string `json:"salt,omitempty"`
	MIMEType   string `json:"mimeType"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Version    int    `json:"version"`
	CreatedAt  int64  `json:"createdAt"`
}

func (b *EncryptedBlob) validate() error {
	const op = "crypto.EncryptedBlob.validate"
	if b == nil {
		return Errorf(op, KindInvalidBlob, "nil blob")
	}
	if b.Version > PayloadVersion {
		return Errorf(op, KindInvalidVersion, "blob version %d exceeds supported %d", b.Version, PayloadVersion)
	}
	if b.Version <= 0 {
		return Errorf(op, KindInvalidBlob, "missing blob version")
	}
	if b.Ciphertext == "" || b.IV == "" || b.Tag == "" {
		return Errorf(op, KindInvalidBlob, "missing ciphertext, iv or tag")
	}
	if b.Size < 0 {
		return Errorf(op, KindInvalidBlob, "negative size")
	}
	return nil
}

// EncryptBlob encrypts a whole attachment under key. The key's salt rides
// along so a blob can be recovered from the password alone.
func EncryptBlob(blob Blob, key *MasterKey) (*EncryptedBlob, error) {
	const op = "crypto.EncryptBlob"
	if blob.Data == nil {
		return nil, Errorf(op, KindInvalidBlob, "blob has no data")
	}
	ct, iv, tag, err := seal(key, blob.Data, op)
	if err != nil {
		return nil, err
	}
	out := &EncryptedBlob{
		Ciphertext: ct,
		IV:         iv,
		Tag:        tag,
		MIMEType:   blob.MIMEType,
		Name:       blob.Name,
		Size:       int64(len(blob.Data)),
		Version:    PayloadVersion,
		CreatedAt:  time.Now().Unix(),
	}
	if len(key.salt) > 0 {
		out.Salt = b64(key.salt)
	}
	return out, nil
}

// DecryptBlob verifies and decrypts an attachment, restoring its original
// identity. A plaintext whose length disagrees with the recorded size is
// treated as a corrupt blob envelope.
func DecryptBlob(b *EncryptedBlob, key *MasterKey) (Blob, error) {
	const op = "crypto.DecryptBlob"
	if err := b.validate(); err != nil {
		return Blob{}, err
	}
	p := &EncryptedPayload{Ciphertext: b.Ciphertext, IV: b.IV, Tag: b.Tag, Algorithm: AlgorithmID, Version: b.Version}
	ct, iv, tag, err := p.decode()
	if err != nil {
		return Blob{}, err
	}
	pt, err := open(key, ct, iv, tag, op)
	if err != nil {
		return Blob{}, err
	}
	if int64(len(pt)) != b.Size {
		Zero(pt)
		return Blob{}, Errorf(op, KindInvalidBlob, "decrypted size %d does not match recorded size %d", len(pt), b.Size)
	}
	return Blob{Data: pt, MIMEType: b.MIMEType, Name: b.Name}, nil
}
