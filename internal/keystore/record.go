package keystore

import (
	"github.com/fxamacker/cbor/v2"

	cr "github.com/subramanyaSgb/FInVault-sub001/internal/crypto"
)

// StoredKeyRecord is the persisted form of exported master key material.
// Material is sealed under a store key derived from the device secret; the
// KDF parameters ride alongside so the key can be re-imported or re-derived.
type StoredKeyRecord struct {
	Material   []byte `cbor:"material"` // sealed key bytes, nonce-prefixed
	WrapSalt   []byte `cbor:"wrapSalt"`
	Salt       []byte `cbor:"salt"`
	Iterations int    `cbor:"iterations"`
	Version    int    `cbor:"version"`
	CreatedAt  int64  `cbor:"createdAt"`
	ExpiresAt  int64  `cbor:"expiresAt,omitempty"` // zero for persistent records
}

func (r *StoredKeyRecord) encode() ([]byte, error) {
	return cbor.Marshal(r)
}

func decodeRecord(b []byte) (*StoredKeyRecord, error) {
	const op = "keystore.decodeRecord"
	var r StoredKeyRecord
	if err := cbor.Unmarshal(b, &r); err != nil {
		return nil, cr.E(op, cr.KindStorageError, err)
	}
	if len(r.Material) == 0 || len(r.WrapSalt) == 0 || len(r.Salt) == 0 {
		return nil, cr.Errorf(op, cr.KindStorageError, "incomplete key record")
	}
	if r.Version <= 0 || r.Version > cr.KeyFormatVersion {
		return nil, cr.Errorf(op, cr.KindStorageError, "unsupported key record version %d", r.Version)
	}
	return &r, nil
}
