// Package backup serializes a profile's data set into a password-protected,
// integrity-checked export and reverses the process on import.
package backup

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	cr "github.com/subramanyaSgb/FInVault-sub001/internal/crypto"
)

// ExportVersion is the current backup format version. Imports refuse
// anything newer before attempting decryption.
const ExportVersion = 1

// Metadata describes an export for integrity checks and bookkeeping.
type Metadata struct {
	ProfileID    string         `json:"profileId"`
	RecordCounts map[string]int `json:"recordCounts"`
	Checksum     string         `json:"checksum"`
}

// EncryptedExport is the backup file body: textual, versioned and
// pretty-printable.
type EncryptedExport struct {
	Version       int                  `json:"version"`
	ExportDate    time.Time            `json:"exportDate"`
	EncryptedData *cr.EncryptedPayload `json:"encryptedData"`
	Metadata      Metadata             `json:"metadata"`
}

// EncryptForExport serializes data to canonical JSON, encrypts it under a
// key freshly derived from password (new random salt, embedded in the
// payload), and bundles the plaintext checksum and per-collection record
// counts.
func EncryptForExport(data any, password, profileID string) (*EncryptedExport, error) {
	const op = "backup.EncryptForExport"
	if password == "" {
		return nil, cr.Errorf(op, cr.KindExportFailed, "empty password")
	}
	plaintext, err := json.Marshal(data)
	if err != nil {
		return nil, cr.E(op, cr.KindExportFailed, err)
	}
	defer cr.Zero(plaintext)

	key, err := cr.DeriveMasterKey(password, nil, 0)
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	payload, err := cr.EncryptData(plaintext, key)
	if err != nil {
		return nil, err
	}

	counts := countRecords(plaintext)
	exp := &EncryptedExport{
		Version:       ExportVersion,
		ExportDate:    time.Now().UTC(),
		EncryptedData: payload,
		Metadata: Metadata{
			ProfileID:    profileID,
			RecordCounts: counts,
			Checksum:     cr.Checksum(plaintext),
		},
	}
	log.Info().Str("profile_id", profileID).Int("collections", len(counts)).Msg("profile data encrypted for export")
	return exp, nil
}

// DecryptForImport gates on version, re-derives the key from the embedded
// salt, decrypts, recomputes the checksum over the decrypted plaintext and
// compares it against the stored one. A mismatch is a hard integrity
// failure: out is left untouched.
func DecryptForImport(export *EncryptedExport, password string, out any) error {
	const op = "backup.DecryptForImport"
	if export == nil || export.EncryptedData == nil {
		return cr.Errorf(op, cr.KindCorruptData, "missing encrypted data")
	}
	if export.Version > ExportVersion {
		return cr.Errorf(op, cr.KindInvalidVersion, "export version %d exceeds supported %d", export.Version, ExportVersion)
	}
	if export.Version <= 0 {
		return cr.Errorf(op, cr.KindCorruptData, "missing export version")
	}
	if export.Metadata.Checksum == "" {
		return cr.Errorf(op, cr.KindCorruptData, "missing checksum")
	}

	plaintext, err := cr.DecryptWithPassword(export.EncryptedData, password)
	if err != nil {
		return err
	}
	defer cr.Zero(plaintext)

	if cr.Checksum(plaintext) != export.Metadata.Checksum {
		return cr.Errorf(op, cr.KindCorruptData, "checksum mismatch on decrypted data")
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return cr.E(op, cr.KindImportFailed, err)
	}
	log.Info().Str("profile_id", export.Metadata.ProfileID).Msg("profile data imported")
	return nil
}

// countRecords counts entries per top-level collection. Non-array members
// count as a single record; a non-object top level yields no counts.
func countRecords(plaintext []byte) map[string]int {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(plaintext, &top); err != nil {
		return map[string]int{}
	}
	counts := make(map[string]int, len(top))
	for name, raw := range top {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err == nil {
			counts[name] = len(arr)
			continue
		}
		counts[name] = 1
	}
	return counts
}

// WriteFile writes an export as pretty-printed JSON, readable only by the
// owner.
func WriteFile(path string, export *EncryptedExport) error {
	const op = "backup.WriteFile"
	b, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return cr.E(op, cr.KindExportFailed, err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return cr.E(op, cr.KindExportFailed, err)
	}
	return nil
}

// ReadFile loads an export file written by WriteFile.
func ReadFile(path string) (*EncryptedExport, error) {
	const op = "backup.ReadFile"
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, cr.E(op, cr.KindImportFailed, err)
	}
	var export EncryptedExport
	if err := json.Unmarshal(b, &export); err != nil {
		return nil, cr.E(op, cr.KindCorruptData, err)
	}
	return &export, nil
}
