package backup

import (
	"os"
	"path/filepath"
	"testing"

	cr "github.com/subramanyaSgb/FInVault-sub001/internal/crypto"
)

type profileData struct {
	Accounts  []map[string]any `json:"accounts"`
	Cards     []map[string]any `json:"cards"`
	Documents []map[string]any `json:"documents"`
}

func sampleData() profileData {
	return profileData{
		Accounts: []map[string]any{
			{"bankName": "First National", "accountNumber": "1234567890"},
			{"bankName": "Credit Union", "accountNumber": "0987654321"},
		},
		Cards: []map[string]any{
			{"cardNumber": "4111111111111111", "cvv": "123"},
		},
		Documents: []map[string]any{},
	}
}

func TestBackupRoundtrip(t *testing.T) {
	export, err := EncryptForExport(sampleData(), "backup-pass", "profile-1")
	if err != nil {
		t.Fatalf("EncryptForExport error: %v", err)
	}
	if export.Version != ExportVersion {
		t.Fatalf("version = %d, want %d", export.Version, ExportVersion)
	}
	if export.Metadata.ProfileID != "profile-1" {
		t.Fatalf("profile id = %q", export.Metadata.ProfileID)
	}
	if export.Metadata.RecordCounts["accounts"] != 2 ||
		export.Metadata.RecordCounts["cards"] != 1 ||
		export.Metadata.RecordCounts["documents"] != 0 {
		t.Fatalf("record counts = %v", export.Metadata.RecordCounts)
	}
	if export.EncryptedData.Salt == "" {
		t.Fatalf("export payload missing embedded salt")
	}

	var restored profileData
	if err := DecryptForImport(export, "backup-pass", &restored); err != nil {
		t.Fatalf("DecryptForImport error: %v", err)
	}
	if len(restored.Accounts) != 2 || restored.Accounts[0]["accountNumber"] != "1234567890" {
		t.Fatalf("restored data mismatch: %+v", restored)
	}
}

func TestImportWrongPassword(t *testing.T) {
	export, err := EncryptForExport(sampleData(), "backup-pass", "profile-1")
	if err != nil {
		t.Fatalf("EncryptForExport error: %v", err)
	}
	var restored profileData
	err = DecryptForImport(export, "wrong-pass", &restored)
	if !cr.IsKind(err, cr.KindDecryptionFailed) {
		t.Fatalf("got %v, want DECRYPTION_FAILED", err)
	}
	if len(restored.Accounts) != 0 {
		t.Fatalf("out was written on failure")
	}
}

func TestImportFutureVersion(t *testing.T) {
	export, err := EncryptForExport(sampleData(), "backup-pass", "profile-1")
	if err != nil {
		t.Fatalf("EncryptForExport error: %v", err)
	}
	export.Version = ExportVersion + 1
	var restored profileData
	if err := DecryptForImport(export, "backup-pass", &restored); !cr.IsKind(err, cr.KindInvalidVersion) {
		t.Fatalf("got %v, want INVALID_VERSION", err)
	}
}

func TestImportChecksumMismatch(t *testing.T) {
	export, err := EncryptForExport(sampleData(), "backup-pass", "profile-1")
	if err != nil {
		t.Fatalf("EncryptForExport error: %v", err)
	}
	export.Metadata.Checksum = cr.Checksum([]byte("something else"))
	var restored profileData
	if err := DecryptForImport(export, "backup-pass", &restored); !cr.IsKind(err, cr.KindCorruptData) {
		t.Fatalf("got %v, want CORRUPT_DATA", err)
	}
	if len(restored.Accounts) != 0 {
		t.Fatalf("out was written despite checksum mismatch")
	}
}

func TestImportMissingPieces(t *testing.T) {
	var restored profileData
	if err := DecryptForImport(nil, "pw", &restored); !cr.IsKind(err, cr.KindCorruptData) {
		t.Fatalf("nil export: got %v, want CORRUPT_DATA", err)
	}
	if err := DecryptForImport(&EncryptedExport{Version: 1}, "pw", &restored); !cr.IsKind(err, cr.KindCorruptData) {
		t.Fatalf("missing payload: got %v, want CORRUPT_DATA", err)
	}
}

func TestExportRejectsEmptyPassword(t *testing.T) {
	if _, err := EncryptForExport(sampleData(), "", "profile-1"); !cr.IsKind(err, cr.KindExportFailed) {
		t.Fatalf("got %v, want EXPORT_FAILED", err)
	}
}

func TestWriteReadFile(t *testing.T) {
	export, err := EncryptForExport(sampleData(), "backup-pass", "profile-1")
	if err != nil {
		t.Fatalf("EncryptForExport error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "backup.json")
	if err := WriteFile(path, export); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	loaded, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	var restored profileData
	if err := DecryptForImport(loaded, "backup-pass", &restored); err != nil {
		t.Fatalf("DecryptForImport after file roundtrip error: %v", err)
	}
	if len(restored.Cards) != 1 {
		t.Fatalf("restored data mismatch: %+v", restored)
	}
}

func TestReadFileGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("setup error: %v", err)
	}
	if _, err := ReadFile(path); !cr.IsKind(err, cr.KindCorruptData) {
		t.Fatalf("got %v, want CORRUPT_DATA", err)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); !cr.IsKind(err, cr.KindImportFailed) {
		t.Fatalf("got %v, want IMPORT_FAILED", err)
	}
}
