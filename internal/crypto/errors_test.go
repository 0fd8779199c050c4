package crypto

import (
	"errors"
	"testing"
)

func TestENeverRemapsTaggedErrors(t *testing.T) {
	inner := Errorf("crypto.open", KindDecryptionFailed, "tag mismatch")
	outer := E("backup.DecryptForImport", KindImportFailed, inner)
	if KindOf(outer) != KindDecryptionFailed {
		t.Fatalf("kind = %q, want DECRYPTION_FAILED preserved", KindOf(outer))
	}
}

func TestETagsPlainErrors(t *testing.T) {
	err := E("storage.Get", KindStorageError, errors.New("disk full"))
	if !IsKind(err, KindStorageError) {
		t.Fatalf("got %v, want STORAGE_ERROR", err)
	}
	if !errors.Is(err, err) {
		t.Fatalf("error identity broken")
	}
}

func TestKindOfUntagged(t *testing.T) {
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("untagged error should have empty kind")
	}
}
