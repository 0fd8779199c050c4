package session

import (
	"testing"
	"time"

	cr "github.com/subramanyaSgb/FInVault-sub001/internal/crypto"
	"github.com/subramanyaSgb/FInVault-sub001/internal/keystore"
	"github.com/subramanyaSgb/FInVault-sub001/internal/storage"
)

func testKeystore(t *testing.T) *keystore.Manager {
	t.Helper()
	secret := make([]byte, keystore.DeviceSecretSize)
	for i := range secret {
		secret[i] = byte(i * 7)
	}
	keys, err := keystore.NewManager(storage.NewMemoryStore(), storage.NewMemoryStore(), secret)
	if err != nil {
		t.Fatalf("keystore.NewManager error: %v", err)
	}
	return keys
}

func TestInitializeAndVerifyPIN(t *testing.T) {
	m := NewManager(testKeystore(t))

	keyID, key, err := m.InitializeCryptoSession("1234")
	if err != nil {
		t.Fatalf("InitializeCryptoSession error: %v", err)
	}
	defer key.Destroy()
	if keyID == "" {
		t.Fatalf("empty key id")
	}

	got, err := m.VerifyPINAndGetKey("1234", keyID, nil)
	if err != nil {
		t.Fatalf("VerifyPINAndGetKey error: %v", err)
	}
	defer got.Destroy()
	if !got.Equal(key) {
		t.Fatalf("verified key differs from initialized key")
	}
}

func TestVerifyPINWrongPIN(t *testing.T) {
	m := NewManager(testKeystore(t))
	keyID, key, err := m.InitializeCryptoSession("1234")
	if err != nil {
		t.Fatalf("InitializeCryptoSession error: %v", err)
	}
	key.Destroy()

	if _, err := m.VerifyPINAndGetKey("9999", keyID, nil); !cr.IsKind(err, cr.KindWrongPIN) {
		t.Fatalf("got %v, want WRONG_PIN", err)
	}
	if _, err := m.VerifyPINAndGetKey("", keyID, nil); !cr.IsKind(err, cr.KindWrongPIN) {
		t.Fatalf("got %v for empty pin, want WRONG_PIN", err)
	}
}

func TestVerifyPINUnknownKeyNoSalt(t *testing.T) {
	m := NewManager(testKeystore(t))
	if _, err := m.VerifyPINAndGetKey("1234", "ghost", nil); !cr.IsKind(err, cr.KindWrongPIN) {
		t.Fatalf("got %v, want WRONG_PIN", err)
	}
}

func TestVerifyPINProfileSaltFallback(t *testing.T) {
	keys := testKeystore(t)
	m := NewManager(keys)

	keyID, orig, err := m.InitializeCryptoSession("1234")
	if err != nil {
		t.Fatalf("InitializeCryptoSession error: %v", err)
	}
	salt := orig.Salt()
	orig.Destroy()

	// Simulate a wiped key store, as after reinstall.
	if err := keys.ClearAll(); err != nil {
		t.Fatalf("ClearAll error: %v", err)
	}

	got, err := m.VerifyPINAndGetKey("1234", keyID, salt)
	if err != nil {
		t.Fatalf("VerifyPINAndGetKey with profile salt error: %v", err)
	}
	defer got.Destroy()

	// The re-derived key must match a fresh derivation from the same inputs.
	want, err := cr.DeriveMasterKey("1234", salt, 0)
	if err != nil {
		t.Fatalf("DeriveMasterKey error: %v", err)
	}
	defer want.Destroy()
	if !got.Equal(want) {
		t.Fatalf("fallback key does not match derivation from profile salt")
	}

	// And it is stored again for the next verification.
	again, err := m.VerifyPINAndGetKey("1234", keyID, nil)
	if err != nil {
		t.Fatalf("second VerifyPINAndGetKey error: %v", err)
	}
	again.Destroy()
}

func TestVerifyPINAttemptsExceeded(t *testing.T) {
	m := NewManagerWithLimits(testKeystore(t), 3, time.Hour)
	keyID, key, err := m.InitializeCryptoSession("1234")
	if err != nil {
		t.Fatalf("InitializeCryptoSession error: %v", err)
	}
	key.Destroy()

	for i := 0; i < 3; i++ {
		if _, err := m.VerifyPINAndGetKey("0000", keyID, nil); !cr.IsKind(err, cr.KindWrongPIN) {
			t.Fatalf("attempt %d: got %v, want WRONG_PIN", i+1, err)
		}
	}
	if _, err := m.VerifyPINAndGetKey("1234", keyID, nil); !cr.IsKind(err, cr.KindMaxAttemptsExceeded) {
		t.Fatalf("got %v, want MAX_ATTEMPTS_EXCEEDED", err)
	}

	// The limiter is scoped per key id.
	otherID, otherKey, err := m.InitializeCryptoSession("5678")
	if err != nil {
		t.Fatalf("InitializeCryptoSession error: %v", err)
	}
	otherKey.Destroy()
	got, err := m.VerifyPINAndGetKey("5678", otherID, nil)
	if err != nil {
		t.Fatalf("other key id locked out too: %v", err)
	}
	got.Destroy()
}

func TestVerifyPINSuccessResetsAttempts(t *testing.T) {
	m := NewManagerWithLimits(testKeystore(t), 3, time.Hour)
	keyID, key, err := m.InitializeCryptoSession("1234")
	if err != nil {
		t.Fatalf("InitializeCryptoSession error: %v", err)
	}
	key.Destroy()

	for i := 0; i < 2; i++ {
		if _, err := m.VerifyPINAndGetKey("0000", keyID, nil); !cr.IsKind(err, cr.KindWrongPIN) {
			t.Fatalf("got %v, want WRONG_PIN", err)
		}
	}
	got, err := m.VerifyPINAndGetKey("1234", keyID, nil)
	if err != nil {
		t.Fatalf("VerifyPINAndGetKey error: %v", err)
	}
	got.Destroy()

	// The budget is full again after success.
	for i := 0; i < 2; i++ {
		if _, err := m.VerifyPINAndGetKey("0000", keyID, nil); !cr.IsKind(err, cr.KindWrongPIN) {
			t.Fatalf("after reset, attempt %d: got %v, want WRONG_PIN", i+1, err)
		}
	}
}

func TestChangePIN(t *testing.T) {
	m := NewManager(testKeystore(t))
	keyID, oldKey, err := m.InitializeCryptoSession("1234")
	if err != nil {
		t.Fatalf("InitializeCryptoSession error: %v", err)
	}

	payload, err := cr.EncryptData([]byte("existing data"), oldKey)
	if err != nil {
		t.Fatalf("EncryptData error: %v", err)
	}

	newKey, err := m.ChangePIN("1234", "5678", keyID, nil)
	if err != nil {
		t.Fatalf("ChangePIN error: %v", err)
	}
	defer newKey.Destroy()
	if newKey.Equal(oldKey) {
		t.Fatalf("new key equals old key")
	}

	// Old PIN no longer verifies, new one does.
	if _, err := m.VerifyPINAndGetKey("1234", keyID, nil); !cr.IsKind(err, cr.KindWrongPIN) {
		t.Fatalf("got %v, want WRONG_PIN for retired pin", err)
	}
	got, err := m.VerifyPINAndGetKey("5678", keyID, nil)
	if err != nil {
		t.Fatalf("VerifyPINAndGetKey with new pin error: %v", err)
	}
	got.Destroy()

	// Existing data rotates via ReEncryptData.
	rotated, err := m.ReEncryptData(payload, oldKey, newKey)
	if err != nil {
		t.Fatalf("ReEncryptData error: %v", err)
	}
	pt, err := cr.DecryptData(rotated, newKey)
	if err != nil {
		t.Fatalf("DecryptData under new key error: %v", err)
	}
	if string(pt) != "existing data" {
		t.Fatalf("rotation lost data: %q", pt)
	}
	if _, err := cr.DecryptData(rotated, oldKey); !cr.IsKind(err, cr.KindDecryptionFailed) {
		t.Fatalf("rotated payload still decrypts under old key")
	}
	oldKey.Destroy()
}

func TestChangePINWrongOldPIN(t *testing.T) {
	m := NewManager(testKeystore(t))
	keyID, key, err := m.InitializeCryptoSession("1234")
	if err != nil {
		t.Fatalf("InitializeCryptoSession error: %v", err)
	}
	key.Destroy()

	if _, err := m.ChangePIN("0000", "5678", keyID, nil); !cr.IsKind(err, cr.KindWrongPIN) {
		t.Fatalf("got %v, want WRONG_PIN", err)
	}
}

func TestLogoutKeepsPersistentKey(t *testing.T) {
	keys := testKeystore(t)
	m := NewManager(keys)
	keyID, key, err := m.InitializeCryptoSession("1234")
	if err != nil {
		t.Fatalf("InitializeCryptoSession error: %v", err)
	}
	key.Destroy()

	if err := m.Logout(); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	// The persistent record still backs PIN verification.
	got, err := m.VerifyPINAndGetKey("1234", keyID, nil)
	if err != nil {
		t.Fatalf("VerifyPINAndGetKey after logout error: %v", err)
	}
	got.Destroy()
}
