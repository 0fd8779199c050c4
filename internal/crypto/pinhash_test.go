package crypto

import "testing"

func TestHashAndVerifyPIN(t *testing.T) {
	hash, err := HashPIN("1234", DefaultArgon2id)
	if err != nil {
		t.Fatalf("HashPIN error: %v", err)
	}
	ok, err := VerifyPINHash("1234", hash)
	if err != nil {
		t.Fatalf("VerifyPINHash error: %v", err)
	}
	if !ok {
		t.Fatalf("expected verification to succeed")
	}

	ok, err = VerifyPINHash("9999", hash)
	if err != nil {
		t.Fatalf("VerifyPINHash error: %v", err)
	}
	if ok {
		t.Fatalf("wrong PIN verified")
	}
}

func TestVerifyPINHashRejectsMalformed(t *testing.T) {
	if _, err := VerifyPINHash("1234", "not-a-hash"); err == nil {
		t.Fatalf("expected error for malformed hash")
	}
}
