package biometric

import (
	"context"
	"errors"
	"testing"
)

func TestUnavailableStub(t *testing.T) {
	auth := New()
	if _, err := auth.Enroll(context.Background(), "profile-1", "fingerprint"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Enroll: got %v, want ErrUnavailable", err)
	}
	if err := auth.Verify(context.Background(), Credential{ID: "c1"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Verify: got %v, want ErrUnavailable", err)
	}
}
