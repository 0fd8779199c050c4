// Package biometric defines the contract for platform biometric unlock.
// Concrete implementations bind to OS authenticators via build tags; the
// default build ships the unavailable stub so callers always fall back to
// the PIN path.
package biometric

import (
	"context"
	"errors"
)

// ErrUnavailable reports that no biometric authenticator is present on
// this platform or build.
var ErrUnavailable = errors.New("biometric: authenticator unavailable")

// Credential identifies an enrolled biometric binding for a profile.
type Credential struct {
	ID        string `json:"id"`
	ProfileID string `json:"profileId"`
	Name      string `json:"name"`
}

// Authenticator enrolls and verifies platform biometric credentials.
type Authenticator interface {
	Enroll(ctx context.Context, profileID, name string) (Credential, error)
	Verify(ctx context.Context, cred Credential) error
}

// Unavailable is the no-platform stub. Every call fails with
// ErrUnavailable.
type Unavailable struct{}

func (Unavailable) Enroll(context.Context, string, string) (Credential, error) {
	return Credential{}, ErrUnavailable
}

func (Unavailable) Verify(context.Context, Credential) error { return ErrUnavailable }

func New() Authenticator { return Unavailable{} }
