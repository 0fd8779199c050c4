package crypto

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures into the stable set callers switch on.
type Kind string

const (
	KindKeyGenerationFailed  Kind = "KEY_GENERATION_FAILED"
	KindEncryptionFailed     Kind = "ENCRYPTION_FAILED"
	KindDecryptionFailed     Kind = "DECRYPTION_FAILED"
	KindWrongPIN             Kind = "WRONG_PIN"
	KindCorruptData          Kind = "CORRUPT_DATA"
	KindInvalidVersion       Kind = "INVALID_VERSION"
	KindAuthenticationFailed Kind = "AUTHENTICATION_FAILED"
	KindKeyNotFound          Kind = "KEY_NOT_FOUND"
	KindStorageError         Kind = "STORAGE_ERROR"
	KindInvalidBlob          Kind = "INVALID_BLOB"
	KindExportFailed         Kind = "EXPORT_FAILED"
	KindImportFailed         Kind = "IMPORT_FAILED"
	KindMaxAttemptsExceeded  Kind = "MAX_ATTEMPTS_EXCEEDED"
)

// Error tags a failure with a stable kind and keeps the original cause for
// diagnostics.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind at the boundary that observed the failure. An
// already-tagged error passes through unchanged so higher layers never remap
// a lower layer's kind.
func E(op string, kind Kind, err error) error {
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is E with a formatted cause.
func Errorf(op string, kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the tag carried by err, or "" when err is untagged.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return ""
}

// IsKind reports whether err carries the given tag.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }
