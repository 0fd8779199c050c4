// Package fields applies the encryption core to named sensitive attributes
// of application records, and provides display masking for identifiers.
package fields

import (
	cr "github.com/subramanyaSgb/FInVault-sub001/internal/crypto"
)

// Name identifies a sensitive record attribute. The set below is closed:
// it is the sole authority for what the field codec touches.
type Name string

const (
	AccountNumber  Name = "accountNumber"
	CardNumber     Name = "cardNumber"
	CardCVV        Name = "cvv"
	IFSCCode       Name = "ifscCode"
	SwiftCode      Name = "swiftCode"
	IBAN           Name = "iban"
	RoutingNumber  Name = "routingNumber"
	PolicyNumber   Name = "policyNumber"
	DocumentNumber Name = "documentNumber"
	PasswordHash   Name = "passwordHash"
	BiometricData  Name = "biometricData"
	APIKey         Name = "apiKey"
)

var sensitive = map[Name]struct{}{
	AccountNumber:  {},
	CardNumber:     {},
	CardCVV:        {},
	IFSCCode:       {},
	SwiftCode:      {},
	IBAN:           {},
	RoutingNumber:  {},
	PolicyNumber:   {},
	DocumentNumber: {},
	PasswordHash:   {},
	BiometricData:  {},
	APIKey:         {},
}

// All returns every sensitive field name.
func All() []Name {
	return []Name{
		AccountNumber, CardNumber, CardCVV,
		IFSCCode, SwiftCode, IBAN, RoutingNumber,
		PolicyNumber, DocumentNumber,
		PasswordHash, BiometricData, APIKey,
	}
}

// IsSensitive reports whether name is on the closed allow-list.
func IsSensitive(name string) bool {
	_, ok := sensitive[Name(name)]
	return ok
}

// EncryptSensitiveFields returns a copy of record with the named sensitive
// fields replaced by their EncryptedField form. A nil names slice means the
// whole allow-list. Names not on the allow-list are ignored; fields that
// are absent or empty are left untouched rather than encrypted as empty
// strings.
func EncryptSensitiveFields(record map[string]any, names []string, key *cr.MasterKey) (map[string]any, error) {
	out := copyRecord(record)
	for _, name := range namesOrAll(names) {
		if !IsSensitive(name) {
			continue
		}
		raw, ok := out[name]
		if !ok {
			continue
		}
		value, ok := raw.(string)
		if !ok || value == "" {
			continue
		}
		enc, err := cr.EncryptField(value, key)
		if err != nil {
			return nil, err
		}
		out[name] = enc
	}
	return out, nil
}

// DecryptSensitiveFields is the inverse of EncryptSensitiveFields. Values
// may be live *EncryptedField objects or the map form the storage layer
// hands back after a JSON round trip.
func DecryptSensitiveFields(record map[string]any, names []string, key *cr.MasterKey) (map[string]any, error) {
	out := copyRecord(record)
	for _, name := range namesOrAll(names) {
		if !IsSensitive(name) {
			continue
		}
		raw, ok := out[name]
		if !ok {
			continue
		}
		enc, ok := coerceField(raw)
		if !ok {
			continue
		}
		value, err := cr.DecryptField(enc, key)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

func namesOrAll(names []string) []string {
	if names != nil {
		return names
	}
	all := All()
	out := make([]string, len(all))
	for i, n := range all {
		out[i] = string(n)
	}
	return out
}

func copyRecord(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}
	return out
}

func coerceField(v any) (*cr.EncryptedField, bool) {
	switch f := v.(type) {
	case *cr.EncryptedField:
		return f, true
	case cr.EncryptedField:
		return &f, true
	case map[string]any:
		enc := &cr.EncryptedField{}
		if s, ok := f["ciphertext"].(string); ok {
			enc.Ciphertext = s
		}
		if s, ok := f["iv"].(string); ok {
			enc.IV = s
		}
		if s, ok := f["tag"].(string); ok {
			enc.Tag = s
		}
		switch n := f["version"].(type) {
		case float64:
			enc.Version = int(n)
		case int:
			enc.Version = n
		}
		if enc.Ciphertext == "" || enc.IV == "" || enc.Tag == "" {
			return nil, false
		}
		return enc, true
	default:
		return nil, false
	}
}

const maskRune = '*'

// Mask replaces all but the trailing visible characters of value with the
// mask character. Display-only; never a substitute for encryption. A
// visible count <= 0 defaults to 4.
func Mask(value string, visible int) string {
	if visible <= 0 {
		visible = 4
	}
	runes := []rune(value)
	if len(runes) <= visible {
		return value
	}
	masked := make([]rune, len(runes))
	for i := range runes {
		if i < len(runes)-visible {
			masked[i] = maskRune
		} else {
			masked[i] = runes[i]
		}
	}
	return string(masked)
}
