package settings

import (
	"fmt"
	"regexp"
	"sort"
)

var keyPattern = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)*$`)

// Definition describes one settings key.
type Definition struct {
	Key             string
	Description     string
	EncryptedFields []string
}

// Registry is the set of known settings keys and their secret fields. It
// is built once at startup and read-only afterwards.
type Registry struct {
	defs   map[string]Definition
	strict bool
}

// NewRegistry validates defs. Keys must be dotted lowercase identifiers and
// unique; encrypted field names must be non-empty and unique per key.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if !keyPattern.MatchString(d.Key) {
			return nil, fmt.Errorf("invalid settings key %q", d.Key)
		}
		if _, dup := r.defs[d.Key]; dup {
			return nil, fmt.Errorf("settings key %q registered twice", d.Key)
		}
		seen := make(map[string]bool, len(d.EncryptedFields))
		for _, f := range d.EncryptedFields {
			if f == "" {
				return nil, fmt.Errorf("settings key %q has an empty encrypted field", d.Key)
			}
			if seen[f] {
				return nil, fmt.Errorf("settings key %q lists encrypted field %q twice", d.Key, f)
			}
			seen[f] = true
		}
		d.EncryptedFields = append([]string(nil), d.EncryptedFields...)
		r.defs[d.Key] = d
	}
	return r, nil
}

// MustRegistry is NewRegistry for static definitions.
func MustRegistry(defs ...Definition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Strict returns a copy of r that rejects unregistered keys.
func (r *Registry) Strict(strict bool) *Registry {
	cp := *r
	cp.strict = strict
	return &cp
}

// Check validates key against the registry.
func (r *Registry) Check(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q is not a valid key", ErrUnknownKey, key)
	}
	if _, ok := r.defs[key]; !ok && r.strict {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}

func (r *Registry) Lookup(key string) (Definition, bool) {
	d, ok := r.defs[key]
	return d, ok
}

// EncryptedFields returns the secret fields of key; nil for unknown keys.
func (r *Registry) EncryptedFields(key string) []string {
	return r.defs[key].EncryptedFields
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.defs))
	for k := range r.defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Standard settings keys.
const (
	KeySystemEmail    = "system.email"
	KeySystemSMS      = "system.sms"
	KeyPaymentGateway = "payment.gateway"
	KeyFinancialFees  = "financial.fees"
	KeyAcademicYear   = "academic.calendar"
	KeySchoolProfile  = "school.profile"
)

// DefaultRegistry returns the settings keys every deployment ships with.
func DefaultRegistry() *Registry {
	return MustRegistry(
		Definition{
			Key:             KeySystemEmail,
			Description:     "Outgoing mail transport",
			EncryptedFields: []string{"smtp_password", "ses_secret"},
		},
		Definition{
			Key:             KeySystemSMS,
			Description:     "SMS provider credentials",
			EncryptedFields: []string{"api_key", "auth_token"},
		},
		Definition{
			Key:             KeyPaymentGateway,
			Description:     "Online fee payment gateway",
			EncryptedFields: []string{"secret_key", "webhook_secret"},
		},
		Definition{
			Key:         KeyFinancialFees,
			Description: "Fee policy: currency, late fines, instalments",
		},
		Definition{
			Key:         KeyAcademicYear,
			Description: "Academic year and term boundaries",
		},
		Definition{
			Key:         KeySchoolProfile,
			Description: "School name, logo and contact details",
		},
	)
}
