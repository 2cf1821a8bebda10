package donation

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// PersonName is a full name split into first and last.
// Last is empty when the input had a single token.
type PersonName struct {
	First string
	Last  string
}

// HasLast reports whether a last name was present.
func (n PersonName) HasLast() bool { return n.Last != "" }

// ParseFullName splits on whitespace: the first token is the first name and
// the remaining tokens, joined by a single space, form the last name.
func ParseFullName(full string) PersonName {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return PersonName{}
	case 1:
		return PersonName{First: parts[0]}
	}
	return PersonName{First: parts[0], Last: strings.Join(parts[1:], " ")}
}

// DonorIdentity is what a provider tells us about the payer.
type DonorIdentity struct {
	Name  string
	Email string
}

// Normalize trims both fields.
func (d DonorIdentity) Normalize() DonorIdentity {
	return DonorIdentity{Name: strings.TrimSpace(d.Name), Email: strings.TrimSpace(d.Email)}
}

// IsComplete reports whether both fields are known.
func (d DonorIdentity) IsComplete() bool {
	return d.Name != "" && d.Email != ""
}

// fillFrom keeps existing values and takes the missing ones from other.
func (d DonorIdentity) fillFrom(other DonorIdentity) DonorIdentity {
	other = other.Normalize()
	if d.Name == "" {
		d.Name = other.Name
	}
	if d.Email == "" {
		d.Email = other.Email
	}
	return d
}

// Supporter converts the identity into a supporter record.
func (d DonorIdentity) Supporter() Supporter {
	return SupporterFromName(d.Name, d.Email)
}

// IdentitySource is one step of the donor identity fallback chain.
// Lookup is only invoked while a field is still missing, so live provider
// calls are skipped once earlier sources answered.
type IdentitySource struct {
	Name   string
	Lookup func(ctx context.Context) (DonorIdentity, error)
}

// StaticIdentity wraps already-known values as a source.
func StaticIdentity(name string, identity DonorIdentity) IdentitySource {
	return IdentitySource{
		Name: name,
		Lookup: func(context.Context) (DonorIdentity, error) {
			return identity, nil
		},
	}
}

// ResolveIdentity walks the sources in order. Name and email are resolved
// independently: the first non-empty value for each field wins. Lookup
// failures do not stop the walk; they are joined into the returned error
// alongside the best identity found.
func ResolveIdentity(ctx context.Context, sources ...IdentitySource) (DonorIdentity, error) {
	var (
		resolved DonorIdentity
		errs     []error
	)
	for _, src := range sources {
		if resolved.IsComplete() {
			break
		}
		if src.Lookup == nil {
			continue
		}
		found, err := src.Lookup(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}
		resolved = resolved.fillFrom(found)
	}
	return resolved, errors.Join(errs...)
}
