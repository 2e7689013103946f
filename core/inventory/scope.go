package inventory

import (
	"fmt"
	"strconv"
	"strings"
)

// ScopeKind is the type of entity owning a set of containers.
type ScopeKind string

const (
	ScopeCharacter   ScopeKind = "character"
	ScopeRetainer    ScopeKind = "retainer"
	ScopeFreeCompany ScopeKind = "free_company"
)

// IsValid checks if the scope kind is known.
func (k ScopeKind) IsValid() bool {
	switch k {
	case ScopeCharacter, ScopeRetainer, ScopeFreeCompany:
		return true
	default:
		return false
	}
}

// ScopeID identifies one owning entity, e.g. "retainer:33000000001".
type ScopeID struct {
	Kind  ScopeKind
	Owner uint64
}

// Character returns the scope id of a character.
func Character(owner uint64) ScopeID { return ScopeID{Kind: ScopeCharacter, Owner: owner} }

// Retainer returns the scope id of a retainer.
func Retainer(owner uint64) ScopeID { return ScopeID{Kind: ScopeRetainer, Owner: owner} }

// FreeCompany returns the scope id of a free company.
func FreeCompany(owner uint64) ScopeID { return ScopeID{Kind: ScopeFreeCompany, Owner: owner} }

func (s ScopeID) String() string {
	return string(s.Kind) + ":" + strconv.FormatUint(s.Owner, 10)
}

// ParseScopeID parses the "kind:owner" text form.
func ParseScopeID(raw string) (ScopeID, error) {
	kind, owner, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return ScopeID{}, fmt.Errorf("%w: %q", ErrUnknownScope, raw)
	}
	k := ScopeKind(kind)
	if !k.IsValid() {
		return ScopeID{}, fmt.Errorf("%w: kind %q", ErrUnknownScope, kind)
	}
	id, err := strconv.ParseUint(owner, 10, 64)
	if err != nil {
		return ScopeID{}, fmt.Errorf("%w: owner %q", ErrUnknownScope, owner)
	}
	return ScopeID{Kind: k, Owner: id}, nil
}

// MarshalText implements encoding.TextMarshaler so scopes can be map keys in JSON.
func (s ScopeID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ScopeID) UnmarshalText(b []byte) error {
	parsed, err := ParseScopeID(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SlotKey addresses one storage position.
type SlotKey struct {
	Scope     ScopeID       `json:"scope"`
	Container ContainerKind `json:"container"`
	Index     int           `json:"index"`
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s#%d", k.Scope, k.Container, k.Index)
}
