package hydrate

import (
	"slices"

	"github.com/spf13/cast"
)

// Enum maps raw backing values onto enum members and back.
type Enum interface {
	Name() string
	// Lookup returns the member whose backing value equals raw.
	Lookup(raw any) (any, bool)
	// Backing returns the backing value of a member.
	Backing(member any) (any, bool)
}

// StringEnum builds a string-backed enum from its members.
func StringEnum[T ~string](name string, members ...T) Enum {
	return stringEnum[T]{name: name, members: members}
}

// IntEnum builds an int-backed enum from its members.
func IntEnum[T ~int](name string, members ...T) Enum {
	return intEnum[T]{name: name, members: members}
}

type stringEnum[T ~string] struct {
	name    string
	members []T
}

func (e stringEnum[T]) Name() string { return e.name }

func (e stringEnum[T]) Lookup(raw any) (any, bool) {
	if member, ok := raw.(T); ok && slices.Contains(e.members, member) {
		return member, true
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return nil, false
	}
	if slices.Contains(e.members, T(s)) {
		return T(s), true
	}
	return nil, false
}

func (e stringEnum[T]) Backing(member any) (any, bool) {
	m, ok := member.(T)
	if !ok {
		return nil, false
	}
	return string(m), true
}

type intEnum[T ~int] struct {
	name    string
	members []T
}

func (e intEnum[T]) Name() string { return e.name }

func (e intEnum[T]) Lookup(raw any) (any, bool) {
	if member, ok := raw.(T); ok && slices.Contains(e.members, member) {
		return member, true
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil || f != float64(int(f)) {
		return nil, false
	}
	if slices.Contains(e.members, T(int(f))) {
		return T(int(f)), true
	}
	return nil, false
}

func (e intEnum[T]) Backing(member any) (any, bool) {
	m, ok := member.(T)
	if !ok {
		return nil, false
	}
	return int(m), true
}
