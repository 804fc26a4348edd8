package rxgo

import (
	"fmt"
	"strings"

	"github.com/hupe1980/rxgo/engine"
)

// Flags is an immutable set of engine options. The zero value is
// FlagDefault.
type Flags uint32

const (
	// FlagDefault selects the portable defaults.
	FlagDefault = Flags(engine.FlagDefault)
	// FlagLargePages allocates cache and dataset memory in large pages.
	FlagLargePages = Flags(engine.FlagLargePages)
	// FlagHardAES uses hardware accelerated AES in the VM.
	FlagHardAES = Flags(engine.FlagHardAES)
	// FlagFullMem selects full-memory (fast) mode: the VM reads the dataset.
	FlagFullMem = Flags(engine.FlagFullMem)
	// FlagJIT compiles VM programs to machine code.
	FlagJIT = Flags(engine.FlagJIT)
	// FlagSecure keeps JIT pages from being writable and executable at the
	// same time.
	FlagSecure = Flags(engine.FlagSecure)
	// FlagArgon2SSSE3 uses SSSE3 to speed up cache initialization.
	FlagArgon2SSSE3 = Flags(engine.FlagArgon2SSSE3)
	// FlagArgon2AVX2 uses AVX2 to speed up cache initialization.
	FlagArgon2AVX2 = Flags(engine.FlagArgon2AVX2)
	// FlagArgon2 is the mask of both Argon2 acceleration bits.
	FlagArgon2 = Flags(engine.FlagArgon2)
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagLargePages, "LARGE_PAGES"},
	{FlagHardAES, "HARD_AES"},
	{FlagFullMem, "FULL_MEM"},
	{FlagJIT, "JIT"},
	{FlagSecure, "SECURE"},
	{FlagArgon2SSSE3, "ARGON2_SSSE3"},
	{FlagArgon2AVX2, "ARGON2_AVX2"},
}

// Union returns f with every flag in others set.
func (f Flags) Union(others ...Flags) Flags {
	for _, o := range others {
		f |= o
	}
	return f
}

// Intersect returns the flags set in both f and o.
func (f Flags) Intersect(o Flags) Flags { return f & o }

// Without returns f with the flags in o cleared.
func (f Flags) Without(o Flags) Flags { return f &^ o }

// Has reports whether every flag in o is set in f.
func (f Flags) Has(o Flags) bool { return f&o == o }

// Unknown returns the bits of f outside the recognized option set.
func (f Flags) Unknown() Flags { return f &^ Flags(engine.FlagMask) }

// Valid reports whether f only carries recognized bits.
func (f Flags) Valid() bool { return f.Unknown() == 0 }

func (f Flags) String() string {
	if f == FlagDefault {
		return "DEFAULT"
	}
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	if u := f.Unknown(); u != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(u)))
	}
	return strings.Join(parts, "|")
}

// ParseFlags parses a "|" or "," separated list of flag names, e.g.
// "hard_aes|jit". Names are case-insensitive; "default" and "" yield
// FlagDefault.
func ParseFlags(s string) (Flags, error) {
	var f Flags
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' })
	for _, field := range fields {
		name := strings.ToUpper(strings.TrimSpace(field))
		switch name {
		case "", "DEFAULT":
			continue
		case "ARGON2":
			f |= FlagArgon2
			continue
		}
		found := false
		for _, fn := range flagNames {
			if fn.name == name {
				f |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: unknown flag %q", ErrInvalidFlags, field)
		}
	}
	return f, nil
}

// MarshalText implements encoding.TextMarshaler.
func (f Flags) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFlags, f)
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Flags) UnmarshalText(text []byte) error {
	v, err := ParseFlags(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func checkFlags(f Flags) error {
	if !f.Valid() {
		return fmt.Errorf("%w: unrecognized bits 0x%x", ErrInvalidFlags, uint32(f.Unknown()))
	}
	return nil
}
