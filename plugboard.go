// plugboard.go: Steckerbrett, the involutive symbol swap around the rotor stack.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"fmt"
	"sort"

	goerrors "github.com/agilira/go-errors"
)

// MaxPlugboardPairs is the conventional number of cables issued with a
// machine. The engine does not enforce it; generators use it.
const MaxPlugboardPairs = 10

// Plugboard is a partial involution over an alphabet: if a maps to b then b
// maps to a, and no symbol maps to itself. A Plugboard is immutable; edits
// return a new value, so configurations may share one safely.
type Plugboard struct {
	pairs map[rune]rune
}

// Lookup returns the partner of r, or r itself when it is not wired.
func (p Plugboard) Lookup(r rune) rune {
	if v, ok := p.pairs[r]; ok {
		return v
	}
	return r
}

// Partner returns the partner of r and whether r is wired.
func (p Plugboard) Partner(r rune) (rune, bool) {
	v, ok := p.pairs[r]
	return v, ok
}

// Len returns the number of cables (pairs), not the number of wired symbols.
func (p Plugboard) Len() int { return len(p.pairs) / 2 }

// Map returns a copy of the symmetric mapping, both directions included.
func (p Plugboard) Map() map[rune]rune {
	out := make(map[rune]rune, len(p.pairs))
	for k, v := range p.pairs {
		out[k] = v
	}
	return out
}

// Pairs returns each cable once as a two-symbol string, lower symbol first,
// sorted. The form matches what key sheets print, e.g. "AB CD".
func (p Plugboard) Pairs() []string {
	out := make([]string, 0, p.Len())
	for k, v := range p.pairs {
		if k < v {
			out = append(out, string([]rune{k, v}))
		}
	}
	sort.Strings(out)
	return out
}

// with returns a copy with a and b connected, dropping any previous cable on
// either symbol.
func (p Plugboard) with(a, b rune) Plugboard {
	next := make(map[rune]rune, len(p.pairs)+2)
	for k, v := range p.pairs {
		if k == a || k == b || v == a || v == b {
			continue
		}
		next[k] = v
	}
	next[a] = b
	next[b] = a
	return Plugboard{pairs: next}
}

// without returns a copy with the cable on r removed.
func (p Plugboard) without(r rune) Plugboard {
	partner, ok := p.pairs[r]
	if !ok {
		return p
	}
	next := make(map[rune]rune, len(p.pairs))
	for k, v := range p.pairs {
		if k == r || k == partner {
			continue
		}
		next[k] = v
	}
	return Plugboard{pairs: next}
}

// NewPlugboard builds a plugboard for mode from a mapping. The mapping may
// list each cable in one direction or both; lower-case symbols are
// normalized. Asymmetric, self-paired or out-of-alphabet entries are
// rejected.
func NewPlugboard(mode Mode, mapping map[rune]rune) (Plugboard, error) {
	alphabet, err := Resolve(mode)
	if err != nil {
		return Plugboard{}, err
	}
	pairs := make(map[rune]rune, len(mapping)*2)
	for k, v := range mapping {
		a, okA := alphabet.Normalize(k)
		b, okB := alphabet.Normalize(v)
		if !okA || !okB {
			return Plugboard{}, invalidPlugboardError(fmt.Sprintf("pair %q-%q is outside the %s alphabet", k, v, mode))
		}
		if a == b {
			return Plugboard{}, invalidPlugboardError(fmt.Sprintf("symbol %q is paired with itself", a))
		}
		if prev, ok := pairs[a]; ok && prev != b {
			return Plugboard{}, invalidPlugboardError(fmt.Sprintf("symbol %q is paired with both %q and %q", a, prev, b))
		}
		if prev, ok := pairs[b]; ok && prev != a {
			return Plugboard{}, invalidPlugboardError(fmt.Sprintf("symbol %q is paired with both %q and %q", b, prev, a))
		}
		pairs[a] = b
		pairs[b] = a
	}
	return Plugboard{pairs: pairs}, nil
}

// ParsePlugboard builds a plugboard from cables written as two-symbol
// strings, e.g. []string{"AB", "CD"}.
func ParsePlugboard(mode Mode, cables []string) (Plugboard, error) {
	mapping := make(map[rune]rune, len(cables))
	for _, c := range cables {
		runes := []rune(c)
		if len(runes) != 2 {
			return Plugboard{}, invalidPlugboardError(fmt.Sprintf("cable %q must name exactly two symbols", c))
		}
		if prev, ok := mapping[runes[0]]; ok && prev != runes[1] {
			return Plugboard{}, invalidPlugboardError(fmt.Sprintf("symbol %q is cabled twice", runes[0]))
		}
		mapping[runes[0]] = runes[1]
	}
	return NewPlugboard(mode, mapping)
}

// validate checks that p is a partial involution over alphabet.
func (p Plugboard) validate(alphabet Alphabet) error {
	for k, v := range p.pairs {
		if !alphabet.Contains(k) || !alphabet.Contains(v) {
			return invalidPlugboardError(fmt.Sprintf("pair %q-%q is outside the alphabet", k, v))
		}
		if k == v {
			return invalidPlugboardError(fmt.Sprintf("symbol %q is paired with itself", k))
		}
		if p.pairs[v] != k {
			return invalidPlugboardError(fmt.Sprintf("pair %q-%q is not symmetric", k, v))
		}
	}
	return nil
}

func invalidPlugboardError(msg string) error {
	richErr := goerrors.New(ErrCodeInvalidPlugboard, msg)
	return fmt.Errorf("%w: %w", ErrInvalidPlugboard, richErr)
}

func invalidPairError(msg string) error {
	richErr := goerrors.New(ErrCodeInvalidPair, msg)
	return fmt.Errorf("%w: %w", ErrInvalidPair, richErr)
}

// SetPlugboardPair connects a and b. Any cable already on a or b is removed
// first. Pairing a symbol with itself, or naming a symbol outside the
// machine's alphabet, returns ErrInvalidPair and leaves cfg unchanged.
func SetPlugboardPair(cfg MachineConfig, a, b rune) (MachineConfig, error) {
	alphabet, err := Resolve(cfg.Mode)
	if err != nil {
		return cfg, err
	}
	na, okA := alphabet.Normalize(a)
	nb, okB := alphabet.Normalize(b)
	if !okA || !okB {
		return cfg, invalidPairError(fmt.Sprintf("pair %q-%q is outside the %s alphabet", a, b, cfg.Mode))
	}
	if na == nb {
		return cfg, invalidPairError(fmt.Sprintf("cannot pair %q with itself", na))
	}
	cfg.Plugboard = cfg.Plugboard.with(na, nb)
	return cfg, nil
}

// ClearPlugboardPair removes the cable on r. It is a no-op when r is not wired.
func ClearPlugboardPair(cfg MachineConfig, r rune) MachineConfig {
	alphabet, err := Resolve(cfg.Mode)
	if err != nil {
		return cfg
	}
	nr, ok := alphabet.Normalize(r)
	if !ok {
		return cfg
	}
	cfg.Plugboard = cfg.Plugboard.without(nr)
	return cfg
}
