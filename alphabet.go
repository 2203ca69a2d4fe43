// alphabet.go: Symbol sets and modulus for each alphabet mode.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"fmt"
	"unicode"

	goerrors "github.com/agilira/go-errors"
)

// Mode selects the alphabet a machine operates over.
type Mode string

const (
	ModeLatin    Mode = "latin"    // 26 letters A-Z
	ModeCyrillic Mode = "cyrillic" // 38 symbols, Uzbek Cyrillic plus '.'
)

const (
	latinSymbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Order: АБВГДЕЁЖЗИЙКЛМНОПРСТУФХЦЧШЩЪЫЬЭЮЯ, then ЎҚҒҲ and the full stop.
	cyrillicSymbols = "АБВГДЕЁЖЗИЙКЛМНОПРСТУФХЦЧШЩЪЫЬЭЮЯЎҚҒҲ."
)

// Alphabet is an ordered set of unique symbols. Its length is the modulus of
// every rotor computation in the mode.
type Alphabet struct {
	symbols []rune
	index   map[rune]int
}

func newAlphabet(symbols string) Alphabet {
	runes := []rune(symbols)
	index := make(map[rune]int, len(runes))
	for i, r := range runes {
		index[r] = i
	}
	return Alphabet{symbols: runes, index: index}
}

var (
	latinAlphabet    = newAlphabet(latinSymbols)
	cyrillicAlphabet = newAlphabet(cyrillicSymbols)
)

// Resolve returns the alphabet for a mode.
func Resolve(mode Mode) (Alphabet, error) {
	switch mode {
	case ModeLatin:
		return latinAlphabet, nil
	case ModeCyrillic:
		return cyrillicAlphabet, nil
	}
	richErr := goerrors.New(ErrCodeUnsupportedMode, fmt.Sprintf("unsupported alphabet mode %q", mode))
	return Alphabet{}, fmt.Errorf("%w: %w", ErrUnsupportedMode, richErr)
}

// MustResolve is like Resolve but panics on an unsupported mode.
func MustResolve(mode Mode) Alphabet {
	a, err := Resolve(mode)
	if err != nil {
		panic(err)
	}
	return a
}

// Len returns N, the number of symbols and the rotor modulus.
func (a Alphabet) Len() int { return len(a.symbols) }

// Symbols returns a copy of the ordered symbol set.
func (a Alphabet) Symbols() []rune {
	out := make([]rune, len(a.symbols))
	copy(out, a.symbols)
	return out
}

// String returns the symbols in order.
func (a Alphabet) String() string { return string(a.symbols) }

// Symbol returns the symbol at index i, which must be in [0,N).
func (a Alphabet) Symbol(i int) rune { return a.symbols[i] }

// Index returns the position of r, or -1 when r is not in the alphabet.
// r must already be in canonical form; see Normalize.
func (a Alphabet) Index(r rune) int {
	if i, ok := a.index[r]; ok {
		return i
	}
	return -1
}

// Contains reports whether r, in canonical form, belongs to the alphabet.
func (a Alphabet) Contains(r rune) bool {
	_, ok := a.index[r]
	return ok
}

// Normalize upper-cases r and reports whether the result is in the alphabet.
func (a Alphabet) Normalize(r rune) (rune, bool) {
	u := unicode.ToUpper(r)
	if _, ok := a.index[u]; ok {
		return u, true
	}
	return r, false
}
