// machine.go: Machine configuration and the keypress transaction.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"fmt"
	"strings"

	goerrors "github.com/agilira/go-errors"
)

// MachineConfig is the complete state of a machine. It is a value: every
// operation returns a new MachineConfig and never modifies its receiver or
// arguments, so callers never observe a partially stepped machine.
//
// JSON and YAML encodings go through ConfigRecord; see record.go.
type MachineConfig struct {
	Model     ModelID
	Mode      Mode
	Rotors    [3]RotorSettings // left, middle, right
	Reflector ReflectorID
	Plugboard Plugboard
}

// DefaultConfig returns the model's starting configuration: the first three
// allowed rotors left to right, all positions and rings at 0, the first
// allowed reflector and an empty plugboard.
func DefaultConfig(id ModelID) (MachineConfig, error) {
	model, err := LookupModel(id)
	if err != nil {
		return MachineConfig{}, err
	}
	cfg := MachineConfig{
		Model:     model.ID,
		Mode:      model.Mode,
		Reflector: model.AllowedReflectors[0],
	}
	for slot := range cfg.Rotors {
		t := model.AllowedRotors[0]
		if slot < len(model.AllowedRotors) {
			t = model.AllowedRotors[slot]
		}
		cfg.Rotors[slot] = RotorSettings{Type: t}
	}
	return cfg, nil
}

// MustDefaultConfig is like DefaultConfig but panics on an unknown model.
func MustDefaultConfig(id ModelID) MachineConfig {
	cfg, err := DefaultConfig(id)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks cfg against the catalog: the model exists and matches
// the mode, every rotor and the reflector are fitted to the model, every
// setting lies in [0,N) and the plugboard is a partial involution over the
// alphabet.
func (c MachineConfig) Validate() error {
	_, err := c.compile()
	return err
}

// machine is a configuration resolved against the compiled catalog.
type machine struct {
	alphabet  Alphabet
	n         int
	rotors    [3]*compiledRotor
	reflector []int
}

func (c MachineConfig) compile() (*machine, error) {
	model, err := LookupModel(c.Model)
	if err != nil {
		return nil, err
	}
	if model.Mode != c.Mode {
		richErr := goerrors.New(ErrCodeUnsupportedMode, fmt.Sprintf("model %s runs in %s mode, config says %s", model.ID, model.Mode, c.Mode))
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedMode, richErr)
	}
	mt, err := tablesFor(c.Mode)
	if err != nil {
		return nil, err
	}

	m := &machine{alphabet: mt.alphabet, n: mt.alphabet.Len()}
	for slot, rs := range c.Rotors {
		if !model.AllowsRotor(rs.Type) {
			richErr := goerrors.New(ErrCodeRotorNotAllowed, fmt.Sprintf("rotor %s is not fitted to %s", rs.Type, model.ID))
			return nil, fmt.Errorf("%w: %w", ErrRotorNotAllowed, richErr)
		}
		rotor, err := mt.rotor(c.Mode, rs.Type)
		if err != nil {
			return nil, err
		}
		if rs.Position < 0 || rs.Position >= m.n || rs.RingSetting < 0 || rs.RingSetting >= m.n {
			richErr := goerrors.New(ErrCodeSettingRange, fmt.Sprintf("slot %d: position %d, ring %d outside [0,%d)", slot, rs.Position, rs.RingSetting, m.n))
			return nil, fmt.Errorf("%w: %w", ErrSettingOutOfRange, richErr)
		}
		m.rotors[slot] = rotor
	}

	if !model.AllowsReflector(c.Reflector) {
		richErr := goerrors.New(ErrCodeReflectorDenied, fmt.Sprintf("reflector %q is not fitted to %s", c.Reflector, model.ID))
		return nil, fmt.Errorf("%w: %w", ErrReflectorNotAllowed, richErr)
	}
	if m.reflector, err = mt.reflector(c.Mode, c.Reflector); err != nil {
		return nil, err
	}

	if err := c.Plugboard.validate(m.alphabet); err != nil {
		return nil, err
	}
	return m, nil
}

// step advances the rotors of cfg once.
func (m *machine) step(cfg MachineConfig) MachineConfig {
	cfg.Rotors = stepRotors(cfg.Rotors, m.rotors[SlotMiddle], m.rotors[SlotRight], m.n)
	return cfg
}

// substitute routes a canonical alphabet symbol through the plugboard, the
// rotors right to left, the reflector, the rotors left to right and the
// plugboard again, with the rotors held still.
func (m *machine) substitute(sym rune, cfg MachineConfig) rune {
	i := m.alphabet.Index(cfg.Plugboard.Lookup(sym))
	for slot := SlotRight; slot >= SlotLeft; slot-- {
		rs := cfg.Rotors[slot]
		i = m.rotors[slot].forward(i, rs.Position, rs.RingSetting, m.n)
	}
	i = m.reflector[i]
	for slot := SlotLeft; slot <= SlotRight; slot++ {
		rs := cfg.Rotors[slot]
		i = m.rotors[slot].backward(i, rs.Position, rs.RingSetting, m.n)
	}
	return cfg.Plugboard.Lookup(m.alphabet.Symbol(i))
}

// press is one keypress: step first, then route through the stepped machine.
func (m *machine) press(r rune, cfg MachineConfig) (rune, MachineConfig) {
	sym, ok := m.alphabet.Normalize(r)
	if !ok {
		return r, cfg
	}
	cfg = m.step(cfg)
	return m.substitute(sym, cfg), cfg
}

// Step returns cfg with the rotors advanced by one keypress.
func (c MachineConfig) Step() (MachineConfig, error) {
	m, err := c.compile()
	if err != nil {
		return c, err
	}
	return m.step(c), nil
}

// Substitute runs r through the substitution pipeline without stepping.
// At a fixed rotor state the pipeline is an involution, so substituting the
// result again returns r. Symbols outside the alphabet are returned as-is.
func (c MachineConfig) Substitute(r rune) (rune, error) {
	m, err := c.compile()
	if err != nil {
		return r, err
	}
	sym, ok := m.alphabet.Normalize(r)
	if !ok {
		return r, nil
	}
	return m.substitute(sym, c), nil
}

// Window returns the symbols showing in the rotor windows, left to right.
func (c MachineConfig) Window() string {
	alphabet, err := Resolve(c.Mode)
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, rs := range c.Rotors {
		if rs.Position < 0 || rs.Position >= alphabet.Len() {
			b.WriteRune('?')
			continue
		}
		b.WriteRune(alphabet.Symbol(rs.Position))
	}
	return b.String()
}

// EncryptSymbol processes one keypress and returns the lamp that lights
// together with the stepped configuration.
//
// A symbol outside the alphabet (space, punctuation, digits) is returned
// unchanged with cfg unchanged; the rotors do not move. Alphabet symbols are
// upper-cased first. An error is returned only when cfg itself is invalid.
func EncryptSymbol(r rune, cfg MachineConfig) (rune, MachineConfig, error) {
	m, err := cfg.compile()
	if err != nil {
		return r, cfg, err
	}
	out, next := m.press(r, cfg)
	return out, next, nil
}

// EncryptMessage folds EncryptSymbol over text and returns the output along
// with the final configuration, which callers may keep to continue the
// message later.
//
// Example:
//
//	cfg, _ := enigma.DefaultConfig(enigma.ModelEnigmaI)
//	out, _, err := enigma.EncryptMessage("AAAAA", cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(out) // Output: BDZGO
func EncryptMessage(text string, cfg MachineConfig) (string, MachineConfig, error) {
	m, err := cfg.compile()
	if err != nil {
		return "", cfg, err
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		var out rune
		out, cfg = m.press(r, cfg)
		b.WriteRune(out)
	}
	return b.String(), cfg, nil
}

// DecryptMessage recovers plaintext. The machine is reciprocal, so this is
// EncryptMessage run from the same starting configuration.
func DecryptMessage(text string, cfg MachineConfig) (string, MachineConfig, error) {
	return EncryptMessage(text, cfg)
}

// WithRotor returns cfg with the rotor in slot replaced.
func (c MachineConfig) WithRotor(slot int, rs RotorSettings) (MachineConfig, error) {
	if slot < SlotLeft || slot > SlotRight {
		richErr := goerrors.New(ErrCodeSettingRange, fmt.Sprintf("rotor slot %d outside [0,3)", slot))
		return c, fmt.Errorf("%w: %w", ErrSettingOutOfRange, richErr)
	}
	next := c
	next.Rotors[slot] = rs
	if err := next.Validate(); err != nil {
		return c, err
	}
	return next, nil
}

// WithReflector returns cfg with a different reflector.
func (c MachineConfig) WithReflector(id ReflectorID) (MachineConfig, error) {
	next := c
	next.Reflector = id
	if err := next.Validate(); err != nil {
		return c, err
	}
	return next, nil
}

// SwitchModel moves cfg to another model. Rotors the new model accepts keep
// their settings when those fit the new alphabet; others become the first
// allowed rotor at position and ring 0. The reflector is kept when allowed.
// The plugboard is always cleared, since its symbols may not exist in the
// new alphabet.
func (c MachineConfig) SwitchModel(id ModelID) (MachineConfig, error) {
	model, err := LookupModel(id)
	if err != nil {
		return c, err
	}
	n := MustResolve(model.Mode).Len()

	next := MachineConfig{Model: model.ID, Mode: model.Mode, Reflector: model.AllowedReflectors[0]}
	for slot, rs := range c.Rotors {
		if model.AllowsRotor(rs.Type) && rs.Position >= 0 && rs.Position < n && rs.RingSetting >= 0 && rs.RingSetting < n {
			next.Rotors[slot] = rs
			continue
		}
		next.Rotors[slot] = RotorSettings{Type: model.AllowedRotors[0]}
	}
	if model.AllowsReflector(c.Reflector) {
		next.Reflector = c.Reflector
	}
	return next, nil
}

// Reset returns the default configuration of cfg's model.
func (c MachineConfig) Reset() (MachineConfig, error) {
	return DefaultConfig(c.Model)
}
