// catalog.go: Static rotor, reflector and machine model tables.
//
// All tables are constant data indexed by closed enumerations. They are
// compiled into index form and validated once at package initialization;
// a malformed table panics there rather than surfacing at cipher time.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// RotorType identifies a rotor wiring. The set is closed; not every type is
// wired in every mode.
type RotorType uint8

const (
	RotorI RotorType = iota
	RotorII
	RotorIII
	RotorIV
	RotorV
	RotorVI
	RotorVII
	RotorKI   // Enigma K (Swiss commercial) rotor I
	RotorKII  // Enigma K rotor II
	RotorKIII // Enigma K rotor III

	rotorTypeCount
)

var rotorTypeNames = [rotorTypeCount]string{
	RotorI:    "I",
	RotorII:   "II",
	RotorIII:  "III",
	RotorIV:   "IV",
	RotorV:    "V",
	RotorVI:   "VI",
	RotorVII:  "VII",
	RotorKI:   "K-I",
	RotorKII:  "K-II",
	RotorKIII: "K-III",
}

// String returns the catalog name of the rotor, e.g. "III" or "K-I".
func (t RotorType) String() string {
	if t < rotorTypeCount {
		return rotorTypeNames[t]
	}
	return fmt.Sprintf("RotorType(%d)", uint8(t))
}

// ParseRotorType converts a catalog name back to a RotorType.
func ParseRotorType(name string) (RotorType, error) {
	for i, n := range rotorTypeNames {
		if n == name {
			return RotorType(i), nil
		}
	}
	richErr := goerrors.New(ErrCodeUnknownRotor, fmt.Sprintf("unknown rotor type %q", name))
	return 0, fmt.Errorf("%w: %w", ErrUnknownRotor, richErr)
}

// ReflectorID identifies a reflector (Umkehrwalze).
type ReflectorID string

const (
	ReflectorB ReflectorID = "B"
	ReflectorC ReflectorID = "C"
)

const reflectorCount = 2

func (id ReflectorID) slot() (int, bool) {
	switch id {
	case ReflectorB:
		return 0, true
	case ReflectorC:
		return 1, true
	}
	return -1, false
}

// ModelID identifies a machine model.
type ModelID string

const (
	ModelEnigmaI  ModelID = "enigma-i"
	ModelEnigmaM3 ModelID = "enigma-m3"
	ModelEnigmaK  ModelID = "enigma-k"
	ModelEnigmaUZ ModelID = "enigma-uz"
)

// Model describes what a machine model can be fitted with.
type Model struct {
	ID                ModelID       `json:"id"`
	Name              string        `json:"name"`
	Description       string        `json:"description"`
	Mode              Mode          `json:"mode"`
	AllowedRotors     []RotorType   `json:"allowed_rotors"`
	AllowedReflectors []ReflectorID `json:"allowed_reflectors"`
}

// AllowsRotor reports whether t may be fitted to the model.
func (m Model) AllowsRotor(t RotorType) bool {
	for _, a := range m.AllowedRotors {
		if a == t {
			return true
		}
	}
	return false
}

// AllowsReflector reports whether id may be fitted to the model.
func (m Model) AllowsReflector(id ReflectorID) bool {
	for _, a := range m.AllowedReflectors {
		if a == id {
			return true
		}
	}
	return false
}

func (m Model) clone() Model {
	m.AllowedRotors = append([]RotorType(nil), m.AllowedRotors...)
	m.AllowedReflectors = append([]ReflectorID(nil), m.AllowedReflectors...)
	return m
}

type rotorData struct {
	wiring string // position i holds the output for input index i
	notch  string // one or two turnover symbols
}

// Wehrmacht/Kriegsmarine rotors I-VII and the Swiss K rotors.
var latinRotorData = [rotorTypeCount]rotorData{
	RotorI:    {"EKMFLGDQVZNTOWYHXUSPAIBRCJ", "Q"},
	RotorII:   {"AJDKSIRUXBLHWTMCQGZNPYFVOE", "E"},
	RotorIII:  {"BDFHJLCPRTXVZNYEIWGAKMUSQO", "V"},
	RotorIV:   {"ESOVPZJAYQUIRHXLNFTGKDCMWB", "J"},
	RotorV:    {"VZBRGITYUPSDNHLXAWMJQOFECK", "Z"},
	RotorVI:   {"JPGVOUMFYQBENHZRDKASXLICTW", "ZM"},
	RotorVII:  {"NZJHGRCXMYSWBOUFAIVLPEKQDT", "ZM"},
	RotorKI:   {"PEZUOHXSCVFMTBGLRINQJWAYDK", "Y"},
	RotorKII:  {"ZOUESYDKFWPCIQXHMVBLGNJRAT", "E"},
	RotorKIII: {"EHRVXGAOBQUSIMZFLYNWKTPDJC", "N"},
}

// The 38-symbol rotors. K rotors are not wired for this alphabet.
var cyrillicRotorData = [rotorTypeCount]rotorData{
	RotorI:   {"ФҲГЖДЛОРПАВЫЯЧСМИТЬБЮЭЪЁНКУЦЙЗХЩЎҒҚ.ШЕ", "Р"},
	RotorII:  {"ЯЧСМИТЬБЮФЫВАПРОЛДЖЭЪЁНКУЦЙЗХГШЩ.ЎҚҒҲЕ", "Ж"},
	RotorIII: {"ЙЦУКЕНГШЩЗХЪФЫВАПРОЛДЖЭЯЧСМИТЬБЮ.ЎҚҒҲЁ", "Я"},
	RotorIV:  {"ЭЖДЛОРПАВЫФЯЧСМИТЬБЮ.ҲГНКУЦЙЗХЎҒҚШЩЕЪЁ", "К"},
	RotorV:   {"ПРОЛДЖЭЯЧСМИТЬБЮФЫВА.ЙЦУКЕНГШЩЗХЪЁЎҚҒҲ", "М"},
	RotorVI:  {".ЕОЁПЧБВҒАҚЫЪТСЩГФЬНҲЦХИЎКЖЗЭШЮЙУМРЯЛД", "ҲН"},
	RotorVII: {"ҒЖҚЫЕИДУЗЦЮҲВПСЪЭГКАЁЎОЯНРБШЩФЙЛХЧТЬ.М", "ҲН"},
}

var latinReflectorData = [reflectorCount]string{
	"YRUHQSLDPXNGOKMIEBFZCWVJAT", // B
	"FVPJIAOYEDRZXWGCTKUQSBNMHL", // C
}

var cyrillicReflectorData = [reflectorCount]string{
	".ҲҒҚЎЯЮЭЬЫЪЩШЧЦХФУТСРПОНМЛКЙИЗЖЁЕДГВБА", // B
	"БАГВЕДЖЁИЗКЙМЛОНРПТСФУЦХШЧЪЩЬЫЮЭЎЯҒҚ.Ҳ", // C
}

var catalogModels = [...]Model{
	{
		ID:                ModelEnigmaI,
		Name:              "Enigma I (Wehrmacht)",
		Description:       "Standard German Army/Air Force model used during WWII.",
		Mode:              ModeLatin,
		AllowedRotors:     []RotorType{RotorI, RotorII, RotorIII, RotorIV, RotorV},
		AllowedReflectors: []ReflectorID{ReflectorB, ReflectorC},
	},
	{
		ID:                ModelEnigmaM3,
		Name:              "Enigma M3 (Kriegsmarine)",
		Description:       "Naval model with additional rotors VI and VII.",
		Mode:              ModeLatin,
		AllowedRotors:     []RotorType{RotorI, RotorII, RotorIII, RotorIV, RotorV, RotorVI, RotorVII},
		AllowedReflectors: []ReflectorID{ReflectorB, ReflectorC},
	},
	{
		ID:                ModelEnigmaK,
		Name:              "Enigma K (Commercial)",
		Description:       "Swiss commercial variant with distinct internal wiring.",
		Mode:              ModeLatin,
		AllowedRotors:     []RotorType{RotorKI, RotorKII, RotorKIII},
		AllowedReflectors: []ReflectorID{ReflectorB, ReflectorC},
	},
	{
		ID:                ModelEnigmaUZ,
		Name:              "Enigma UZ (Maxsus)",
		Description:       "38-symbol variant adapted for the Uzbek Cyrillic alphabet.",
		Mode:              ModeCyrillic,
		AllowedRotors:     []RotorType{RotorI, RotorII, RotorIII, RotorIV, RotorV},
		AllowedReflectors: []ReflectorID{ReflectorB, ReflectorC},
	},
}

// ListModels returns every model in catalog order.
func ListModels() []Model {
	out := make([]Model, len(catalogModels))
	for i, m := range catalogModels {
		out[i] = m.clone()
	}
	return out
}

// LookupModel returns the model with the given identifier.
func LookupModel(id ModelID) (Model, error) {
	for _, m := range catalogModels {
		if m.ID == id {
			return m.clone(), nil
		}
	}
	richErr := goerrors.New(ErrCodeUnknownModel, fmt.Sprintf("unknown model %q", id))
	return Model{}, fmt.Errorf("%w: %w", ErrUnknownModel, richErr)
}

func rawTables(mode Mode) (*[rotorTypeCount]rotorData, *[reflectorCount]string, error) {
	switch mode {
	case ModeLatin:
		return &latinRotorData, &latinReflectorData, nil
	case ModeCyrillic:
		return &cyrillicRotorData, &cyrillicReflectorData, nil
	}
	richErr := goerrors.New(ErrCodeUnsupportedMode, fmt.Sprintf("unsupported alphabet mode %q", mode))
	return nil, nil, fmt.Errorf("%w: %w", ErrUnsupportedMode, richErr)
}

// Wiring returns the wiring permutation of a rotor in the given mode.
func Wiring(mode Mode, t RotorType) (string, error) {
	rotors, _, err := rawTables(mode)
	if err != nil {
		return "", err
	}
	if t >= rotorTypeCount || rotors[t].wiring == "" {
		return "", unknownRotorError(mode, t)
	}
	return rotors[t].wiring, nil
}

// Notch returns the turnover symbols of a rotor in the given mode.
func Notch(mode Mode, t RotorType) ([]rune, error) {
	rotors, _, err := rawTables(mode)
	if err != nil {
		return nil, err
	}
	if t >= rotorTypeCount || rotors[t].wiring == "" {
		return nil, unknownRotorError(mode, t)
	}
	return []rune(rotors[t].notch), nil
}

// ReflectorWiring returns the involutive permutation of a reflector in the given mode.
func ReflectorWiring(mode Mode, id ReflectorID) (string, error) {
	_, reflectors, err := rawTables(mode)
	if err != nil {
		return "", err
	}
	slot, ok := id.slot()
	if !ok {
		return "", unknownReflectorError(mode, id)
	}
	return reflectors[slot], nil
}

func unknownRotorError(mode Mode, t RotorType) error {
	richErr := goerrors.New(ErrCodeUnknownRotor, fmt.Sprintf("rotor %s is not wired for mode %s", t, mode))
	return fmt.Errorf("%w: %w", ErrUnknownRotor, richErr)
}

func unknownReflectorError(mode Mode, id ReflectorID) error {
	richErr := goerrors.New(ErrCodeUnknownReflector, fmt.Sprintf("reflector %q is not wired for mode %s", id, mode))
	return fmt.Errorf("%w: %w", ErrUnknownReflector, richErr)
}

func malformedError(format string, args ...interface{}) error {
	richErr := goerrors.New(ErrCodeMalformedWiring, fmt.Sprintf(format, args...))
	return fmt.Errorf("%w: %w", ErrMalformedWiring, richErr)
}

// compiledRotor holds a rotor wiring in index form.
type compiledRotor struct {
	forwardTable []int  // contact -> output index
	inverseTable []int  // output index -> contact
	notch        []bool // positions that trigger a carry
}

type modeTables struct {
	alphabet   Alphabet
	rotors     [rotorTypeCount]*compiledRotor
	reflectors [reflectorCount][]int
}

var catalogTables = mustCompileCatalog()

func mustCompileCatalog() map[Mode]*modeTables {
	tables, err := compileCatalog()
	if err != nil {
		panic(err)
	}
	return tables
}

// ValidateCatalog checks every table in the catalog: wirings are
// permutations of their alphabet, reflectors are fixed-point-free
// involutions, notches are alphabet symbols and every model only names
// parts wired in its mode.
func ValidateCatalog() error {
	_, err := compileCatalog()
	return err
}

func compileCatalog() (map[Mode]*modeTables, error) {
	out := make(map[Mode]*modeTables, 2)
	for _, mode := range []Mode{ModeLatin, ModeCyrillic} {
		mt, err := compileMode(mode)
		if err != nil {
			return nil, err
		}
		out[mode] = mt
	}

	for _, m := range catalogModels {
		mt, ok := out[m.Mode]
		if !ok {
			return nil, malformedError("model %s uses unsupported mode %s", m.ID, m.Mode)
		}
		if len(m.AllowedRotors) == 0 || len(m.AllowedReflectors) == 0 {
			return nil, malformedError("model %s has no rotors or reflectors", m.ID)
		}
		for _, t := range m.AllowedRotors {
			if t >= rotorTypeCount || mt.rotors[t] == nil {
				return nil, malformedError("model %s allows rotor %s which is not wired for %s", m.ID, t, m.Mode)
			}
		}
		for _, id := range m.AllowedReflectors {
			if _, ok := id.slot(); !ok {
				return nil, malformedError("model %s allows unknown reflector %q", m.ID, id)
			}
		}
	}
	return out, nil
}

func compileMode(mode Mode) (*modeTables, error) {
	alphabet, err := Resolve(mode)
	if err != nil {
		return nil, err
	}
	rotors, reflectors, err := rawTables(mode)
	if err != nil {
		return nil, err
	}

	mt := &modeTables{alphabet: alphabet}
	for t, rd := range rotors {
		if rd.wiring == "" {
			continue
		}
		forward, err := compilePermutation(alphabet, rd.wiring)
		if err != nil {
			return nil, malformedError("%s rotor %s: %v", mode, RotorType(t), err)
		}
		notchRunes := []rune(rd.notch)
		if len(notchRunes) < 1 || len(notchRunes) > 2 {
			return nil, malformedError("%s rotor %s: notch must hold one or two symbols", mode, RotorType(t))
		}
		notch := make([]bool, alphabet.Len())
		for _, r := range notchRunes {
			i := alphabet.Index(r)
			if i < 0 {
				return nil, malformedError("%s rotor %s: notch %q is not in the alphabet", mode, RotorType(t), r)
			}
			notch[i] = true
		}
		inverse := make([]int, len(forward))
		for contact, out := range forward {
			inverse[out] = contact
		}
		mt.rotors[t] = &compiledRotor{forwardTable: forward, inverseTable: inverse, notch: notch}
	}

	for slot, wiring := range reflectors {
		perm, err := compilePermutation(alphabet, wiring)
		if err != nil {
			return nil, malformedError("%s reflector %d: %v", mode, slot, err)
		}
		for i, j := range perm {
			if perm[j] != i {
				return nil, malformedError("%s reflector %d is not an involution at %q", mode, slot, alphabet.Symbol(i))
			}
			if j == i {
				return nil, malformedError("%s reflector %d maps %q to itself", mode, slot, alphabet.Symbol(i))
			}
		}
		mt.reflectors[slot] = perm
	}
	return mt, nil
}

// compilePermutation converts a wiring string into indices and checks it is
// a bijection of the alphabet.
func compilePermutation(alphabet Alphabet, wiring string) ([]int, error) {
	runes := []rune(wiring)
	n := alphabet.Len()
	if len(runes) != n {
		return nil, fmt.Errorf("length %d, want %d", len(runes), n)
	}
	seen := make([]bool, n)
	perm := make([]int, n)
	for i, r := range runes {
		j := alphabet.Index(r)
		if j < 0 {
			return nil, fmt.Errorf("symbol %q is not in the alphabet", r)
		}
		if seen[j] {
			return nil, fmt.Errorf("symbol %q appears twice", r)
		}
		seen[j] = true
		perm[i] = j
	}
	return perm, nil
}

func tablesFor(mode Mode) (*modeTables, error) {
	mt, ok := catalogTables[mode]
	if !ok {
		richErr := goerrors.New(ErrCodeUnsupportedMode, fmt.Sprintf("unsupported alphabet mode %q", mode))
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedMode, richErr)
	}
	return mt, nil
}

func (mt *modeTables) rotor(mode Mode, t RotorType) (*compiledRotor, error) {
	if t >= rotorTypeCount || mt.rotors[t] == nil {
		return nil, unknownRotorError(mode, t)
	}
	return mt.rotors[t], nil
}

func (mt *modeTables) reflector(mode Mode, id ReflectorID) ([]int, error) {
	slot, ok := id.slot()
	if !ok {
		return nil, unknownReflectorError(mode, id)
	}
	return mt.reflectors[slot], nil
}
