// rotor.go: Rotor signal passes and the stepping mechanism.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

// Rotor slots inside MachineConfig.Rotors, left to right as seen by the operator.
const (
	SlotLeft   = 0
	SlotMiddle = 1
	SlotRight  = 2
)

// RotorSettings is the per-slot state of a rotor.
type RotorSettings struct {
	Type        RotorType
	Position    int // index of the symbol in the window
	RingSetting int // Ringstellung, offset of the wiring core
}

// offset is the rotation of the wiring core relative to the entry plate.
func offset(position, ring, n int) int {
	return ((position-ring)%n + n) % n
}

// forward routes a signal from the entry side towards the reflector.
func (r *compiledRotor) forward(in, position, ring, n int) int {
	o := offset(position, ring, n)
	out := r.forwardTable[(in+o)%n]
	return (out - o + n) % n
}

// backward routes a signal returning from the reflector.
func (r *compiledRotor) backward(in, position, ring, n int) int {
	o := offset(position, ring, n)
	contact := r.inverseTable[(in+o)%n]
	return (contact - o + n) % n
}

func (r *compiledRotor) atNotch(position int) bool {
	return r.notch[position]
}

// stepRotors advances the rotor triple once, before a symbol is routed.
//
// Both carry conditions are evaluated against the pre-step positions. A
// middle rotor sitting on its notch moves itself and the left rotor (the
// double step); otherwise a right rotor on its notch carries into the
// middle. The right rotor always moves.
func stepRotors(rotors [3]RotorSettings, middle, right *compiledRotor, n int) [3]RotorSettings {
	var leftStep, middleStep bool
	if middle.atNotch(rotors[SlotMiddle].Position) {
		leftStep = true
		middleStep = true
	} else if right.atNotch(rotors[SlotRight].Position) {
		middleStep = true
	}

	rotors[SlotRight].Position = (rotors[SlotRight].Position + 1) % n
	if middleStep {
		rotors[SlotMiddle].Position = (rotors[SlotMiddle].Position + 1) % n
	}
	if leftStep {
		rotors[SlotLeft].Position = (rotors[SlotLeft].Position + 1) % n
	}
	return rotors
}
