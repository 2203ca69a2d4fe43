// keygen.go: Local key generation, used directly and as the oracle fallback.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"crypto/rand"
	"fmt"
	"io"

	goerrors "github.com/agilira/go-errors"
)

// RandomConfig generates a complete daily key for a model from the
// operating system's secure random source: three distinct rotors, random
// positions and ring settings, a reflector and MaxPlugboardPairs cables
// (fewer if the alphabet is too small).
//
// Example:
//
//	cfg, err := enigma.RandomConfig(enigma.ModelEnigmaM3)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("Grundstellung:", cfg.Window())
func RandomConfig(id ModelID) (MachineConfig, error) {
	return configFromSource(id, rand.Reader)
}

// RandomizeSettings keeps the rotor types, reflector and plugboard of cfg
// and draws each rotor's position and ring setting uniformly from [0,N).
// It is the local fallback when no oracle is available.
func RandomizeSettings(cfg MachineConfig) (MachineConfig, error) {
	return randomizeFromSource(cfg, rand.Reader)
}

func randomizeFromSource(cfg MachineConfig, src io.Reader) (MachineConfig, error) {
	alphabet, err := Resolve(cfg.Mode)
	if err != nil {
		return cfg, err
	}
	n := alphabet.Len()
	next := cfg
	for slot := range next.Rotors {
		pos, err := randomIndex(src, n)
		if err != nil {
			return cfg, randomError(err)
		}
		ring, err := randomIndex(src, n)
		if err != nil {
			return cfg, randomError(err)
		}
		next.Rotors[slot].Position = pos
		next.Rotors[slot].RingSetting = ring
	}
	return next, nil
}

// configFromSource builds a full key by consuming bytes from src. With a
// deterministic src (see DeriveConfig) the same bytes give the same key.
func configFromSource(id ModelID, src io.Reader) (MachineConfig, error) {
	model, err := LookupModel(id)
	if err != nil {
		return MachineConfig{}, err
	}
	alphabet := MustResolve(model.Mode)
	n := alphabet.Len()

	cfg := MachineConfig{Model: model.ID, Mode: model.Mode}

	rotors := append([]RotorType(nil), model.AllowedRotors...)
	for slot := range cfg.Rotors {
		j, err := randomIndex(src, len(rotors))
		if err != nil {
			return MachineConfig{}, randomError(err)
		}
		cfg.Rotors[slot].Type = rotors[j]
		if len(rotors) > 1 {
			rotors = append(rotors[:j], rotors[j+1:]...)
		}
	}
	cfg, err = randomizeFromSource(cfg, src)
	if err != nil {
		return MachineConfig{}, err
	}

	j, err := randomIndex(src, len(model.AllowedReflectors))
	if err != nil {
		return MachineConfig{}, randomError(err)
	}
	cfg.Reflector = model.AllowedReflectors[j]

	cables := MaxPlugboardPairs
	if cables > n/2 {
		cables = n / 2
	}
	perm, err := randomPermutation(src, n)
	if err != nil {
		return MachineConfig{}, randomError(err)
	}
	pairs := make(map[rune]rune, cables*2)
	for c := 0; c < cables; c++ {
		a, b := alphabet.Symbol(perm[2*c]), alphabet.Symbol(perm[2*c+1])
		pairs[a] = b
		pairs[b] = a
	}
	cfg.Plugboard = Plugboard{pairs: pairs}
	return cfg, nil
}

// randomIndex draws a uniform integer in [0,n) from src by rejection
// sampling single bytes. n must be in [1,256].
func randomIndex(src io.Reader, n int) (int, error) {
	if n <= 0 || n > 256 {
		return 0, fmt.Errorf("range %d outside [1,256]", n)
	}
	limit := 256 - 256%n
	var b [1]byte
	for {
		if _, err := io.ReadFull(src, b[:]); err != nil {
			return 0, err
		}
		if int(b[0]) < limit {
			return int(b[0]) % n, nil
		}
	}
}

// randomPermutation returns a Fisher-Yates shuffle of [0,n).
func randomPermutation(src io.Reader, n int) ([]int, error) {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j, err := randomIndex(src, i+1)
		if err != nil {
			return nil, err
		}
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm, nil
}

func randomError(err error) error {
	return goerrors.Wrap(err, ErrCodeRandom, "failed to read random source")
}
