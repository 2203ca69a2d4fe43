// keygen_test.go: Tests for local key generation.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomConfig(t *testing.T) {
	for _, m := range ListModels() {
		t.Run(string(m.ID), func(t *testing.T) {
			cfg, err := RandomConfig(m.ID)
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())
			assert.Equal(t, m.Mode, cfg.Mode)

			seen := make(map[RotorType]bool)
			for _, rs := range cfg.Rotors {
				assert.True(t, m.AllowsRotor(rs.Type))
				assert.False(t, seen[rs.Type], "rotor %s used twice", rs.Type)
				seen[rs.Type] = true
			}
			assert.Equal(t, MaxPlugboardPairs, cfg.Plugboard.Len())
		})
	}

	_, err := RandomConfig("enigma-x")
	assert.True(t, errors.Is(err, ErrUnknownModel))
}

func TestRandomizeSettingsKeepsWiring(t *testing.T) {
	cfg := MustDefaultConfig(ModelEnigmaI)
	cfg, err := SetPlugboardPair(cfg, 'K', 'L')
	require.NoError(t, err)

	next, err := RandomizeSettings(cfg)
	require.NoError(t, err)
	require.NoError(t, next.Validate())
	for slot := range cfg.Rotors {
		assert.Equal(t, cfg.Rotors[slot].Type, next.Rotors[slot].Type)
	}
	assert.Equal(t, cfg.Reflector, next.Reflector)
	assert.Equal(t, cfg.Plugboard.Pairs(), next.Plugboard.Pairs())
}

func TestConfigFromSourceDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{7, 200, 13, 99, 42, 251, 0, 180}, 64)

	a, err := configFromSource(ModelEnigmaUZ, bytes.NewReader(seed))
	require.NoError(t, err)
	b, err := configFromSource(ModelEnigmaUZ, bytes.NewReader(seed))
	require.NoError(t, err)
	assert.Equal(t, ToRecord(a), ToRecord(b))
	require.NoError(t, a.Validate())
}

func TestConfigFromSourceShortRead(t *testing.T) {
	_, err := configFromSource(ModelEnigmaI, bytes.NewReader([]byte{1, 2}))
	require.Error(t, err)
}

func TestRandomIndex(t *testing.T) {
	// Bytes at or above 234 are rejected for n=26.
	idx, err := randomIndex(bytes.NewReader([]byte{250, 240, 5}), 26)
	require.NoError(t, err)
	assert.Equal(t, 5, idx)

	_, err = randomIndex(bytes.NewReader(nil), 0)
	assert.Error(t, err)

	_, err = randomIndex(bytes.NewReader(nil), 26)
	assert.Error(t, err)
}

func TestRandomPermutation(t *testing.T) {
	perm, err := randomPermutation(bytes.NewReader(bytes.Repeat([]byte{3, 17, 101}, 100)), 38)
	require.NoError(t, err)

	seen := make([]bool, 38)
	for _, v := range perm {
		assert.False(t, seen[v])
		seen[v] = true
	}
}
