// kdf_test.go: Test cases for passphrase key derivation.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestKDFParamsResolve checks defaults and overrides of the Argon2id parameters
func TestKDFParamsResolve(t *testing.T) {
	t.Run("NilUsesDefaults", func(t *testing.T) {
		var p *KDFParams
		iterations, memoryKB, threads := p.resolve()
		assert.Equal(t, uint32(DefaultTime), iterations)
		assert.Equal(t, uint32(DefaultMemory*1024), memoryKB)
		assert.Equal(t, uint8(DefaultThreads), threads)
	})

	t.Run("ZeroFieldsFallBack", func(t *testing.T) {
		p := &KDFParams{Memory: 16}
		iterations, memoryKB, threads := p.resolve()
		assert.Equal(t, uint32(DefaultTime), iterations)
		assert.Equal(t, uint32(16*1024), memoryKB)
		assert.Equal(t, uint8(DefaultThreads), threads)
	})

	t.Run("FastProfile", func(t *testing.T) {
		params := FastKDFParams()
		require.NotNil(t, params)
		assert.Equal(t, uint32(1), params.Time)
		assert.Equal(t, uint32(32), params.Memory)
		assert.Equal(t, uint8(2), params.Threads)
	})
}

// TestDeriveConfigDeterministic verifies that two stations derive the same key
func TestDeriveConfigDeterministic(t *testing.T) {
	pw := []byte("wetterbericht")
	salt := []byte("station-7")

	a, err := DeriveConfig(ModelEnigmaM3, pw, salt, FastKDFParams())
	require.NoError(t, err)
	b, err := DeriveConfig(ModelEnigmaM3, pw, salt, FastKDFParams())
	require.NoError(t, err)

	assert.Equal(t, GetConfigFingerprint(a), GetConfigFingerprint(b))
	require.NoError(t, a.Validate())

	// Three distinct rotors, all fitted to the model.
	seen := make(map[RotorType]bool)
	for _, rs := range a.Rotors {
		assert.False(t, seen[rs.Type], "rotor %s used twice", rs.Type)
		seen[rs.Type] = true
	}
	assert.Equal(t, MaxPlugboardPairs, a.Plugboard.Len())
}

// TestDeriveConfigVaries verifies that passphrase, salt and model all change the key
func TestDeriveConfigVaries(t *testing.T) {
	params := FastKDFParams()
	base, err := DeriveConfig(ModelEnigmaI, []byte("alpha"), []byte("salt-1"), params)
	require.NoError(t, err)

	otherPass, err := DeriveConfig(ModelEnigmaI, []byte("bravo"), []byte("salt-1"), params)
	require.NoError(t, err)
	assert.NotEqual(t, GetConfigFingerprint(base), GetConfigFingerprint(otherPass))

	otherSalt, err := DeriveConfig(ModelEnigmaI, []byte("alpha"), []byte("salt-2"), params)
	require.NoError(t, err)
	assert.NotEqual(t, GetConfigFingerprint(base), GetConfigFingerprint(otherSalt))

	otherModel, err := DeriveConfig(ModelEnigmaUZ, []byte("alpha"), []byte("salt-1"), params)
	require.NoError(t, err)
	assert.Equal(t, ModeCyrillic, otherModel.Mode)
	require.NoError(t, otherModel.Validate())
}

// TestDeriveConfigInvalidParams tests DeriveConfig with invalid inputs
func TestDeriveConfigInvalidParams(t *testing.T) {
	_, err := DeriveConfig(ModelEnigmaI, nil, []byte("salt"), FastKDFParams())
	assert.True(t, errors.Is(err, ErrInvalidPassphrase))

	_, err = DeriveConfig(ModelEnigmaI, []byte("pw"), nil, FastKDFParams())
	assert.True(t, errors.Is(err, ErrInvalidPassphrase))

	_, err = DeriveConfig("enigma-x", []byte("pw"), []byte("salt"), FastKDFParams())
	assert.True(t, errors.Is(err, ErrUnknownModel))
}

// TestDeriveDailyConfig verifies that the key changes with the UTC date only
func TestDeriveDailyConfig(t *testing.T) {
	pw := []byte("kurzsignal")
	params := FastKDFParams()

	morning := time.Date(1941, time.May, 9, 6, 0, 0, 0, time.UTC)
	evening := time.Date(1941, time.May, 9, 22, 30, 0, 0, time.UTC)
	nextDay := morning.Add(24 * time.Hour)

	a, err := DeriveDailyConfig(ModelEnigmaM3, pw, morning, params)
	require.NoError(t, err)
	b, err := DeriveDailyConfig(ModelEnigmaM3, pw, evening, params)
	require.NoError(t, err)
	c, err := DeriveDailyConfig(ModelEnigmaM3, pw, nextDay, params)
	require.NoError(t, err)

	assert.Equal(t, GetConfigFingerprint(a), GetConfigFingerprint(b))
	assert.NotEqual(t, GetConfigFingerprint(a), GetConfigFingerprint(c))
}
