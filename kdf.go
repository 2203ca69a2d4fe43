// kdf.go: Deterministic key derivation from a shared passphrase using Argon2id and HKDF.
//
// Two stations holding the same passphrase derive the same daily key
// without exchanging a key sheet:
//
//	cfg, err := enigma.DeriveDailyConfig(enigma.ModelEnigmaI, passphrase, time.Now(), nil)
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"crypto/sha256"
	"fmt"
	"time"

	goerrors "github.com/agilira/go-errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// Default Argon2 parameters for key derivation.
const (
	// DefaultTime is the default number of iterations for Argon2id.
	DefaultTime = 3

	// DefaultMemory is the default memory usage in MB for Argon2id.
	DefaultMemory = 64

	// DefaultThreads is the default number of threads for Argon2id.
	DefaultThreads = 4
)

// seedSize is the Argon2id output fed to HKDF.
const seedSize = 32

// KDFParams defines custom parameters for Argon2id key derivation.
// A zero field falls back to the package default.
type KDFParams struct {
	Time    uint32 `json:"time,omitempty" yaml:"time,omitempty"`       // iterations
	Memory  uint32 `json:"memory,omitempty" yaml:"memory,omitempty"`   // MB
	Threads uint8  `json:"threads,omitempty" yaml:"threads,omitempty"` // lanes
}

// FastKDFParams returns Argon2id parameters for tests and interactive use.
//
// Parameters: Time=1, Memory=32MB, Threads=2
func FastKDFParams() *KDFParams {
	return &KDFParams{
		Time:    1,
		Memory:  32,
		Threads: 2,
	}
}

func (p *KDFParams) resolve() (iterations, memoryKB uint32, threads uint8) {
	iterations, memoryKB, threads = DefaultTime, DefaultMemory*1024, DefaultThreads
	if p == nil {
		return
	}
	if p.Time > 0 {
		iterations = p.Time
	}
	if p.Memory > 0 {
		memoryKB = p.Memory * 1024
	}
	if p.Threads > 0 {
		threads = p.Threads
	}
	return
}

// DeriveConfig derives a complete configuration for a model from a
// passphrase and salt. The passphrase is stretched with Argon2id; the seed
// is expanded with HKDF-SHA256, bound to the model identifier, into the
// byte stream that picks rotors, settings, reflector and plugboard cables.
// The same inputs always give the same configuration.
//
// If params is nil, defaults are used (Time: 3, Memory: 64MB, Threads: 4).
func DeriveConfig(id ModelID, passphrase, salt []byte, params *KDFParams) (MachineConfig, error) {
	if len(passphrase) == 0 {
		richErr := goerrors.New(ErrCodeInvalidPassphrase, "passphrase cannot be empty")
		return MachineConfig{}, fmt.Errorf("%w: %w", ErrInvalidPassphrase, richErr)
	}
	if len(salt) == 0 {
		richErr := goerrors.New(ErrCodeInvalidPassphrase, "salt cannot be empty")
		return MachineConfig{}, fmt.Errorf("%w: %w", ErrInvalidPassphrase, richErr)
	}
	if _, err := LookupModel(id); err != nil {
		return MachineConfig{}, err
	}

	t, m, th := params.resolve()
	seed := argon2.IDKey(passphrase, salt, t, m, th, seedSize)

	stream := hkdf.New(sha256.New, seed, salt, []byte("enigma-config:"+string(id)))
	cfg, err := configFromSource(id, stream)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeKeyDerivation, "failed to expand derived seed")
		return MachineConfig{}, fmt.Errorf("key derivation failed: %w", richErr)
	}
	return cfg, nil
}

// DeriveDailyConfig derives the configuration for the UTC calendar day of
// day. The date is the salt, so every day yields a different key from the
// same passphrase.
func DeriveDailyConfig(id ModelID, passphrase []byte, day time.Time, params *KDFParams) (MachineConfig, error) {
	salt := []byte("enigma-day:" + day.UTC().Format(time.DateOnly))
	return DeriveConfig(id, passphrase, salt, params)
}
