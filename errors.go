// errors.go: Public sentinel errors and rich error codes for the machine.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the umbrella for programmer and data errors: unknown
// identifiers, settings outside the alphabet, malformed catalog tables.
// Every configuration sentinel below wraps it, so errors.Is(err, ErrConfiguration)
// matches any of them.
var ErrConfiguration = errors.New("enigma: configuration error")

// Configuration sentinels.
var (
	// ErrUnsupportedMode is returned for an alphabet mode the registry does not define.
	ErrUnsupportedMode = fmt.Errorf("%w: unsupported alphabet mode", ErrConfiguration)

	// ErrUnknownModel is returned when a model identifier is not in the catalog.
	ErrUnknownModel = fmt.Errorf("%w: unknown machine model", ErrConfiguration)

	// ErrUnknownRotor is returned when a rotor type has no wiring in the active mode.
	ErrUnknownRotor = fmt.Errorf("%w: unknown rotor", ErrConfiguration)

	// ErrUnknownReflector is returned when a reflector has no wiring in the active mode.
	ErrUnknownReflector = fmt.Errorf("%w: unknown reflector", ErrConfiguration)

	// ErrRotorNotAllowed is returned when a rotor is valid but not fitted to the model.
	ErrRotorNotAllowed = fmt.Errorf("%w: rotor not allowed for model", ErrConfiguration)

	// ErrReflectorNotAllowed is returned when a reflector is valid but not fitted to the model.
	ErrReflectorNotAllowed = fmt.Errorf("%w: reflector not allowed for model", ErrConfiguration)

	// ErrSettingOutOfRange is returned for a position or ring setting outside [0,N).
	ErrSettingOutOfRange = fmt.Errorf("%w: rotor setting out of range", ErrConfiguration)

	// ErrInvalidPlugboard is returned when a plugboard map is not a partial involution
	// over the active alphabet.
	ErrInvalidPlugboard = fmt.Errorf("%w: invalid plugboard", ErrConfiguration)

	// ErrMalformedWiring is returned when a catalog table is not a valid permutation.
	ErrMalformedWiring = fmt.Errorf("%w: malformed wiring table", ErrConfiguration)
)

// Recoverable and collaborator errors.
var (
	// ErrInvalidPair is returned when a plugboard edit pairs a symbol with itself
	// or names a symbol outside the active alphabet. The configuration is unchanged.
	ErrInvalidPair = errors.New("enigma: invalid plugboard pair")

	// ErrOracleUnavailable is returned when no healthy oracle provider can serve a request.
	ErrOracleUnavailable = errors.New("enigma: oracle unavailable")

	// ErrInvalidPassphrase is returned when key derivation gets an empty passphrase or salt.
	ErrInvalidPassphrase = errors.New("enigma: invalid passphrase")

	// ErrKeySheetNotFound is returned when a key sheet ID is not in the book.
	ErrKeySheetNotFound = errors.New("enigma: key sheet not found")

	// ErrKeySheetRevoked is returned when activating a revoked key sheet.
	ErrKeySheetRevoked = errors.New("enigma: key sheet revoked")

	// ErrSessionNotFound is returned when a session ID is not registered.
	ErrSessionNotFound = errors.New("enigma: session not found")

	// ErrStreamClosed is returned when writing to or reading from a closed stream.
	ErrStreamClosed = errors.New("enigma: stream closed")
)

// Error codes for rich error handling
const (
	ErrCodeUnsupportedMode   = "ENIGMA_UNSUPPORTED_MODE"
	ErrCodeUnknownModel      = "ENIGMA_UNKNOWN_MODEL"
	ErrCodeUnknownRotor      = "ENIGMA_UNKNOWN_ROTOR"
	ErrCodeUnknownReflector  = "ENIGMA_UNKNOWN_REFLECTOR"
	ErrCodeRotorNotAllowed   = "ENIGMA_ROTOR_NOT_ALLOWED"
	ErrCodeReflectorDenied   = "ENIGMA_REFLECTOR_NOT_ALLOWED"
	ErrCodeSettingRange      = "ENIGMA_SETTING_RANGE"
	ErrCodeInvalidPlugboard  = "ENIGMA_INVALID_PLUGBOARD"
	ErrCodeMalformedWiring   = "ENIGMA_MALFORMED_WIRING"
	ErrCodeInvalidPair       = "ENIGMA_INVALID_PAIR"
	ErrCodeRecordDecode      = "ENIGMA_RECORD_DECODE"
	ErrCodeRecordEncode      = "ENIGMA_RECORD_ENCODE"
	ErrCodeOracle            = "ENIGMA_ORACLE"
	ErrCodeRandom            = "ENIGMA_RANDOM"
	ErrCodeInvalidPassphrase = "ENIGMA_INVALID_PASSPHRASE"
	ErrCodeKeyDerivation     = "ENIGMA_KEY_DERIVATION"
	ErrCodeKeySheetNotFound  = "ENIGMA_KEYSHEET_NOT_FOUND"
	ErrCodeKeySheetRevoked   = "ENIGMA_KEYSHEET_REVOKED"
	ErrCodeSessionNotFound   = "ENIGMA_SESSION_NOT_FOUND"
	ErrCodeStreamClosed      = "ENIGMA_STREAM_CLOSED"
	ErrCodeStreamIO          = "ENIGMA_STREAM_IO"
)
