// Package enigma simulates the Enigma family of rotor cipher machines.
//
// The package models the machine as a pure function over an explicit
// configuration value: three rotors with positions and ring settings, a
// reflector and a plugboard. Ciphering a symbol steps the rotors and
// returns the substituted symbol together with the next configuration, so
// callers decide where machine state lives. It offers:
//   - Enigma I, M3, K and a Cyrillic variant with a 38-symbol alphabet
//   - Historical rotor wirings, notches and the double-step anomaly
//   - Plugboard editing with symmetric pairs
//   - JSON and YAML configuration records, base64 transport and fingerprints
//   - Random daily keys and deterministic keys derived from a passphrase
//   - A key sheet book with activation, rotation and revocation
//   - Streaming ciphering of UTF-8 text over io.Reader and io.Writer
//   - Concurrent operator sessions
//   - An optional oracle plugin host, through github.com/agilira/go-plugins
//
// # Quick Start
//
// Encrypting and decrypting a message:
//
//	cfg := enigma.MustDefaultConfig(enigma.ModelEnigmaI)
//
//	ciphertext, _, err := enigma.EncryptMessage("HELLO WORLD", cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// The machine is reciprocal: the same starting configuration deciphers.
//	plaintext, _, err := enigma.DecryptMessage(ciphertext, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println(plaintext) // Output: HELLO WORLD
//
// Symbols outside the machine's alphabet, such as spaces and digits, pass
// through unchanged and do not step the rotors. Lower-case letters are
// ciphered as their upper-case forms.
//
// # Configuration
//
// Configurations are immutable values. Editing returns a new value:
//
//	cfg, err := cfg.WithRotor(enigma.SlotLeft, enigma.RotorSettings{Type: enigma.RotorIV, Position: 3, RingSetting: 5})
//	cfg, err = cfg.WithReflector(enigma.ReflectorC)
//	cfg, err = enigma.SetPlugboardPair(cfg, 'A', 'B')
//	cfg = enigma.ClearPlugboardPair(cfg, 'A')
//
// Records can be saved and loaded in JSON or YAML:
//
//	data, _ := enigma.MarshalConfigYAML(cfg)
//	loaded, err := enigma.LoadConfig(data, enigma.ModelEnigmaI)
//
// # Key Generation
//
//	// A random key for today
//	cfg, err := enigma.RandomConfig(enigma.ModelEnigmaM3)
//
//	// The same key at two stations sharing a passphrase
//	cfg, err = enigma.DeriveDailyConfig(enigma.ModelEnigmaM3, passphrase, time.Now(), nil)
//
// # Error Handling
//
// All functions return standard Go errors. Configuration problems wrap
// ErrConfiguration and a more specific sentinel; each also carries a rich
// error from github.com/agilira/go-errors with an ENIGMA_* code.
//
//	_, _, err := enigma.EncryptMessage("TEXT", cfg)
//	if err != nil {
//		if errors.Is(err, enigma.ErrRotorNotAllowed) {
//			// Handle a rotor the model does not carry
//		} else if errors.Is(err, enigma.ErrConfiguration) {
//			// Handle any other invalid configuration
//		}
//	}
//
// # Streaming
//
//	enc, err := enigma.NewStreamingEncryptor(output, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer enc.Close()
//
//	if _, err := io.Copy(enc, input); err != nil {
//		log.Fatal(err)
//	}
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra library
// SPDX-License-Identifier: MPL-2.0
package enigma
