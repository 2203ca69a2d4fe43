// record.go: Structured records for saving, loading and transporting configurations.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	goerrors "github.com/agilira/go-errors"
	"gopkg.in/yaml.v3"
)

// RotorRecord is the serialized form of RotorSettings.
type RotorRecord struct {
	Type        string `json:"type" yaml:"type"`
	Position    int    `json:"position" yaml:"position"`
	RingSetting int    `json:"ringSetting" yaml:"ringSetting"`
}

// ConfigRecord is the serialized form of MachineConfig. The plugboard is
// stored in both directions, as single-symbol keys and values.
type ConfigRecord struct {
	Model     string            `json:"model" yaml:"model"`
	Mode      string            `json:"mode" yaml:"mode"`
	Rotors    []RotorRecord     `json:"rotors" yaml:"rotors"`
	Reflector string            `json:"reflector" yaml:"reflector"`
	Plugboard map[string]string `json:"plugboard" yaml:"plugboard"`
}

// ToRecord converts cfg to its serialized form.
func ToRecord(cfg MachineConfig) ConfigRecord {
	rec := ConfigRecord{
		Model:     string(cfg.Model),
		Mode:      string(cfg.Mode),
		Rotors:    make([]RotorRecord, len(cfg.Rotors)),
		Reflector: string(cfg.Reflector),
		Plugboard: make(map[string]string, len(cfg.Plugboard.pairs)),
	}
	for i, rs := range cfg.Rotors {
		rec.Rotors[i] = RotorRecord{Type: rs.Type.String(), Position: rs.Position, RingSetting: rs.RingSetting}
	}
	for k, v := range cfg.Plugboard.pairs {
		rec.Plugboard[string(k)] = string(v)
	}
	return rec
}

// FromRecord converts a record back to a configuration and validates it.
// An empty mode is taken from the model.
func FromRecord(rec ConfigRecord) (MachineConfig, error) {
	model, err := LookupModel(ModelID(rec.Model))
	if err != nil {
		return MachineConfig{}, err
	}
	cfg := MachineConfig{Model: model.ID, Mode: Mode(rec.Mode), Reflector: ReflectorID(rec.Reflector)}
	if cfg.Mode == "" {
		cfg.Mode = model.Mode
	}

	if len(rec.Rotors) != len(cfg.Rotors) {
		richErr := goerrors.New(ErrCodeRecordDecode, fmt.Sprintf("record has %d rotors, want %d", len(rec.Rotors), len(cfg.Rotors)))
		return MachineConfig{}, fmt.Errorf("%w: %w", ErrConfiguration, richErr)
	}
	for i, rr := range rec.Rotors {
		t, err := ParseRotorType(rr.Type)
		if err != nil {
			return MachineConfig{}, err
		}
		cfg.Rotors[i] = RotorSettings{Type: t, Position: rr.Position, RingSetting: rr.RingSetting}
	}

	mapping := make(map[rune]rune, len(rec.Plugboard))
	for k, v := range rec.Plugboard {
		kr, vr := []rune(k), []rune(v)
		if len(kr) != 1 || len(vr) != 1 {
			return MachineConfig{}, invalidPlugboardError(fmt.Sprintf("plugboard entry %q-%q must be single symbols", k, v))
		}
		mapping[kr[0]] = vr[0]
	}
	if _, err := Resolve(cfg.Mode); err != nil {
		return MachineConfig{}, err
	}
	if cfg.Plugboard, err = NewPlugboard(cfg.Mode, mapping); err != nil {
		return MachineConfig{}, err
	}

	if err := cfg.Validate(); err != nil {
		return MachineConfig{}, err
	}
	return cfg, nil
}

// MarshalJSON encodes the configuration as a ConfigRecord.
func (c MachineConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToRecord(c))
}

// UnmarshalJSON decodes and validates a ConfigRecord.
func (c *MachineConfig) UnmarshalJSON(data []byte) error {
	var rec ConfigRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeRecordDecode, "failed to decode JSON config record")
		return fmt.Errorf("%w: %w", ErrConfiguration, richErr)
	}
	cfg, err := FromRecord(rec)
	if err != nil {
		return err
	}
	*c = cfg
	return nil
}

// MarshalYAML encodes the configuration as a ConfigRecord.
func (c MachineConfig) MarshalYAML() (interface{}, error) {
	return ToRecord(c), nil
}

// UnmarshalYAML decodes and validates a ConfigRecord.
func (c *MachineConfig) UnmarshalYAML(value *yaml.Node) error {
	var rec ConfigRecord
	if err := value.Decode(&rec); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeRecordDecode, "failed to decode YAML config record")
		return fmt.Errorf("%w: %w", ErrConfiguration, richErr)
	}
	cfg, err := FromRecord(rec)
	if err != nil {
		return err
	}
	*c = cfg
	return nil
}

// MarshalConfigJSON encodes cfg as JSON.
func MarshalConfigJSON(cfg MachineConfig) ([]byte, error) {
	data, err := json.Marshal(ToRecord(cfg))
	if err != nil {
		return nil, goerrors.Wrap(err, ErrCodeRecordEncode, "failed to encode config record")
	}
	return data, nil
}

// MarshalConfigYAML encodes cfg as YAML.
func MarshalConfigYAML(cfg MachineConfig) ([]byte, error) {
	data, err := yaml.Marshal(ToRecord(cfg))
	if err != nil {
		return nil, goerrors.Wrap(err, ErrCodeRecordEncode, "failed to encode config record")
	}
	return data, nil
}

// LoadConfig decodes a saved configuration, JSON or YAML. It never leaves
// the caller without a usable machine: on corrupt or invalid data it
// returns the default configuration of fallback (or of Enigma I when
// fallback is unknown) together with the decode error, which callers
// typically log and otherwise ignore.
//
// Example:
//
//	data, _ := os.ReadFile("daily-key.yaml")
//	cfg, err := enigma.LoadConfig(data, enigma.ModelEnigmaI)
//	if err != nil {
//		log.Printf("saved key unusable, starting from defaults: %v", err)
//	}
func LoadConfig(data []byte, fallback ModelID) (MachineConfig, error) {
	var cfg MachineConfig
	var err error
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, &cfg)
	} else {
		err = yaml.Unmarshal(trimmed, &cfg)
		if err == nil && cfg.Model == "" {
			richErr := goerrors.New(ErrCodeRecordDecode, "config record is empty")
			err = fmt.Errorf("%w: %w", ErrConfiguration, richErr)
		}
	}
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, ErrConfiguration) {
		richErr := goerrors.Wrap(err, ErrCodeRecordDecode, "failed to decode config record")
		err = fmt.Errorf("%w: %w", ErrConfiguration, richErr)
	}

	def, defErr := DefaultConfig(fallback)
	if defErr != nil {
		def = MustDefaultConfig(ModelEnigmaI)
	}
	return def, err
}

// ConfigToBase64 encodes cfg as base64 JSON, convenient for moving a key
// through text-only channels.
func ConfigToBase64(cfg MachineConfig) (string, error) {
	data, err := MarshalConfigJSON(cfg)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ConfigFromBase64 is the inverse of ConfigToBase64.
func ConfigFromBase64(s string) (MachineConfig, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeRecordDecode, "failed to decode base64 config")
		return MachineConfig{}, fmt.Errorf("%w: %w", ErrConfiguration, richErr)
	}
	var cfg MachineConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return MachineConfig{}, err
	}
	return cfg, nil
}

// GetConfigFingerprint returns a short identifier of cfg for logs and key
// sheets: the first 8 bytes of SHA-256 over its canonical JSON, in hex.
// Equal configurations always share a fingerprint.
func GetConfigFingerprint(cfg MachineConfig) string {
	data, err := MarshalConfigJSON(cfg)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%016x", hash[:8])
}
