// keysheet.go: Key sheet book holding issued daily keys and their rotation.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	goerrors "github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/google/uuid"
)

// Key sheet status constants
const (
	SheetPending    = "pending"    // issued, not yet in force
	SheetActive     = "active"     // the key in force
	SheetDeprecated = "deprecated" // superseded; kept to read late traffic
	SheetRevoked    = "revoked"    // compromised, never to be used again
)

// DefaultMaxSheets is how many sheets a KeyBook keeps before pruning.
const DefaultMaxSheets = 31

// KeySheet is one issued key: the machine's starting configuration for a
// period, usually a day.
type KeySheet struct {
	ID          string        `json:"id"`
	Version     int           `json:"version"`
	Label       string        `json:"label"` // e.g. the date the key is valid for
	Config      MachineConfig `json:"config"`
	Fingerprint string        `json:"fingerprint"`
	CreatedAt   time.Time     `json:"created_at"`
	Status      string        `json:"status"`
}

// KeyBook manages key sheets. It is safe for concurrent use.
type KeyBook struct {
	mu          sync.RWMutex
	active      *KeySheet
	previous    *KeySheet
	sheets      map[string]*KeySheet
	maxSheets   int
	lastVersion int
}

// NewKeyBook creates an empty key book.
func NewKeyBook() *KeyBook {
	return &KeyBook{
		sheets:    make(map[string]*KeySheet),
		maxSheets: DefaultMaxSheets,
	}
}

// NewKeyBookWithOptions creates a key book that keeps at most maxSheets sheets.
func NewKeyBookWithOptions(maxSheets int) *KeyBook {
	kb := NewKeyBook()
	if maxSheets > 0 {
		kb.maxSheets = maxSheets
	}
	return kb
}

// Issue records cfg as a new pending sheet.
func (kb *KeyBook) Issue(label string, cfg MachineConfig) (KeySheet, error) {
	if err := cfg.Validate(); err != nil {
		return KeySheet{}, err
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()
	return *kb.issueLocked(label, cfg), nil
}

func (kb *KeyBook) issueLocked(label string, cfg MachineConfig) *KeySheet {
	kb.lastVersion++
	sheet := &KeySheet{
		ID:          uuid.NewString(),
		Version:     kb.lastVersion,
		Label:       label,
		Config:      cfg,
		Fingerprint: GetConfigFingerprint(cfg),
		CreatedAt:   timecache.CachedTime().UTC(),
		Status:      SheetPending,
	}
	kb.sheets[sheet.ID] = sheet
	return sheet
}

// Generate issues a sheet with a fresh random key for the model.
func (kb *KeyBook) Generate(id ModelID, label string) (KeySheet, error) {
	cfg, err := RandomConfig(id)
	if err != nil {
		return KeySheet{}, err
	}
	return kb.Issue(label, cfg)
}

// Activate puts a sheet in force. The previously active sheet becomes
// deprecated and stays available as Previous.
func (kb *KeyBook) Activate(sheetID string) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	sheet, ok := kb.sheets[sheetID]
	if !ok {
		richErr := goerrors.New(ErrCodeKeySheetNotFound, fmt.Sprintf("key sheet %s not found", sheetID))
		return fmt.Errorf("%w: %w", ErrKeySheetNotFound, richErr)
	}
	if sheet.Status == SheetRevoked {
		richErr := goerrors.New(ErrCodeKeySheetRevoked, fmt.Sprintf("cannot activate revoked key sheet %s", sheetID))
		return fmt.Errorf("%w: %w", ErrKeySheetRevoked, richErr)
	}
	kb.activateLocked(sheet)
	return nil
}

func (kb *KeyBook) activateLocked(sheet *KeySheet) {
	if kb.active == sheet {
		return
	}
	if kb.active != nil {
		kb.active.Status = SheetDeprecated
		kb.previous = kb.active
	}
	sheet.Status = SheetActive
	kb.active = sheet
}

// Rotate generates a new sheet for the model and activates it at once.
// Issuing, activation and pruning happen atomically, so the returned sheet
// is always the one this call issued.
func (kb *KeyBook) Rotate(id ModelID, label string) (KeySheet, error) {
	cfg, err := RandomConfig(id)
	if err != nil {
		return KeySheet{}, fmt.Errorf("failed to generate key sheet: %w", err)
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	sheet := kb.issueLocked(label, cfg)
	kb.activateLocked(sheet)
	kb.pruneLocked()
	return *sheet, nil
}

// Revoke marks a sheet compromised. Revoking the active sheet leaves the
// book without an active key until another is activated.
func (kb *KeyBook) Revoke(sheetID string) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	sheet, ok := kb.sheets[sheetID]
	if !ok {
		richErr := goerrors.New(ErrCodeKeySheetNotFound, fmt.Sprintf("key sheet %s not found", sheetID))
		return fmt.Errorf("%w: %w", ErrKeySheetNotFound, richErr)
	}
	sheet.Status = SheetRevoked
	if kb.active == sheet {
		kb.active = nil
	}
	if kb.previous == sheet {
		kb.previous = nil
	}
	return nil
}

// Active returns the sheet in force.
func (kb *KeyBook) Active() (KeySheet, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	if kb.active == nil {
		richErr := goerrors.New(ErrCodeKeySheetNotFound, "no active key sheet")
		return KeySheet{}, fmt.Errorf("%w: %w", ErrKeySheetNotFound, richErr)
	}
	return *kb.active, nil
}

// Previous returns the sheet that was in force before the active one.
func (kb *KeyBook) Previous() (KeySheet, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	if kb.previous == nil {
		return KeySheet{}, false
	}
	return *kb.previous, true
}

// Get returns a sheet by ID.
func (kb *KeyBook) Get(sheetID string) (KeySheet, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	sheet, ok := kb.sheets[sheetID]
	if !ok {
		richErr := goerrors.New(ErrCodeKeySheetNotFound, fmt.Sprintf("key sheet %s not found", sheetID))
		return KeySheet{}, fmt.Errorf("%w: %w", ErrKeySheetNotFound, richErr)
	}
	return *sheet, nil
}

// List returns all sheets ordered by version.
func (kb *KeyBook) List() []KeySheet {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	out := make([]KeySheet, 0, len(kb.sheets))
	for _, s := range kb.sheets {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// Export serializes the book as JSON. Unless includeConfigs is set, the
// machine settings are left out and only identifiers, fingerprints and
// status are written.
func (kb *KeyBook) Export(includeConfigs bool) ([]byte, error) {
	type sheetExport struct {
		ID          string         `json:"id"`
		Version     int            `json:"version"`
		Label       string         `json:"label"`
		Fingerprint string         `json:"fingerprint"`
		CreatedAt   time.Time      `json:"created_at"`
		Status      string         `json:"status"`
		Config      *MachineConfig `json:"config,omitempty"`
	}
	exportData := struct {
		Sheets    []sheetExport `json:"sheets"`
		Active    string        `json:"active,omitempty"`
		Previous  string        `json:"previous,omitempty"`
		MaxSheets int           `json:"max_sheets"`
	}{}

	sheets := kb.List()

	kb.mu.RLock()
	exportData.MaxSheets = kb.maxSheets
	if kb.active != nil {
		exportData.Active = kb.active.ID
	}
	if kb.previous != nil {
		exportData.Previous = kb.previous.ID
	}
	kb.mu.RUnlock()

	for i := range sheets {
		s := sheets[i]
		e := sheetExport{
			ID:          s.ID,
			Version:     s.Version,
			Label:       s.Label,
			Fingerprint: s.Fingerprint,
			CreatedAt:   s.CreatedAt,
			Status:      s.Status,
		}
		if includeConfigs {
			cfg := s.Config
			e.Config = &cfg
		}
		exportData.Sheets = append(exportData.Sheets, e)
	}

	data, err := json.Marshal(exportData)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeRecordEncode, "failed to marshal key book")
		return nil, fmt.Errorf("export failed: %w", richErr)
	}
	return data, nil
}

// pruneLocked drops the oldest revoked and deprecated sheets once the book
// holds more than maxSheets. The active and previous sheets are never
// dropped.
func (kb *KeyBook) pruneLocked() {
	if len(kb.sheets) <= kb.maxSheets {
		return
	}

	candidates := make([]*KeySheet, 0, len(kb.sheets))
	for _, s := range kb.sheets {
		if s == kb.active || s == kb.previous {
			continue
		}
		if s.Status == SheetRevoked || s.Status == SheetDeprecated {
			candidates = append(candidates, s)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Version < candidates[j].Version })

	for _, s := range candidates {
		if len(kb.sheets) <= kb.maxSheets {
			return
		}
		delete(kb.sheets, s.ID)
	}
}
