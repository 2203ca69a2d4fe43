// oracle_test.go: Tests for the oracle manager and its local fallbacks.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	goplugins "github.com/agilira/go-plugins"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockOracleProvider implements OracleProvider for testing
type mockOracleProvider struct {
	mu           sync.Mutex
	name         string
	capabilities []OracleCapability
	initialized  bool
	healthy      bool
	initErr      error
	record       *ConfigRecord
	summary      string
	failWith     error
	delay        time.Duration
	ignoreCtx    bool // sleeps through delay like a client without a deadline
	calls        int
	closed       bool
}

func newMockOracleProvider(name string) *mockOracleProvider {
	return &mockOracleProvider{
		name:         name,
		capabilities: []OracleCapability{CapabilityGenerateConfig, CapabilityAnalyzeText},
		healthy:      true,
		summary:      "weather report, no contacts",
	}
}

func (m *mockOracleProvider) Name() string { return m.name }

func (m *mockOracleProvider) Capabilities() []OracleCapability { return m.capabilities }

func (m *mockOracleProvider) Initialize(ctx context.Context, config map[string]interface{}) error {
	if m.initErr != nil {
		return m.initErr
	}
	m.initialized = true
	return nil
}

func (m *mockOracleProvider) Close() error {
	m.closed = true
	m.initialized = false
	return nil
}

func (m *mockOracleProvider) IsHealthy() bool {
	return m.healthy && m.initialized
}

func (m *mockOracleProvider) wait(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.delay == 0 {
		return nil
	}
	if m.ignoreCtx {
		time.Sleep(m.delay)
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.delay):
		return nil
	}
}

func (m *mockOracleProvider) GenerateConfig(ctx context.Context, mode Mode) (*ConfigRecord, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.record, nil
}

func (m *mockOracleProvider) AnalyzeText(ctx context.Context, text string) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	if m.failWith != nil {
		return "", m.failWith
	}
	return m.summary, nil
}

func (m *mockOracleProvider) Explain(ctx context.Context, model ModelID) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	if m.failWith != nil {
		return "", m.failWith
	}
	return "rotors turn like an odometer", nil
}

func (m *mockOracleProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// stubOraclePlugin implements goplugins.Plugin for OracleRequest/OracleResponse
type stubOraclePlugin struct {
	name         string
	capabilities []string
	response     OracleResponse
	err          error

	mu       sync.Mutex
	requests []OracleRequest
}

func (s *stubOraclePlugin) Info() goplugins.PluginInfo {
	return goplugins.PluginInfo{Name: s.name, Version: "1.0.0", Capabilities: s.capabilities}
}

func (s *stubOraclePlugin) Execute(ctx context.Context, execCtx goplugins.ExecutionContext, request OracleRequest) (OracleResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, request)
	s.mu.Unlock()
	return s.response, s.err
}

func (s *stubOraclePlugin) Health(ctx context.Context) goplugins.HealthStatus {
	return goplugins.HealthStatus{Status: goplugins.StatusHealthy, LastCheck: time.Now()}
}

func (s *stubOraclePlugin) Close() error { return nil }

func (s *stubOraclePlugin) received() []OracleRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OracleRequest(nil), s.requests...)
}

func newTestPluginManager(t *testing.T, plugins ...*stubOraclePlugin) *goplugins.Manager[OracleRequest, OracleResponse] {
	t.Helper()
	pm := goplugins.NewManager[OracleRequest, OracleResponse](quietLogger())
	for _, p := range plugins {
		require.NoError(t, pm.Register(p))
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pm.Shutdown(ctx)
	})
	return pm
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOracleManager(config *OracleManagerConfig) *OracleManager {
	return newTestOracleManagerWithPlugins(config, nil)
}

func newTestOracleManagerWithPlugins(config *OracleManagerConfig, pm *goplugins.Manager[OracleRequest, OracleResponse]) *OracleManager {
	if config == nil {
		config = &OracleManagerConfig{}
	}
	config.Logger = quietLogger()
	return NewOracleManager(config, pm)
}

// proposal returns a record for an Enigma I key different from the default.
func proposal(t *testing.T) *ConfigRecord {
	t.Helper()
	cfg := MustDefaultConfig(ModelEnigmaI)
	cfg.Rotors = [3]RotorSettings{
		{Type: RotorV, Position: 1, RingSetting: 2},
		{Type: RotorIV, Position: 3, RingSetting: 4},
		{Type: RotorI, Position: 5, RingSetting: 6},
	}
	cfg.Reflector = ReflectorC
	cfg, err := SetPlugboardPair(cfg, 'S', 'T')
	require.NoError(t, err)
	rec := ToRecord(cfg)
	// Oracles often get model and mode wrong; the manager overrides both.
	rec.Model = "enigma"
	rec.Mode = "LATIN"
	return &rec
}

func TestNewOracleManagerDefaults(t *testing.T) {
	om := NewOracleManager(nil, nil)
	require.NotNil(t, om)
	assert.Equal(t, DefaultOracleTimeout, om.config.OperationTimeout)
	assert.NotNil(t, om.logger)

	var pm *goplugins.Manager[OracleRequest, OracleResponse]
	assert.Equal(t, pm, om.PluginManager())
}

func TestOracleRegisterProvider(t *testing.T) {
	om := newTestOracleManager(nil)

	err := om.RegisterProvider("nil", nil)
	assert.Error(t, err)

	broken := newMockOracleProvider("broken")
	broken.initErr = errors.New("no credentials")
	err = om.RegisterProvider("broken", broken)
	assert.Error(t, err)

	good := newMockOracleProvider("good")
	require.NoError(t, om.RegisterProvider("good", good))

	p, err := om.GetProvider("")
	require.NoError(t, err)
	assert.Equal(t, "good", p.Name())

	_, err = om.GetProvider("broken")
	assert.True(t, errors.Is(err, ErrOracleUnavailable))
}

func TestOracleGetProviderUnhealthy(t *testing.T) {
	om := newTestOracleManager(nil)
	p := newMockOracleProvider("sick")
	require.NoError(t, om.RegisterProvider("sick", p))

	p.healthy = false
	_, err := om.GetProvider("sick")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOracleUnavailable))
}

func TestRequestGeneratedConfigFromOracle(t *testing.T) {
	om := newTestOracleManager(nil)
	p := newMockOracleProvider("llm")
	p.record = proposal(t)
	require.NoError(t, om.RegisterProvider("llm", p))

	current := MustDefaultConfig(ModelEnigmaI)
	cfg, fromOracle := om.RequestGeneratedConfig(context.Background(), current)
	assert.True(t, fromOracle)
	assert.Equal(t, ModelEnigmaI, cfg.Model)
	assert.Equal(t, ModeLatin, cfg.Mode)
	assert.Equal(t, RotorV, cfg.Rotors[SlotLeft].Type)
	assert.Equal(t, ReflectorC, cfg.Reflector)
	assert.Equal(t, []string{"ST"}, cfg.Plugboard.Pairs())
	require.NoError(t, cfg.Validate())
}

func TestRequestGeneratedConfigFallback(t *testing.T) {
	current := MustDefaultConfig(ModelEnigmaI)
	current, err := SetPlugboardPair(current, 'M', 'N')
	require.NoError(t, err)

	assertFallback := func(t *testing.T, cfg MachineConfig, fromOracle bool) {
		t.Helper()
		assert.False(t, fromOracle)
		require.NoError(t, cfg.Validate())
		for slot := range current.Rotors {
			assert.Equal(t, current.Rotors[slot].Type, cfg.Rotors[slot].Type)
		}
		assert.Equal(t, current.Reflector, cfg.Reflector)
		assert.Equal(t, []string{"MN"}, cfg.Plugboard.Pairs())
	}

	t.Run("NoProviders", func(t *testing.T) {
		om := newTestOracleManager(nil)
		cfg, fromOracle := om.RequestGeneratedConfig(context.Background(), current)
		assertFallback(t, cfg, fromOracle)
	})

	t.Run("ProviderError", func(t *testing.T) {
		om := newTestOracleManager(nil)
		p := newMockOracleProvider("llm")
		p.failWith = errors.New("rate limited")
		require.NoError(t, om.RegisterProvider("llm", p))

		cfg, fromOracle := om.RequestGeneratedConfig(context.Background(), current)
		assertFallback(t, cfg, fromOracle)
		assert.Equal(t, 1, p.callCount())
	})

	t.Run("NilRecord", func(t *testing.T) {
		om := newTestOracleManager(nil)
		require.NoError(t, om.RegisterProvider("llm", newMockOracleProvider("llm")))

		cfg, fromOracle := om.RequestGeneratedConfig(context.Background(), current)
		assertFallback(t, cfg, fromOracle)
	})

	t.Run("InvalidProposal", func(t *testing.T) {
		om := newTestOracleManager(nil)
		p := newMockOracleProvider("llm")
		p.record = proposal(t)
		p.record.Rotors[0].Type = "VII" // not fitted to Enigma I
		require.NoError(t, om.RegisterProvider("llm", p))

		cfg, fromOracle := om.RequestGeneratedConfig(context.Background(), current)
		assertFallback(t, cfg, fromOracle)
	})

	t.Run("Timeout", func(t *testing.T) {
		om := newTestOracleManager(&OracleManagerConfig{OperationTimeout: 20 * time.Millisecond})
		p := newMockOracleProvider("slow")
		p.record = proposal(t)
		p.delay = time.Second
		require.NoError(t, om.RegisterProvider("slow", p))

		start := time.Now()
		cfg, fromOracle := om.RequestGeneratedConfig(context.Background(), current)
		assertFallback(t, cfg, fromOracle)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("Unhealthy", func(t *testing.T) {
		om := newTestOracleManager(nil)
		p := newMockOracleProvider("llm")
		p.record = proposal(t)
		require.NoError(t, om.RegisterProvider("llm", p))
		p.healthy = false

		cfg, fromOracle := om.RequestGeneratedConfig(context.Background(), current)
		assertFallback(t, cfg, fromOracle)
		assert.Equal(t, 0, p.callCount())
	})
}

// TestRequestGeneratedConfigIgnoredDeadline verifies a provider that never
// looks at its context cannot hold the caller past the operation timeout
func TestRequestGeneratedConfigIgnoredDeadline(t *testing.T) {
	om := newTestOracleManager(&OracleManagerConfig{OperationTimeout: 20 * time.Millisecond})
	p := newMockOracleProvider("hung")
	p.record = proposal(t)
	p.delay = 500 * time.Millisecond
	p.ignoreCtx = true
	require.NoError(t, om.RegisterProvider("hung", p))

	current := MustDefaultConfig(ModelEnigmaI)
	start := time.Now()
	cfg, fromOracle := om.RequestGeneratedConfig(context.Background(), current)
	elapsed := time.Since(start)

	assert.False(t, fromOracle)
	assert.Less(t, elapsed, 250*time.Millisecond, "fallback waited for the provider")
	assert.Equal(t, current.Rotors[SlotLeft].Type, cfg.Rotors[SlotLeft].Type)

	start = time.Now()
	_, ok := om.RequestTextAnalysis(context.Background(), "WETTER")
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestRequestGeneratedConfigFromPlugin(t *testing.T) {
	rec := proposal(t)
	plugin := &stubOraclePlugin{
		name:         "remote-llm",
		capabilities: []string{string(CapabilityGenerateConfig)},
		response:     OracleResponse{Success: true, Config: rec},
	}
	om := newTestOracleManagerWithPlugins(nil, newTestPluginManager(t, plugin))

	cfg, fromOracle := om.RequestGeneratedConfig(context.Background(), MustDefaultConfig(ModelEnigmaI))
	assert.True(t, fromOracle)
	assert.Equal(t, ModelEnigmaI, cfg.Model)
	assert.Equal(t, RotorV, cfg.Rotors[SlotLeft].Type)
	assert.Equal(t, ReflectorC, cfg.Reflector)
	assert.Equal(t, []string{"ST"}, cfg.Plugboard.Pairs())

	reqs := plugin.received()
	require.Len(t, reqs, 1)
	assert.Equal(t, CapabilityGenerateConfig, reqs[0].Operation)
	assert.Equal(t, ModeLatin, reqs[0].Mode)
}

func TestRequestGeneratedConfigPluginFailures(t *testing.T) {
	current := MustDefaultConfig(ModelEnigmaM3)

	tests := []struct {
		name   string
		plugin *stubOraclePlugin
	}{
		{"Refused", &stubOraclePlugin{
			name:         "refuses",
			capabilities: []string{string(CapabilityGenerateConfig)},
			response:     OracleResponse{Success: false, Error: "quota exceeded"},
		}},
		{"Error", &stubOraclePlugin{
			name:         "broken",
			capabilities: []string{string(CapabilityGenerateConfig)},
			err:          errors.New("connection reset"),
		}},
		{"NoConfig", &stubOraclePlugin{
			name:         "empty",
			capabilities: []string{string(CapabilityGenerateConfig)},
			response:     OracleResponse{Success: true},
		}},
		{"Incapable", &stubOraclePlugin{
			name:         "summarizer",
			capabilities: []string{string(CapabilityAnalyzeText)},
			response:     OracleResponse{Success: true, Config: proposal(t)},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			om := newTestOracleManagerWithPlugins(nil, newTestPluginManager(t, tt.plugin))
			cfg, fromOracle := om.RequestGeneratedConfig(context.Background(), current)
			assert.False(t, fromOracle)
			require.NoError(t, cfg.Validate())
			assert.Equal(t, current.Rotors[SlotMiddle].Type, cfg.Rotors[SlotMiddle].Type)
		})
	}
}

func TestRequestTextAnalysisFromPlugin(t *testing.T) {
	plugin := &stubOraclePlugin{
		name:         "remote-llm",
		capabilities: []string{string(CapabilityAnalyzeText)},
		response:     OracleResponse{Success: true, Summary: "ob-havo ma'lumoti"},
	}
	om := newTestOracleManagerWithPlugins(nil, newTestPluginManager(t, plugin))

	summary, ok := om.RequestTextAnalysis(context.Background(), "ОБ-ҲАВО")
	assert.True(t, ok)
	assert.Equal(t, "ob-havo ma'lumoti", summary)
	assert.Equal(t, "ОБ-ҲАВО", plugin.received()[0].Text)
}

func TestRequestExplanation(t *testing.T) {
	om := newTestOracleManager(nil)
	text, ok := om.RequestExplanation(context.Background(), ModelEnigmaUZ)
	assert.False(t, ok)
	assert.Equal(t, ExplainModel(ModelEnigmaUZ), text)
	assert.Contains(t, text, "38 symbols")

	p := newMockOracleProvider("llm")
	require.NoError(t, om.RegisterProvider("llm", p))
	text, ok = om.RequestExplanation(context.Background(), ModelEnigmaUZ)
	assert.True(t, ok)
	assert.Equal(t, "rotors turn like an odometer", text)

	p.failWith = errors.New("refused")
	text, ok = om.RequestExplanation(context.Background(), ModelEnigmaI)
	assert.False(t, ok)
	assert.Contains(t, text, "26 symbols")
}

func TestRequestExplanationFromPlugin(t *testing.T) {
	plugin := &stubOraclePlugin{
		name:         "remote-llm",
		capabilities: []string{string(CapabilityExplain)},
		response:     OracleResponse{Success: true, Summary: "Enigma rotorli shifrlash mashinasi"},
	}
	om := newTestOracleManagerWithPlugins(nil, newTestPluginManager(t, plugin))

	text, ok := om.RequestExplanation(context.Background(), ModelEnigmaUZ)
	assert.True(t, ok)
	assert.Equal(t, "Enigma rotorli shifrlash mashinasi", text)
	assert.Equal(t, ModelEnigmaUZ, plugin.received()[0].Model)
}

func TestExplainModelUnknownFallsBack(t *testing.T) {
	assert.Equal(t, ExplainModel(ModelEnigmaI), ExplainModel("enigma-x"))
}

func TestRequestGeneratedConfigFailover(t *testing.T) {
	om := newTestOracleManager(&OracleManagerConfig{
		DefaultProvider:   "primary",
		FailoverProviders: []string{"secondary"},
	})

	primary := newMockOracleProvider("primary")
	primary.failWith = errors.New("upstream 503")
	secondary := newMockOracleProvider("secondary")
	secondary.record = proposal(t)

	require.NoError(t, om.RegisterProvider("primary", primary))
	require.NoError(t, om.RegisterProvider("secondary", secondary))

	cfg, fromOracle := om.RequestGeneratedConfig(context.Background(), MustDefaultConfig(ModelEnigmaI))
	assert.True(t, fromOracle)
	assert.Equal(t, RotorV, cfg.Rotors[SlotLeft].Type)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, secondary.callCount())
}

func TestRequestGeneratedConfigSkipsIncapableProvider(t *testing.T) {
	om := newTestOracleManager(nil)
	p := newMockOracleProvider("summarizer")
	p.capabilities = []OracleCapability{CapabilityAnalyzeText}
	p.record = proposal(t)
	require.NoError(t, om.RegisterProvider("summarizer", p))

	_, fromOracle := om.RequestGeneratedConfig(context.Background(), MustDefaultConfig(ModelEnigmaI))
	assert.False(t, fromOracle)
	assert.Equal(t, 0, p.callCount())
}

func TestRequestTextAnalysis(t *testing.T) {
	om := newTestOracleManager(nil)
	summary, ok := om.RequestTextAnalysis(context.Background(), "WETTERBERICHT")
	assert.False(t, ok)
	assert.Empty(t, summary)

	p := newMockOracleProvider("llm")
	require.NoError(t, om.RegisterProvider("llm", p))
	summary, ok = om.RequestTextAnalysis(context.Background(), "WETTERBERICHT")
	assert.True(t, ok)
	assert.Equal(t, "weather report, no contacts", summary)

	p.failWith = errors.New("refused")
	_, ok = om.RequestTextAnalysis(context.Background(), "WETTERBERICHT")
	assert.False(t, ok)
}

func TestOracleManagerClose(t *testing.T) {
	om := newTestOracleManager(nil)
	p := newMockOracleProvider("llm")
	require.NoError(t, om.RegisterProvider("llm", p))

	require.NoError(t, om.Close())
	assert.True(t, p.closed)

	_, err := om.GetProvider("llm")
	assert.True(t, errors.Is(err, ErrOracleUnavailable))
}
