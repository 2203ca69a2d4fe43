// oracle.go: Optional external oracle for key generation and text analysis.
//
// An oracle is a best-effort collaborator, typically a remote language model
// reached through a plugin, that can propose a daily key or summarize a
// decrypted message. Nothing in the cipher depends on it: every request
// has a local answer when the oracle is absent, unhealthy, slow or wrong.
// Provider plugins are hosted through github.com/agilira/go-plugins.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	goerrors "github.com/agilira/go-errors"
	goplugins "github.com/agilira/go-plugins"
	"github.com/google/uuid"
)

// OracleCapability names an operation a provider supports.
type OracleCapability string

const (
	CapabilityGenerateConfig OracleCapability = "generate_config" // propose a daily key
	CapabilityAnalyzeText    OracleCapability = "analyze_text"    // summarize a message
	CapabilityExplain        OracleCapability = "explain"         // describe the machine
)

// OracleProvider is implemented by every in-process oracle.
type OracleProvider interface {
	Name() string
	Capabilities() []OracleCapability

	Initialize(ctx context.Context, config map[string]interface{}) error
	Close() error
	IsHealthy() bool

	// GenerateConfig proposes rotors, reflector and plugboard for mode. The
	// model and mode fields of the record are ignored by the manager.
	GenerateConfig(ctx context.Context, mode Mode) (*ConfigRecord, error)

	// AnalyzeText returns a short free-form summary of text.
	AnalyzeText(ctx context.Context, text string) (string, error)

	// Explain returns a short description of how the model works.
	Explain(ctx context.Context, model ModelID) (string, error)
}

// OracleRequest is the message sent to an oracle plugin.
type OracleRequest struct {
	Operation OracleCapability `json:"operation"`
	Model     ModelID          `json:"model,omitempty"`
	Mode      Mode             `json:"mode,omitempty"`
	Text      string           `json:"text,omitempty"`
}

// OracleResponse is the message returned by an oracle plugin. Summary
// carries the answer to both analyze_text and explain.
type OracleResponse struct {
	Success bool          `json:"success"`
	Config  *ConfigRecord `json:"config,omitempty"`
	Summary string        `json:"summary,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// OracleManagerConfig configures an OracleManager.
type OracleManagerConfig struct {
	DefaultProvider   string                            `json:"default_provider"`   // provider tried first
	ProviderConfigs   map[string]map[string]interface{} `json:"provider_configs"`   // passed to Initialize
	FailoverProviders []string                          `json:"failover_providers"` // tried in order after the default
	OperationTimeout  time.Duration                     `json:"operation_timeout"`  // per request
	Logger            *slog.Logger                      `json:"-"`                  // nil means slog.Default()
}

// DefaultOracleTimeout bounds a single oracle request.
const DefaultOracleTimeout = 10 * time.Second

// OracleManager routes requests to registered providers and falls back to
// local generation on any failure.
type OracleManager struct {
	mu              sync.RWMutex
	pluginManager   *goplugins.Manager[OracleRequest, OracleResponse]
	providers       map[string]OracleProvider
	defaultProvider string
	config          *OracleManagerConfig
	logger          *slog.Logger
}

// NewOracleManager creates a manager. pluginManager may be nil when
// providers are registered in-process.
func NewOracleManager(config *OracleManagerConfig, pluginManager *goplugins.Manager[OracleRequest, OracleResponse]) *OracleManager {
	if config == nil {
		config = &OracleManagerConfig{}
	}
	if config.OperationTimeout <= 0 {
		config.OperationTimeout = DefaultOracleTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OracleManager{
		pluginManager: pluginManager,
		providers:     make(map[string]OracleProvider),
		config:        config,
		logger:        logger.With("component", "enigma-oracle"),
	}
}

// PluginManager returns the plugin host the manager was created with, or nil.
func (o *OracleManager) PluginManager() *goplugins.Manager[OracleRequest, OracleResponse] {
	return o.pluginManager
}

// RegisterProvider initializes a provider and makes it available.
func (o *OracleManager) RegisterProvider(name string, provider OracleProvider) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.config.OperationTimeout)
	defer cancel()
	if err := provider.Initialize(ctx, o.config.ProviderConfigs[name]); err != nil {
		return fmt.Errorf("failed to initialize oracle provider %s: %w", name, err)
	}

	o.providers[name] = provider
	if o.defaultProvider == "" || o.config.DefaultProvider == name {
		o.defaultProvider = name
	}
	return nil
}

// GetProvider returns a healthy provider by name; "" selects the default.
func (o *OracleManager) GetProvider(name string) (OracleProvider, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if name == "" {
		name = o.defaultProvider
	}
	provider, ok := o.providers[name]
	if !ok {
		richErr := goerrors.New(ErrCodeOracle, fmt.Sprintf("oracle provider %q not registered", name))
		return nil, fmt.Errorf("%w: %w", ErrOracleUnavailable, richErr)
	}
	if !provider.IsHealthy() {
		richErr := goerrors.New(ErrCodeOracle, fmt.Sprintf("oracle provider %q is unhealthy", name))
		return nil, fmt.Errorf("%w: %w", ErrOracleUnavailable, richErr)
	}
	return provider, nil
}

// oracleBackend is one place a request can go: an in-process provider or a
// plugin hosted by the plugin manager.
type oracleBackend interface {
	name() string
	generate(ctx context.Context, mode Mode) (*ConfigRecord, error)
	analyze(ctx context.Context, text string) (string, error)
	explain(ctx context.Context, model ModelID) (string, error)
}

type providerBackend struct {
	provider OracleProvider
}

func (b providerBackend) name() string { return b.provider.Name() }

func (b providerBackend) generate(ctx context.Context, mode Mode) (*ConfigRecord, error) {
	return b.provider.GenerateConfig(ctx, mode)
}

func (b providerBackend) analyze(ctx context.Context, text string) (string, error) {
	return b.provider.AnalyzeText(ctx, text)
}

func (b providerBackend) explain(ctx context.Context, model ModelID) (string, error) {
	return b.provider.Explain(ctx, model)
}

type pluginBackend struct {
	manager *goplugins.Manager[OracleRequest, OracleResponse]
	plugin  string
	timeout time.Duration
}

func (b pluginBackend) name() string { return "plugin:" + b.plugin }

// execute sends one request without retries; the manager's own deadline
// matches the operation timeout.
func (b pluginBackend) execute(ctx context.Context, req OracleRequest) (OracleResponse, error) {
	execCtx := goplugins.ExecutionContext{
		RequestID:  uuid.NewString(),
		Timeout:    b.timeout,
		MaxRetries: 0,
	}
	resp, err := b.manager.ExecuteWithOptions(ctx, b.plugin, execCtx, req)
	if err != nil {
		return resp, err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "plugin reported failure"
		}
		return resp, goerrors.New(ErrCodeOracle, msg)
	}
	return resp, nil
}

func (b pluginBackend) generate(ctx context.Context, mode Mode) (*ConfigRecord, error) {
	resp, err := b.execute(ctx, OracleRequest{Operation: CapabilityGenerateConfig, Mode: mode})
	if err != nil {
		return nil, err
	}
	return resp.Config, nil
}

func (b pluginBackend) analyze(ctx context.Context, text string) (string, error) {
	resp, err := b.execute(ctx, OracleRequest{Operation: CapabilityAnalyzeText, Text: text})
	if err != nil {
		return "", err
	}
	return resp.Summary, nil
}

func (b pluginBackend) explain(ctx context.Context, model ModelID) (string, error) {
	resp, err := b.execute(ctx, OracleRequest{Operation: CapabilityExplain, Model: model})
	if err != nil {
		return "", err
	}
	return resp.Summary, nil
}

// candidates returns the backends supporting capability: healthy providers,
// default first, then healthy plugins in name order.
func (o *OracleManager) candidates(capability OracleCapability) []oracleBackend {
	o.mu.RLock()
	order := append([]string{o.defaultProvider}, o.config.FailoverProviders...)
	o.mu.RUnlock()

	seen := make(map[string]bool, len(order))
	var out []oracleBackend
	for _, name := range order {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		p, err := o.GetProvider(name)
		if err != nil {
			o.logger.Debug("oracle provider skipped", "provider", name, "error", err)
			continue
		}
		if !supports(p, capability) {
			continue
		}
		out = append(out, providerBackend{provider: p})
	}
	return append(out, o.pluginCandidates(capability)...)
}

func (o *OracleManager) pluginCandidates(capability OracleCapability) []oracleBackend {
	if o.pluginManager == nil {
		return nil
	}

	health := o.pluginManager.ListPlugins()
	names := make([]string, 0, len(health))
	for name, status := range health {
		if status.Status == goplugins.StatusUnhealthy || status.Status == goplugins.StatusOffline {
			o.logger.Debug("oracle plugin skipped", "plugin", name, "status", status.Status.String())
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var out []oracleBackend
	for _, name := range names {
		plugin, err := o.pluginManager.GetPlugin(name)
		if err != nil {
			continue
		}
		if !slices.Contains(plugin.Info().Capabilities, string(capability)) {
			continue
		}
		out = append(out, pluginBackend{manager: o.pluginManager, plugin: name, timeout: o.config.OperationTimeout})
	}
	return out
}

func supports(p OracleProvider, capability OracleCapability) bool {
	return slices.Contains(p.Capabilities(), capability)
}

// callOracle runs fn under the operation timeout. fn runs in its own
// goroutine, so a backend that ignores ctx cannot hold the caller past the
// deadline; its late answer is dropped.
func callOracle[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			richErr := goerrors.Wrap(r.err, ErrCodeOracle, "oracle request failed")
			return r.value, fmt.Errorf("%w: %w", ErrOracleUnavailable, richErr)
		}
		return r.value, nil
	case <-ctx.Done():
		var zero T
		richErr := goerrors.Wrap(ctx.Err(), ErrCodeOracle, "oracle did not answer before deadline")
		return zero, fmt.Errorf("%w: %w", ErrOracleUnavailable, richErr)
	}
}

// RequestGeneratedConfig asks the oracle for a new key for current's model.
// The proposal's rotors, reflector and plugboard replace those of current;
// model and mode are kept. The boolean reports whether an oracle answered.
// Otherwise the result is current with random positions and ring settings
// (RandomizeSettings); if even that fails, current is returned unchanged.
func (o *OracleManager) RequestGeneratedConfig(ctx context.Context, current MachineConfig) (MachineConfig, bool) {
	for _, b := range o.candidates(CapabilityGenerateConfig) {
		cfg, err := o.generateWith(ctx, b, current)
		if err == nil {
			o.logger.Info("oracle key accepted", "provider", b.name(), "fingerprint", GetConfigFingerprint(cfg))
			return cfg, true
		}
		o.logger.Warn("oracle key rejected", "provider", b.name(), "error", err)
	}

	cfg, err := RandomizeSettings(current)
	if err != nil {
		o.logger.Error("local key fallback failed", "error", err)
		return current, false
	}
	o.logger.Info("using local random settings", "model", current.Model)
	return cfg, false
}

func (o *OracleManager) generateWith(ctx context.Context, b oracleBackend, current MachineConfig) (MachineConfig, error) {
	rec, err := callOracle(ctx, o.config.OperationTimeout, func(ctx context.Context) (*ConfigRecord, error) {
		return b.generate(ctx, current.Mode)
	})
	if err != nil {
		return MachineConfig{}, err
	}
	if rec == nil {
		richErr := goerrors.New(ErrCodeOracle, "oracle returned no config")
		return MachineConfig{}, fmt.Errorf("%w: %w", ErrOracleUnavailable, richErr)
	}

	merged := *rec
	merged.Model = string(current.Model)
	merged.Mode = string(current.Mode)
	return FromRecord(merged)
}

// RequestTextAnalysis asks the oracle to summarize text. It returns false
// when no provider could answer; there is no local substitute.
func (o *OracleManager) RequestTextAnalysis(ctx context.Context, text string) (string, bool) {
	for _, b := range o.candidates(CapabilityAnalyzeText) {
		summary, err := callOracle(ctx, o.config.OperationTimeout, func(ctx context.Context) (string, error) {
			return b.analyze(ctx, text)
		})
		if err == nil {
			return summary, true
		}
		o.logger.Warn("oracle analysis failed", "provider", b.name(), "error", err)
	}
	return "", false
}

// RequestExplanation asks the oracle to describe how model works. When no
// provider answers with a non-empty text, a built-in description is
// returned with false.
func (o *OracleManager) RequestExplanation(ctx context.Context, model ModelID) (string, bool) {
	for _, b := range o.candidates(CapabilityExplain) {
		text, err := callOracle(ctx, o.config.OperationTimeout, func(ctx context.Context) (string, error) {
			return b.explain(ctx, model)
		})
		if err == nil && strings.TrimSpace(text) != "" {
			return text, true
		}
		o.logger.Warn("oracle explanation failed", "provider", b.name(), "error", err)
	}
	return ExplainModel(model), false
}

// ExplainModel returns the built-in description of a model's operation.
func ExplainModel(id ModelID) string {
	model, err := LookupModel(id)
	if err != nil {
		model, _ = LookupModel(ModelEnigmaI)
	}
	n := MustResolve(model.Mode).Len()

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s ", model.Name, model.Description)
	fmt.Fprintf(&b, "Each key press first turns the rotors like an odometer, "+
		"then sends the signal through the plugboard, three rotors, the reflector, "+
		"the rotors again in reverse and the plugboard once more, over an alphabet of %d symbols. ", n)
	b.WriteString("The reflector makes the machine reciprocal, so the same settings decipher, " +
		"but it also means no symbol ever enciphers to itself, a weakness that helped the codebreakers. ")
	b.WriteString("The daily key is the choice and order of rotors, their ring settings and starting positions, " +
		"the reflector and the plugboard cables.")
	return b.String()
}

// Close shuts down all providers. The plugin manager is owned by the caller
// and is left running.
func (o *OracleManager) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var errs []error
	for name, p := range o.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close oracle provider %s: %w", name, err))
		}
	}
	o.providers = make(map[string]OracleProvider)
	o.defaultProvider = ""

	if len(errs) > 0 {
		return fmt.Errorf("failed to close some oracle providers: %v", errs)
	}
	return nil
}
