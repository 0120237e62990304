package override

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"

	"mercator-hq/wiretap/pkg/traffic"
)

// Header is one header replacement as received from a control message.
// Either Key or Name carries the header name.
type Header struct {
	Key   string `json:"key,omitempty"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value"`
}

// HeaderName returns Key, or Name when Key is empty.
func (h Header) HeaderName() string {
	if h.Key != "" {
		return h.Key
	}
	return h.Name
}

// Metrics receives override update results. A nil Metrics is allowed.
type Metrics interface {
	RecordOverrideUpdate(op, result string)
}

// Config contains configuration for the override manager.
type Config struct {
	// RuleID is the fixed id of the single override rule.
	// Default: 1
	RuleID int

	// Priority of the override rule.
	// Default: 100
	Priority int
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() *Config {
	return &Config{RuleID: 1, Priority: 100}
}

// Manager owns the single active header override rule.
type Manager struct {
	rules   RuleSet
	config  *Config
	metrics Metrics
	logger  *slog.Logger

	// mu serializes updates so that concurrent SetOverride calls cannot
	// interleave their remove and add halves.
	mu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// NewManager creates a manager operating on rules.
func NewManager(rules RuleSet, config *Config, opts ...Option) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	m := &Manager{
		rules:  rules,
		config: config,
		logger: slog.Default().With("component", "traffic.override"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetOverride replaces the active rule with one setting headers on every API
// request whose URL starts with rawURL minus its query and fragment.
func (m *Manager) SetOverride(ctx context.Context, rawURL string, headers []Header) error {
	prefix, err := urlPrefix(rawURL)
	if err != nil {
		m.record("set", "error")
		return traffic.NewRuleError(m.config.RuleID, "set", err)
	}

	actions := make([]HeaderAction, 0, len(headers))
	for _, h := range headers {
		actions = append(actions, HeaderAction{Name: strings.TrimSpace(h.HeaderName()), Value: h.Value})
	}

	rule := &Rule{
		ID:            m.config.RuleID,
		Priority:      m.config.Priority,
		URLPrefix:     prefix,
		ResourceTypes: slices.Clone(traffic.APIResourceTypes),
		Headers:       actions,
	}
	if err := rule.Validate(); err != nil {
		m.record("set", "error")
		return traffic.NewRuleError(m.config.RuleID, "set", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.rules.UpdateRules(ctx, []int{m.config.RuleID}, []*Rule{rule}); err != nil {
		m.record("set", "error")
		m.logger.Error("failed to set override rule",
			"rule_id", m.config.RuleID,
			"url_prefix", prefix,
			"error", err,
		)
		return traffic.NewRuleError(m.config.RuleID, "set", err)
	}

	m.record("set", "success")
	m.logger.Info("override rule set",
		"rule_id", m.config.RuleID,
		"url_prefix", prefix,
		"headers", len(actions),
	)
	return nil
}

// ClearOverride removes the active rule. Clearing when none is set succeeds.
func (m *Manager) ClearOverride(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.rules.UpdateRules(ctx, []int{m.config.RuleID}, nil); err != nil {
		m.record("clear", "error")
		return traffic.NewRuleError(m.config.RuleID, "clear", err)
	}

	m.record("clear", "success")
	m.logger.Info("override rule cleared", "rule_id", m.config.RuleID)
	return nil
}

// Reset clears any rule left from a previous run. Call it at startup.
func (m *Manager) Reset(ctx context.Context) error {
	m.logger.Debug("resetting override rule")
	return m.ClearOverride(ctx)
}

// Active returns the current override rule, or nil when none is set.
func (m *Manager) Active(ctx context.Context) (*Rule, error) {
	rules, err := m.rules.Rules(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		if r.ID == m.config.RuleID {
			return r, nil
		}
	}
	return nil, nil
}

func (m *Manager) record(op, result string) {
	if m.metrics != nil {
		m.metrics.RecordOverrideUpdate(op, result)
	}
}

// urlPrefix validates rawURL and strips its query and fragment.
func urlPrefix(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("%w: empty url", traffic.ErrInvalidURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", traffic.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", traffic.ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", traffic.ErrInvalidURL)
	}

	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}
