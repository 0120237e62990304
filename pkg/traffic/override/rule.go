package override

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strings"
	"sync"

	"mercator-hq/wiretap/pkg/traffic"
)

// HeaderAction sets one request header to a fixed value.
type HeaderAction struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Rule rewrites request headers of requests whose URL starts with URLPrefix.
type Rule struct {
	ID            int                    `json:"id"`
	Priority      int                    `json:"priority"`
	URLPrefix     string                 `json:"urlPrefix"`
	ResourceTypes []traffic.ResourceType `json:"resourceTypes"`
	Headers       []HeaderAction         `json:"headers"`
}

// Matches reports whether the rule applies to a request for rawURL of type rt.
// A rule without resource types matches every type.
func (r *Rule) Matches(rawURL string, rt traffic.ResourceType) bool {
	if !strings.HasPrefix(rawURL, r.URLPrefix) {
		return false
	}
	return len(r.ResourceTypes) == 0 || slices.Contains(r.ResourceTypes, rt)
}

// Validate checks that the rule is well formed.
func (r *Rule) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("rule id must be positive, got %d", r.ID)
	}
	if r.URLPrefix == "" {
		return errors.New("url prefix must not be empty")
	}
	if len(r.Headers) == 0 {
		return errors.New("rule must set at least one header")
	}
	for i, h := range r.Headers {
		if strings.TrimSpace(h.Name) == "" {
			return fmt.Errorf("header %d has empty name", i)
		}
	}
	return nil
}

func (r *Rule) clone() *Rule {
	c := *r
	c.ResourceTypes = slices.Clone(r.ResourceTypes)
	c.Headers = slices.Clone(r.Headers)
	return &c
}

// RuleSet is the host's active request-modification rule set.
type RuleSet interface {
	// UpdateRules removes removeIDs and adds add as one atomic change.
	UpdateRules(ctx context.Context, removeIDs []int, add []*Rule) error

	// Rules returns the active rules.
	Rules(ctx context.Context) ([]*Rule, error)
}

// MemoryRuleSet is an in-process RuleSet applied by the interception
// transport. It is safe for concurrent use.
type MemoryRuleSet struct {
	mu    sync.RWMutex
	rules map[int]*Rule
}

// NewMemoryRuleSet creates an empty rule set.
func NewMemoryRuleSet() *MemoryRuleSet {
	return &MemoryRuleSet{rules: make(map[int]*Rule)}
}

// UpdateRules implements RuleSet. Nothing changes when any added rule is
// invalid or collides with a rule that is not being removed.
func (m *MemoryRuleSet) UpdateRules(ctx context.Context, removeIDs []int, add []*Rule) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[int]bool, len(add))
	for _, r := range add {
		if err := r.Validate(); err != nil {
			return traffic.NewRuleError(r.ID, "update", err)
		}
		_, exists := m.rules[r.ID]
		if seen[r.ID] || (exists && !slices.Contains(removeIDs, r.ID)) {
			return traffic.NewRuleError(r.ID, "update", errors.New("duplicate rule id"))
		}
		seen[r.ID] = true
	}

	for _, id := range removeIDs {
		delete(m.rules, id)
	}
	for _, r := range add {
		m.rules[r.ID] = r.clone()
	}
	return nil
}

// Rules implements RuleSet. Rules are ordered by ascending id.
func (m *MemoryRuleSet) Rules(ctx context.Context) ([]*Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Rule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Apply sets the headers of every rule matching req and returns the number
// of rules applied. Higher priority rules are applied last and win.
func (m *MemoryRuleSet) Apply(req *http.Request, rt traffic.ResourceType) int {
	m.mu.RLock()
	var matched []*Rule
	for _, r := range m.rules {
		if r.Matches(req.URL.String(), rt) {
			matched = append(matched, r)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority < matched[j].Priority
		}
		return matched[i].ID < matched[j].ID
	})
	for _, r := range matched {
		for _, h := range r.Headers {
			req.Header.Set(h.Name, h.Value)
		}
	}
	return len(matched)
}
