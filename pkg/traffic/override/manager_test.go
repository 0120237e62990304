package override

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"mercator-hq/wiretap/pkg/traffic"
)

type failingRuleSet struct {
	*MemoryRuleSet
	err error
}

func (f *failingRuleSet) UpdateRules(context.Context, []int, []*Rule) error { return f.err }

func TestManager_SetOverride(t *testing.T) {
	ctx := context.Background()
	rules := NewMemoryRuleSet()
	m := NewManager(rules, nil)

	err := m.SetOverride(ctx, "https://api.x/v1?q=1#frag", []Header{
		{Key: "Authorization", Value: "Bearer a"},
		{Name: "X-Env", Value: "staging"},
	})
	if err != nil {
		t.Fatalf("SetOverride() failed: %v", err)
	}

	active, err := m.Active(ctx)
	if err != nil || active == nil {
		t.Fatalf("expected active rule, got %v (err %v)", active, err)
	}
	if active.URLPrefix != "https://api.x/v1" {
		t.Errorf("expected query and fragment stripped, got %q", active.URLPrefix)
	}
	if active.ID != 1 || active.Priority != 100 {
		t.Errorf("unexpected id/priority: %d/%d", active.ID, active.Priority)
	}
	if len(active.Headers) != 2 || active.Headers[1].Name != "X-Env" {
		t.Errorf("expected key and name forms accepted, got %+v", active.Headers)
	}
}

func TestManager_SecondSetReplacesFirst(t *testing.T) {
	ctx := context.Background()
	rules := NewMemoryRuleSet()
	m := NewManager(rules, nil)

	if err := m.SetOverride(ctx, "https://a.x/", []Header{{Key: "A", Value: "1"}}); err != nil {
		t.Fatalf("first SetOverride() failed: %v", err)
	}
	if err := m.SetOverride(ctx, "https://b.x/", []Header{{Key: "B", Value: "2"}}); err != nil {
		t.Fatalf("second SetOverride() failed: %v", err)
	}

	all, _ := rules.Rules(ctx)
	if len(all) != 1 {
		t.Fatalf("expected exactly one rule, got %d", len(all))
	}
	if all[0].URLPrefix != "https://b.x/" || all[0].Headers[0].Name != "B" {
		t.Errorf("expected second rule to be active, got %+v", all[0])
	}
}

func TestManager_SetThenClear(t *testing.T) {
	ctx := context.Background()
	rules := NewMemoryRuleSet()
	m := NewManager(rules, nil)

	if err := m.SetOverride(ctx, "https://a.x/", []Header{{Key: "A", Value: "1"}}); err != nil {
		t.Fatalf("SetOverride() failed: %v", err)
	}
	if err := m.ClearOverride(ctx); err != nil {
		t.Fatalf("ClearOverride() failed: %v", err)
	}
	if err := m.ClearOverride(ctx); err != nil {
		t.Fatalf("second ClearOverride() failed: %v", err)
	}

	all, _ := rules.Rules(ctx)
	if len(all) != 0 {
		t.Errorf("expected zero rules, got %d", len(all))
	}
	active, _ := m.Active(ctx)
	if active != nil {
		t.Errorf("expected no active rule, got %+v", active)
	}
}

func TestManager_SetOverrideRejects(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		headers []Header
		wantURL bool
	}{
		{"empty url", "", []Header{{Key: "A", Value: "1"}}, true},
		{"relative url", "/api", []Header{{Key: "A", Value: "1"}}, true},
		{"bad scheme", "ftp://x/", []Header{{Key: "A", Value: "1"}}, true},
		{"empty header name", "https://x/", []Header{{Value: "1"}}, false},
		{"no headers", "https://x/", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := NewMemoryRuleSet()
			m := NewManager(rules, nil)

			err := m.SetOverride(context.Background(), tt.url, tt.headers)
			var ruleErr *traffic.RuleError
			if !errors.As(err, &ruleErr) {
				t.Fatalf("expected RuleError, got %v", err)
			}
			if tt.wantURL && !errors.Is(err, traffic.ErrInvalidURL) {
				t.Errorf("expected ErrInvalidURL, got %v", err)
			}
			if all, _ := rules.Rules(context.Background()); len(all) != 0 {
				t.Errorf("expected rule set unchanged, got %d rules", len(all))
			}
		})
	}
}

func TestManager_UpdateFailureIsReported(t *testing.T) {
	cause := errors.New("quota exceeded")
	m := NewManager(&failingRuleSet{MemoryRuleSet: NewMemoryRuleSet(), err: cause}, nil)

	err := m.SetOverride(context.Background(), "https://x/", []Header{{Key: "A", Value: "1"}})
	if !errors.Is(err, cause) {
		t.Errorf("expected update error to be returned, got %v", err)
	}
}

func TestManager_ConcurrentSetsLeaveOneRule(t *testing.T) {
	ctx := context.Background()
	rules := NewMemoryRuleSet()
	m := NewManager(rules, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.SetOverride(ctx, "https://x/", []Header{{Key: "A", Value: "1"}})
		}()
	}
	wg.Wait()

	all, _ := rules.Rules(ctx)
	if len(all) != 1 {
		t.Errorf("expected exactly one rule, got %d", len(all))
	}
}

func TestMemoryRuleSet_Apply(t *testing.T) {
	ctx := context.Background()
	rules := NewMemoryRuleSet()
	err := rules.UpdateRules(ctx, nil, []*Rule{
		{ID: 1, Priority: 100, URLPrefix: "https://api.x/", ResourceTypes: traffic.APIResourceTypes, Headers: []HeaderAction{{Name: "X-A", Value: "high"}}},
		{ID: 2, Priority: 1, URLPrefix: "https://api.x/", Headers: []HeaderAction{{Name: "X-A", Value: "low"}, {Name: "X-B", Value: "b"}}},
	})
	if err != nil {
		t.Fatalf("UpdateRules() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "https://api.x/users", nil)
	if n := rules.Apply(req, traffic.ResourceFetch); n != 2 {
		t.Errorf("expected 2 rules applied, got %d", n)
	}
	if req.Header.Get("X-A") != "high" || req.Header.Get("X-B") != "b" {
		t.Errorf("unexpected headers: %v", req.Header)
	}

	img := httptest.NewRequest(http.MethodGet, "https://api.x/logo.png", nil)
	if n := rules.Apply(img, traffic.ResourceImage); n != 1 {
		t.Errorf("expected only the untyped rule for images, got %d", n)
	}

	other := httptest.NewRequest(http.MethodGet, "https://other.x/", nil)
	if n := rules.Apply(other, traffic.ResourceXHR); n != 0 {
		t.Errorf("expected no rules for other host, got %d", n)
	}
}

func TestMemoryRuleSet_UpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	rules := NewMemoryRuleSet()
	good := &Rule{ID: 1, URLPrefix: "https://x/", Headers: []HeaderAction{{Name: "A", Value: "1"}}}
	_ = rules.UpdateRules(ctx, nil, []*Rule{good})

	bad := &Rule{ID: 1, URLPrefix: "https://y/"}
	if err := rules.UpdateRules(ctx, []int{1}, []*Rule{bad}); err == nil {
		t.Fatal("expected invalid rule to be rejected")
	}

	all, _ := rules.Rules(ctx)
	if len(all) != 1 || all[0].URLPrefix != "https://x/" {
		t.Errorf("expected original rule to survive failed update, got %+v", all)
	}

	if err := rules.UpdateRules(ctx, nil, []*Rule{good}); err == nil {
		t.Error("expected duplicate id without removal to be rejected")
	}
}
