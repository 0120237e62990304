// Package override manages the single header override rule.
//
// At most one rule is active at a time. It carries a fixed id, so setting a
// new override is an atomic "remove id, add rule" against the RuleSet and a
// second SetOverride always replaces the first. The rule matches API
// requests (xmlhttprequest and fetch) whose URL starts with the configured
// prefix and sets each listed header.
//
//	rules := override.NewMemoryRuleSet()
//	m := override.NewManager(rules, override.DefaultConfig())
//	_ = m.Reset(ctx)
//
//	err := m.SetOverride(ctx, "https://api.example.com/v1?x=1", []override.Header{
//	    {Key: "Authorization", Value: "Bearer dev"},
//	})
//
// Rules are never persisted; Reset clears leftovers at startup.
package override
