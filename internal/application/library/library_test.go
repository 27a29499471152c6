package library

import (
	"strings"
	"testing"
)

func TestBuiltinCatalog(t *testing.T) {
	c, err := Builtin()
	if err != nil {
		t.Fatalf("builtin: %v", err)
	}

	all := c.List("")
	if len(all) == 0 {
		t.Fatal("expected built-in templates")
	}
	for _, cat := range Categories {
		if len(c.List(cat)) == 0 {
			t.Errorf("category %s has no templates", cat)
		}
	}

	// Ordered by category rank.
	if all[0].Category != "personal" {
		t.Errorf("first category = %s, want personal", all[0].Category)
	}

	tpl, ok := c.Get("groceries")
	if !ok {
		t.Fatal("groceries template missing")
	}
	if tpl.ResetRule != "weekly" || len(tpl.Tasks) == 0 {
		t.Errorf("groceries = %+v", tpl)
	}

	if _, ok := c.Get("nope"); ok {
		t.Error("unknown id should not resolve")
	}
}

func TestParseRejectsInvalidTemplates(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad rule", "templates:\n  - {id: a, name: A, category: work, color: x, reset_rule: hourly}\n", "invalid reset rule"},
		{"bad category", "templates:\n  - {id: a, name: A, category: space, color: x, reset_rule: daily}\n", "unknown category"},
		{"bad task", "templates:\n  - {id: a, name: A, category: work, color: x, reset_rule: daily, tasks: [{description: d, type: later}]}\n", "invalid task type"},
		{"duplicate", "templates:\n  - {id: a, name: A, category: work, color: x, reset_rule: daily}\n  - {id: a, name: B, category: work, color: x, reset_rule: daily}\n", "duplicate"},
		{"not yaml", "templates: [", "parse templates"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
