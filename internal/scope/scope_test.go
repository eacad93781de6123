package scope

import (
	"testing"

	"github.com/nodewise/configplane/internal/storage"
)

// TestPrecedenceOrdering verifies Types is strictly increasing in precedence.
func TestPrecedenceOrdering(t *testing.T) {
	last := -1
	for _, st := range Types {
		p := Precedence(st)
		if p <= last {
			t.Errorf("precedence of %s (%d) not greater than previous (%d)", st, p, last)
		}
		last = p
	}

	if Precedence(Type("bogus")) != -1 {
		t.Error("expected unknown type to have precedence -1")
	}
}

// TestParse verifies valid and invalid scope type names.
func TestParse(t *testing.T) {
	for _, name := range []string{"global", "environment", "role", "node"} {
		if _, err := Parse(name); err != nil {
			t.Errorf("Parse(%q) failed: %v", name, err)
		}
	}

	if _, err := Parse("region"); err == nil {
		t.Error("expected error for unknown scope type")
	}
	if Valid("region") {
		t.Error("expected region to be invalid")
	}
}

// TestApplies covers the predicate for each scope type.
func TestApplies(t *testing.T) {
	node := &storage.Node{
		FQDN:        "web-01.example.com",
		Environment: "production",
		Role:        "web",
	}

	cases := []struct {
		name       string
		scopeType  Type
		scopeValue string
		want       bool
	}{
		{"global always applies", Global, "", true},
		{"global ignores value", Global, "anything", true},
		{"environment match", Environment, "production", true},
		{"environment mismatch", Environment, "staging", false},
		{"environment wildcard", Environment, "", true},
		{"role match", Role, "web", true},
		{"role mismatch", Role, "db", false},
		{"role wildcard", Role, "", true},
		{"node match", Node, "web-01.example.com", true},
		{"node mismatch", Node, "web-02.example.com", false},
		{"node wildcard", Node, "", true},
		{"unknown type never applies", Type("region"), "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Applies(tc.scopeType, tc.scopeValue, node); got != tc.want {
				t.Errorf("Applies(%s, %q) = %v, want %v", tc.scopeType, tc.scopeValue, got, tc.want)
			}
		})
	}
}

// TestAppliesUnsetAttributes verifies wildcard behavior against a node with
// no environment or role set.
func TestAppliesUnsetAttributes(t *testing.T) {
	node := &storage.Node{FQDN: "bare.example.com"}

	// Wildcard entries still apply
	if !Applies(Environment, "", node) {
		t.Error("expected environment wildcard to apply")
	}
	// But an empty node attribute never matches a concrete value
	if Applies(Role, "web", node) {
		t.Error("expected concrete role not to apply to attribute-less node")
	}
}
