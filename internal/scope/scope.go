// Package scope defines the ordered scope types at which parameter overlays
// can be declared, and the predicate deciding which scope values apply to a
// given node.
package scope

import (
	"fmt"

	"github.com/nodewise/configplane/internal/storage"
)

// Type identifies a scope level. The set is closed: adding a level means
// adding a constant, a Types entry, and an applies case.
type Type string

const (
	// Global applies to every node.
	Global Type = "global"
	// Environment applies to nodes in a matching environment.
	Environment Type = "environment"
	// Role applies to nodes with a matching role.
	Role Type = "role"
	// Node applies to a single node by FQDN.
	Node Type = "node"
)

// Types lists all scope types in ascending precedence order.
// Higher precedence overrides lower when both apply to a node.
var Types = []Type{Global, Environment, Role, Node}

// precedences maps each scope type to its precedence integer.
var precedences = map[Type]int{
	Global:      0,
	Environment: 1,
	Role:        2,
	Node:        3,
}

// Valid reports whether s names a known scope type.
func Valid(s string) bool {
	_, ok := precedences[Type(s)]
	return ok
}

// Parse converts a string to a Type, or fails for unknown names.
func Parse(s string) (Type, error) {
	if !Valid(s) {
		return "", fmt.Errorf("unknown scope type %q", s)
	}
	return Type(s), nil
}

// Precedence returns the precedence integer for a scope type.
// Unknown types sort below Global so they can never win a merge.
func Precedence(t Type) int {
	if p, ok := precedences[t]; ok {
		return p
	}
	return -1
}

// Applies reports whether a parameter file declared at (scopeType,
// scopeValue) applies to the node. Global applies unconditionally. For the
// other levels, an empty scopeValue means "all nodes at this level";
// otherwise the value must equal the node's corresponding attribute.
func Applies(scopeType Type, scopeValue string, node *storage.Node) bool {
	switch scopeType {
	case Global:
		return true
	case Environment:
		return scopeValue == "" || scopeValue == node.Environment
	case Role:
		return scopeValue == "" || scopeValue == node.Role
	case Node:
		return scopeValue == "" || scopeValue == node.FQDN
	default:
		return false
	}
}
