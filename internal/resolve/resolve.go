// Package resolve merges the active parameter files applying to a node into a
// single value map, recording for every key which scope won and which
// contributions it overrode.
package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/nodewise/configplane/internal/scope"
	"github.com/nodewise/configplane/internal/storage"
)

// ErrInvalidContent indicates a parameter file body could not be parsed as a
// key-value document of its declared content type. Resolution aborts rather
// than silently skipping the file.
var ErrInvalidContent = errors.New("resolve: invalid parameter content")

// Store is the subset of storage the resolver needs.
type Store interface {
	GetNodeByID(ctx context.Context, id string) (*storage.Node, error)
	GetConfigurationByID(ctx context.Context, id string) (*storage.Configuration, error)
	ListActiveParameterFiles(ctx context.Context, configurationID string) ([]*storage.ParameterFile, error)
}

// Resolver computes merged parameters with provenance.
// Resolution is read-only and safe for unlimited concurrency.
type Resolver struct {
	store Store
}

// New creates a resolver.
func New(store Store) *Resolver {
	return &Resolver{store: store}
}

// Contribution records one scope's value for a key.
type Contribution struct {
	ScopeType  scope.Type `json:"scope_type"`
	ScopeValue string     `json:"scope_value,omitempty"`
	Precedence int        `json:"precedence"`
	Version    string     `json:"version"`
	Value      any        `json:"value"`
}

// Provenance explains why a key holds its merged value: the winning
// contribution plus the ordered contributions it overrode (broadest first).
type Provenance struct {
	Contribution
	Overrides []Contribution `json:"overrides,omitempty"`
}

// Result is a full resolution outcome.
type Result struct {
	Merged     map[string]any         `json:"merged"`
	Provenance map[string]*Provenance `json:"provenance"`
}

// Resolve merges every active parameter file applying to the node for the
// configuration. Files are folded in ascending scope precedence, so the
// narrowest applicable scope wins each key; at equal precedence a file with a
// concrete scope value beats a scope-wide one.
//
// The ordering is fully explicit, so resolving the same state twice yields
// identical output.
// Returns storage.ErrNotFound for an unknown node or configuration and
// ErrInvalidContent when any applicable file fails to parse.
func (r *Resolver) Resolve(ctx context.Context, nodeID, configurationID string) (*Result, error) {
	node, err := r.store.GetNodeByID(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	if _, err := r.store.GetConfigurationByID(ctx, configurationID); err != nil {
		return nil, err
	}

	files, err := r.store.ListActiveParameterFiles(ctx, configurationID)
	if err != nil {
		return nil, err
	}

	applicable := make([]*storage.ParameterFile, 0, len(files))
	for _, pf := range files {
		if scope.Applies(scope.Type(pf.ScopeType), pf.ScopeValue, node) {
			applicable = append(applicable, pf)
		}
	}

	sortFiles(applicable)

	result := &Result{
		Merged:     make(map[string]any),
		Provenance: make(map[string]*Provenance),
	}

	for _, pf := range applicable {
		values, err := parseContent(pf.Content, pf.ContentType)
		if err != nil {
			return nil, fmt.Errorf("%w: %s/%s version %s: %v",
				ErrInvalidContent, pf.ScopeType, pf.ScopeValue, pf.Version, err)
		}

		// Keys within one file are applied in sorted order so provenance
		// construction is deterministic
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			contribution := Contribution{
				ScopeType:  scope.Type(pf.ScopeType),
				ScopeValue: pf.ScopeValue,
				Precedence: scope.Precedence(scope.Type(pf.ScopeType)),
				Version:    pf.Version,
				Value:      values[key],
			}

			prev, seen := result.Provenance[key]
			entry := &Provenance{Contribution: contribution}
			if seen {
				entry.Overrides = append(prev.Overrides, prev.Contribution)
			}

			result.Merged[key] = values[key]
			result.Provenance[key] = entry
		}
	}

	return result, nil
}

// sortFiles orders files by ascending precedence; at equal precedence a
// scope-wide entry (empty scope value) sorts before a concrete one, so the
// concrete value wins the fold. Remaining ties fall back to scope value and
// version for determinism.
func sortFiles(files []*storage.ParameterFile) {
	sort.SliceStable(files, func(i, j int) bool {
		pi := scope.Precedence(scope.Type(files[i].ScopeType))
		pj := scope.Precedence(scope.Type(files[j].ScopeType))
		if pi != pj {
			return pi < pj
		}

		iConcrete := files[i].ScopeValue != ""
		jConcrete := files[j].ScopeValue != ""
		if iConcrete != jConcrete {
			return !iConcrete
		}

		if files[i].ScopeValue != files[j].ScopeValue {
			return files[i].ScopeValue < files[j].ScopeValue
		}
		return files[i].Version < files[j].Version
	})
}

// CheckContent verifies that a body parses as a key-value document of the
// declared content type. Used at upload so broken overlays never reach
// resolution.
func CheckContent(content []byte, contentType string) error {
	if _, err := parseContent(content, contentType); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return nil
}

// parseContent parses a parameter file body into a flat key-value map based
// on its declared content type.
func parseContent(content []byte, contentType string) (map[string]any, error) {
	switch contentType {
	case "application/json", "text/json", "":
		var values map[string]any
		if err := json.Unmarshal(content, &values); err != nil {
			return nil, fmt.Errorf("invalid JSON: %v", err)
		}
		return values, nil

	case "application/yaml", "application/x-yaml", "text/yaml":
		var values map[string]any
		if err := yaml.Unmarshal(content, &values); err != nil {
			return nil, fmt.Errorf("invalid YAML: %v", err)
		}
		return values, nil

	default:
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}
}
