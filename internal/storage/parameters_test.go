package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func newTestConfiguration(t *testing.T, s *SQLiteStorage, name string) *Configuration {
	t.Helper()

	cfg := &Configuration{
		ID:         uuid.NewString(),
		Name:       name,
		EntryPoint: "Main",
	}
	if err := s.CreateConfiguration(context.Background(), cfg); err != nil {
		t.Fatalf("failed to create configuration: %v", err)
	}

	return cfg
}

func uploadParams(t *testing.T, s *SQLiteStorage, cfgID, scopeType, scopeValue, version string, draft bool) *ParameterFile {
	t.Helper()

	pf, err := s.UpsertParameterFile(context.Background(), &ParameterFile{
		ConfigurationID: cfgID,
		ScopeType:       scopeType,
		ScopeValue:      scopeValue,
		Version:         version,
		Content:         []byte(`{"a":1}`),
		ContentType:     "application/json",
		Checksum:        "sum-" + version,
		IsDraft:         draft,
	})
	if err != nil {
		t.Fatalf("UpsertParameterFile failed: %v", err)
	}

	return pf
}

// TestUpsertParameterFile verifies insert, draft re-upload, and the active
// version immutability rule.
func TestUpsertParameterFile(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	cfg := newTestConfiguration(t, s, "web-base")

	pf := uploadParams(t, s, cfg.ID, "global", "", "1.0.0", true)
	if !pf.IsDraft || pf.IsActive {
		t.Errorf("expected fresh upload to be draft and inactive, got draft=%v active=%v", pf.IsDraft, pf.IsActive)
	}

	// Drafts are mutable via re-upload of the same version
	updated, err := s.UpsertParameterFile(ctx, &ParameterFile{
		ConfigurationID: cfg.ID,
		ScopeType:       "global",
		ScopeValue:      "",
		Version:         "1.0.0",
		Content:         []byte(`{"a":2}`),
		ContentType:     "application/json",
		Checksum:        "sum-2",
		IsDraft:         true,
	})
	if err != nil {
		t.Fatalf("draft re-upload failed: %v", err)
	}
	if updated.ID != pf.ID {
		t.Errorf("expected re-upload to update row %d, got %d", pf.ID, updated.ID)
	}
	if string(updated.Content) != `{"a":2}` {
		t.Errorf("expected updated content, got %s", updated.Content)
	}

	// Once active, the version is immutable
	if _, err := s.ActivateParameterFile(ctx, cfg.ID, "global", "", "1.0.0"); err != nil {
		t.Fatalf("ActivateParameterFile failed: %v", err)
	}
	_, err = s.UpsertParameterFile(ctx, &ParameterFile{
		ConfigurationID: cfg.ID,
		ScopeType:       "global",
		ScopeValue:      "",
		Version:         "1.0.0",
		Content:         []byte(`{"a":3}`),
		ContentType:     "application/json",
		Checksum:        "sum-3",
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for active version re-upload, got %v", err)
	}
}

// TestActivateParameterFile verifies the single-active invariant: activating
// V2 over active V1 leaves exactly one active version, and V1 becomes
// deletable.
func TestActivateParameterFile(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	cfg := newTestConfiguration(t, s, "web-base")

	uploadParams(t, s, cfg.ID, "role", "web", "1.0.0", false)
	uploadParams(t, s, cfg.ID, "role", "web", "2.0.0", false)

	v1, err := s.ActivateParameterFile(ctx, cfg.ID, "role", "web", "1.0.0")
	if err != nil {
		t.Fatalf("activate v1 failed: %v", err)
	}
	if !v1.IsActive || v1.IsDraft {
		t.Errorf("expected v1 active and not draft, got active=%v draft=%v", v1.IsActive, v1.IsDraft)
	}

	v2, err := s.ActivateParameterFile(ctx, cfg.ID, "role", "web", "2.0.0")
	if err != nil {
		t.Fatalf("activate v2 failed: %v", err)
	}
	if !v2.IsActive {
		t.Error("expected v2 to be active")
	}

	active, err := s.ListActiveParameterFiles(ctx, cfg.ID)
	if err != nil {
		t.Fatalf("ListActiveParameterFiles failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected exactly one active version, got %d", len(active))
	}
	if active[0].Version != "2.0.0" {
		t.Errorf("expected active version 2.0.0, got %s", active[0].Version)
	}

	// The superseded version is now deletable
	if err := s.DeleteParameterFile(ctx, cfg.ID, "role", "web", "1.0.0"); err != nil {
		t.Errorf("expected superseded version to be deletable, got %v", err)
	}
}

// TestActivateParameterFileNotFound verifies activation of a missing version.
func TestActivateParameterFileNotFound(t *testing.T) {
	s := newTestStorage(t)

	cfg := newTestConfiguration(t, s, "web-base")

	_, err := s.ActivateParameterFile(context.Background(), cfg.ID, "global", "", "9.9.9")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestDeleteParameterFile verifies that active versions are protected and
// drafts delete freely.
func TestDeleteParameterFile(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	cfg := newTestConfiguration(t, s, "web-base")

	uploadParams(t, s, cfg.ID, "node", "web-01.example.com", "1.0.0", false)
	if _, err := s.ActivateParameterFile(ctx, cfg.ID, "node", "web-01.example.com", "1.0.0"); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	// Deleting the active version is refused
	err := s.DeleteParameterFile(ctx, cfg.ID, "node", "web-01.example.com", "1.0.0")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for active version, got %v", err)
	}

	// Supersede it, then the old version deletes
	uploadParams(t, s, cfg.ID, "node", "web-01.example.com", "2.0.0", false)
	if _, err := s.ActivateParameterFile(ctx, cfg.ID, "node", "web-01.example.com", "2.0.0"); err != nil {
		t.Fatalf("activate v2 failed: %v", err)
	}
	if err := s.DeleteParameterFile(ctx, cfg.ID, "node", "web-01.example.com", "1.0.0"); err != nil {
		t.Errorf("expected deactivated version to delete, got %v", err)
	}

	// Drafts delete freely
	uploadParams(t, s, cfg.ID, "global", "", "0.1.0", true)
	if err := s.DeleteParameterFile(ctx, cfg.ID, "global", "", "0.1.0"); err != nil {
		t.Errorf("expected draft to delete, got %v", err)
	}

	// Unknown version
	err = s.DeleteParameterFile(ctx, cfg.ID, "global", "", "0.0.0")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestListActiveParameterFilesExcludesDrafts verifies drafts never appear in
// the active set.
func TestListActiveParameterFilesExcludesDrafts(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	cfg := newTestConfiguration(t, s, "web-base")

	uploadParams(t, s, cfg.ID, "global", "", "1.0.0", true)
	uploadParams(t, s, cfg.ID, "role", "web", "1.0.0", false)
	if _, err := s.ActivateParameterFile(ctx, cfg.ID, "role", "web", "1.0.0"); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	active, err := s.ListActiveParameterFiles(ctx, cfg.ID)
	if err != nil {
		t.Fatalf("ListActiveParameterFiles failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active file, got %d", len(active))
	}
	if active[0].ScopeType != "role" {
		t.Errorf("expected role scope, got %s", active[0].ScopeType)
	}
}
