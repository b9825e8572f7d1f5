package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/swissdoc/apply-agent/internal/apperrors"
)

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.GoogleCloudLocation != "us-central1" {
		t.Errorf("default location = %q", cfg.GoogleCloudLocation)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("default listen addr = %q", cfg.ListenAddr)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.GoogleCloudProject = "my-project"
	cfg.CatalogPath = "/data/jobs.xlsx"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.GoogleCloudProject != "my-project" {
		t.Errorf("project = %q", loaded.GoogleCloudProject)
	}
	if loaded.CatalogPath != "/data/jobs.xlsx" {
		t.Errorf("catalog path = %q", loaded.CatalogPath)
	}
}

func TestValidate(t *testing.T) {
	creds := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(creds, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.GoogleCloudProject = "my-project"
	cfg.GmailCredentialsPath = creds
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg.GoogleCloudProject = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing project")
	}
	if !apperrors.Is(err, apperrors.CodeConfiguration) {
		t.Errorf("error is not a configuration error: %v", err)
	}
}

func TestValidateMissingCredentialsFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GoogleCloudProject = "my-project"
	cfg.GmailCredentialsPath = filepath.Join(t.TempDir(), "absent.json")

	if err := cfg.Validate(); !apperrors.Is(err, apperrors.CodeConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
