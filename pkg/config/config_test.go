package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Delay string `yaml:"delay"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "vault")
	cfg := &sample{Delay: "600ms"}
	if err := Load(writeFile(t, "name: ${SAMPLE_NAME}\n"), cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "vault" || cfg.Delay != "600ms" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	cfg := &sample{Name: "x"}
	err := Load(writeFile(t, "nmae: typo\n"), cfg)
	if err == nil || !strings.Contains(err.Error(), "nmae") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_Validates(t *testing.T) {
	err := Load(writeFile(t, "delay: 1s\n"), &sample{})
	if err == nil || !strings.Contains(err.Error(), "name is required") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg := &sample{Name: "default"}
	if err := Load(writeFile(t, ""), cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "default" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadOptional(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	cfg := &sample{Name: "default"}
	if err := LoadOptional(missing, cfg); err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if err := LoadOptional(missing, &sample{}); err == nil {
		t.Error("defaults were not validated")
	}
	if err := Load(missing, cfg); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load missing err = %v", err)
	}
}
