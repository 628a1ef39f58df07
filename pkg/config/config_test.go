package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("ASM_TEST_NAME", "acme")
	path := writeConfig(t, "name: ${ASM_TEST_NAME}\nport: 8080\n")

	var cfg sample
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "acme" || cfg.Port != 8080 {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoad_KeepsDefaults(t *testing.T) {
	path := writeConfig(t, "name: acme\n")

	cfg := sample{Port: 9000}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("port = %d, want default 9000", cfg.Port)
	}
}

func TestLoad_RunsValidation(t *testing.T) {
	path := writeConfig(t, "port: 0\n")

	var cfg sample
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "port must be positive") {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "port: [\n")

	var cfg sample
	if err := Load(path, &cfg); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadWithDefaults_Fallback(t *testing.T) {
	fallback := writeConfig(t, "name: fallback\nport: 1\n")
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	var cfg sample
	if err := LoadWithDefaults(missing, fallback, &cfg); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.Name != "fallback" {
		t.Errorf("name = %q", cfg.Name)
	}
}

func TestLoadWithDefaults_NoFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg := sample{Port: 80}
	if err := LoadWithDefaults(missing, "", &cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	bad := sample{}
	if err := LoadWithDefaults(missing, "", &bad); err == nil {
		t.Fatal("invalid defaults should fail validation")
	}
}
