package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

type validated struct {
	Port int `yaml:"port"`
}

func (v *validated) Validate() error {
	if v.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_Basic(t *testing.T) {
	p := writeConfig(t, "name: ansuz\nport: 8080\n")
	var cfg sample
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "ansuz" || cfg.Port != 8080 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_CFG_NAME", "from-env")
	p := writeConfig(t, "name: ${TEST_CFG_NAME}\nport: 1\n")
	var cfg sample
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "from-env" {
		t.Errorf("name = %q, want from-env", cfg.Name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	p := writeConfig(t, ": not: yaml: {{{")
	var cfg sample
	if err := Load(p, &cfg); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_ValidatorCalled(t *testing.T) {
	p := writeConfig(t, "port: 0\n")
	var cfg validated
	if err := Load(p, &cfg); err == nil {
		t.Error("expected validation error")
	}

	p = writeConfig(t, "port: 9000\n")
	if err := Load(p, &cfg); err != nil {
		t.Errorf("valid config failed: %v", err)
	}
}

func TestLoadWithDefaults_FallsBack(t *testing.T) {
	def := writeConfig(t, "name: default\nport: 1\n")
	var cfg sample
	err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), def, &cfg)
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.Name != "default" {
		t.Errorf("name = %q, want default", cfg.Name)
	}
}

func TestLoadWithDefaults_NoFallback(t *testing.T) {
	var cfg sample
	err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), "", &cfg)
	if err == nil {
		t.Error("expected error when neither file exists")
	}
}
