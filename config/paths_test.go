package config_test

import (
	"path/filepath"
	"testing"

	"github.com/arca-vault/arca/config"
)

func TestResolve_ExplicitOptionWins(t *testing.T) {
	t.Setenv("ARCA_VAULT_PATH", "/env/vault.vlt")

	p, err := config.Resolve(config.WithVaultPath("/explicit/vault.vlt"))
	if err != nil {
		t.Fatal(err)
	}

	if p.VaultPath != "/explicit/vault.vlt" {
		t.Errorf("got %q, want explicit override", p.VaultPath)
	}
}

func TestResolve_EnvVarOverridesDefault(t *testing.T) {
	t.Setenv("ARCA_VAULT_PATH", "/env/vault.vlt")
	t.Setenv("ARCA_KEYS_PATH", "")
	t.Setenv("ARCA_AUDIT_DIR", "")

	p, err := config.Resolve()
	if err != nil {
		t.Fatal(err)
	}

	if p.VaultPath != "/env/vault.vlt" {
		t.Errorf("got %q, want env override", p.VaultPath)
	}
}

func TestResolve_DefaultsUnderUserConfigDir(t *testing.T) {
	t.Setenv("ARCA_VAULT_PATH", "")
	t.Setenv("ARCA_KEYS_PATH", "")
	t.Setenv("ARCA_AUDIT_DIR", "")

	p, err := config.Resolve()
	if err != nil {
		t.Fatal(err)
	}

	if filepath.Base(p.VaultPath) != "vault.vlt" {
		t.Errorf("got %q, want default vault.vlt basename", p.VaultPath)
	}
}
