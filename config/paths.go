// Package config resolves the on-disk paths the vault uses, following
// the teacher's functional-options idiom: an explicit constructor
// argument wins, then an environment variable, then a per-user default
// rooted at os.UserConfigDir().
package config

import (
	"os"
	"path/filepath"
)

const (
	envVaultPath = "ARCA_VAULT_PATH"
	envKeysPath  = "ARCA_KEYS_PATH"
	envAuditDir  = "ARCA_AUDIT_DIR"
	envApiKey    = "ARCA_API_KEY"
)

// Paths holds the resolved filesystem locations the vault reads from
// and writes to.
type Paths struct {
	VaultPath string
	KeysPath  string
	AuditDir  string
}

// Option configures path resolution.
type Option func(*Paths)

// WithVaultPath overrides the vault container path.
func WithVaultPath(path string) Option {
	return func(p *Paths) { p.VaultPath = path }
}

// WithKeysPath overrides the API-key store path.
func WithKeysPath(path string) Option {
	return func(p *Paths) { p.KeysPath = path }
}

// WithAuditDir overrides the audit log directory.
func WithAuditDir(dir string) Option {
	return func(p *Paths) { p.AuditDir = dir }
}

// Resolve computes the effective Paths: explicit options win, then the
// matching environment variable, then the per-user default.
func Resolve(opts ...Option) (Paths, error) {
	base, err := defaultBase()
	if err != nil {
		return Paths{}, err
	}

	p := Paths{
		VaultPath: firstNonEmpty(os.Getenv(envVaultPath), filepath.Join(base, "vault.vlt")),
		KeysPath:  firstNonEmpty(os.Getenv(envKeysPath), filepath.Join(base, "vault.vlt.keys")),
		AuditDir:  firstNonEmpty(os.Getenv(envAuditDir), filepath.Join(base, "Logs")),
	}

	for _, opt := range opts {
		opt(&p)
	}

	return p, nil
}

func defaultBase() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, "Arca"), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// ApiKeyFromEnv returns the API key an `arcactl` client should present,
// read from ARCA_API_KEY. It is never consulted by the core server.
func ApiKeyFromEnv() string {
	return os.Getenv(envApiKey)
}
