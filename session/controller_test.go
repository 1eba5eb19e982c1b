package session_test

import (
	"path/filepath"
	"testing"

	"github.com/arca-vault/arca/config"
	"github.com/arca-vault/arca/ipc"
	"github.com/arca-vault/arca/session"
	"github.com/arca-vault/arca/vaultmodel"
)

func newTestController(t *testing.T) *session.Controller {
	t.Helper()

	dir := t.TempDir()

	paths, err := config.Resolve(
		config.WithVaultPath(filepath.Join(dir, "vault.vlt")),
		config.WithKeysPath(filepath.Join(dir, "vault.vlt.keys")),
		config.WithAuditDir(filepath.Join(dir, "logs")),
	)
	if err != nil {
		t.Fatal(err)
	}

	c := session.New(paths, session.WithSocketPath(filepath.Join(dir, "test.sock")))

	if err := c.Create("correct horse battery staple"); err != nil {
		t.Fatal(err)
	}

	return c
}

func TestController_CreateUnlockLockCycle(t *testing.T) {
	c := newTestController(t)

	if err := c.Unlock("correct horse battery staple"); err != nil {
		t.Fatal(err)
	}

	if !c.IsUnlocked() {
		t.Fatal("expected unlocked state")
	}

	c.Lock()

	if c.IsUnlocked() {
		t.Fatal("expected locked state after Lock")
	}
}

func TestController_UnlockWrongPassword(t *testing.T) {
	c := newTestController(t)

	if err := c.Unlock("wrong password"); err == nil {
		t.Fatal("expected error unlocking with the wrong password")
	}
}

func TestController_AddGetListDeleteSecret(t *testing.T) {
	c := newTestController(t)

	if err := c.Unlock("correct horse battery staple"); err != nil {
		t.Fatal(err)
	}
	defer c.Lock()

	if err := c.AddSecret("db", "s3cret", "prod DB"); err != nil {
		t.Fatal(err)
	}

	entry, ok := c.GetSecret("DB")
	if !ok || entry.Value != "s3cret" {
		t.Fatalf("unexpected secret: %+v, %v", entry, ok)
	}

	if got := c.ListSecrets(""); len(got) != 1 {
		t.Fatalf("expected 1 secret, got %d", len(got))
	}

	if err := c.DeleteSecret("db"); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.GetSecret("db"); ok {
		t.Fatal("expected secret to be gone after delete")
	}
}

func TestController_AddSecretDuplicateFails(t *testing.T) {
	c := newTestController(t)

	if err := c.Unlock("correct horse battery staple"); err != nil {
		t.Fatal(err)
	}
	defer c.Lock()

	if err := c.AddSecret("db", "v1", ""); err != nil {
		t.Fatal(err)
	}

	if err := c.AddSecret("DB", "v2", ""); err == nil {
		t.Fatal("expected error adding a duplicate secret")
	}
}

func TestController_DispatchRequiresAuthOnceKeysExist(t *testing.T) {
	c := newTestController(t)

	if err := c.Unlock("correct horse battery staple"); err != nil {
		t.Fatal(err)
	}
	defer c.Lock()

	if err := c.AddSecret("db", "s3cret", "prod DB"); err != nil {
		t.Fatal(err)
	}

	raw, _, err := c.GenerateApiKey("ci-bot", "", vaultmodel.ApiKeyPermissions{
		Level:          vaultmodel.Restricted,
		AllowedSecrets: []string{"db"},
		CanList:        false,
	})
	if err != nil {
		t.Fatal(err)
	}

	got := c.Dispatch("GET|" + raw + "|db")
	if got != "OK|s3cret|prod DB" {
		t.Errorf("got %q", got)
	}

	got = c.Dispatch("GET|" + raw + "|other")
	if got != "ERROR|"+ipc.ReasonAccessDeniedSecret {
		t.Errorf("got %q", got)
	}

	got = c.Dispatch("EXISTS|" + raw + "|other")
	if got != ipc.False {
		t.Errorf("got %q, want FALSE (non-disclosure)", got)
	}

	got = c.Dispatch("LIST|" + raw + "|")
	if got != "ERROR|"+ipc.ReasonAccessDeniedList {
		t.Errorf("got %q", got)
	}

	got = c.Dispatch("GET|wrong-key|db")
	if got != "ERROR|"+ipc.ReasonInvalidApiKey {
		t.Errorf("got %q", got)
	}
}

func TestController_ExportImportRoundTrip(t *testing.T) {
	c := newTestController(t)

	if err := c.Unlock("correct horse battery staple"); err != nil {
		t.Fatal(err)
	}

	if err := c.AddSecret("db", "s3cret", "prod DB"); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "backup.arcax")

	if err := c.Export(archivePath, "archive password", "test-host"); err != nil {
		t.Fatal(err)
	}

	c.Lock()

	c2 := newTestController(t)
	if err := c2.Unlock("correct horse battery staple"); err != nil {
		t.Fatal(err)
	}
	defer c2.Lock()

	result, err := c2.Import(archivePath, "archive password", session.ImportOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if result.SecretsImported != 1 {
		t.Errorf("unexpected import result: %+v", result)
	}

	if _, ok := c2.GetSecret("db"); !ok {
		t.Error("expected imported secret to be present")
	}
}
