package audit_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arca-vault/arca/audit"
	"github.com/arca-vault/arca/vaultmodel"
)

func TestLog_RecordAndRecent(t *testing.T) {
	dir := t.TempDir()

	l, err := audit.Open(dir, audit.WithFlushInterval(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	for i := 0; i < 3; i++ {
		l.Record(vaultmodel.AuditLogEntry{
			ApiKeyName: "ci-bot",
			Action:     vaultmodel.ActionGet,
			SecretKey:  "db",
			Success:    true,
		})
	}

	got := l.Recent(0)
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
}

func TestLog_BufferCapsAtConfiguredSize(t *testing.T) {
	dir := t.TempDir()

	l, err := audit.Open(dir, audit.WithBufferSize(2), audit.WithFlushInterval(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	for i := 0; i < 5; i++ {
		l.Record(vaultmodel.AuditLogEntry{ApiKeyName: "k", Action: vaultmodel.ActionGet, Success: true})
	}

	if got := l.Recent(0); len(got) != 2 {
		t.Fatalf("got %d entries, want 2 (buffer cap)", len(got))
	}
}

func TestLog_CloseFlushesToPerDayFile(t *testing.T) {
	dir := t.TempDir()

	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	l, err := audit.Open(dir, audit.WithFlushInterval(time.Hour), audit.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}

	l.Record(vaultmodel.AuditLogEntry{ApiKeyName: "ci-bot", Action: vaultmodel.ActionGet, SecretKey: "db", Success: true})
	l.Close()

	data, err := os.ReadFile(filepath.Join(dir, "audit-2026-07-30.json"))
	if err != nil {
		t.Fatal(err)
	}

	var entry vaultmodel.AuditLogEntry
	if err := json.Unmarshal(data[:len(data)-1], &entry); err != nil {
		t.Fatalf("failed to parse flushed entry: %v", err)
	}

	if entry.SecretKey != "db" {
		t.Errorf("secret key = %q, want db", entry.SecretKey)
	}
}

func TestLog_ReloadsTailOnOpen(t *testing.T) {
	dir := t.TempDir()

	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	l1, err := audit.Open(dir, audit.WithFlushInterval(time.Hour), audit.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}

	l1.Record(vaultmodel.AuditLogEntry{ApiKeyName: "ci-bot", Action: vaultmodel.ActionGet, SecretKey: "db", Success: true})
	l1.Close()

	l2, err := audit.Open(dir, audit.WithFlushInterval(time.Hour), audit.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	defer l2.Close()

	got := l2.Recent(0)
	if len(got) != 1 || got[0].SecretKey != "db" {
		t.Fatalf("expected reloaded tail with 1 entry, got %+v", got)
	}
}

func TestLog_Statistics(t *testing.T) {
	dir := t.TempDir()

	l, err := audit.Open(dir, audit.WithFlushInterval(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	l.Record(vaultmodel.AuditLogEntry{ApiKeyName: "a", Action: vaultmodel.ActionGet, SecretKey: "db", Success: true})
	l.Record(vaultmodel.AuditLogEntry{ApiKeyName: "a", Action: vaultmodel.ActionGet, SecretKey: "db", Success: true})
	l.Record(vaultmodel.AuditLogEntry{ApiKeyName: "b", Action: vaultmodel.ActionList, Success: false})

	stats := l.Statistics()

	if stats.Total != 3 || stats.Successes != 2 || stats.Failures != 1 {
		t.Errorf("unexpected totals: %+v", stats)
	}

	if stats.UniqueKeys != 2 || stats.UniqueSecrets != 1 {
		t.Errorf("unexpected uniques: %+v", stats)
	}

	if len(stats.TopSecrets) != 1 || stats.TopSecrets[0].Key != "db" || stats.TopSecrets[0].Count != 2 {
		t.Errorf("unexpected top secrets: %+v", stats.TopSecrets)
	}
}
