package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"leadbridge/platform/apperr"
	"leadbridge/platform/logger"
)

func testLogger() *logger.Logger {
	return logger.New("production")
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_leads.txt")

	led, err := Load(path, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if led.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d entries", led.Len())
	}
}

func TestLoadReadsExistingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_leads.txt")
	content := "L1\nL2\n\n  L3  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	led, err := Load(path, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if led.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", led.Len())
	}
	for _, id := range []string{"L1", "L2", "L3"} {
		if !led.Contains(id) {
			t.Fatalf("expected ledger to contain %q", id)
		}
	}
	if led.Contains("L4") {
		t.Fatalf("did not expect L4 on the ledger")
	}
}

func TestLoadUnreadableFileFails(t *testing.T) {
	dir := t.TempDir()
	// A directory at the ledger path is an existing but unreadable entry.
	path := filepath.Join(dir, "processed_leads.txt")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	_, err := Load(path, testLogger())
	if err == nil {
		t.Fatalf("expected error for unreadable ledger")
	}
	if !apperr.Is(err, apperr.KindLedgerIO) {
		t.Fatalf("expected ledger I/O kind, got %v", apperr.GetKind(err))
	}
}

func TestAppendPersistsAndDeduplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_leads.txt")
	led, err := Load(path, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := led.Append("L1"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := led.Append("L2"); err != nil {
		t.Fatalf("append: %v", err)
	}

	if !led.Contains("L1") || led.Len() != 2 {
		t.Fatalf("unexpected in-memory state: len=%d", led.Len())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read ledger file: %v", err)
	}
	if string(data) != "L1\nL2\n" {
		t.Fatalf("unexpected file content %q", string(data))
	}

	reloaded, err := Load(path, testLogger())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Contains("L1") || !reloaded.Contains("L2") {
		t.Fatalf("expected entries to survive a reload")
	}
}

func TestAppendFailureDegradesToMemory(t *testing.T) {
	dir := t.TempDir()
	led, err := Load(filepath.Join(dir, "processed_leads.txt"), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Turn the ledger path into a directory so appends fail.
	if err := os.Mkdir(filepath.Join(dir, "processed_leads.txt"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	appendErr := led.Append("L1")
	if appendErr == nil {
		t.Fatalf("expected append to fail")
	}
	if !apperr.Is(appendErr, apperr.KindLedgerIO) {
		t.Fatalf("expected ledger I/O kind, got %v", apperr.GetKind(appendErr))
	}
	if !led.Degraded() {
		t.Fatalf("expected ledger to report degraded")
	}
	if !led.Contains("L1") {
		t.Fatalf("in-memory dedup must still hold after a failed append")
	}
	if !strings.Contains(appendErr.Error(), "ledger") {
		t.Fatalf("unexpected error text %q", appendErr.Error())
	}
}
