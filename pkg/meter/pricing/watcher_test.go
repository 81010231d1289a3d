package pricing

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writePricing(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write pricing file: %v", err)
	}
}

func waitForRate(t *testing.T, table *Table, providerID string, inputPer1K float64) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if p, ok := table.Lookup(providerID); ok && p.InputPer1K == inputPer1K {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prices.yaml")
	writePricing(t, path, `
providers:
  - id: "acme:base"
    model: "base"
    input_per_1k: 0.001
    output_per_1k: 0.002
`)

	table := NewTable(nil)
	if err := table.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(table, path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// give the watcher time to attach before mutating the file
	time.Sleep(100 * time.Millisecond)

	writePricing(t, path, `
providers:
  - id: "acme:base"
    model: "base"
    input_per_1k: 0.005
    output_per_1k: 0.002
`)

	if !waitForRate(t, table, "acme:base", 0.005) {
		t.Fatal("table never picked up the new rate")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch: %v", err)
	}
}

func TestWatcher_AtomicRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prices.yaml")
	writePricing(t, path, `
providers:
  - id: "acme:base"
    model: "base"
    input_per_1k: 0.001
`)

	table := NewTable(nil)
	if err := table.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(table, path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() { _ = w.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// the safe-write pattern: write a temp file, rename over the target
	tmp := filepath.Join(dir, "prices.yaml.tmp")
	writePricing(t, tmp, `
providers:
  - id: "acme:base"
    model: "base"
    input_per_1k: 0.009
`)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}

	if !waitForRate(t, table, "acme:base", 0.009) {
		t.Fatal("table never picked up the renamed file")
	}
}

func TestWatcher_BadReloadKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prices.yaml")
	writePricing(t, path, `
providers:
  - id: "acme:base"
    model: "base"
    input_per_1k: 0.001
`)

	table := NewTable(nil)
	if err := table.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(table, path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() { _ = w.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	writePricing(t, path, "providers: [broken")

	// reload fails; the old entry must survive
	time.Sleep(500 * time.Millisecond)
	p, ok := table.Lookup("acme:base")
	if !ok || p.InputPer1K != 0.001 {
		t.Errorf("previous table lost after a bad reload: %+v ok=%v", p, ok)
	}
}
