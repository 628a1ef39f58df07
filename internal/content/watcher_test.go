package content

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/topwebdesignco/advanced-schema-manager/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_ReloadsOnNewFile(t *testing.T) {
	dir, fs := testutil.TestSite(t, testutil.SampleSite)
	lib := NewLibrary(fs, testOpts, quietLogger())
	if _, err := lib.Reload(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	go Watch(ctx, lib, dir, quietLogger(), func() { reloads.Add(1) })

	time.Sleep(100 * time.Millisecond)
	testutil.WriteFile(t, dir, "contact.md", "---\nid: \"30\"\ntitle: Contact\n---\n")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := lib.Item(context.Background(), "30")
		return err == nil
	}, "new file not loaded by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return reloads.Load() > 0
	}, "reload callback not invoked")
}

func TestWatcher_NewDirectory(t *testing.T) {
	dir, fs := testutil.TestSite(t, testutil.SampleSite)
	lib := NewLibrary(fs, testOpts, quietLogger())
	if _, err := lib.Reload(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, lib, dir, quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)
	testutil.WriteFile(t, dir, "guides/intro.md", "---\nid: \"60\"\ntitle: Intro\n---\n")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := lib.Item(context.Background(), "60")
		return err == nil
	}, "file in new directory not loaded")
}
