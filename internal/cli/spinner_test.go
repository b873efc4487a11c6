package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// withStatusOut redirects status output for the duration of the test.
func withStatusOut(t *testing.T, w io.Writer) {
	t.Helper()
	old := statusOut
	statusOut = w
	t.Cleanup(func() { statusOut = old })
}

func TestSpinnerSilentWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	withStatusOut(t, &buf)

	s := startSpinner(context.Background(), "Working...")
	time.Sleep(3 * spinnerTick)
	s.stop()

	if buf.Len() != 0 {
		t.Errorf("spinner drew to a non-file writer: %q", buf.String())
	}
}

func TestSpinnerDrawsAndClears(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "status"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	withStatusOut(t, f)

	s := startSpinner(context.Background(), "Working...")
	time.Sleep(3 * spinnerTick)
	s.stop()

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "Working...") {
		t.Errorf("spinner output %q missing message", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Errorf("spinner did not clear its line: %q", out)
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	withStatusOut(t, io.Discard)
	s := startSpinner(context.Background(), "Working...")
	s.stop()
	s.stop()
	s.succeed("done")
	s.fail("failed")
}

func TestSpinnerInterrupted(t *testing.T) {
	withStatusOut(t, io.Discard)
	ctx, cancel := context.WithCancel(context.Background())

	s := startSpinner(ctx, "Waiting...")
	if s.interrupted() {
		t.Error("fresh spinner reports interrupted")
	}
	s.stop()
	if s.interrupted() {
		t.Error("stop alone should not count as an interruption")
	}

	s = startSpinner(ctx, "Waiting...")
	cancel()
	s.stop()
	if !s.interrupted() {
		t.Error("cancelled parent should count as an interruption")
	}
}

func TestSpinnerStopsWithContext(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "status"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	withStatusOut(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 2*spinnerTick)
	defer cancel()
	s := startSpinner(ctx, "Timing out...")

	select {
	case <-s.stopped:
	case <-time.After(time.Second):
		t.Fatal("spinner kept running after its context ended")
	}
	s.stop()
}
