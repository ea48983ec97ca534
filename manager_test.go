//go:build linux

package aio

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"
)

// newTestManager builds a Manager against a fresh kernel AIO context,
// skipping the test if legacy AIO is unavailable in the current
// environment (e.g. a sandboxed runner without io_setup permission).
func newTestManager(t *testing.T, maxEvents uint32) *Manager {
	t.Helper()
	m, err := NewBuilder().MaxEvents(maxEvents).MaxNBatched(16).MaxNWait(16).Build()
	if err != nil {
		t.Skipf("kernel AIO unavailable: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestThreeNonOverlappingWritesProduceExpectedFile(t *testing.T) {
	m := newTestManager(t, 32)
	f, err := os.CreateTemp(t.TempDir(), "aio-writes")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	fd := int(f.Fd())

	h1 := m.Write(fd, 0, []byte("he"))
	h2 := m.Write(fd, 2, []byte("xxxx"))
	h3 := m.Write(fd, 6, []byte("orld"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, h := range []*Handle{h1, h2, h3} {
		if _, _, err := h.Wait(ctx); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	hr := m.Read(fd, 0, 10)
	n, buf, err := hr.Wait(ctx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n != 10 || string(buf) != "hexxxxorld" {
		t.Fatalf("got %q (n=%d), want %q", buf, n, "hexxxxorld")
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	m := newTestManager(t, 32)
	f, err := os.CreateTemp(t.TempDir(), "aio-roundtrip")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	fd := int(f.Fd())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload := []byte("round trip payload")
	if _, _, err := m.Write(fd, 0, payload).Wait(ctx); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	n, buf, err := m.Read(fd, 0, len(payload)).Wait(ctx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n != len(payload) || string(buf) != string(payload) {
		t.Fatalf("got %q, want %q", buf, payload)
	}
}

func TestInvalidFileDescriptorYieldsIOError(t *testing.T) {
	m := newTestManager(t, 8)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err := m.Write(-1, 0, []byte("x")).Wait(ctx)
	if err == nil {
		t.Fatal("expected an error writing to an invalid file descriptor")
	}
	if !IsCode(err, CodeIOError) {
		t.Errorf("expected CodeIOError, got %v", err)
	}
}

func TestManyWritesExceedingMaxEventsAllComplete(t *testing.T) {
	m := newTestManager(t, 128)
	f, err := os.CreateTemp(t.TempDir(), "aio-many")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	fd := int(f.Fd())

	const total = 1024
	handles := make([]*Handle, total)
	for i := 0; i < total; i++ {
		handles[i] = m.Write(fd, uint64(i), []byte{byte(i)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for i, h := range handles {
		if _, _, err := h.Wait(ctx); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}
}

func TestDroppedHandlesDoNotBlockSurvivors(t *testing.T) {
	m := newTestManager(t, 32)
	f, err := os.CreateTemp(t.TempDir(), "aio-drop")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	fd := int(f.Fd())

	const total = 10
	handles := make([]*Handle, total)
	for i := 0; i < total; i++ {
		handles[i] = m.Write(fd, uint64(i), []byte{byte('a' + i)})
	}

	for i := 0; i < total; i += 2 {
		handles[i].Cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var wg sync.WaitGroup
	for i := 1; i < total; i += 2 {
		wg.Add(1)
		go func(h *Handle) {
			defer wg.Done()
			if _, _, err := h.Wait(ctx); err != nil {
				t.Errorf("surviving write failed: %v", err)
			}
		}(handles[i])
	}
	wg.Wait()
}

func TestCloseWithNoPendingWorkReturnsPromptly(t *testing.T) {
	m := newTestManager(t, 8)
	done := make(chan struct{})
	go func() {
		m.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not return promptly for an idle manager")
	}
}

func TestReadAfterCloseReturnsManagerClosed(t *testing.T) {
	m := newTestManager(t, 8)
	if err := m.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	ctx := context.Background()
	_, _, err := m.Read(0, 0, 1).Wait(ctx)
	if !IsCode(err, CodeManagerClosed) {
		t.Fatalf("expected CodeManagerClosed, got %v", err)
	}
}
