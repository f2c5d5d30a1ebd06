package registry

import (
	"testing"
	"time"
)

func TestInsertIfAbsentNoDuplicates(t *testing.T) {
	r := New()
	j1, inserted1 := r.InsertIfAbsent(42, "ipp://example/jobs/42")
	if !inserted1 {
		t.Fatal("expected first insert to succeed")
	}
	j2, inserted2 := r.InsertIfAbsent(42, "ipp://example/jobs/42")
	if inserted2 {
		t.Fatal("expected second insert for same remote job id to be a no-op")
	}
	if j1 != j2 {
		t.Fatal("expected the same job record to be returned")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

func TestLocalStateMonotonic(t *testing.T) {
	j, _ := New().InsertIfAbsent(1, "ipp://example/jobs/1")

	if j.Local() != LocalPending {
		t.Fatalf("initial state = %s, want pending", j.Local())
	}

	// Out-of-order transitions must not apply.
	j.MarkProcessing()
	if j.Local() != LocalPending {
		t.Fatalf("MarkProcessing from pending changed state to %s", j.Local())
	}

	j.MarkFetching()
	if j.Local() != LocalFetching {
		t.Fatalf("state = %s, want fetching", j.Local())
	}

	// Calling MarkFetching again must not regress or error.
	j.MarkFetching()
	if j.Local() != LocalFetching {
		t.Fatalf("duplicate MarkFetching changed state to %s", j.Local())
	}

	j.MarkProcessing()
	if j.Local() != LocalProcessing {
		t.Fatalf("state = %s, want processing", j.Local())
	}

	j.Finish(LocalCompleted)
	if j.Local() != LocalCompleted {
		t.Fatalf("state = %s, want completed", j.Local())
	}
	if !j.Done() {
		t.Fatal("Done() = false for a completed job")
	}

	// A job cannot be resurrected once finished.
	j.MarkFetching()
	if j.Local() != LocalCompleted {
		t.Fatalf("MarkFetching after Finish changed state to %s", j.Local())
	}
}

func TestRemovableRequiresTerminalRemoteAndIdleLocal(t *testing.T) {
	j, _ := New().InsertIfAbsent(7, "ipp://example/jobs/7")

	if j.Removable() {
		t.Fatal("a brand-new job must not be removable")
	}

	j.RemoteState = RemoteCompleted
	if !j.Removable() {
		t.Fatal("terminal remote state and idle local state should be removable")
	}

	j.MarkFetching()
	if j.Removable() {
		t.Fatal("a job being fetched must not be removable even if remote state is terminal")
	}

	j.MarkProcessing()
	if j.Removable() {
		t.Fatal("a job being processed must not be removable")
	}

	j.Finish(LocalCompleted)
	if !j.Removable() {
		t.Fatal("a finished job with terminal remote state should be removable")
	}
}

func TestPurgeTerminalOnlyRemovesEligibleJobs(t *testing.T) {
	r := New()
	keep, _ := r.InsertIfAbsent(1, "ipp://example/jobs/1")
	keep.RemoteState = RemotePending

	gone, _ := r.InsertIfAbsent(2, "ipp://example/jobs/2")
	gone.RemoteState = RemoteCompleted
	gone.Finish(LocalCompleted)

	removed := r.PurgeTerminal()
	if removed != 1 {
		t.Fatalf("PurgeTerminal() removed %d, want 1", removed)
	}
	if _, ok := r.Get(2); ok {
		t.Fatal("expected job 2 to be purged")
	}
	if _, ok := r.Get(1); !ok {
		t.Fatal("expected job 1 to remain")
	}
}

func TestPendingReturnsOnlyPendingJobs(t *testing.T) {
	r := New()
	p, _ := r.InsertIfAbsent(1, "ipp://example/jobs/1")
	f, _ := r.InsertIfAbsent(2, "ipp://example/jobs/2")
	f.MarkFetching()

	pending := r.Pending()
	if len(pending) != 1 || pending[0] != p {
		t.Fatalf("Pending() = %v, want only job 1", pending)
	}
}

func TestWaitWokenByNotify(t *testing.T) {
	r := New()
	timeout := make(chan struct{})
	woken := make(chan struct{})
	go func() {
		r.Wait(timeout)
		close(woken)
	}()

	// Give the waiter goroutine a moment to enter Wait before notifying.
	time.Sleep(10 * time.Millisecond)
	r.NotifyWork()
	select {
	case <-woken:
	case <-time.After(time.Second):
		t.Fatal("Wait was not woken by NotifyWork")
	}
}
