package eventloop

import (
	"testing"
	"time"

	"github.com/OpenPrinting/goipp"
	"github.com/rs/zerolog"

	"github.com/cyra/ippproxy/internal/ippclient"
	"github.com/cyra/ippproxy/internal/registry"
)

func TestClampIntervalBoundaries(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{-1, 30},
		{0, 0},
		{7, 7},
		{30, 30},
		{99, 30},
	}
	for _, c := range cases {
		if got := clampInterval(c.in); got != c.want {
			t.Errorf("clampInterval(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func newTestLoop() *Loop {
	return &Loop{
		Remote:         &ippclient.Client{PrinterURI: "ipp://example/ipp/print"},
		Registry:       registry.New(),
		SubscriptionID: 1,
		Log:            zerolog.Nop(),
	}
}

func evtAttrs(event string, jobID, state int) goipp.Attributes {
	attrs := goipp.Attributes{}
	add := ippclient.Adder(&attrs)
	add("notify-subscribed-event", goipp.TagKeyword, goipp.String(event))
	add("job-id", goipp.TagInteger, goipp.Integer(jobID))
	if state != 0 {
		add("job-state", goipp.TagEnum, goipp.Integer(state))
	}
	return attrs
}

func TestDispatchJobFetchableInsertsPendingJob(t *testing.T) {
	l := newTestLoop()

	l.dispatch(nil, evtAttrs("job-fetchable", 5, int(registry.RemotePending)))

	job, ok := l.Registry.Get(5)
	if !ok {
		t.Fatal("expected job 5 to be inserted into the registry")
	}
	if job.RemoteState != registry.RemotePending {
		t.Fatalf("RemoteState = %v, want RemotePending", job.RemoteState)
	}
}

func TestDispatchJobFetchableDoesNotDuplicate(t *testing.T) {
	l := newTestLoop()

	l.dispatch(nil, evtAttrs("job-fetchable", 5, int(registry.RemotePending)))
	l.dispatch(nil, evtAttrs("job-fetchable", 5, int(registry.RemotePending)))

	if l.Registry.Len() != 1 {
		t.Fatalf("Registry.Len() = %d, want 1", l.Registry.Len())
	}
}

func TestDispatchJobStateChangedUpdatesKnownJob(t *testing.T) {
	l := newTestLoop()
	l.Registry.InsertIfAbsent(5, "ipp://example/jobs/5")

	l.dispatch(nil, evtAttrs("job-state-changed", 5, int(registry.RemoteCompleted)))

	job, _ := l.Registry.Get(5)
	if job.RemoteState != registry.RemoteCompleted {
		t.Fatalf("RemoteState = %v, want RemoteCompleted", job.RemoteState)
	}
}

func TestDispatchJobStateChangedBroadcastsWaitingWorker(t *testing.T) {
	l := newTestLoop()
	l.Registry.InsertIfAbsent(5, "ipp://example/jobs/5")

	woken := make(chan struct{})
	go func() {
		l.Registry.Wait(make(chan struct{}))
		close(woken)
	}()

	time.Sleep(10 * time.Millisecond)
	l.dispatch(nil, evtAttrs("job-state-changed", 5, int(registry.RemoteCanceled)))

	select {
	case <-woken:
	case <-time.After(time.Second):
		t.Fatal("a relay worker blocked in Wait was not woken by a job-state-changed dispatch")
	}
}

func TestDispatchJobStateChangedIgnoresUntrackedJob(t *testing.T) {
	l := newTestLoop()

	l.dispatch(nil, evtAttrs("job-state-changed", 99, int(registry.RemoteCompleted)))

	if _, ok := l.Registry.Get(99); ok {
		t.Fatal("an untracked job-state-changed event must not insert a new record")
	}
	if l.Registry.Len() != 0 {
		t.Fatalf("Registry.Len() = %d, want 0", l.Registry.Len())
	}
}
