package registry

import (
	"context"

	"github.com/looplab/fsm"
)

// LocalJobState is the proxy-local view of a job's progress, strictly
// monotonic: pending -> fetching -> processing -> one of
// {completed, aborted, canceled}. It never regresses.
type LocalJobState string

const (
	LocalPending    LocalJobState = "pending"
	LocalFetching   LocalJobState = "fetching"
	LocalProcessing LocalJobState = "processing"
	LocalCompleted  LocalJobState = "completed"
	LocalAborted    LocalJobState = "aborted"
	LocalCanceled   LocalJobState = "canceled"
)

// RemoteJobState mirrors the remote Infrastructure Printer's IPP
// job-state for this job, as last observed via Get-Notifications or
// Get-Jobs.
type RemoteJobState int

const (
	RemoteUnknown    RemoteJobState = 0
	RemotePending    RemoteJobState = 3
	RemoteHeld       RemoteJobState = 4
	RemoteProcessing RemoteJobState = 5
	RemoteStopped    RemoteJobState = 6
	RemoteCanceled   RemoteJobState = 7
	RemoteAborted    RemoteJobState = 8
	RemoteCompleted  RemoteJobState = 9
)

// IsTerminal reports whether the remote job-state is one the printer
// will never transition out of.
func (s RemoteJobState) IsTerminal() bool {
	return s >= RemoteCanceled
}

// events and states for the local job FSM. The fsm package enforces
// that only the listed transitions are reachable, turning the
// monotonic-state invariant into a structural property instead of a
// convention callers must remember to honor.
const (
	evFetch   = "fetch"
	evProcess = "process"
	evFinish  = "finish"
)

func newJobFSM(initial LocalJobState) *fsm.FSM {
	return fsm.NewFSM(
		string(initial),
		fsm.Events{
			{Name: evFetch, Src: []string{string(LocalPending)}, Dst: string(LocalFetching)},
			{Name: evProcess, Src: []string{string(LocalFetching)}, Dst: string(LocalProcessing)},
			{Name: evFinish, Src: []string{string(LocalFetching), string(LocalProcessing)}, Dst: string(LocalCompleted)},
		},
		nil,
	)
}

// Job is a single proxy job record, keyed by the remote job id. All
// mutation goes through the methods below, which hold Registry's lock
// for the duration of the state change.
type Job struct {
	RemoteJobID   int
	RemoteURI     string
	RemoteState   RemoteJobState
	DocumentCount int
	Format        string

	fsm *fsm.FSM
}

func newJob(remoteJobID int, remoteURI string) *Job {
	return &Job{
		RemoteJobID: remoteJobID,
		RemoteURI:   remoteURI,
		RemoteState: RemotePending,
		fsm:         newJobFSM(LocalPending),
	}
}

// Local returns the job's current local state.
func (j *Job) Local() LocalJobState {
	return LocalJobState(j.fsm.Current())
}

// MarkFetching transitions pending -> fetching. It is a no-op if the
// job is already past pending, so a stray duplicate dispatch cannot
// regress the state.
func (j *Job) MarkFetching() {
	if j.fsm.Can(evFetch) {
		_ = j.fsm.Event(context.Background(), evFetch)
	}
}

// MarkProcessing transitions fetching -> processing.
func (j *Job) MarkProcessing() {
	if j.fsm.Can(evProcess) {
		_ = j.fsm.Event(context.Background(), evProcess)
	}
}

// Finish transitions the job to its terminal local state. outcome must
// be one of LocalCompleted, LocalAborted, or LocalCanceled.
func (j *Job) Finish(outcome LocalJobState) {
	if !j.fsm.Can(evFinish) {
		return
	}
	_ = j.fsm.Event(context.Background(), evFinish)
	// fsm only models a single terminal destination; record the
	// caller's actual outcome directly since completed/aborted/canceled
	// share the same "done, remove me" handling everywhere else.
	j.fsm.SetState(string(outcome))
}

// Done reports whether the job has reached any terminal local state.
func (j *Job) Done() bool {
	switch j.Local() {
	case LocalCompleted, LocalAborted, LocalCanceled:
		return true
	default:
		return false
	}
}

// Removable reports whether this record may be purged from the
// registry: the remote state must be terminal and the job must not
// currently be mid-flight (fetching or processing).
func (j *Job) Removable() bool {
	if !j.RemoteState.IsTerminal() {
		return false
	}
	switch j.Local() {
	case LocalFetching, LocalProcessing:
		return false
	default:
		return true
	}
}
