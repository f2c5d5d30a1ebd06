// Package backend implements the two local-device submission
// strategies the relay worker drives: a raw TCP socket stream for
// legacy PCL printers, and IPP Create-Job/Send-Document (with
// Print-Job fallback) for IPP-Everywhere and HTTPS-secured devices.
package backend

import (
	"context"
	"io"

	"github.com/OpenPrinting/goipp"
)

// State is the local device's view of a submitted job, as reported by
// PollState.
type State string

const (
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateAborted    State = "aborted"
	StateCanceled   State = "canceled"
)

// IsTerminal reports whether the local device will never move out of
// this state on its own.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateAborted || s == StateCanceled
}

// Ticket carries everything a Backend needs to submit one job: the
// job-ticket attributes copied from the remote job (already filtered
// to the operation/job-template groups spec.md §4.4 lists), the chosen
// output format, and the compression the inbound document stream was
// fetched with, if any.
type Ticket struct {
	JobName        string
	Attrs          goipp.Attributes
	DocumentFormat string
	Compression    string
}

// Handle identifies a job once submitted to the local device. The
// socket back-end's handle carries no information: PollState reports
// Completed as soon as the stream has drained. The IPP back-end's
// handle is the local job id.
type Handle interface{}

// Backend is the capability set spec.md §9 names for a local
// submission strategy: open a connection to the device, submit one
// job's document stream, poll its progress, and cancel it.
type Backend interface {
	// Open prepares the backend for use, querying the device if the
	// strategy requires capability discovery first.
	Open(ctx context.Context) error

	// SendJob submits ticket with body as its first document stream
	// and returns a handle PollState/Cancel/SendDocument can use to
	// track it. last marks this as the job's only document.
	SendJob(ctx context.Context, ticket Ticket, body io.Reader, last bool) (Handle, error)

	// SendDocument submits an additional document to a job SendJob
	// already opened, for jobs with more than one document. last
	// marks the final document of the job.
	SendDocument(ctx context.Context, h Handle, body io.Reader, last bool) error

	// PollState reports the current local state of a submitted job.
	PollState(ctx context.Context, h Handle) (State, error)

	// Cancel cancels a submitted job on the local device.
	Cancel(ctx context.Context, h Handle) error
}
