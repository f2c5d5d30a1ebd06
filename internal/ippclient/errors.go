package ippclient

import (
	"fmt"

	"github.com/OpenPrinting/goipp"
)

// Error is the tagged error variant every operation in this package and
// its callers return. Kind distinguishes the handling a caller must
// apply; Status carries the IPP status code when one is available.
type Error struct {
	Kind    ErrorKind
	Op      string
	Status  goipp.Status
	Wrapped error
}

// ErrorKind enumerates the ways an IPP exchange can fail, matching the
// taxonomy the relay and event loop branch on.
type ErrorKind int

const (
	// KindTransportTransient covers dial/timeout/connection-reset
	// failures a caller should retry with back-off.
	KindTransportTransient ErrorKind = iota
	// KindAuthFailure covers client-error-not-authorized /
	// client-error-forbidden responses.
	KindAuthFailure
	// KindJobFatal covers a job-scoped IPP error status that cannot
	// be retried; the job must be finished as aborted.
	KindJobFatal
	// KindJobNotFetchable covers client-error-not-fetchable,
	// returned when a job was claimed by another device already.
	KindJobNotFetchable
	// KindRegistrationFatal covers a non-retryable status from the
	// registration/update/subscribe exchange.
	KindRegistrationFatal
	// KindShutdownRequested is not really an error: it unwinds a
	// blocking call when the proxy is shutting down.
	KindShutdownRequested
)

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Wrapped)
	}
	return fmt.Sprintf("%s: ipp status %s", e.Op, e.Status)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Transient wraps a transport-level error (dial failure, timeout,
// reset) as a retryable error.
func Transient(op string, err error) *Error {
	return &Error{Kind: KindTransportTransient, Op: op, Wrapped: err}
}

// FromStatus classifies an IPP response status into the appropriate
// tagged error, or returns nil if the status is successful.
func FromStatus(op string, status goipp.Status) error {
	switch {
	case status < StatusRedirectionOtherSite:
		return nil
	case status == goipp.StatusErrorNotAuthorized || status == goipp.StatusErrorForbidden:
		return &Error{Kind: KindAuthFailure, Op: op, Status: status}
	case status == StatusErrorNotFetchable:
		return &Error{Kind: KindJobNotFetchable, Op: op, Status: status}
	default:
		return &Error{Kind: KindJobFatal, Op: op, Status: status}
	}
}

// Shutdown is the sentinel error returned by blocking calls that were
// unblocked by proxy shutdown rather than completion.
func Shutdown(op string) error {
	return &Error{Kind: KindShutdownRequested, Op: op}
}

// KindOf extracts the ErrorKind from err, defaulting to
// KindTransportTransient for errors not produced by this package (so
// unrecognized failures default to the retry path rather than being
// silently dropped).
func KindOf(err error) ErrorKind {
	var e *Error
	if asError(err, &e) {
		return e.Kind
	}
	return KindTransportTransient
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
