// Package relay implements the relay worker (C5): the single goroutine
// that drains the job registry's pending records, fetches each job's
// ticket and documents from the Infrastructure Printer, streams them to
// the local device through a submission back-end, and mirrors state in
// both directions until the job reaches a terminal outcome.
package relay

import (
	"context"
	"time"

	"github.com/OpenPrinting/goipp"
	"github.com/rs/zerolog"

	"github.com/cyra/ippproxy/internal/ippclient"
	"github.com/cyra/ippproxy/internal/registry"
	"github.com/cyra/ippproxy/internal/relay/backend"
)

// waitTimeout is how long the worker blocks on the registry's
// condition variable between scans when nothing wakes it sooner.
const waitTimeout = 15 * time.Second

// retryPause is the fixed steady-state retry interval for job-scoped
// transport failures (spec.md §5: Fibonacci back-off is only used at
// startup; everywhere else a flat interval applies).
const retryPause = 15 * time.Second

// formatPriority is the order the relay tries output formats in when
// the CLI did not pin one with -m, matching the reference proxy's
// fallback: prefer letting the service pick PDF, then URF, then
// PWG-raster, then PCL.
var formatPriority = []string{"image/urf", "image/pwg-raster", "application/vnd.hp-pcl"}

// Worker drains the registry and relays each eligible job in turn.
type Worker struct {
	Registry    *registry.Registry
	Remote      *ippclient.Client
	Backend     backend.Backend
	MIMEType    string
	DeviceAttrs goipp.Attributes
	Log         zerolog.Logger
}

// Run blocks draining the registry until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		job := w.claimNext()
		if job == nil {
			if n := w.Registry.PurgeTerminal(); n > 0 {
				w.Log.Debug().Int("count", n).Msg("purged terminal job records")
			}
			w.Registry.Wait(waitChannel(ctx, waitTimeout))
			continue
		}

		w.process(ctx, job)
	}
}

// claimNext scans the registry for the first pending job whose remote
// state has not already reached canceled, matching spec.md §4.4's
// "local_job_state == pending && remote_job_state < canceled" rule.
func (w *Worker) claimNext() *registry.Job {
	for _, j := range w.Registry.Pending() {
		if j.RemoteState < registry.RemoteCanceled {
			return j
		}
	}
	return nil
}

func waitChannel(ctx context.Context, d time.Duration) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
		close(ch)
	}()
	return ch
}

// process drives one job through fetching, format selection, the
// per-document loop, and completion.
func (w *Worker) process(ctx context.Context, job *registry.Job) {
	log := w.Log.With().Int("job", job.RemoteJobID).Logger()

	job.MarkFetching()
	ticket, err := w.fetchJob(ctx, job, log)
	if err != nil {
		return // fetchJob already finished the job record
	}

	job.MarkProcessing()

	format := w.chooseFormat()
	job.Format = format

	docCount, _ := ippclient.GetInt(ticket, "number-of-documents")
	if docCount <= 0 {
		docCount = 1
	}
	job.DocumentCount = docCount

	attrs := filterTicketAttrs(ticket)

	var handle backend.Handle
	outcome := registry.LocalCompleted

	for doc := 1; doc <= docCount; doc++ {
		if job.RemoteState.IsTerminal() {
			break
		}

		if err := w.Remote.UpdateDocumentStatus(ctx, job.RemoteJobID, doc, "processing"); err != nil {
			log.Warn().Err(err).Msg("failed to update document status")
		}

		docMsg, stream, err := w.Remote.FetchDocument(ctx, job.RemoteJobID, doc, format)
		if err != nil {
			log.Warn().Err(err).Int("document", doc).Msg("failed to fetch document")
			outcome = registry.LocalAborted
			break
		}

		var docAttrs goipp.Attributes
		if docMsg != nil && len(docMsg.Operation) > 0 {
			docAttrs = docMsg.Operation
		}
		compression, _ := ippclient.GetString(docAttrs, "compression")

		t := backend.Ticket{
			JobName:        job.RemoteURI,
			Attrs:          attrs,
			DocumentFormat: format,
			Compression:    compression,
		}

		last := doc == docCount
		if handle == nil {
			handle, err = w.Backend.SendJob(ctx, t, stream, last)
		} else {
			err = w.Backend.SendDocument(ctx, handle, stream, last)
		}
		stream.Close()
		if err != nil {
			log.Warn().Err(err).Int("document", doc).Msg("failed to submit document to local device")
			outcome = registry.LocalAborted
			break
		}

		if err := w.Remote.UpdateDocumentStatus(ctx, job.RemoteJobID, doc, "completed"); err != nil {
			log.Warn().Err(err).Msg("failed to update document status")
		}

		if err := w.Remote.AcknowledgeDocument(ctx, job.RemoteJobID, doc); err != nil {
			log.Warn().Err(err).Msg("failed to acknowledge document")
		}
	}

	switch {
	case outcome == registry.LocalAborted:
		// already decided by a failure in the document loop
	case handle != nil:
		outcome = w.reconcile(ctx, job, handle, log)
	case job.RemoteState == registry.RemoteCanceled:
		// the loop broke before anything was ever submitted locally
		outcome = registry.LocalCanceled
	case job.RemoteState.IsTerminal():
		outcome = registry.LocalAborted
	}

	job.Finish(outcome)
	if err := w.Remote.UpdateJobStatus(ctx, job.RemoteJobID, string(outcome)); err != nil {
		log.Warn().Err(err).Msg("failed to update final job status")
	}
	log.Info().Str("outcome", string(outcome)).Msg("job relay finished")
}

// fetchJob retries Fetch-Job against transport failures indefinitely
// (15s pause, shutdown-aware), and finishes the job record itself for
// the two outcomes spec.md §4.4 calls out explicitly: stolen by a peer
// (error-not-fetchable) or any other fatal status.
func (w *Worker) fetchJob(ctx context.Context, job *registry.Job, log zerolog.Logger) (goipp.Attributes, error) {
	for {
		resp, err := w.Remote.FetchJob(ctx, job.RemoteJobID)
		if err == nil {
			if ackErr := w.Remote.AcknowledgeJob(ctx, job.RemoteJobID); ackErr != nil {
				log.Warn().Err(ackErr).Msg("failed to acknowledge job")
			}
			return ticketAttrs(resp), nil
		}

		switch ippclient.KindOf(err) {
		case ippclient.KindJobNotFetchable:
			log.Info().Msg("job already claimed by another proxy")
			job.Finish(registry.LocalCompleted)
			return nil, err
		case ippclient.KindTransportTransient:
			log.Warn().Err(err).Msg("fetch-job failed, retrying")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryPause):
			}
		case ippclient.KindAuthFailure:
			log.Warn().Err(err).Msg("fetch-job authentication failed, retrying")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryPause):
			}
		default:
			log.Warn().Err(err).Msg("fetch-job failed fatally")
			job.Finish(registry.LocalAborted)
			if updErr := w.Remote.UpdateJobStatus(ctx, job.RemoteJobID, string(registry.LocalAborted)); updErr != nil {
				log.Warn().Err(updErr).Msg("failed to update job status after fetch failure")
			}
			return nil, err
		}
	}
}

// ticketAttrs returns the combined operation and job-template
// attributes of a Fetch-Job response.
func ticketAttrs(resp *goipp.Message) goipp.Attributes {
	attrs := append(goipp.Attributes{}, resp.Operation...)
	if len(resp.Job) > 0 {
		attrs = append(attrs, resp.Job[0]...)
	}
	return attrs
}

// ticketOperationAttrs and ticketTemplateAttrs list the job-ticket
// attributes copied from the remote job into the local submission, per
// spec.md §4.4.
var ticketOperationAttrs = map[string]bool{
	"job-name":                true,
	"job-password":            true,
	"job-password-encryption": true,
	"job-priority":            true,
}

var ticketTemplateAttrs = map[string]bool{
	"copies":                     true,
	"finishings":                 true,
	"finishings-col":             true,
	"job-account-id":             true,
	"job-accounting-user-id":     true,
	"media":                      true,
	"media-col":                  true,
	"multiple-document-handling": true,
	"orientation-requested":      true,
	"page-ranges":                true,
	"print-color-mode":           true,
	"print-quality":              true,
	"sides":                      true,
}

func filterTicketAttrs(ticket goipp.Attributes) goipp.Attributes {
	var out goipp.Attributes
	for _, a := range ticket {
		if ticketOperationAttrs[a.Name] || ticketTemplateAttrs[a.Name] {
			out = append(out, a)
		}
	}
	return out
}

// chooseFormat picks document-format-accepted per spec.md §4.4: the
// CLI's pinned MIME type wins outright; otherwise the device's own
// advertised document-format-supported is consulted in priority order,
// with PDF left unstated so the Infrastructure Printer may choose it.
func (w *Worker) chooseFormat() string {
	if w.MIMEType != "" {
		return w.MIMEType
	}
	if ippclient.ContainsString(w.DeviceAttrs, "document-format-supported", "application/pdf") {
		return ""
	}
	for _, f := range formatPriority {
		if ippclient.ContainsString(w.DeviceAttrs, "document-format-supported", f) {
			return f
		}
	}
	return ""
}

// reconcile polls the local device until either its job or the remote
// job reaches a terminal state, canceling the local job if the remote
// side cancels first.
func (w *Worker) reconcile(ctx context.Context, job *registry.Job, handle backend.Handle, log zerolog.Logger) registry.LocalJobState {
	for {
		state, err := w.Backend.PollState(ctx, handle)
		if err != nil {
			log.Warn().Err(err).Msg("failed to poll local job state")
			return registry.LocalAborted
		}
		if state.IsTerminal() {
			return mapBackendState(state)
		}

		if job.RemoteState == registry.RemoteCanceled {
			if err := w.Backend.Cancel(ctx, handle); err != nil {
				log.Warn().Err(err).Msg("failed to cancel local job after remote cancellation")
			}
			return registry.LocalCanceled
		}

		select {
		case <-ctx.Done():
			return registry.LocalAborted
		case <-time.After(time.Second):
		}
	}
}

func mapBackendState(s backend.State) registry.LocalJobState {
	switch s {
	case backend.StateCompleted:
		return registry.LocalCompleted
	case backend.StateCanceled:
		return registry.LocalCanceled
	default:
		return registry.LocalAborted
	}
}
