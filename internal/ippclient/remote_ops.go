package ippclient

import (
	"context"
	"io"

	"github.com/OpenPrinting/goipp"
)

// GetNotifications polls subscriptionID starting at sequence (the first
// event number the caller has not yet seen) and returns the decoded
// response, whose repeated job groups are one event-notification each.
// notify-wait is always false: the event loop paces itself with its own
// one-second shutdown-aware sleep rather than blocking inside the IPP
// exchange.
func (c *Client) GetNotifications(ctx context.Context, subscriptionID, sequence int) (*goipp.Message, error) {
	msg := c.NewMessage(OpGetNotifications)
	add := Adder(&msg.Operation)
	add("notify-subscription-ids", goipp.TagInteger, goipp.Integer(subscriptionID))
	add("notify-sequence-numbers", goipp.TagInteger, goipp.Integer(sequence))
	add("notify-wait", goipp.TagBoolean, goipp.Boolean(false))
	return c.Do(ctx, msg, nil)
}

// GetFetchableJobs issues the bootstrap Get-Jobs query
// (which-jobs=fetchable) the event loop runs once before it starts
// polling, so jobs that became fetchable before the subscription
// existed are not missed.
func (c *Client) GetFetchableJobs(ctx context.Context) (*goipp.Message, error) {
	msg := c.NewMessage(goipp.OpGetJobs)
	add := Adder(&msg.Operation)
	add("which-jobs", goipp.TagKeyword, goipp.String("fetchable"))
	add("requested-attributes", goipp.TagKeyword, goipp.String("job-id"), goipp.String("job-state"))
	return c.Do(ctx, msg, nil)
}

// FetchJob claims the job-ticket attributes for remoteJobID. A status
// of error-not-fetchable (wrapped as KindJobNotFetchable) means another
// proxy already claimed it.
func (c *Client) FetchJob(ctx context.Context, remoteJobID int) (*goipp.Message, error) {
	msg := c.NewMessage(OpFetchJob)
	add := Adder(&msg.Operation)
	add("job-id", goipp.TagInteger, goipp.Integer(remoteJobID))
	return c.Do(ctx, msg, nil)
}

// AcknowledgeJob confirms receipt of the job ticket fetched above.
func (c *Client) AcknowledgeJob(ctx context.Context, remoteJobID int) error {
	msg := c.NewMessage(OpAcknowledgeJob)
	add := Adder(&msg.Operation)
	add("job-id", goipp.TagInteger, goipp.Integer(remoteJobID))
	_, err := c.Do(ctx, msg, nil)
	return err
}

// FetchDocument requests documentNumber of remoteJobID, optionally
// pinning document-format-accepted, and returns the decoded response
// header plus the unread document-data stream that follows it on the
// wire. The caller must close the returned stream.
func (c *Client) FetchDocument(ctx context.Context, remoteJobID, documentNumber int, formatAccepted string) (*goipp.Message, io.ReadCloser, error) {
	msg := c.NewMessage(OpFetchDocument)
	add := Adder(&msg.Operation)
	add("job-id", goipp.TagInteger, goipp.Integer(remoteJobID))
	add("document-number", goipp.TagInteger, goipp.Integer(documentNumber))
	if formatAccepted != "" {
		add("document-format-accepted", goipp.TagMimeType, goipp.String(formatAccepted))
	}
	return c.DoStream(ctx, msg)
}

// AcknowledgeDocument confirms receipt of the document data fetched
// above.
func (c *Client) AcknowledgeDocument(ctx context.Context, remoteJobID, documentNumber int) error {
	msg := c.NewMessage(OpAcknowledgeDocument)
	add := Adder(&msg.Operation)
	add("job-id", goipp.TagInteger, goipp.Integer(remoteJobID))
	add("document-number", goipp.TagInteger, goipp.Integer(documentNumber))
	_, err := c.Do(ctx, msg, nil)
	return err
}

// UpdateDocumentStatus mirrors a document's relay progress back to the
// Infrastructure Printer.
func (c *Client) UpdateDocumentStatus(ctx context.Context, remoteJobID, documentNumber int, state string) error {
	msg := c.NewMessage(OpUpdateDocumentStatus)
	add := Adder(&msg.Operation)
	add("job-id", goipp.TagInteger, goipp.Integer(remoteJobID))
	add("document-number", goipp.TagInteger, goipp.Integer(documentNumber))
	add("output-device-document-state", goipp.TagEnum, goipp.Integer(documentStateCode(state)))
	_, err := c.Do(ctx, msg, nil)
	return err
}

// UpdateJobStatus mirrors the relay's final verdict on remoteJobID back
// to the Infrastructure Printer.
func (c *Client) UpdateJobStatus(ctx context.Context, remoteJobID int, state string) error {
	msg := c.NewMessage(OpUpdateJobStatus)
	add := Adder(&msg.Operation)
	add("job-id", goipp.TagInteger, goipp.Integer(remoteJobID))
	add("output-device-job-state", goipp.TagEnum, goipp.Integer(jobStateCode(state)))
	_, err := c.Do(ctx, msg, nil)
	return err
}

// AcknowledgeIdentifyPrinter answers an identify-printer-requested
// printer-state-reasons notification, returning the identify-actions
// keyword list the server asked for (empty means "sound" by default).
func (c *Client) AcknowledgeIdentifyPrinter(ctx context.Context) ([]string, string, error) {
	msg := c.NewMessage(OpAcknowledgeIdentifyPrinter)
	resp, err := c.Do(ctx, msg, nil)
	if err != nil {
		return nil, "", err
	}
	actions := GetStrings(resp.Operation, "identify-actions")
	message, _ := GetString(resp.Operation, "message")
	return actions, message, nil
}

// output-device-document-state / output-device-job-state enum values,
// matching the IPP job/document-state registry.
const (
	stateProcessing = 5
	stateCanceled   = 7
	stateAborted    = 8
	stateCompleted  = 9
)

func jobStateCode(state string) int {
	switch state {
	case "completed":
		return stateCompleted
	case "canceled":
		return stateCanceled
	case "aborted":
		return stateAborted
	default:
		return stateProcessing
	}
}

func documentStateCode(state string) int {
	return jobStateCode(state)
}
