package ippclient

import (
	"context"
	"errors"
	"io"

	"github.com/OpenPrinting/goipp"
)

// LocalCapabilities is the subset of Get-Printer-Attributes this proxy
// needs from the local device before it can submit a job: whether it
// can decompress the formats the remote fetch might hand back, and
// whether it exposes the Create-Job/Send-Document pair or only
// Print-Job.
type LocalCapabilities struct {
	CompressionSupported []string
	CreateJobSendDocument bool
}

// GetLocalCapabilities queries the local device for exactly the two
// attributes the submission back-end needs to choose its strategy.
func (c *Client) GetLocalCapabilities(ctx context.Context) (LocalCapabilities, error) {
	msg := c.NewMessage(goipp.OpGetPrinterAttributes)
	add := Adder(&msg.Operation)
	add("requested-attributes", goipp.TagKeyword,
		goipp.String("compression-supported"), goipp.String("operations-supported"))

	resp, err := c.Do(ctx, msg, nil)
	if err != nil {
		return LocalCapabilities{}, err
	}

	var attrs goipp.Attributes
	if len(resp.Printer) > 0 {
		attrs = resp.Printer[0]
	}

	ops := GetInts(attrs, "operations-supported")
	hasCreateJob := containsOp(ops, goipp.OpCreateJob)
	hasSendDocument := containsOp(ops, goipp.OpSendDocument)

	return LocalCapabilities{
		CompressionSupported: GetStrings(attrs, "compression-supported"),
		CreateJobSendDocument: hasCreateJob && hasSendDocument,
	}, nil
}

func containsOp(ops []int, op goipp.Op) bool {
	for _, o := range ops {
		if goipp.Op(o) == op {
			return true
		}
	}
	return false
}

// CreateJob opens a job on the local device with the given ticket
// attributes (already filtered to the operation/job-template groups
// the relay copies from the remote job) and returns the assigned
// local job id.
func (c *Client) CreateJob(ctx context.Context, ticket goipp.Attributes) (int, error) {
	msg := c.NewMessage(goipp.OpCreateJob)
	msg.Job = append(msg.Job, ticket)

	resp, err := c.Do(ctx, msg, nil)
	if err != nil {
		return 0, err
	}
	id, ok := jobIDFrom(resp)
	if !ok {
		return 0, Transient("Create-Job", errNoJobID)
	}
	return id, nil
}

// SendDocument streams body as a document of localJobID. last marks
// the final document of the job.
func (c *Client) SendDocument(ctx context.Context, localJobID int, documentFormat string, last bool, body io.Reader) error {
	msg := c.NewMessage(goipp.OpSendDocument)
	add := Adder(&msg.Operation)
	add("job-id", goipp.TagInteger, goipp.Integer(localJobID))
	if documentFormat != "" {
		add("document-format", goipp.TagMimeType, goipp.String(documentFormat))
	}
	add("last-document", goipp.TagBoolean, goipp.Boolean(last))

	_, err := c.Do(ctx, msg, body)
	return err
}

// PrintJob submits ticket and body in a single request on devices that
// do not support the Create-Job/Send-Document pair, and returns the
// assigned local job id.
func (c *Client) PrintJob(ctx context.Context, ticket goipp.Attributes, documentFormat string, body io.Reader) (int, error) {
	msg := c.NewMessage(goipp.OpPrintJob)
	msg.Job = append(msg.Job, ticket)
	add := Adder(&msg.Operation)
	if documentFormat != "" {
		add("document-format", goipp.TagMimeType, goipp.String(documentFormat))
	}

	resp, err := c.Do(ctx, msg, body)
	if err != nil {
		return 0, err
	}
	id, ok := jobIDFrom(resp)
	if !ok {
		return 0, Transient("Print-Job", errNoJobID)
	}
	return id, nil
}

// jobIDFrom extracts job-id from whichever group a Create-Job/Print-Job
// response put it in: the operation group on a strict implementation,
// or the single job-attributes group goipp folds repeated job groups
// into.
func jobIDFrom(resp *goipp.Message) (int, bool) {
	if id, ok := GetInt(resp.Operation, "job-id"); ok {
		return id, true
	}
	if len(resp.Job) > 0 {
		return GetInt(resp.Job[0], "job-id")
	}
	return 0, false
}

// GetJobState polls the local job-state of localJobID.
func (c *Client) GetJobState(ctx context.Context, localJobID int) (int, error) {
	msg := c.NewMessage(goipp.OpGetJobAttributes)
	add := Adder(&msg.Operation)
	add("job-id", goipp.TagInteger, goipp.Integer(localJobID))
	add("requested-attributes", goipp.TagKeyword, goipp.String("job-state"))

	resp, err := c.Do(ctx, msg, nil)
	if err != nil {
		return 0, err
	}
	var attrs goipp.Attributes
	if len(resp.Job) > 0 {
		attrs = resp.Job[0]
	}
	state, _ := GetInt(attrs, "job-state")
	return state, nil
}

// CancelJob cancels localJobID on the local device.
func (c *Client) CancelJob(ctx context.Context, localJobID int) error {
	msg := c.NewMessage(goipp.OpCancelJob)
	add := Adder(&msg.Operation)
	add("job-id", goipp.TagInteger, goipp.Integer(localJobID))
	_, err := c.Do(ctx, msg, nil)
	return err
}

var errNoJobID = errors.New("response carried no job-id")
