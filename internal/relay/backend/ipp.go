package backend

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/OpenPrinting/goipp"
	"github.com/rs/zerolog"

	"github.com/cyra/ippproxy/internal/ippclient"
)

// IPP submits jobs to an IPP-Everywhere or HTTPS-secured local device
// using Create-Job/Send-Document when the device supports both, or a
// single Print-Job otherwise. The choice and the device's
// compression-supported list are discovered once in Open.
type IPP struct {
	Client *ippclient.Client
	Log    zerolog.Logger

	caps ippclient.LocalCapabilities
}

// jobHandle is the IPP back-end's Handle: the local job id.
type jobHandle int

// NewIPP builds an IPP back-end addressed at deviceURI (ipp:// or
// ipps://). The device is reached over https whenever the scheme is
// ipps or the port is 443, and over plain http otherwise; no TLS
// upgrade is attempted on a plain http connection.
func NewIPP(deviceURI, user, password string, timeout time.Duration, log zerolog.Logger) (*IPP, error) {
	httpURL, err := ippclient.HTTPURL(deviceURI)
	if err != nil {
		return nil, fmt.Errorf("invalid ipp device uri %q: %w", deviceURI, err)
	}

	client := ippclient.NewClient(httpURL, user, password, timeout, true)
	return &IPP{Client: client, Log: log}, nil
}

// Open queries the device's compression-supported list and whether it
// exposes Create-Job plus Send-Document.
func (b *IPP) Open(ctx context.Context) error {
	caps, err := b.Client.GetLocalCapabilities(ctx)
	if err != nil {
		return err
	}
	b.caps = caps
	return nil
}

// SendJob submits ticket via Create-Job/Send-Document if the device
// supports the pair, or a single Print-Job otherwise. If the device
// does not list ticket.Compression among compression-supported, the
// compression attribute is stripped from the outbound ticket and body
// is decompressed here before it is sent.
func (b *IPP) SendJob(ctx context.Context, ticket Ticket, body io.Reader, last bool) (Handle, error) {
	attrs := stripUnsupportedCompression(ticket.Attrs, ticket.Compression, b.caps.CompressionSupported)

	supported := ticket.Compression == "" || ticket.Compression == "none"
	for _, s := range b.caps.CompressionSupported {
		if s == ticket.Compression {
			supported = true
		}
	}
	if !supported {
		decoded, err := decompress(ticket.Compression, body)
		if err != nil {
			return nil, err
		}
		body = decoded
	}

	if b.caps.CreateJobSendDocument {
		jobID, err := b.Client.CreateJob(ctx, attrs)
		if err != nil {
			return nil, err
		}
		if err := b.Client.SendDocument(ctx, jobID, ticket.DocumentFormat, last, body); err != nil {
			return nil, err
		}
		b.Log.Info().Int("local_job_id", jobID).Msg("local job created")
		return jobHandle(jobID), nil
	}

	jobID, err := b.Client.PrintJob(ctx, attrs, ticket.DocumentFormat, body)
	if err != nil {
		return nil, err
	}
	b.Log.Info().Int("local_job_id", jobID).Msg("local job created")
	return jobHandle(jobID), nil
}

// SendDocument sends an additional document to a job already opened
// by SendJob, used for jobs with more than one document.
func (b *IPP) SendDocument(ctx context.Context, h Handle, body io.Reader, last bool) error {
	id, ok := h.(jobHandle)
	if !ok {
		return fmt.Errorf("ipp backend: invalid job handle %v", h)
	}
	return b.Client.SendDocument(ctx, int(id), "", last, body)
}

// PollState maps the local device's job-state enum to the Backend
// State vocabulary.
func (b *IPP) PollState(ctx context.Context, h Handle) (State, error) {
	id, ok := h.(jobHandle)
	if !ok {
		return StateCompleted, nil
	}
	state, err := b.Client.GetJobState(ctx, int(id))
	if err != nil {
		return "", err
	}
	switch state {
	case 9:
		return StateCompleted, nil
	case 8:
		return StateAborted, nil
	case 7:
		return StateCanceled, nil
	default:
		return StateProcessing, nil
	}
}

// Cancel issues Cancel-Job against the local device.
func (b *IPP) Cancel(ctx context.Context, h Handle) error {
	id, ok := h.(jobHandle)
	if !ok {
		return nil
	}
	return b.Client.CancelJob(ctx, int(id))
}

func stripUnsupportedCompression(attrs goipp.Attributes, compression string, supported []string) goipp.Attributes {
	if compression == "" || compression == "none" {
		return attrs
	}
	for _, s := range supported {
		if s == compression {
			return attrs
		}
	}
	out := make(goipp.Attributes, 0, len(attrs))
	for _, a := range attrs {
		if a.Name == "compression" {
			continue
		}
		out = append(out, a)
	}
	return out
}
