package capability

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/OpenPrinting/goipp"
	"github.com/rs/zerolog"

	"github.com/cyra/ippproxy/internal/backoff"
	"github.com/cyra/ippproxy/internal/ippclient"
)

// Prober queries the local output device for the attribute set the
// Infrastructure Printer service needs mirrored about it.
type Prober struct {
	DeviceURI string
	MIMEType  string
	Client    *ippclient.Client
	Log       zerolog.Logger
}

// NewProber builds a Prober addressed at deviceURI. For ipp/ipps
// schemes, client is used to send Get-Printer-Attributes; for
// socket schemes no network exchange is made and a synthesized
// attribute set is returned instead.
func NewProber(deviceURI, mimeType string, client *ippclient.Client, log zerolog.Logger) *Prober {
	return &Prober{DeviceURI: deviceURI, MIMEType: mimeType, Client: client, Log: log}
}

// Probe returns the normalized printer attribute group for the
// configured device, retrying transport failures with a Fibonacci
// back-off until ctx is canceled.
func (p *Prober) Probe(ctx context.Context) (goipp.Attributes, error) {
	u, err := url.Parse(p.DeviceURI)
	if err != nil {
		return nil, fmt.Errorf("invalid device uri %q: %w", p.DeviceURI, err)
	}

	switch u.Scheme {
	case "ipp", "ipps", "https":
		return p.probeIPP(ctx)
	case "socket":
		return p.probeSocket(), nil
	default:
		return nil, fmt.Errorf("unsupported device uri scheme %q", u.Scheme)
	}
}

func (p *Prober) probeIPP(ctx context.Context) (goipp.Attributes, error) {
	delay := backoff.New()

	for {
		msg := p.Client.NewMessage(goipp.OpGetPrinterAttributes)
		add := ippclientAdder(msg)
		add("requested-attributes", goipp.TagKeyword, stringsToValues(Attrs)...)

		resp, err := p.Client.Do(ctx, msg, nil)
		if err == nil {
			attrs := goipp.Attributes{}
			if len(resp.Printer) > 0 {
				attrs = resp.Printer[0]
			}
			return SynthesizePWGFromURF(attrs), nil
		}

		if ippclient.KindOf(err) != ippclient.KindTransportTransient {
			return nil, err
		}

		p.Log.Warn().Err(err).Str("device", p.DeviceURI).Msg("device capability probe failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay.Next()):
		}
	}
}

func (p *Prober) probeSocket() goipp.Attributes {
	attrs := DefaultSocketAttrs()
	if p.MIMEType != "" {
		add := ippclientAttrsAdder(&attrs)
		add("document-format-default", goipp.TagMimeType, goipp.String(p.MIMEType))
	}
	return attrs
}

func ippclientAdder(msg *goipp.Message) func(name string, tag goipp.Tag, values ...goipp.Value) {
	return ippclient.Adder(&msg.Operation)
}

func ippclientAttrsAdder(attrs *goipp.Attributes) func(name string, tag goipp.Tag, values ...goipp.Value) {
	return ippclient.Adder(attrs)
}

func stringsToValues(strs []string) []goipp.Value {
	values := make([]goipp.Value, len(strs))
	for i, s := range strs {
		values[i] = goipp.String(s)
	}
	return values
}
