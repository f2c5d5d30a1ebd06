// Package registration implements the registration client (C2): it
// registers this output device with the Infrastructure Printer
// service, subscribes to the events the event loop needs, mirrors
// device-attribute changes, and deregisters on shutdown.
package registration

import (
	"context"
	"fmt"

	"github.com/OpenPrinting/goipp"
	"github.com/rs/zerolog"

	"github.com/cyra/ippproxy/internal/ippclient"
)

// Client drives the registration lifecycle against a single
// Infrastructure Printer (or IPP System) service.
type Client struct {
	IPP          *ippclient.Client
	DeviceUUID   string
	User         string
	SystemResource string // e.g. "/ipp/system"; empty when targeting a printer URI directly

	SubscriptionID int

	Log zerolog.Logger
}

// NewClient builds a registration Client. ipp must be addressed at the
// system or printer URI the device is being registered against.
func NewClient(ipp *ippclient.Client, deviceUUID, user, systemResource string, log zerolog.Logger) *Client {
	return &Client{IPP: ipp, DeviceUUID: deviceUUID, User: user, SystemResource: systemResource, Log: log}
}

// Register performs the full registration handshake: if talking to an
// IPP System service it registers the output device and resolves the
// printer-uri it was assigned, then it creates a printer subscription
// for the fixed event list the event loop watches. It returns the
// resolved printer URI to use for all further operations.
func (c *Client) Register(ctx context.Context) (printerURI string, err error) {
	printerURI = c.IPP.PrinterURI

	if c.SystemResource != "" {
		printerURI, err = c.registerOutputDevice(ctx)
		if err != nil {
			return "", err
		}
		c.IPP.PrinterURI = printerURI
	}

	if err := c.subscribe(ctx); err != nil {
		return "", err
	}

	return printerURI, nil
}

func (c *Client) registerOutputDevice(ctx context.Context) (string, error) {
	msg := c.IPP.NewSystemMessage(ippclient.OpRegisterOutputDevice)
	add := ippclient.Adder(&msg.Operation)
	add("system-uri", goipp.TagURI, goipp.String(c.IPP.PrinterURI))
	add("output-device-uuid", goipp.TagURI, goipp.String(c.DeviceUUID))
	add("printer-service-type", goipp.TagKeyword, goipp.String("print"))

	resp, err := c.IPP.Do(ctx, msg, nil)
	if err != nil {
		return "", fmt.Errorf("register output device: %w", err)
	}

	printers := ippclient.PrinterGroups(resp)
	if len(printers) == 0 {
		return "", fmt.Errorf("register output device: no printer-xri-supported returned")
	}
	xriCol, ok := ippclient.FindAttr(printers[0], "printer-xri-supported")
	if !ok || len(xriCol) == 0 {
		return "", fmt.Errorf("register output device: no printer-xri-supported returned")
	}
	collection, ok := xriCol[0].V.(goipp.Collection)
	if !ok {
		return "", fmt.Errorf("register output device: printer-xri-supported is not a collection")
	}
	xri, ok := ippclient.GetString(goipp.Attributes(collection), "xri-uri")
	if !ok || xri == "" {
		return "", fmt.Errorf("register output device: no xri-uri in printer-xri-supported")
	}

	c.Log.Info().Str("printer_uri", xri).Msg("registered output device")
	return xri, nil
}

func (c *Client) subscribe(ctx context.Context) error {
	msg := c.IPP.NewMessage(ippclient.OpCreatePrinterSubscriptions)
	sub := goipp.Attributes{}
	add := ippclient.Adder(&sub)
	add("notify-pull-method", goipp.TagKeyword, goipp.String("ippget"))
	values := make([]goipp.Value, len(ippclient.RequestedEvents))
	for i, e := range ippclient.RequestedEvents {
		values[i] = goipp.String(e)
	}
	add("notify-events", goipp.TagKeyword, values...)
	add("notify-lease-duration", goipp.TagInteger, goipp.Integer(0))
	msg.Job = append(msg.Job, sub) // subscription-attributes group

	resp, err := c.IPP.Do(ctx, msg, nil)
	if err != nil {
		return fmt.Errorf("create printer subscriptions: %w", err)
	}

	id, ok := ippclient.GetInt(resp.Operation, "notify-subscription-id")
	if !ok {
		for _, grp := range ippclient.JobGroups(resp) {
			if v, ok := ippclient.GetInt(grp, "notify-subscription-id"); ok {
				id = v
				ok = true
				break
			}
		}
	}
	if !ok {
		return fmt.Errorf("create printer subscriptions: no notify-subscription-id returned")
	}

	c.SubscriptionID = id
	c.Log.Info().Int("subscription_id", id).Msg("monitoring printer events")
	return nil
}

// UpdateDeviceAttrs pushes a diff of newAttrs against previous to the
// Infrastructure Printer: every attribute of newAttrs whose values
// differ from the same-named attribute in previous (all of them when
// previous is nil). When nothing differs it sends nothing and returns
// nil. It returns only the send error; it does not keep newAttrs for
// the next call, so the caller supplies previous each time.
func (c *Client) UpdateDeviceAttrs(ctx context.Context, previous, newAttrs goipp.Attributes) error {
	msg := c.IPP.NewMessage(ippclient.OpUpdateOutputDeviceAttrs)
	add := ippclient.Adder(&msg.Operation)
	add("output-device-uuid", goipp.TagURI, goipp.String(c.DeviceUUID))

	var printerGroup goipp.Attributes
	for _, attr := range newAttrs {
		if attr.Name == "" {
			continue
		}
		old, ok := ippclient.FindAttr(previous, attr.Name)
		if ok && valuesEqual(old, attr.Values) {
			continue
		}
		printerGroup = append(printerGroup, attr)
	}

	if len(printerGroup) == 0 {
		return nil
	}
	changed := len(printerGroup)
	msg.Printer = append(msg.Printer, printerGroup)

	if _, err := c.IPP.Do(ctx, msg, nil); err != nil {
		return fmt.Errorf("update output device attributes: %w", err)
	}
	c.Log.Debug().Int("changed_attrs", changed).Msg("updated output device attributes")
	return nil
}

func valuesEqual(a, b goipp.Values) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if fmt.Sprint(a[i].V) != fmt.Sprint(b[i].V) {
			return false
		}
	}
	return true
}

// Deregister cancels the event subscription and deregisters the output
// device. Best-effort: callers are shutting down regardless of error.
func (c *Client) Deregister(ctx context.Context) {
	cancel := c.IPP.NewMessage(ippclient.OpCancelSubscription)
	add := ippclient.Adder(&cancel.Operation)
	add("notify-subscription-id", goipp.TagInteger, goipp.Integer(c.SubscriptionID))
	if _, err := c.IPP.Do(ctx, cancel, nil); err != nil {
		c.Log.Warn().Err(err).Msg("failed to cancel event subscription during shutdown")
	}

	dereg := c.IPP.NewMessage(ippclient.OpDeregisterOutputDevice)
	add = ippclient.Adder(&dereg.Operation)
	add("output-device-uuid", goipp.TagURI, goipp.String(c.DeviceUUID))
	if _, err := c.IPP.Do(ctx, dereg, nil); err != nil {
		c.Log.Warn().Err(err).Msg("failed to deregister output device during shutdown")
	}
}
