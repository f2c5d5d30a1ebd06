package ippclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/OpenPrinting/goipp"
)

// Client sends IPP requests to a single printer URI over its own HTTP
// client. The event loop and the relay worker each own a distinct
// Client so that a long poll on one never head-of-line blocks the
// other's requests on the same connection pool.
type Client struct {
	PrinterURI string
	User       string
	Password   string

	http      *http.Client
	requestID uint32
}

// NewClient builds a client addressed at uri. verifyTLS controls
// certificate validation for ipps:// URIs; it is only ever disabled in
// tests.
func NewClient(uri, user, password string, timeout time.Duration, verifyTLS bool) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !verifyTLS},
	}
	return &Client{
		PrinterURI: uri,
		User:       user,
		Password:   password,
		http: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// HTTPURL rewrites an ipp:// or ipps:// device URI to the http(s) URL
// the transport actually dials, forcing https whenever the scheme is
// ipps or the port is 443 and using plain http otherwise. No TLS
// upgrade is attempted on a plain http URL.
func HTTPURL(deviceURI string) (string, error) {
	u, err := url.Parse(deviceURI)
	if err != nil {
		return "", fmt.Errorf("invalid device uri %q: %w", deviceURI, err)
	}
	scheme := "http"
	if u.Scheme == "ipps" || u.Port() == "443" {
		scheme = "https"
	}
	u.Scheme = scheme
	return u.String(), nil
}

// NextRequestID returns a monotonically increasing request-id for use
// on the next message built by this client.
func (c *Client) NextRequestID() uint32 {
	return atomic.AddUint32(&c.requestID, 1)
}

// NewMessage starts a request message addressed to this client's
// printer URI, pre-populated with charset/language/printer-uri/user.
func (c *Client) NewMessage(op goipp.Op) *goipp.Message {
	return NewRequest(op, c.NextRequestID(), c.PrinterURI, c.User)
}

// NewSystemMessage starts a request addressed by system-uri rather than
// printer-uri, for Register-Output-Device, which runs before this
// device has a printer-uri of its own.
func (c *Client) NewSystemMessage(op goipp.Op) *goipp.Message {
	return NewSystemRequest(op, c.NextRequestID(), c.User)
}

// Do sends msg (optionally followed by a raw document body) to the
// target URI and returns the decoded response. A non-nil error is
// always an *Error.
func (c *Client) Do(ctx context.Context, msg *goipp.Message, body io.Reader) (*goipp.Message, error) {
	op := msg.Code.String()
	encoded, err := Encode(msg)
	if err != nil {
		return nil, Transient(op, err)
	}

	var payload io.Reader = bytes.NewReader(encoded)
	if body != nil {
		payload = io.MultiReader(bytes.NewReader(encoded), body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.PrinterURI, payload)
	if err != nil {
		return nil, Transient(op, err)
	}
	req.Header.Set("Content-Type", "application/ipp")
	if c.User != "" {
		req.SetBasicAuth(c.User, c.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, Transient(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transient(op, err)
	}
	if resp.StatusCode >= 500 {
		return nil, Transient(op, fmt.Errorf("http %d from %s", resp.StatusCode, c.PrinterURI))
	}

	decoded, err := Decode(raw)
	if err != nil {
		return nil, Transient(op, err)
	}
	status := goipp.Status(decoded.Code)
	if ierr := FromStatus(op, status); ierr != nil {
		return decoded, ierr
	}
	return decoded, nil
}

// DoStream sends msg and returns the decoded response header together
// with the remainder of the HTTP response body, unread. It is used for
// operations whose response carries document data after the IPP
// attributes (Fetch-Document) so the body can be streamed straight to
// the submission back-end instead of being buffered whole. The caller
// must close the returned body.
func (c *Client) DoStream(ctx context.Context, msg *goipp.Message) (*goipp.Message, io.ReadCloser, error) {
	op := msg.Code.String()
	encoded, err := Encode(msg)
	if err != nil {
		return nil, nil, Transient(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.PrinterURI, bytes.NewReader(encoded))
	if err != nil {
		return nil, nil, Transient(op, err)
	}
	req.Header.Set("Content-Type", "application/ipp")
	if c.User != "" {
		req.SetBasicAuth(c.User, c.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, Transient(op, err)
	}
	if resp.StatusCode >= 500 {
		resp.Body.Close()
		return nil, nil, Transient(op, fmt.Errorf("http %d from %s", resp.StatusCode, c.PrinterURI))
	}

	decoded, err := DecodeStream(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, nil, Transient(op, err)
	}
	status := goipp.Status(decoded.Code)
	if ierr := FromStatus(op, status); ierr != nil {
		resp.Body.Close()
		return decoded, nil, ierr
	}
	return decoded, resp.Body, nil
}
