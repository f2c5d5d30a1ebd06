package backend

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Socket submits a job by copying its document stream verbatim to a
// TCP socket, the model legacy PCL printers expose on port 9100. There
// is no job ticket on this path: copies, media, and so on are baked
// into the PCL/PJL stream itself by whatever produced it upstream.
type Socket struct {
	Addr string // host:port, parsed from the device URI
	Log  zerolog.Logger

	conn net.Conn
}

// NewSocket builds a Socket backend addressed at deviceURI
// (socket://host:port).
func NewSocket(deviceURI string, log zerolog.Logger) (*Socket, error) {
	u, err := url.Parse(deviceURI)
	if err != nil {
		return nil, fmt.Errorf("invalid socket device uri %q: %w", deviceURI, err)
	}
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "9100")
	}
	return &Socket{Addr: addr, Log: log}, nil
}

// Open dials the device. The socket back-end has no capabilities to
// discover first, so this is just the connection attempt.
func (s *Socket) Open(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

// SendJob decompresses body if ticket.Compression names a codec the
// socket device cannot be expected to understand, then copies the
// bytes to the socket with partial-write retry until the stream ends.
// The socket path has no local job id, so the returned handle carries
// nothing; PollState always reports Completed for it since the bytes
// have already drained by the time SendJob returns.
func (s *Socket) SendJob(ctx context.Context, ticket Ticket, body io.Reader, last bool) (Handle, error) {
	reader, err := decompress(ticket.Compression, body)
	if err != nil {
		return nil, err
	}

	n, err := copyWithRetry(ctx, s.conn, reader)
	s.Log.Info().Int64("bytes", n).Msg("streamed document to socket device")
	if err != nil {
		return nil, err
	}
	return nil, nil
}

// SendDocument copies an additional document onto the same socket
// stream; a legacy PCL device has no notion of a job boundary beyond
// whatever PJL commands the document bytes themselves carry.
func (s *Socket) SendDocument(ctx context.Context, h Handle, body io.Reader, last bool) error {
	reader, err := decompress("", body)
	if err != nil {
		return err
	}
	n, err := copyWithRetry(ctx, s.conn, reader)
	s.Log.Info().Int64("bytes", n).Msg("streamed additional document to socket device")
	return err
}

// PollState always reports the job done: the socket protocol gives no
// feedback once the stream has been accepted.
func (s *Socket) PollState(ctx context.Context, h Handle) (State, error) {
	return StateCompleted, nil
}

// Cancel closes the socket; there is nothing else to cancel once bytes
// are already in flight to a raw PCL device.
func (s *Socket) Cancel(ctx context.Context, h Handle) error {
	return s.Close()
}

// Close closes the underlying connection, logging the total byte
// count is the caller's responsibility (done in SendJob, matching the
// reference proxy's single "wrote N bytes" log line).
func (s *Socket) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// decompress wraps r with the decoder implied by compression: gzip and
// deflate streams are decoded so the raw bytes reach the device; ""
// and "none" pass r through, and so does any other compression value,
// which is left undecoded.
func decompress(compression string, r io.Reader) (io.Reader, error) {
	switch compression {
	case "", "none":
		return r, nil
	case "gzip":
		return gzip.NewReader(r)
	case "deflate":
		return zlib.NewReader(r)
	default:
		return r, nil
	}
}

// copyWithRetry copies src to dst, retrying a short-write with the
// remainder rather than treating it as an error, and returns the total
// byte count copied.
func copyWithRetry(ctx context.Context, dst net.Conn, src io.Reader) (int64, error) {
	buf := make([]byte, 64*1024)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			written := 0
			for written < n {
				if dst.SetWriteDeadline(time.Now().Add(30 * time.Second)) != nil {
					break
				}
				w, werr := dst.Write(buf[written:n])
				written += w
				total += int64(w)
				if werr != nil {
					return total, werr
				}
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}
