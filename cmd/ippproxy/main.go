// Command ippproxy bridges a remote Infrastructure Printer service to
// a single local output device: an IPP-Everywhere printer, a legacy
// PCL printer reached over a raw TCP socket, or an HTTPS-secured IPP
// printer.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyra/ippproxy/internal/capability"
	"github.com/cyra/ippproxy/internal/deviceid"
	"github.com/cyra/ippproxy/internal/eventloop"
	"github.com/cyra/ippproxy/internal/ippclient"
	"github.com/cyra/ippproxy/internal/registration"
	"github.com/cyra/ippproxy/internal/registry"
	"github.com/cyra/ippproxy/internal/relay"
	"github.com/cyra/ippproxy/internal/relay/backend"
)

var (
	version = "dev"
	commit  = "unknown"
)

// httpTimeout bounds every individual IPP exchange; the proxy's own
// retry loops (Fibonacci at startup, 15s steady-state) are what give
// it unbounded patience with an unreachable endpoint, not this value.
const httpTimeout = 30 * time.Second

// verbosity is a repeatable -v flag: each occurrence raises the log
// level by one step, matching the reference proxy tool's -v/-vv/-vvv.
type verbosity int

func (v *verbosity) String() string { return fmt.Sprintf("%d", int(*v)) }
func (v *verbosity) Set(string) error {
	*v++
	return nil
}
func (v *verbosity) IsBoolFlag() bool { return true }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("ippproxy", flag.ContinueOnError)
	fs.Usage = func() { usage(fs) }

	var (
		deviceURI   = fs.String("d", "", "local output device URI (ipp://, ipps://, or socket://) [required]")
		mimeType    = fs.String("m", "", "pin the output document-format-accepted instead of auto-selecting")
		password    = fs.String("p", "", "password for the Infrastructure Printer and local device (default: $PROXY_PASSWORD)")
		user        = fs.String("u", "", "requesting-user-name")
		showVersion = fs.Bool("version", false, "show version and exit")
		verbose     verbosity
	)
	fs.Var(&verbose, "v", "raise log verbosity (repeatable)")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}

	if *showVersion {
		fmt.Printf("ippproxy version %s (commit %s)\n", version, commit)
		return 0
	}

	if *deviceURI == "" {
		fmt.Fprintln(os.Stderr, "ippproxy: -d DEVICE-URI is required")
		usage(fs)
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "ippproxy: expected exactly one PRINTER-URI argument")
		usage(fs)
		return 1
	}
	printerURI := fs.Arg(0)

	if err := validateDeviceScheme(*deviceURI); err != nil {
		fmt.Fprintln(os.Stderr, "ippproxy:", err)
		return 1
	}

	if *password == "" {
		*password = os.Getenv("PROXY_PASSWORD")
	}

	log := newLogger(int(verbose))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runProxy(ctx, log, printerURI, *deviceURI, *mimeType, *user, *password); err != nil {
		log.Error().Err(err).Msg("fatal error")
		return 1
	}
	return 0
}

func usage(fs *flag.FlagSet) {
	fmt.Fprintln(os.Stderr, "usage: ippproxy [OPTIONS] PRINTER-URI")
	fs.PrintDefaults()
}

func validateDeviceScheme(deviceURI string) error {
	u, err := url.Parse(deviceURI)
	if err != nil {
		return fmt.Errorf("invalid device uri %q: %w", deviceURI, err)
	}
	switch u.Scheme {
	case "ipp", "ipps", "socket":
		return nil
	default:
		return fmt.Errorf("device uri %q must use ipp://, ipps://, or socket://", deviceURI)
	}
}

func newLogger(verbosity int) zerolog.Logger {
	level := zerolog.InfoLevel
	switch {
	case verbosity >= 2:
		level = zerolog.TraceLevel
	case verbosity == 1:
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05.000Z07:00"

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: zerolog.TimeFieldFormat}).
		With().Timestamp().Logger()
}

// runProxy wires the three control loops together: it registers the
// device, starts the relay worker in the background, and then runs the
// event loop on this goroutine until ctx is canceled, deregistering on
// the way out.
func runProxy(ctx context.Context, log zerolog.Logger, printerURI, deviceURI, mimeType, user, password string) error {
	remoteForRegistration := ippclient.NewClient(printerURI, user, password, httpTimeout, true)

	systemResource := ""
	if u, err := url.Parse(printerURI); err == nil && u.Path == "/ipp/system" {
		systemResource = u.Path
	}

	uuid := deviceid.URN(deviceURI)
	regClient := registration.NewClient(remoteForRegistration, uuid, user, systemResource, log)

	localProbeClient, err := localIPPClient(deviceURI, user, password)
	if err != nil {
		return err
	}
	prober := capability.NewProber(deviceURI, mimeType, localProbeClient, log)
	deviceAttrs, err := prober.Probe(ctx)
	if err != nil {
		return fmt.Errorf("device capability probe: %w", err)
	}

	resolvedURI, err := regClient.Register(ctx)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	log.Info().Str("printer_uri", resolvedURI).Msg("proxy registered")

	if err := regClient.UpdateDeviceAttrs(ctx, nil, deviceAttrs); err != nil {
		log.Warn().Err(err).Msg("initial device-attributes update failed")
	}

	reg := registry.New()

	relayRemote := ippclient.NewClient(resolvedURI, user, password, httpTimeout, true)
	be, err := buildBackend(deviceURI, user, password, log)
	if err != nil {
		return err
	}
	if err := be.Open(ctx); err != nil {
		log.Warn().Err(err).Msg("local device open failed, continuing (will fail per-job)")
	}

	worker := &relay.Worker{
		Registry:    reg,
		Remote:      relayRemote,
		Backend:     be,
		MIMEType:    mimeType,
		DeviceAttrs: deviceAttrs,
		Log:         log.With().Str("component", "relay").Logger(),
	}
	go worker.Run(ctx)

	eventRemote := ippclient.NewClient(resolvedURI, user, password, httpTimeout, true)
	loop := &eventloop.Loop{
		Remote:         eventRemote,
		Registry:       reg,
		SubscriptionID: regClient.SubscriptionID,
		Log:            log.With().Str("component", "eventloop").Logger(),
	}

	err = loop.Run(ctx)

	deregCtx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()
	regClient.Deregister(deregCtx)

	return err
}

// localIPPClient builds the HTTP(S) client the capability probe uses
// against an ipp:// or ipps:// device; for socket:// devices no client
// is needed and nil is returned.
func localIPPClient(deviceURI, user, password string) (*ippclient.Client, error) {
	u, err := url.Parse(deviceURI)
	if err != nil {
		return nil, fmt.Errorf("invalid device uri %q: %w", deviceURI, err)
	}
	if u.Scheme != "ipp" && u.Scheme != "ipps" {
		return nil, nil
	}
	httpURL, err := ippclient.HTTPURL(deviceURI)
	if err != nil {
		return nil, err
	}
	return ippclient.NewClient(httpURL, user, password, httpTimeout, true), nil
}

// buildBackend chooses the submission back-end by device URI scheme.
func buildBackend(deviceURI, user, password string, log zerolog.Logger) (backend.Backend, error) {
	u, err := url.Parse(deviceURI)
	if err != nil {
		return nil, fmt.Errorf("invalid device uri %q: %w", deviceURI, err)
	}
	switch u.Scheme {
	case "socket":
		return backend.NewSocket(deviceURI, log.With().Str("component", "backend-socket").Logger())
	case "ipp", "ipps":
		return backend.NewIPP(deviceURI, user, password, httpTimeout, log.With().Str("component", "backend-ipp").Logger())
	default:
		return nil, fmt.Errorf("unsupported device uri scheme %q", u.Scheme)
	}
}
