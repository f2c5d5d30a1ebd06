// Package ippclient provides a thin wrapper around the goipp wire codec
// for the IPP System/INFRA operations this proxy needs, on both the
// remote Infrastructure Printer and the local output device.
package ippclient

import "github.com/OpenPrinting/goipp"

// Operation codes for the IPP System and IPP INFRA extensions that goipp's
// own Op constants don't cover. Values are taken from the IANA IPP
// registry, matching the IPP_OP_* names used by the original CUPS tool
// this proxy is modeled on.
const (
	OpCreatePrinterSubscriptions = goipp.Op(0x0016)
	OpGetNotifications           = goipp.Op(0x001C)
	OpCancelSubscription         = goipp.Op(0x001B)
	OpFetchDocument               = goipp.Op(0x0042)
	OpFetchJob                    = goipp.Op(0x0043)
	OpGetOutputDeviceAttributes   = goipp.Op(0x0044)
	OpUpdateActiveJobs            = goipp.Op(0x0045)
	OpDeregisterOutputDevice      = goipp.Op(0x0046)
	OpUpdateDocumentStatus        = goipp.Op(0x0047)
	OpUpdateJobStatus             = goipp.Op(0x0048)
	OpUpdateOutputDeviceAttrs     = goipp.Op(0x0049)
	OpAcknowledgeDocument         = goipp.Op(0x003F)
	OpAcknowledgeIdentifyPrinter  = goipp.Op(0x0040)
	OpAcknowledgeJob              = goipp.Op(0x0041)
	OpRegisterOutputDevice        = goipp.Op(0x005F)
)

// Status codes not exposed as named goipp constants.
const (
	StatusRedirectionOtherSite goipp.Status = 0x0200
	StatusErrorNotFetchable    goipp.Status = 0x0420
)

// Standard keyword/charset/language constants used on every request.
const (
	AttrsCharsetUTF8 goipp.String = "utf-8"
	AttrsLangEN      goipp.String = "en"
)

// RequestedEvents is the fixed event subscription list the proxy asks
// the Infrastructure Printer to notify it about. Order matches the
// reference tool this was modeled on.
var RequestedEvents = []string{
	"document-config-changed",
	"document-state-changed",
	"job-config-changed",
	"job-fetchable",
	"job-state-changed",
	"printer-config-changed",
	"printer-state-changed",
}
