// Package capability implements the device-capability probe: the
// local output device is asked (over ipp/ipps/socket) for the
// attributes the Infrastructure Printer service needs to mirror it,
// and the result is normalized into a single Printer attribute group.
package capability

// Attrs is the fixed set of printer attributes the proxy requests from
// and mirrors about the local device, matching the whitelist used by
// the reference proxy tool.
var Attrs = []string{
	"copies-default",
	"copies-supported",
	"document-format-default",
	"document-format-supported",
	"finishings-col-database",
	"finishings-col-default",
	"finishings-col-ready",
	"finishings-col-supported",
	"finishings-default",
	"finishings-supported",
	"jpeg-k-octets-supported",
	"media-bottom-margin-supported",
	"media-col-database",
	"media-col-default",
	"media-col-ready",
	"media-col-supported",
	"media-default",
	"media-left-margin-supported",
	"media-ready",
	"media-right-margin-supported",
	"media-size-supported",
	"media-source-supported",
	"media-supported",
	"media-top-margin-supported",
	"media-type-supported",
	"pdf-k-octets-supported",
	"print-color-mode-default",
	"print-color-mode-supported",
	"print-darkness-default",
	"print-darkness-supported",
	"print-quality-default",
	"print-quality-supported",
	"print-scaling-default",
	"print-scaling-supported",
	"printer-darkness-configured",
	"printer-darkness-supported",
	"printer-resolution-default",
	"printer-resolution-supported",
	"printer-state",
	"printer-state-reasons",
	"pwg-raster-document-resolution-supported",
	"pwg-raster-document-sheet-back",
	"pwg-raster-document-type-supported",
	"sides-default",
	"sides-supported",
	"urf-supported",
}
