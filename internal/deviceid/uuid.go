// Package deviceid derives the stable device UUID the proxy advertises
// to the Infrastructure Printer service, identifying this output
// device across restarts without any persisted state.
package deviceid

import (
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Make derives a UUID URN from a device URI, matching the construction
// used by the reference proxy tool: bytes 16..31 of the SHA-256 digest
// of the URI, with the version nibble forced to 3 and the variant bits
// forced to the RFC 4122 pattern. The result is stable for a given
// device URI across runs and hosts.
//
// An empty deviceURI is mapped to "file://<hostname>/dev/null", mirroring
// the reference tool's handling of a missing device URI.
func Make(deviceURI string) uuid.UUID {
	if deviceURI == "" {
		deviceURI = fallbackURI()
	}
	sum := sha256.Sum256([]byte(deviceURI))

	var u uuid.UUID
	copy(u[:], sum[16:32])
	u[6] = (u[6] & 0x0f) | 0x30 // version 3
	u[8] = (u[8] & 0x3f) | 0x80 // variant bits 10 (RFC 4122)
	return u
}

// URN returns the "urn:uuid:..." string form used on the wire as
// device-uuid / output-device-uuid.
func URN(deviceURI string) string {
	return "urn:uuid:" + Make(deviceURI).String()
}

func fallbackURI() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("file://%s/dev/null", host)
}
