package ippclient

import (
	"io"

	"github.com/OpenPrinting/goipp"
)

// NewRequest builds a request message with the mandatory
// attributes-charset and attributes-natural-language operation
// attributes already populated.
func NewRequest(op goipp.Op, requestID uint32, printerURI, user string) *goipp.Message {
	m := goipp.NewRequest(goipp.DefaultVersion, op, requestID)
	add := Adder(&m.Operation)
	add("attributes-charset", goipp.TagCharset, AttrsCharsetUTF8)
	add("attributes-natural-language", goipp.TagLanguage, AttrsLangEN)
	if printerURI != "" {
		add("printer-uri", goipp.TagURI, goipp.String(printerURI))
	}
	if user != "" {
		add("requesting-user-name", goipp.TagName, goipp.String(user))
	}
	return m
}

// NewSystemRequest builds a request message like NewRequest but without
// printer-uri, for the one operation addressed by system-uri instead
// (Register-Output-Device, before a printer-uri even exists for this
// device). The caller adds system-uri itself.
func NewSystemRequest(op goipp.Op, requestID uint32, user string) *goipp.Message {
	m := goipp.NewRequest(goipp.DefaultVersion, op, requestID)
	add := Adder(&m.Operation)
	add("attributes-charset", goipp.TagCharset, AttrsCharsetUTF8)
	add("attributes-natural-language", goipp.TagLanguage, AttrsLangEN)
	if user != "" {
		add("requesting-user-name", goipp.TagName, goipp.String(user))
	}
	return m
}

// Adder returns a closure that appends a fully-formed attribute to the
// group *group points to. It takes a pointer rather than the group
// value itself so that repeated calls actually grow the caller's
// group, regardless of how many attributes have already been added.
func Adder(group *goipp.Attributes) func(name string, tag goipp.Tag, values ...goipp.Value) {
	return func(name string, tag goipp.Tag, values ...goipp.Value) {
		if len(values) == 0 {
			return
		}
		attr := goipp.MakeAttribute(name, tag, values[0])
		for _, v := range values[1:] {
			attr.Values.Add(tag, v)
		}
		*group = append(*group, attr)
	}
}

// Decode parses a raw IPP response body.
func Decode(body []byte) (*goipp.Message, error) {
	msg := &goipp.Message{}
	if err := msg.DecodeBytes(body); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode serializes a request or response message to wire format.
func Encode(msg *goipp.Message) ([]byte, error) {
	return msg.Encode()
}

// DecodeStream parses the IPP header of r and leaves r positioned
// immediately after the end-of-attributes tag, so the caller can read
// whatever document bytes follow (Fetch-Document, Send-Document) without
// buffering the whole response in memory.
func DecodeStream(r io.Reader) (*goipp.Message, error) {
	msg := &goipp.Message{}
	if err := msg.Decode(r); err != nil {
		return nil, err
	}
	return msg, nil
}

// EventGroups returns the repeated non-operation attribute groups of a
// decoded message, in wire order. Get-Notifications responses carry one
// such group per event; Get-Jobs responses carry one per job. goipp
// folds every repeated group other than the printer-attributes groups
// into Message.Job, so this is just a readable alias for that slot.
func EventGroups(msg *goipp.Message) []goipp.Attributes {
	return msg.Job
}

// JobGroups is an alias of EventGroups for call sites enumerating job
// attribute groups rather than event-notification groups.
func JobGroups(msg *goipp.Message) []goipp.Attributes {
	return msg.Job
}

// PrinterGroups returns the repeated printer-attributes groups of a
// decoded message.
func PrinterGroups(msg *goipp.Message) []goipp.Attributes {
	return msg.Printer
}
