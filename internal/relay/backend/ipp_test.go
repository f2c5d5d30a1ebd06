package backend

import (
	"testing"

	"github.com/OpenPrinting/goipp"
)

func TestStripUnsupportedCompressionLeavesSupportedAlone(t *testing.T) {
	attrs := goipp.Attributes{
		goipp.MakeAttribute("compression", goipp.TagKeyword, goipp.String("gzip")),
		goipp.MakeAttribute("copies", goipp.TagInteger, goipp.Integer(1)),
	}
	out := stripUnsupportedCompression(attrs, "gzip", []string{"gzip", "deflate"})
	if len(out) != 2 {
		t.Fatalf("expected both attributes to survive, got %d", len(out))
	}
}

func TestStripUnsupportedCompressionRemovesUnsupported(t *testing.T) {
	attrs := goipp.Attributes{
		goipp.MakeAttribute("compression", goipp.TagKeyword, goipp.String("gzip")),
		goipp.MakeAttribute("copies", goipp.TagInteger, goipp.Integer(1)),
	}
	out := stripUnsupportedCompression(attrs, "gzip", []string{"deflate"})
	if len(out) != 1 {
		t.Fatalf("expected compression to be stripped, got %d attrs", len(out))
	}
	if out[0].Name != "copies" {
		t.Fatalf("expected the surviving attribute to be copies, got %q", out[0].Name)
	}
}

func TestStripUnsupportedCompressionNoopForNone(t *testing.T) {
	attrs := goipp.Attributes{
		goipp.MakeAttribute("compression", goipp.TagKeyword, goipp.String("none")),
	}
	out := stripUnsupportedCompression(attrs, "none", nil)
	if len(out) != 1 {
		t.Fatalf("expected attrs unchanged for compression=none, got %d", len(out))
	}
}
