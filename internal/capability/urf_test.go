package capability

import (
	"github.com/OpenPrinting/goipp"
	"testing"

	"github.com/cyra/ippproxy/internal/ippclient"
)

func TestSynthesizePWGFromURFResolutions(t *testing.T) {
	attrs := goipp.Attributes{}
	add := ippclient.Adder(&attrs)
	add("urf-supported", goipp.TagKeyword, goipp.String("RS300-600"), goipp.String("SRGB24"), goipp.String("DM1"))

	out := SynthesizePWGFromURF(attrs)

	res := ippclient.GetStrings(out, "pwg-raster-document-type-supported")
	if len(res) != 1 || res[0] != "srgb_8" {
		t.Fatalf("pwg-raster-document-type-supported = %v, want [srgb_8]", res)
	}

	back, ok := ippclient.GetString(out, "pwg-raster-document-sheet-back")
	if !ok || back != "normal" {
		t.Fatalf("pwg-raster-document-sheet-back = %q, ok=%v, want normal", back, ok)
	}

	vv, ok := ippclient.FindAttr(out, "pwg-raster-document-resolution-supported")
	if !ok || len(vv) != 2 {
		t.Fatalf("pwg-raster-document-resolution-supported has %d values, want 2", len(vv))
	}
}

func TestSynthesizePWGFromURFLeavesExistingAttrsAlone(t *testing.T) {
	attrs := goipp.Attributes{}
	add := ippclient.Adder(&attrs)
	add("urf-supported", goipp.TagKeyword, goipp.String("RS300"))
	add("pwg-raster-document-resolution-supported", goipp.TagResolution,
		goipp.Resolution{Xres: 1200, Yres: 1200, Units: goipp.UnitsDpi})

	out := SynthesizePWGFromURF(attrs)

	vv, _ := ippclient.FindAttr(out, "pwg-raster-document-resolution-supported")
	if len(vv) != 1 {
		t.Fatalf("expected existing resolution attribute to be left alone, got %d values", len(vv))
	}
}

func TestSynthesizePWGFromURFNoURF(t *testing.T) {
	attrs := goipp.Attributes{}
	out := SynthesizePWGFromURF(attrs)
	if len(out) != 0 {
		t.Fatalf("expected no attributes added without urf-supported, got %d", len(out))
	}
}

func TestSheetBackDefaultsToManualTumble(t *testing.T) {
	if got := sheetBackFromURF([]string{"DM9"}); got != "manual-tumble" {
		t.Fatalf("sheetBackFromURF(DM9) = %q, want manual-tumble", got)
	}
}
