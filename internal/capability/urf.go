package capability

import (
	"strconv"
	"strings"

	"github.com/OpenPrinting/goipp"

	"github.com/cyra/ippproxy/internal/ippclient"
)

// sheetBackByDM maps the URF duplex keyword to the pwg-raster sheet
// back keyword it implies.
var sheetBackByDM = map[string]string{
	"DM1": "normal",
	"DM2": "flipped",
	"DM3": "rotated",
}

// colorSpaceByURF maps a urf-supported color-space keyword to the
// pwg-raster-document-type-supported keyword it implies.
var colorSpaceByURF = map[string]string{
	"ADOBERGB24": "adobe-rgb_8",
	"ADOBERGB48": "adobe-rgb_16",
	"SRGB24":     "srgb_8",
	"W8":         "sgray_8",
	"W16":        "sgray_16",
}

// SynthesizePWGFromURF fills in the pwg-raster-document-*-supported
// attributes from urf-supported whenever a device only advertises URF
// capabilities (e.g. most AirPrint-only devices), so the rest of the
// proxy can work exclusively in PWG-raster terms. Attributes already
// present in attrs are left untouched.
func SynthesizePWGFromURF(attrs goipp.Attributes) goipp.Attributes {
	urf := ippclient.GetStrings(attrs, "urf-supported")
	if len(urf) == 0 {
		return attrs
	}

	if _, ok := ippclient.FindAttr(attrs, "pwg-raster-document-resolution-supported"); !ok {
		if res := resolutionsFromURF(urf); len(res) > 0 {
			add := ippclient.Adder(&attrs)
			values := make([]goipp.Value, len(res))
			for i, r := range res {
				values[i] = r
			}
			add("pwg-raster-document-resolution-supported", goipp.TagResolution, values...)
		}
	}

	if _, ok := ippclient.FindAttr(attrs, "pwg-raster-document-sheet-back"); !ok {
		if back := sheetBackFromURF(urf); back != "" {
			add := ippclient.Adder(&attrs)
			add("pwg-raster-document-sheet-back", goipp.TagKeyword, goipp.String(back))
		}
	}

	if _, ok := ippclient.FindAttr(attrs, "pwg-raster-document-type-supported"); !ok {
		if types := typesFromURF(urf); len(types) > 0 {
			add := ippclient.Adder(&attrs)
			values := make([]goipp.Value, len(types))
			for i, t := range types {
				values[i] = goipp.String(t)
			}
			add("pwg-raster-document-type-supported", goipp.TagKeyword, values...)
		}
	}

	return attrs
}

// resolutionsFromURF parses every "RSnnn-nnn-..." keyword into the
// dpi-by-dpi resolutions it lists.
func resolutionsFromURF(urf []string) []goipp.Resolution {
	var out []goipp.Resolution
	for _, keyword := range urf {
		if !strings.HasPrefix(keyword, "RS") {
			continue
		}
		for _, part := range strings.Split(keyword[2:], "-") {
			dpi, err := strconv.Atoi(part)
			if err != nil || dpi <= 0 {
				continue
			}
			out = append(out, goipp.Resolution{Xres: int32(dpi), Yres: int32(dpi), Units: goipp.UnitsDpi})
		}
	}
	return out
}

// sheetBackFromURF returns the sheet-back keyword implied by the first
// DM keyword found, defaulting to manual-tumble for any DM value other
// than DM1/DM2/DM3 (matching the reference tool's fallback).
func sheetBackFromURF(urf []string) string {
	for _, keyword := range urf {
		if !strings.HasPrefix(keyword, "DM") {
			continue
		}
		if back, ok := sheetBackByDM[keyword]; ok {
			return back
		}
		return "manual-tumble"
	}
	return ""
}

// typesFromURF returns the pwg-raster-document-type-supported keywords
// implied by the device's advertised URF color-space keywords.
func typesFromURF(urf []string) []string {
	var out []string
	for _, keyword := range urf {
		if t, ok := colorSpaceByURF[keyword]; ok {
			out = append(out, t)
		}
	}
	return out
}
