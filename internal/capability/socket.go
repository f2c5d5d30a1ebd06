package capability

import (
	"github.com/OpenPrinting/goipp"

	"github.com/cyra/ippproxy/internal/ippclient"
)

// socketMediaSize is a default PCL printer's media-col-database entry:
// name plus width/length in hundredths of a millimeter.
type socketMediaSize struct {
	name          string
	width, length int32
}

var socketMediaSizes = []socketMediaSize{
	{"na_letter_8.5x11in", 21590, 27940},
	{"na_legal_8.5x14in", 21590, 35560},
	{"iso_a4_210x297mm", 21000, 29700},
}

const socketMargin int32 = 635

// DefaultSocketAttrs synthesizes the printer attribute group a legacy
// socket-connected PCL printer cannot report for itself: a small fixed
// set of Letter/Legal/A4 media, 300/600 dpi, and single/duplex sides
// support, matching the reference tool's fallback for non-IPP devices.
func DefaultSocketAttrs() goipp.Attributes {
	attrs := goipp.Attributes{}
	add := ippclient.Adder(&attrs)

	add("copies-supported", goipp.TagRange, goipp.Range{Lower: 1, Upper: 1})
	add("document-format-supported", goipp.TagMimeType, goipp.String("application/vnd.hp-pcl"))
	add("media-bottom-margin-supported", goipp.TagInteger, goipp.Integer(socketMargin))
	add("media-left-margin-supported", goipp.TagInteger, goipp.Integer(socketMargin))
	add("media-right-margin-supported", goipp.TagInteger, goipp.Integer(socketMargin))
	add("media-top-margin-supported", goipp.TagInteger, goipp.Integer(socketMargin))

	database := make([]goipp.Value, len(socketMediaSizes))
	mediaNames := make([]goipp.Value, len(socketMediaSizes))
	for i, m := range socketMediaSizes {
		database[i] = goipp.Collection(mediaCol(m))
		mediaNames[i] = goipp.String(m.name)
	}
	add("media-col-database", goipp.TagBeginCollection, database...)
	add("media-col-default", goipp.TagBeginCollection, goipp.Collection(mediaCol(socketMediaSizes[0])))
	add("media-col-ready", goipp.TagBeginCollection, goipp.Collection(mediaCol(socketMediaSizes[0])))
	add("media-col-supported", goipp.TagKeyword,
		goipp.String("media-bottom-margin"), goipp.String("media-left-margin"),
		goipp.String("media-right-margin"), goipp.String("media-size"),
		goipp.String("media-size-name"), goipp.String("media-top-margin"))
	add("media-default", goipp.TagKeyword, goipp.String(socketMediaSizes[0].name))
	add("media-ready", goipp.TagKeyword, goipp.String(socketMediaSizes[0].name))

	sizes := make([]goipp.Value, len(socketMediaSizes))
	for i, m := range socketMediaSizes {
		sizes[i] = goipp.Collection(mediaSizeCol(m))
	}
	add("media-size-supported", goipp.TagBeginCollection, sizes...)

	add("media-supported", goipp.TagKeyword, mediaNames...)

	add("print-color-mode-default", goipp.TagKeyword, goipp.String("monochrome"))
	add("print-color-mode-supported", goipp.TagKeyword, goipp.String("monochrome"))
	add("print-quality-default", goipp.TagEnum, goipp.Integer(4))
	add("print-quality-supported", goipp.TagEnum, goipp.Integer(3), goipp.Integer(4), goipp.Integer(5))
	add("printer-resolution-default", goipp.TagResolution, goipp.Resolution{Xres: 300, Yres: 300, Units: goipp.UnitsDpi})
	add("printer-resolution-supported", goipp.TagResolution,
		goipp.Resolution{Xres: 300, Yres: 300, Units: goipp.UnitsDpi},
		goipp.Resolution{Xres: 600, Yres: 600, Units: goipp.UnitsDpi})
	add("printer-state", goipp.TagEnum, goipp.Integer(3))
	add("printer-state-reasons", goipp.TagKeyword, goipp.String("none"))
	add("sides-default", goipp.TagKeyword, goipp.String("two-sided-long-edge"))
	add("sides-supported", goipp.TagKeyword,
		goipp.String("one-sided"), goipp.String("two-sided-long-edge"), goipp.String("two-sided-short-edge"))

	return attrs
}

// mediaSizeCol is the bare x/y-dimension collection media-size-supported
// carries per media name, distinct from mediaCol's fuller
// media-size/media-size-name/margins collection used for media-col-*.
func mediaSizeCol(m socketMediaSize) goipp.Attributes {
	return goipp.Attributes{
		goipp.MakeAttribute("x-dimension", goipp.TagInteger, goipp.Integer(m.width)),
		goipp.MakeAttribute("y-dimension", goipp.TagInteger, goipp.Integer(m.length)),
	}
}

func mediaCol(m socketMediaSize) goipp.Attributes {
	col := goipp.Attributes{}
	add := ippclient.Adder(&col)
	add("media-size", goipp.TagBeginCollection, goipp.Collection(goipp.Attributes{
		goipp.MakeAttribute("x-dimension", goipp.TagInteger, goipp.Integer(m.width)),
		goipp.MakeAttribute("y-dimension", goipp.TagInteger, goipp.Integer(m.length)),
	}))
	add("media-size-name", goipp.TagKeyword, goipp.String(m.name))
	add("media-bottom-margin", goipp.TagInteger, goipp.Integer(socketMargin))
	add("media-left-margin", goipp.TagInteger, goipp.Integer(socketMargin))
	add("media-right-margin", goipp.TagInteger, goipp.Integer(socketMargin))
	add("media-top-margin", goipp.TagInteger, goipp.Integer(socketMargin))
	return col
}
