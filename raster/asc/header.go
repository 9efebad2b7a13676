package asc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/eak1mov/go-rasterchunk/raster"
)

var ErrInvalidHeader = errors.New("rasterchunk: invalid ESRI grid header")

// Header holds the keyword header shared by ESRI ASCII grids (.asc) and
// ESRI GridFloat headers (.hdr).
type Header struct {
	Cols      int
	Rows      int
	XLLCorner float64
	YLLCorner float64
	CellSize  float64
	NoData    float64
	HasNoData bool

	// ByteOrder is only used by GridFloat headers (LSBFIRST or MSBFIRST).
	ByteOrder string
}

func HeaderFromMeta(meta raster.Meta) Header {
	x, y := meta.LowerLeft()
	return Header{
		Cols:      meta.Cols,
		Rows:      meta.Rows,
		XLLCorner: x,
		YLLCorner: y,
		CellSize:  meta.CellSize,
		NoData:    meta.NoData,
		HasNoData: meta.HasNoData,
	}
}

func (h Header) Meta() raster.Meta {
	return raster.Meta{
		Rows:         h.Rows,
		Cols:         h.Cols,
		CellSize:     h.CellSize,
		NoData:       h.NoData,
		HasNoData:    h.HasNoData,
		GeoTransform: raster.DefaultGeoTransform(h.XLLCorner, h.YLLCorner, h.CellSize, h.Rows),
	}
}

// ReadHeader reads keyword lines from r until the first line that starts
// with a number. The data that follows is left unread.
func ReadHeader(r *bufio.Reader) (Header, error) {
	var h Header
	var xCenter, yCenter bool
	seen := make(map[string]bool)

	for {
		if err := skipSpace(r); err != nil {
			if err == io.EOF {
				break
			}
			return Header{}, err
		}
		if !isKeyword(peekWord(r)) {
			break
		}

		line, readErr := r.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return Header{}, readErr
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return Header{}, fmt.Errorf("%w: line %q", ErrInvalidHeader, strings.TrimSpace(line))
		}
		key, value := strings.ToLower(fields[0]), fields[1]
		seen[key] = true

		var err error
		switch key {
		case "ncols":
			h.Cols, err = strconv.Atoi(value)
		case "nrows":
			h.Rows, err = strconv.Atoi(value)
		case "xllcorner":
			h.XLLCorner, err = strconv.ParseFloat(value, 64)
		case "yllcorner":
			h.YLLCorner, err = strconv.ParseFloat(value, 64)
		case "xllcenter":
			xCenter = true
			h.XLLCorner, err = strconv.ParseFloat(value, 64)
		case "yllcenter":
			yCenter = true
			h.YLLCorner, err = strconv.ParseFloat(value, 64)
		case "cellsize":
			h.CellSize, err = strconv.ParseFloat(value, 64)
		case "nodata_value":
			h.NoData, err = strconv.ParseFloat(value, 64)
			h.HasNoData = true
		case "byteorder":
			h.ByteOrder = strings.ToUpper(value)
		default:
			// unknown keywords (e.g. nbits, layout) are ignored
		}
		if err != nil {
			return Header{}, fmt.Errorf("%w: %s: %w", ErrInvalidHeader, key, err)
		}
	}

	for _, key := range []string{"ncols", "nrows", "cellsize"} {
		if !seen[key] {
			return Header{}, fmt.Errorf("%w: missing %s", ErrInvalidHeader, key)
		}
	}
	if h.Cols <= 0 || h.Rows <= 0 || h.CellSize <= 0 {
		return Header{}, fmt.Errorf("%w: %dx%d cellsize %v", ErrInvalidHeader, h.Rows, h.Cols, h.CellSize)
	}
	if xCenter {
		h.XLLCorner -= h.CellSize / 2
	}
	if yCenter {
		h.YLLCorner -= h.CellSize / 2
	}
	return h, nil
}

// WriteHeader writes the six-line ESRI header, followed by byteorder if set.
func WriteHeader(w io.Writer, h Header) error {
	lines := []string{
		fmt.Sprintf("ncols %d", h.Cols),
		fmt.Sprintf("nrows %d", h.Rows),
		fmt.Sprintf("xllcorner %f", h.XLLCorner),
		fmt.Sprintf("yllcorner %f", h.YLLCorner),
		fmt.Sprintf("cellsize %s", formatFloat(h.CellSize)),
	}
	if h.HasNoData {
		lines = append(lines, fmt.Sprintf("nodata_value %s", formatFloat(h.NoData)))
	}
	if h.ByteOrder != "" {
		lines = append(lines, fmt.Sprintf("byteorder %s", h.ByteOrder))
	}
	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// peekWord returns the leading run of letters and underscores without
// consuming it.
func peekWord(r *bufio.Reader) string {
	next, _ := r.Peek(32)
	n := 0
	for n < len(next) && (isLetter(next[n]) || next[n] == '_') {
		n++
	}
	return strings.ToLower(string(next[:n]))
}

// isKeyword reports whether a header line starts with word; data lines may
// start with nan or inf.
func isKeyword(word string) bool {
	switch word {
	case "", "nan", "inf", "infinity":
		return false
	}
	return true
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func skipSpace(r *bufio.Reader) error {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if b != ' ' && b != '\t' && b != '\r' && b != '\n' {
			return r.UnreadByte()
		}
	}
}
