// Package cpb decodes the portal's binary column payloads. A payload is a
// sequence of contiguous per-column arrays in big-endian byte order; the
// element width of each column follows from its schema value format.
package cpb

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/icos-carbon-portal/cpclient/cperr"
	"github.com/icos-carbon-portal/cpclient/frame"
)

// ColumnSchema describes one column of a payload: its name and the tail of
// its valueFormat URI from the metadata document.
type ColumnSchema struct {
	Name   string
	Format string
}

// Format codes as they appear at the tail of the portal's valueFormat URIs.
const (
	FmtFloat32   = "float32"
	FmtFloat64   = "float64"
	FmtInt32     = "int32"
	FmtChar      = "bmpChar"
	FmtDate      = "iso8601date"
	FmtEtcDate   = "etcDate"
	FmtTimeOfDay = "iso8601timeOfDay"
	FmtDateTime  = "iso8601dateTime"
	FmtLocalDT   = "isoLikeLocalDateTime"
	FmtEtcDT     = "etcLocalDateTime"
)

// FormatCode extracts the format code from a full valueFormat URI.
func FormatCode(uri string) string {
	if i := strings.LastIndexByte(uri, '/'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// ElemSize returns the fixed element width in bytes for a format code.
func ElemSize(format string) (int, error) {
	switch format {
	case FmtFloat32, FmtInt32, FmtDate, FmtEtcDate, FmtTimeOfDay:
		return 4, nil
	case FmtFloat64, FmtDateTime, FmtLocalDT, FmtEtcDT:
		return 8, nil
	case FmtChar:
		return 2, nil
	default:
		return 0, fmt.Errorf("unknown value format %q", format)
	}
}

// PayloadSize returns the total byte length of a payload holding nRows rows
// of the given columns.
func PayloadSize(cols []ColumnSchema, nRows int) (int, error) {
	total := 0
	for i, col := range cols {
		size, err := ElemSize(col.Format)
		if err != nil {
			return 0, &cperr.DecodeError{Column: i, Err: err}
		}
		total += size * nRows
	}
	return total, nil
}

// Decode parses a binary payload into a frame. The columns must be listed in
// payload order (the lexicographic order of the selected names). When
// convert is true, columns named TIMESTAMP and TIMESTAMP_END are
// reinterpreted as Unix milliseconds, a column named date as a Unix-day
// count, and a column named time as seconds truncated to time of day.
func Decode(buf []byte, cols []ColumnSchema, nRows int, convert bool) (*frame.Frame, error) {
	want, err := PayloadSize(cols, nRows)
	if err != nil {
		return nil, err
	}
	if len(buf) != want {
		return nil, &cperr.DecodeError{
			Column: 0,
			Err:    fmt.Errorf("payload is %d bytes, schema requires %d", len(buf), want),
		}
	}

	out := make([]frame.Column, 0, len(cols))
	offset := 0
	for i, col := range cols {
		size, _ := ElemSize(col.Format)
		raw := buf[offset : offset+size*nRows]
		offset += size * nRows

		values, err := decodeColumn(raw, col.Format, nRows)
		if err != nil {
			return nil, &cperr.DecodeError{Column: i, Err: err}
		}
		if convert {
			values = convertByName(col.Name, values)
		}
		out = append(out, frame.Column{Name: col.Name, Values: values})
	}

	f, err := frame.New(out...)
	if err != nil {
		return nil, &cperr.DecodeError{Column: 0, Err: err}
	}
	return f, nil
}

func decodeColumn(raw []byte, format string, nRows int) (any, error) {
	switch format {
	case FmtFloat32:
		v := make([]float32, nRows)
		for i := range v {
			v[i] = math.Float32frombits(binary.BigEndian.Uint32(raw[i*4:]))
		}
		return v, nil
	case FmtFloat64:
		v := make([]float64, nRows)
		for i := range v {
			v[i] = math.Float64frombits(binary.BigEndian.Uint64(raw[i*8:]))
		}
		return v, nil
	case FmtInt32, FmtDate, FmtEtcDate, FmtTimeOfDay:
		v := make([]int32, nRows)
		for i := range v {
			v[i] = int32(binary.BigEndian.Uint32(raw[i*4:]))
		}
		return v, nil
	case FmtDateTime, FmtLocalDT, FmtEtcDT:
		v := make([]int64, nRows)
		for i := range v {
			v[i] = int64(binary.BigEndian.Uint64(raw[i*8:]))
		}
		return v, nil
	case FmtChar:
		v := make([]string, nRows)
		for i := range v {
			v[i] = string(rune(binary.BigEndian.Uint16(raw[i*2:])))
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown value format %q", format)
	}
}

// convertByName applies the name-keyed type conversions.
func convertByName(name string, values any) any {
	switch name {
	case "TIMESTAMP", "TIMESTAMP_END":
		if millis, ok := values.([]int64); ok {
			out := make([]time.Time, len(millis))
			for i, ms := range millis {
				out[i] = time.UnixMilli(ms).UTC()
			}
			return out
		}
	case "date":
		if days, ok := values.([]int32); ok {
			out := make([]time.Time, len(days))
			for i, d := range days {
				out[i] = time.Unix(int64(d)*86400, 0).UTC()
			}
			return out
		}
	case "time":
		if secs, ok := values.([]int32); ok {
			out := make([]string, len(secs))
			for i, s := range secs {
				sod := ((s % 86400) + 86400) % 86400
				out[i] = fmt.Sprintf("%02d:%02d:%02d", sod/3600, (sod/60)%60, sod%60)
			}
			return out
		}
	}
	return values
}
