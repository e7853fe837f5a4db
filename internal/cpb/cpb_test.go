package cpb_test

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icos-carbon-portal/cpclient/cperr"
	"github.com/icos-carbon-portal/cpclient/internal/cpb"
)

// buildPayload encodes contiguous big-endian column arrays.
func buildPayload(t *testing.T, cols ...any) []byte {
	t.Helper()
	var buf []byte
	for _, col := range cols {
		switch v := col.(type) {
		case []float32:
			for _, x := range v {
				buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(x))
			}
		case []float64:
			for _, x := range v {
				buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(x))
			}
		case []int32:
			for _, x := range v {
				buf = binary.BigEndian.AppendUint32(buf, uint32(x))
			}
		case []int64:
			for _, x := range v {
				buf = binary.BigEndian.AppendUint64(buf, uint64(x))
			}
		case []uint16:
			for _, x := range v {
				buf = binary.BigEndian.AppendUint16(buf, x)
			}
		default:
			t.Fatalf("unsupported column type %T", col)
		}
	}
	return buf
}

func TestDecode(t *testing.T) {
	schema := []cpb.ColumnSchema{
		{Name: "Flag", Format: cpb.FmtChar},
		{Name: "TIMESTAMP", Format: cpb.FmtDateTime},
		{Name: "ch4", Format: cpb.FmtFloat32},
	}
	payload := buildPayload(t,
		[]uint16{'U', 'N', 'U'},
		[]int64{1609459200000, 1609462800000, 1609466400000},
		[]float32{1912.4, 1913.1, 1911.8},
	)

	f, err := cpb.Decode(payload, schema, 3, true)
	require.NoError(t, err)

	assert.Equal(t, 3, f.NRows())
	assert.Equal(t, []string{"Flag", "TIMESTAMP", "ch4"}, f.ColNames())

	flags, ok := f.Strings("Flag")
	require.True(t, ok)
	assert.Equal(t, []string{"U", "N", "U"}, flags)

	// TIMESTAMP converts from Unix milliseconds.
	times, ok := f.Times("TIMESTAMP")
	require.True(t, ok)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), times[0])
	assert.Equal(t, time.Date(2021, 1, 1, 1, 0, 0, 0, time.UTC), times[1])

	ch4, ok := f.Float64s("ch4")
	require.True(t, ok)
	assert.InDelta(t, 1912.4, ch4[0], 1e-3)
}

func TestDecode_NoConversion(t *testing.T) {
	schema := []cpb.ColumnSchema{{Name: "TIMESTAMP", Format: cpb.FmtDateTime}}
	payload := buildPayload(t, []int64{1609459200000})

	f, err := cpb.Decode(payload, schema, 1, false)
	require.NoError(t, err)

	col, ok := f.Column("TIMESTAMP")
	require.True(t, ok)
	assert.Equal(t, []int64{1609459200000}, col.Values)
}

func TestDecode_DateAndTimeColumns(t *testing.T) {
	schema := []cpb.ColumnSchema{
		{Name: "date", Format: cpb.FmtDate},
		{Name: "time", Format: cpb.FmtTimeOfDay},
	}
	// 18628 days = 2021-01-01; 34200 s = 09:30:00.
	payload := buildPayload(t, []int32{18628}, []int32{34200})

	f, err := cpb.Decode(payload, schema, 1, true)
	require.NoError(t, err)

	dates, ok := f.Times("date")
	require.True(t, ok)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), dates[0])

	times, ok := f.Strings("time")
	require.True(t, ok)
	assert.Equal(t, "09:30:00", times[0])
}

func TestDecode_SizeMismatch(t *testing.T) {
	schema := []cpb.ColumnSchema{{Name: "v", Format: cpb.FmtFloat64}}
	_, err := cpb.Decode(make([]byte, 12), schema, 2, true)
	require.Error(t, err)
	assert.True(t, cperr.IsDecode(err))
}

func TestDecode_UnknownFormat(t *testing.T) {
	schema := []cpb.ColumnSchema{
		{Name: "a", Format: cpb.FmtFloat32},
		{Name: "b", Format: "complex128"},
	}
	_, err := cpb.Decode(nil, schema, 1, true)
	require.Error(t, err)

	var decodeErr *cperr.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, 1, decodeErr.Column)
}

func TestFormatCode(t *testing.T) {
	assert.Equal(t, "float32",
		cpb.FormatCode("http://meta.icos-cp.eu/ontologies/cpmeta/float32"))
	assert.Equal(t, "float64", cpb.FormatCode("float64"))
}

func TestElemSize(t *testing.T) {
	cases := map[string]int{
		cpb.FmtFloat32:   4,
		cpb.FmtFloat64:   8,
		cpb.FmtInt32:     4,
		cpb.FmtChar:      2,
		cpb.FmtDate:      4,
		cpb.FmtTimeOfDay: 4,
		cpb.FmtDateTime:  8,
	}
	for format, want := range cases {
		got, err := cpb.ElemSize(format)
		require.NoError(t, err)
		assert.Equal(t, want, got, format)
	}

	_, err := cpb.ElemSize("nope")
	require.Error(t, err)
}
