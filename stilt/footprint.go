package stilt

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// footVariable is the raster variable inside a slot's NetCDF file.
const footVariable = "foot"

// Footprint is a stack of sensitivity rasters over a station's grid, one
// layer per slot, concatenated on the time axis. The value layout is
// (time, lat, lon), row-major.
type Footprint struct {
	Times  []time.Time
	Lat    []float64
	Lon    []float64
	Values []float32
}

// At returns the sensitivity at time index t, latitude index iy and
// longitude index ix.
func (f *Footprint) At(t, iy, ix int) float32 {
	return f.Values[(t*len(f.Lat)+iy)*len(f.Lon)+ix]
}

// Footprints reads the footprint rasters for the station over [from, to]
// (permissively parsed), keeping only the given hour slots. Slots without a
// file on disk are skipped; a period with no slots yields nil.
func (c *ResultsClient) Footprints(station *Station, from, to any, hours []any) (*Footprint, error) {
	fromT, err := ParseDate(from)
	if err != nil {
		return nil, err
	}
	toT, err := ParseDate(to)
	if err != nil {
		return nil, err
	}
	if toT.Hour() == 0 && toT.Minute() == 0 && toT.Second() == 0 {
		toT = toT.Add(24*time.Hour - time.Second)
	}

	mask, err := NormalizeHours(hours)
	if err != nil {
		return nil, err
	}
	allowed := make(map[int]bool, len(mask))
	for _, h := range mask {
		allowed[h] = true
	}

	var fp *Footprint
	for _, t := range c.availableSlots(station, fromT, toT) {
		if !allowed[t.Hour()] {
			continue
		}
		path := filepath.Join(
			c.cfg.Config.FootprintRoot,
			station.LocIdent,
			fmt.Sprintf("%04d", t.Year()),
			fmt.Sprintf("%02d", int(t.Month())),
			fmt.Sprintf("%04dx%02dx%02dx%02d", t.Year(), int(t.Month()), t.Day(), t.Hour()),
			footVariable,
		)
		fp, err = appendSlot(fp, path, t)
		if err != nil {
			return nil, fmt.Errorf("footprint %s: %w", path, err)
		}
	}
	return fp, nil
}

// appendSlot reads one slot file and concatenates its raster onto the stack.
func appendSlot(fp *Footprint, path string, t time.Time) (*Footprint, error) {
	group, err := netcdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer group.Close()

	if fp == nil {
		lat, err := readAxis(group, "lat")
		if err != nil {
			return nil, err
		}
		lon, err := readAxis(group, "lon")
		if err != nil {
			return nil, err
		}
		fp = &Footprint{Lat: lat, Lon: lon}
	}

	foot, err := group.GetVariable(footVariable)
	if err != nil {
		return nil, err
	}
	layer, err := flattenRaster(foot.Values)
	if err != nil {
		return nil, err
	}
	if want := len(fp.Lat) * len(fp.Lon); len(layer)%want != 0 {
		return nil, fmt.Errorf("raster has %d cells, grid is %d", len(layer), want)
	}

	if fill, ok := fillValue(foot.Attributes); ok {
		for i, v := range layer {
			if v == fill {
				layer[i] = float32(math.NaN())
			}
		}
	}

	fp.Times = append(fp.Times, t)
	fp.Values = append(fp.Values, layer...)
	return fp, nil
}

// readAxis returns a coordinate variable as float64.
func readAxis(group api.Group, name string) ([]float64, error) {
	v, err := group.GetVariable(name)
	if err != nil {
		return nil, err
	}
	switch vals := v.Values.(type) {
	case []float64:
		return vals, nil
	case []float32:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("axis %s has unexpected type %T", name, v.Values)
	}
}

// flattenRaster accepts the (time, lat, lon) or (lat, lon) nested slices the
// reader produces and returns a flat row-major layer.
func flattenRaster(values any) ([]float32, error) {
	switch v := values.(type) {
	case [][][]float32:
		var out []float32
		for _, plane := range v {
			for _, row := range plane {
				out = append(out, row...)
			}
		}
		return out, nil
	case [][]float32:
		var out []float32
		for _, row := range v {
			out = append(out, row...)
		}
		return out, nil
	case []float32:
		return v, nil
	default:
		return nil, fmt.Errorf("raster has unexpected type %T", values)
	}
}

// fillValue extracts the CF _FillValue attribute when present.
func fillValue(attrs api.AttributeMap) (float32, bool) {
	if attrs == nil {
		return 0, false
	}
	raw, has := attrs.Get("_FillValue")
	if !has {
		return 0, false
	}
	switch v := raw.(type) {
	case float32:
		return v, true
	case []float32:
		if len(v) > 0 {
			return v[0], true
		}
	case float64:
		return float32(v), true
	case []float64:
		if len(v) > 0 {
			return float32(v[0]), true
		}
	}
	return 0, false
}
