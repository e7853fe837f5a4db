package stilt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/icos-carbon-portal/cpclient/frame"
)

// BBox is an inclusive geographic rectangle given by its north-west and
// south-east corners.
type BBox struct {
	LatNW, LonNW float64
	LatSE, LonSE float64
}

// Contains reports whether the point lies inside the rectangle, borders
// included.
func (b BBox) Contains(lat, lon float64) bool {
	return lat <= b.LatNW && lat >= b.LatSE && lon >= b.LonNW && lon <= b.LonSE
}

func (b BBox) validate() error {
	if b.LatNW <= b.LatSE {
		return fmt.Errorf("bbox: latNW must exceed latSE")
	}
	if b.LonNW >= b.LonSE {
		return fmt.Errorf("bbox: lonNW must be west of lonSE")
	}
	return nil
}

// Pinpoint selects stations within RadiusKm of a point. The radius defaults
// to 200 km and is converted to a bounding box with the coarse approximation
// 1 degree = 100 km in both axes.
type Pinpoint struct {
	Lat, Lon float64
	RadiusKm float64
}

func (p Pinpoint) bbox() BBox {
	r := p.RadiusKm
	if r == 0 {
		r = 200
	}
	deg := r / 100
	return BBox{
		LatNW: p.Lat + deg, LonNW: p.Lon - deg,
		LatSE: p.Lat - deg, LonSE: p.Lon + deg,
	}
}

// FilterOptions is a composable set of predicates. All set options must
// hold; the filtered registry equals the intersection of each predicate
// applied individually.
type FilterOptions struct {
	// IDs keeps stations whose STILT id or attached ICOS id matches one of
	// the given ids (case-insensitive).
	IDs []string

	// BBox keeps stations inside the rectangle.
	BBox *BBox

	// Pinpoint keeps stations within a radius of a point.
	Pinpoint *Pinpoint

	// Countries keeps stations matching an alpha-2 code or, for longer
	// strings, any of the country name fields (case-insensitive).
	Countries []string

	// SDate keeps stations with any (year, month) at or after this date;
	// EDate with any at or before. Granularity is year-month; strings,
	// Unix seconds and time.Time are accepted.
	SDate any
	EDate any

	// Dates keeps stations whose availability includes every listed month.
	Dates []any

	// Search keeps stations whose JSON serialization contains the
	// substring (case-insensitive).
	Search string

	// Project keeps stations belonging to the named project; "icos" keeps
	// stations with an attached ICOS atmosphere station.
	Project string
}

type predicate func(*Station) bool

// predicates compiles the set options in declaration order.
func (o FilterOptions) predicates() ([]predicate, error) {
	var preds []predicate

	if len(o.IDs) > 0 {
		want := make(map[string]bool, len(o.IDs))
		for _, id := range o.IDs {
			want[strings.ToUpper(id)] = true
		}
		preds = append(preds, func(s *Station) bool {
			if want[strings.ToUpper(s.ID)] {
				return true
			}
			return s.ICOS != nil && want[strings.ToUpper(s.ICOS.ID)]
		})
	}

	if o.BBox != nil {
		if err := o.BBox.validate(); err != nil {
			return nil, err
		}
		box := *o.BBox
		preds = append(preds, func(s *Station) bool {
			return box.Contains(s.Lat, s.Lon)
		})
	}

	if o.Pinpoint != nil {
		box := o.Pinpoint.bbox()
		preds = append(preds, func(s *Station) bool {
			return box.Contains(s.Lat, s.Lon)
		})
	}

	if len(o.Countries) > 0 {
		terms := o.Countries
		preds = append(preds, func(s *Station) bool {
			for _, term := range terms {
				if len(term) == 2 {
					if strings.EqualFold(term, s.Geoinfo.CountryCode) {
						return true
					}
					continue
				}
				if s.Geoinfo.Country.Matches(term) {
					return true
				}
			}
			return false
		})
	}

	datePreds, err := o.datePredicates()
	if err != nil {
		return nil, err
	}
	preds = append(preds, datePreds...)

	if o.Search != "" {
		needle := strings.ToLower(o.Search)
		preds = append(preds, func(s *Station) bool {
			serialized, err := json.Marshal(s)
			if err != nil {
				return false
			}
			return strings.Contains(strings.ToLower(string(serialized)), needle)
		})
	}

	if o.Project != "" {
		if !strings.EqualFold(o.Project, "icos") {
			return nil, fmt.Errorf("unknown project %q", o.Project)
		}
		preds = append(preds, func(s *Station) bool {
			return s.ICOS != nil
		})
	}

	return preds, nil
}

// yearMonth is the comparable (year, month) granule of the date predicates.
type yearMonth struct {
	y, m int
}

func (a yearMonth) cmp(b yearMonth) int {
	if a.y != b.y {
		return a.y - b.y
	}
	return a.m - b.m
}

func toYearMonth(v any) (yearMonth, error) {
	t, err := ParseDate(v)
	if err != nil {
		return yearMonth{}, err
	}
	return yearMonth{y: t.Year(), m: int(t.Month())}, nil
}

func (o FilterOptions) datePredicates() ([]predicate, error) {
	var preds []predicate

	var sd, ed *yearMonth
	if o.SDate != nil {
		ym, err := toYearMonth(o.SDate)
		if err != nil {
			return nil, err
		}
		sd = &ym
	}
	if o.EDate != nil {
		ym, err := toYearMonth(o.EDate)
		if err != nil {
			return nil, err
		}
		ed = &ym
	}
	if sd != nil || ed != nil {
		preds = append(preds, func(s *Station) bool {
			for _, year := range s.Years {
				for _, mm := range s.MonthsByYear[year] {
					m, _ := strconv.Atoi(mm)
					ym := yearMonth{y: year, m: m}
					if sd != nil && ym.cmp(*sd) < 0 {
						continue
					}
					if ed != nil && ym.cmp(*ed) > 0 {
						continue
					}
					return true
				}
			}
			return false
		})
	}

	if len(o.Dates) > 0 {
		wanted := make([]yearMonth, 0, len(o.Dates))
		for _, d := range o.Dates {
			ym, err := toYearMonth(d)
			if err != nil {
				return nil, err
			}
			wanted = append(wanted, ym)
		}
		preds = append(preds, func(s *Station) bool {
			for _, ym := range wanted {
				if !s.HasMonth(ym.y, ym.m) {
					return false
				}
			}
			return true
		})
	}

	return preds, nil
}

// Result is a filtered view of the catalog.
type Result struct {
	stations []*Station
}

// Filter applies the options to the registry.
func (c *Catalog) Filter(opts FilterOptions) (*Result, error) {
	preds, err := opts.predicates()
	if err != nil {
		return nil, err
	}

	var kept []*Station
	for _, s := range c.All() {
		ok := true
		for _, p := range preds {
			if !p(s) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, s)
		}
	}
	return &Result{stations: kept}, nil
}

// List returns the matching stations ordered by id.
func (r *Result) List() []*Station {
	return append([]*Station(nil), r.stations...)
}

// Map returns the matching stations keyed by id.
func (r *Result) Map() map[string]*Station {
	out := make(map[string]*Station, len(r.stations))
	for _, s := range r.stations {
		out[s.ID] = s
	}
	return out
}

// Frame returns a row-per-station tabular view.
func (r *Result) Frame() (*frame.Frame, error) {
	n := len(r.stations)
	ids := make([]string, n)
	names := make([]string, n)
	lats := make([]float64, n)
	lons := make([]float64, n)
	alts := make([]int64, n)
	countries := make([]string, n)
	icosIDs := make([]string, n)

	for i, s := range r.stations {
		ids[i] = s.ID
		names[i] = s.Name
		lats[i] = s.Lat
		lons[i] = s.Lon
		alts[i] = int64(s.Alt)
		countries[i] = s.Geoinfo.CountryCode
		if s.ICOS != nil {
			icosIDs[i] = s.ICOS.ID
		}
	}

	return frame.New(
		frame.Column{Name: "id", Values: ids},
		frame.Column{Name: "name", Values: names},
		frame.Column{Name: "lat", Values: lats},
		frame.Column{Name: "lon", Values: lons},
		frame.Column{Name: "alt", Values: alts},
		frame.Column{Name: "country", Values: countries},
		frame.Column{Name: "icos_id", Values: icosIDs},
	)
}

// Availability returns the dense station-by-year matrix of month counts,
// augmented with altitude and ICOS columns. Missing years are zero-filled.
func (r *Result) Availability() (*frame.Frame, error) {
	yearSet := make(map[int]bool)
	for _, s := range r.stations {
		for _, y := range s.Years {
			yearSet[y] = true
		}
	}
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	n := len(r.stations)
	ids := make([]string, n)
	alts := make([]int64, n)
	icosIDs := make([]string, n)
	icosAlts := make([]float64, n)
	counts := make(map[int][]int64, len(years))
	for _, y := range years {
		counts[y] = make([]int64, n)
	}

	for i, s := range r.stations {
		ids[i] = s.ID
		alts[i] = int64(s.Alt)
		if s.ICOS != nil {
			icosIDs[i] = s.ICOS.ID
			icosAlts[i] = s.ICOS.SamplingHeight
		}
		for _, y := range s.Years {
			counts[y][i] = int64(len(s.MonthsByYear[y]))
		}
	}

	cols := []frame.Column{
		{Name: "Station", Values: ids},
		{Name: "Alt", Values: alts},
		{Name: "ICOS id", Values: icosIDs},
		{Name: "ICOS alt", Values: icosAlts},
	}
	for _, y := range years {
		cols = append(cols, frame.Column{Name: strconv.Itoa(y), Values: counts[y]})
	}
	return frame.New(cols...)
}
