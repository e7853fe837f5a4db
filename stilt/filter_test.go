package stilt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icos-carbon-portal/cpclient/geo"
)

func testCatalog() *Catalog {
	stations := []*Station{
		{
			ID: "HTM150", LocIdent: "56.10Nx013.42Ex00150",
			Lat: 56.10, Lon: 13.42, Alt: 150,
			Name: "Hyltemossa 150m",
			ICOS: &ICOSInfo{ID: "HTM", Name: "Hyltemossa", Country: "SE", SamplingHeight: 150},
			Years: []int{2020, 2021},
			MonthsByYear: map[int][]string{
				2020: {"11", "12"},
				2021: {"01", "02"},
			},
			Geoinfo: Geoinfo{
				CountryCode: "SE",
				Country:     geo.Country{Alpha2: "SE", Alpha3: "SWE", Name: "Sweden"},
			},
		},
		{
			ID: "KIT200", LocIdent: "49.10Nx008.44Ex00200",
			Lat: 49.10, Lon: 8.44, Alt: 200,
			Name:         "Karlsruhe 200m",
			Years:        []int{2021},
			MonthsByYear: map[int][]string{2021: {"01"}},
			Geoinfo: Geoinfo{
				CountryCode: "DE",
				Country:     geo.Country{Alpha2: "DE", Alpha3: "DEU", Name: "Germany"},
			},
		},
		{
			ID: "PUY", LocIdent: "45.77Nx002.97Ex01465",
			Lat: 45.77, Lon: 2.97, Alt: 1465,
			Name:         "PUY 1465m",
			Years:        []int{2020},
			MonthsByYear: map[int][]string{2020: {"06"}},
			Geoinfo: Geoinfo{
				CountryCode: "FR",
				Country:     geo.Country{Alpha2: "FR", Alpha3: "FRA", Name: "France"},
			},
		},
		{
			ID: "SVB150", LocIdent: "64.26Nx019.78Ex00150",
			Lat: 64.26, Lon: 19.78, Alt: 150,
			Name:         "Svartberget 150m",
			ICOS:         &ICOSInfo{ID: "SVB", Name: "Svartberget", Country: "SE", SamplingHeight: 150},
			Years:        []int{2018},
			MonthsByYear: map[int][]string{2018: {"05"}},
			Geoinfo: Geoinfo{
				CountryCode: "SE",
				Country:     geo.Country{Alpha2: "SE", Alpha3: "SWE", Name: "Sweden"},
			},
		},
	}

	c := &Catalog{stations: make(map[string]*Station, len(stations))}
	for _, s := range stations {
		c.stations[s.ID] = s
		c.ids = append(c.ids, s.ID)
	}
	return c
}

func filteredIDs(t *testing.T, c *Catalog, opts FilterOptions) []string {
	t.Helper()
	res, err := c.Filter(opts)
	require.NoError(t, err)
	var ids []string
	for _, s := range res.List() {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestFilter_Empty(t *testing.T) {
	c := testCatalog()
	assert.Equal(t, []string{"HTM150", "KIT200", "PUY", "SVB150"},
		filteredIDs(t, c, FilterOptions{}))
}

func TestFilter_Countries(t *testing.T) {
	c := testCatalog()

	assert.Equal(t, []string{"HTM150", "SVB150"},
		filteredIDs(t, c, FilterOptions{Countries: []string{"se"}}))

	// Longer terms match against the country name fields.
	assert.Equal(t, []string{"HTM150", "SVB150"},
		filteredIDs(t, c, FilterOptions{Countries: []string{"sweden"}}))

	assert.Equal(t, []string{"HTM150", "KIT200", "SVB150"},
		filteredIDs(t, c, FilterOptions{Countries: []string{"SE", "DE"}}))
}

func TestFilter_IDs(t *testing.T) {
	c := testCatalog()

	assert.Equal(t, []string{"KIT200"},
		filteredIDs(t, c, FilterOptions{IDs: []string{"kit200"}}))

	// The attached ICOS id matches too.
	assert.Equal(t, []string{"HTM150"},
		filteredIDs(t, c, FilterOptions{IDs: []string{"HTM"}}))
}

func TestFilter_BBox(t *testing.T) {
	c := testCatalog()

	box := &BBox{LatNW: 60, LonNW: 0, LatSE: 44, LonSE: 15}
	assert.Equal(t, []string{"HTM150", "KIT200", "PUY"},
		filteredIDs(t, c, FilterOptions{BBox: box}))

	// Borders are inclusive.
	edge := &BBox{LatNW: 56.10, LonNW: 13.42, LatSE: 40, LonSE: 20}
	assert.Contains(t, filteredIDs(t, c, FilterOptions{BBox: edge}), "HTM150")
}

func TestFilter_BBoxInvalid(t *testing.T) {
	c := testCatalog()

	_, err := c.Filter(FilterOptions{BBox: &BBox{LatNW: 40, LatSE: 50, LonNW: 0, LonSE: 10}})
	assert.Error(t, err)

	_, err = c.Filter(FilterOptions{BBox: &BBox{LatNW: 50, LatSE: 40, LonNW: 10, LonSE: 0}})
	assert.Error(t, err)
}

func TestFilter_Pinpoint(t *testing.T) {
	c := testCatalog()

	// Default radius of 200 km around Hyltemossa keeps only Hyltemossa.
	assert.Equal(t, []string{"HTM150"},
		filteredIDs(t, c, FilterOptions{Pinpoint: &Pinpoint{Lat: 56.1, Lon: 13.4}}))

	// A very wide radius keeps everything.
	assert.Len(t,
		filteredIDs(t, c, FilterOptions{Pinpoint: &Pinpoint{Lat: 55, Lon: 10, RadiusKm: 2000}}), 4)
}

func TestFilter_DateRange(t *testing.T) {
	c := testCatalog()

	assert.Equal(t, []string{"HTM150", "KIT200"},
		filteredIDs(t, c, FilterOptions{SDate: "2021-01-01"}))

	assert.Equal(t, []string{"SVB150"},
		filteredIDs(t, c, FilterOptions{EDate: "2019-12-31"}))

	assert.Equal(t, []string{"HTM150", "PUY"},
		filteredIDs(t, c, FilterOptions{SDate: "2020-01-01", EDate: "2020-12-31"}))
}

// The range comparison works at year-month granularity: a date in the middle
// of an available month still matches that month.
func TestFilter_DateRangeGranularity(t *testing.T) {
	c := testCatalog()

	assert.Contains(t,
		filteredIDs(t, c, FilterOptions{SDate: "2020-12-15", EDate: "2020-12-20"}), "HTM150")
}

func TestFilter_Dates(t *testing.T) {
	c := testCatalog()

	// Every listed month must be available.
	assert.Equal(t, []string{"HTM150"},
		filteredIDs(t, c, FilterOptions{Dates: []any{"2020-11-01", "2021-02-01"}}))

	assert.Empty(t,
		filteredIDs(t, c, FilterOptions{Dates: []any{"2020-11-01", "2021-03-01"}}))
}

func TestFilter_Search(t *testing.T) {
	c := testCatalog()

	assert.Equal(t, []string{"HTM150"},
		filteredIDs(t, c, FilterOptions{Search: "hyltemossa 150"}))

	assert.Equal(t, []string{"PUY"},
		filteredIDs(t, c, FilterOptions{Search: "france"}))
}

func TestFilter_Project(t *testing.T) {
	c := testCatalog()

	assert.Equal(t, []string{"HTM150", "SVB150"},
		filteredIDs(t, c, FilterOptions{Project: "ICOS"}))

	_, err := c.Filter(FilterOptions{Project: "nexus"})
	assert.Error(t, err)
}

// Combined options intersect the individually filtered sets.
func TestFilter_Composition(t *testing.T) {
	c := testCatalog()

	combined := filteredIDs(t, c, FilterOptions{
		Countries: []string{"SE"},
		SDate:     "2020-01-01",
	})
	assert.Equal(t, []string{"HTM150"}, combined)

	byCountry := filteredIDs(t, c, FilterOptions{Countries: []string{"SE"}})
	byDate := filteredIDs(t, c, FilterOptions{SDate: "2020-01-01"})

	var intersection []string
	inDate := make(map[string]bool, len(byDate))
	for _, id := range byDate {
		inDate[id] = true
	}
	for _, id := range byCountry {
		if inDate[id] {
			intersection = append(intersection, id)
		}
	}
	assert.Equal(t, intersection, combined)
}

func TestResult_Frame(t *testing.T) {
	c := testCatalog()
	res, err := c.Filter(FilterOptions{Countries: []string{"SE"}})
	require.NoError(t, err)

	f, err := res.Frame()
	require.NoError(t, err)
	assert.Equal(t, 2, f.NRows())
	assert.Equal(t, []string{"id", "name", "lat", "lon", "alt", "country", "icos_id"}, f.ColNames())

	ids, ok := f.Strings("id")
	require.True(t, ok)
	assert.Equal(t, []string{"HTM150", "SVB150"}, ids)

	icosIDs, ok := f.Strings("icos_id")
	require.True(t, ok)
	assert.Equal(t, []string{"HTM", "SVB"}, icosIDs)
}

func TestResult_Map(t *testing.T) {
	c := testCatalog()
	res, err := c.Filter(FilterOptions{IDs: []string{"PUY"}})
	require.NoError(t, err)

	m := res.Map()
	require.Len(t, m, 1)
	assert.Equal(t, "PUY", m["PUY"].ID)
}

func TestResult_Availability(t *testing.T) {
	c := testCatalog()
	res, err := c.Filter(FilterOptions{})
	require.NoError(t, err)

	f, err := res.Availability()
	require.NoError(t, err)
	assert.Equal(t, 4, f.NRows())
	assert.Equal(t,
		[]string{"Station", "Alt", "ICOS id", "ICOS alt", "2018", "2020", "2021"},
		f.ColNames())

	counts2020, ok := f.Float64s("2020")
	require.True(t, ok)
	// HTM150 has two months in 2020, PUY one, the rest none.
	assert.Equal(t, []float64{2, 0, 1, 0}, counts2020)

	counts2018, ok := f.Float64s("2018")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0, 0, 1}, counts2018)
}
