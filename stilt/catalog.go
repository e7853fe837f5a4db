package stilt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rs/zerolog"

	"github.com/icos-carbon-portal/cpclient/config"
	"github.com/icos-carbon-portal/cpclient/geo"
	"github.com/icos-carbon-portal/cpclient/internal/portalhttp"
)

const stationInfoPath = "/viewer/stationinfo"

// endsInHeight matches display names that already carry an altitude suffix.
var endsInHeight = regexp.MustCompile(`\d+m$`)

// CatalogConfig holds configuration for building a station catalog.
type CatalogConfig struct {
	// Config supplies the STILT filesystem roots and hosts.
	Config config.Config

	// IDs optionally restricts discovery to these station ids
	// (case-insensitive).
	IDs []string

	// Registry resolves ICOS atmosphere stations for enrichment. May be
	// nil.
	Registry ICOSRegistry

	// Countries resolves country codes. If nil, the built-in table is
	// used.
	Countries geo.Lookup

	// IndexPath is a local station index CSV. When empty the index is
	// fetched from the stationinfo endpoint.
	IndexPath string

	// HTTPClient fetches the remote index. If nil, a default resilient
	// client is created.
	HTTPClient portalhttp.Doer

	// Logger for discovery events.
	Logger zerolog.Logger
}

// indexRow is one row of the station index CSV.
type indexRow struct {
	ID         string  `csv:"STILT id"`
	Name       string  `csv:"STILT name"`
	ICOSID     string  `csv:"ICOS id"`
	ICOSHeight float64 `csv:"ICOS height"`
	Country    string  `csv:"Country"`
}

// Catalog is the immutable registry of discovered stations.
type Catalog struct {
	stations map[string]*Station
	ids      []string
}

// BuildCatalog crawls the STILT station tree and builds the registry. The
// result is a snapshot: directory content observed now, never refreshed.
func BuildCatalog(ctx context.Context, cfg CatalogConfig) (*Catalog, error) {
	if cfg.Countries == nil {
		cfg.Countries = geo.Default()
	}

	entries, err := os.ReadDir(cfg.Config.StiltRoot)
	if err != nil {
		return nil, fmt.Errorf("read stilt root: %w", err)
	}

	allow := make(map[string]bool, len(cfg.IDs))
	for _, id := range cfg.IDs {
		allow[strings.ToUpper(id)] = true
	}

	index, err := loadIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}

	catalog := &Catalog{stations: make(map[string]*Station)}
	for _, entry := range entries {
		id := entry.Name()
		if len(allow) > 0 && !allow[strings.ToUpper(id)] {
			continue
		}

		station, err := buildStation(cfg, id)
		if err != nil {
			cfg.Logger.Warn().Str("station", id).Err(err).Msg("dropping station")
			continue
		}

		enrich(cfg, station, index[id])
		catalog.stations[station.ID] = station
		catalog.ids = append(catalog.ids, station.ID)
	}
	sort.Strings(catalog.ids)

	cfg.Logger.Info().Int("stations", len(catalog.ids)).Msg("stilt catalog built")
	return catalog, nil
}

// buildStation resolves one station entry: symlink target, coded location
// and month availability.
func buildStation(cfg CatalogConfig, id string) (*Station, error) {
	link := filepath.Join(cfg.Config.StiltRoot, id)
	target, err := os.Readlink(link)
	if err != nil {
		return nil, fmt.Errorf("read symlink: %w", err)
	}
	if _, err := os.Stat(link); err != nil {
		return nil, fmt.Errorf("resolve symlink: %w", err)
	}

	locIdent := filepath.Base(target)
	lat, lon, alt, err := ParseLocIdent(locIdent)
	if err != nil {
		return nil, err
	}

	station := &Station{
		ID:           id,
		LocIdent:     locIdent,
		Lat:          lat,
		Lon:          lon,
		Alt:          alt,
		MonthsByYear: make(map[int][]string),
	}
	scanAvailability(link, station)
	return station, nil
}

// scanAvailability enumerates YYYY/MM sub-directories, ignoring cache
// entries.
func scanAvailability(dir string, station *Station) {
	yearEntries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, ye := range yearEntries {
		year, err := strconv.Atoi(ye.Name())
		if err != nil || len(ye.Name()) != 4 {
			continue
		}

		monthEntries, err := os.ReadDir(filepath.Join(dir, ye.Name()))
		if err != nil {
			continue
		}
		var months []string
		for _, me := range monthEntries {
			name := me.Name()
			if name == "cache" || len(name) != 2 {
				continue
			}
			if m, err := strconv.Atoi(name); err != nil || m < 1 || m > 12 {
				continue
			}
			months = append(months, name)
		}
		if len(months) == 0 {
			continue
		}
		sort.Strings(months)
		station.Years = append(station.Years, year)
		station.MonthsByYear[year] = months
	}
	sort.Ints(station.Years)
}

// enrich applies the index row, the ICOS cross-reference and the country
// lookup.
func enrich(cfg CatalogConfig, station *Station, row *indexRow) {
	name := station.ID
	if row != nil && row.Name != "" {
		name = row.Name
	}
	if !endsInHeight.MatchString(name) {
		name = fmt.Sprintf("%s %dm", name, station.Alt)
	}
	station.Name = name

	if cfg.Registry != nil {
		prefix := strings.ToUpper(station.ID)
		if len(prefix) >= 3 {
			prefix = prefix[:3]
		}
		if info, ok := cfg.Registry.AtmosphereStation(prefix); ok {
			if row != nil && row.ICOSHeight > 0 {
				info.SamplingHeight = row.ICOSHeight
			}
			station.ICOS = &info
		}
	}

	if row != nil && row.Country != "" {
		station.Geoinfo.CountryCode = strings.ToUpper(row.Country)
		if country, ok := cfg.Countries.ByAlpha2(row.Country); ok {
			station.Geoinfo.Country = country
		}
	}
}

// loadIndex reads the station index CSV from disk or from the stationinfo
// endpoint, keyed by STILT id.
func loadIndex(ctx context.Context, cfg CatalogConfig) (map[string]*indexRow, error) {
	var data []byte
	var err error

	if cfg.IndexPath != "" {
		data, err = os.ReadFile(cfg.IndexPath)
		if err != nil {
			return nil, fmt.Errorf("read station index: %w", err)
		}
	} else {
		data, err = fetchIndex(ctx, cfg)
		if err != nil {
			cfg.Logger.Warn().Err(err).Msg("station index unavailable, continuing without")
			return map[string]*indexRow{}, nil
		}
	}

	var rows []indexRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode station index: %w", err)
	}

	index := make(map[string]*indexRow, len(rows))
	for i := range rows {
		index[rows[i].ID] = &rows[i]
	}
	return index, nil
}

func fetchIndex(ctx context.Context, cfg CatalogConfig) ([]byte, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = portalhttp.New(portalhttp.ClientConfig{
			Name:    "stationinfo",
			Timeout: cfg.Config.HTTPTimeout,
			Logger:  cfg.Logger,
		})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		cfg.Config.StiltHost+stationInfoPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create stationinfo request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch stationinfo: %w", err)
	}
	if err := portalhttp.CheckResponse(resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// IDs returns all station ids, sorted.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Get returns the station with the given id (case-insensitive).
func (c *Catalog) Get(id string) (*Station, bool) {
	if s, ok := c.stations[id]; ok {
		return s, true
	}
	for _, s := range c.stations {
		if strings.EqualFold(s.ID, id) {
			return s, true
		}
	}
	return nil, false
}

// All returns all stations, ordered by id.
func (c *Catalog) All() []*Station {
	out := make([]*Station, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.stations[id])
	}
	return out
}
