package stilt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/icos-carbon-portal/cpclient/auth"
	"github.com/icos-carbon-portal/cpclient/config"
	"github.com/icos-carbon-portal/cpclient/cperr"
	"github.com/icos-carbon-portal/cpclient/frame"
	"github.com/icos-carbon-portal/cpclient/internal/portalhttp"
)

const (
	resultPath    = "/viewer/stiltresult"
	rawResultPath = "/viewer/stiltrawresult"
)

// ResultsConfig holds configuration for a ResultsClient.
type ResultsConfig struct {
	// Config supplies the footprint root and the STILT host.
	Config config.Config

	// Session supplies the portal cookie. May be nil for open endpoints.
	Session *auth.Session

	// Lister resolves data-object lists for ICOS-attached stations. May be
	// nil.
	Lister DobjLister

	// HTTPClient for the result endpoints. If nil, a default resilient
	// client is created.
	HTTPClient portalhttp.Doer

	// Logger for fetch events.
	Logger zerolog.Logger
}

// ResultsClient fetches per-station STILT results: time-series rows from the
// viewer endpoints and footprint rasters from the local archive.
type ResultsClient struct {
	cfg        ResultsConfig
	httpClient portalhttp.Doer
	logger     zerolog.Logger

	mu       sync.Mutex
	dobjMemo map[string][]string
}

// NewResultsClient creates a ResultsClient.
func NewResultsClient(cfg ResultsConfig) *ResultsClient {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = portalhttp.New(portalhttp.ClientConfig{
			Name:    "stiltresult",
			Timeout: cfg.Config.HTTPTimeout,
			Logger:  cfg.Logger,
		})
	}
	return &ResultsClient{
		cfg:        cfg,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		dobjMemo:   make(map[string][]string),
	}
}

// availableSlots intersects the candidate 3-hourly timestamps in [from, to]
// with the slot directories present on disk for the station.
func (c *ResultsClient) availableSlots(station *Station, from, to time.Time) []time.Time {
	var out []time.Time
	for _, t := range slotTimes(from, to) {
		dir := filepath.Join(
			c.cfg.Config.FootprintRoot,
			station.LocIdent,
			fmt.Sprintf("%04d", t.Year()),
			fmt.Sprintf("%02d", int(t.Month())),
			fmt.Sprintf("%04dx%02dx%02dx%02d", t.Year(), int(t.Month()), t.Day(), t.Hour()),
		)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			out = append(out, t)
		}
	}
	return out
}

// resultRequest is the body of the stiltresult and stiltrawresult endpoints.
type resultRequest struct {
	StationID string   `json:"stationId"`
	FromDate  string   `json:"fromDate"`
	ToDate    string   `json:"toDate"`
	Columns   []string `json:"columns"`
}

// TimeSeries fetches time-series rows for the station over [from, to]
// (permissively parsed), keeping only the given hour slots (empty selects
// all) and the columns of the named group (unknown falls back to default
// with a warning).
func (c *ResultsClient) TimeSeries(ctx context.Context, station *Station, from, to any, hours []any, group string) (*frame.Frame, error) {
	columns, known := ColumnGroup(group)
	if !known {
		c.logger.Warn().Str("group", group).Msg("unknown column group, using default")
	}
	return c.fetch(ctx, station, from, to, hours, columns, resultPath)
}

// Raw fetches arbitrary columns from the raw result endpoint. The column
// list is intersected with the fixed vocabulary (case-sensitive) and isodate
// is always included.
func (c *ResultsClient) Raw(ctx context.Context, station *Station, from, to any, hours []any, columns []string) (*frame.Frame, error) {
	return c.fetch(ctx, station, from, to, hours, IntersectRaw(columns), rawResultPath)
}

func (c *ResultsClient) fetch(ctx context.Context, station *Station, from, to any, hours []any, columns []string, path string) (*frame.Frame, error) {
	fromT, err := ParseDate(from)
	if err != nil {
		return nil, err
	}
	toT, err := ParseDate(to)
	if err != nil {
		return nil, err
	}
	// A bare end date covers its whole day.
	if toT.Hour() == 0 && toT.Minute() == 0 && toT.Second() == 0 {
		toT = toT.Add(24*time.Hour - time.Second)
	}

	mask, err := NormalizeHours(hours)
	if err != nil {
		return nil, err
	}

	slots := c.availableSlots(station, fromT, toT)
	if len(slots) == 0 {
		c.logger.Info().Str("station", station.ID).Msg("no stilt results in period")
		return frame.New()
	}

	body, err := json.Marshal(resultRequest{
		StationID: station.ID,
		FromDate:  fromT.Format("2006-01-02"),
		ToDate:    toT.Format("2006-01-02"),
		Columns:   columns,
	})
	if err != nil {
		return nil, fmt.Errorf("encode result request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.Config.StiltHost+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create result request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.cfg.Session != nil {
		cookie, err := c.cfg.Session.Cookie(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch stilt result: %w", err)
	}
	if err := portalhttp.CheckResponse(resp); err != nil {
		// Echo the request body so a failing query can be diagnosed.
		var remote *cperr.RemoteError
		if errors.As(err, &remote) {
			return nil, &cperr.RemoteError{
				StatusCode: remote.StatusCode,
				Body:       fmt.Sprintf("request %s: %s", body, remote.Body),
			}
		}
		return nil, err
	}
	defer resp.Body.Close()

	var rows [][]json.Number
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode result rows: %w", err)
	}

	f, err := rowsToFrame(rows, columns)
	if err != nil {
		return nil, err
	}
	return applyHourMask(f, mask)
}

// rowsToFrame decodes positional rows into columns, converting the isodate
// seconds column into timestamps.
func rowsToFrame(rows [][]json.Number, columns []string) (*frame.Frame, error) {
	n := len(rows)
	cols := make([]frame.Column, 0, len(columns))
	for j, name := range columns {
		if name == "isodate" {
			times := make([]time.Time, n)
			for i, row := range rows {
				if j >= len(row) {
					return nil, fmt.Errorf("result row %d has %d fields, want %d", i, len(row), len(columns))
				}
				secs, err := row[j].Float64()
				if err != nil {
					return nil, fmt.Errorf("result row %d isodate: %w", i, err)
				}
				times[i] = time.Unix(int64(secs), 0).UTC()
			}
			cols = append(cols, frame.Column{Name: name, Values: times})
			continue
		}

		values := make([]float64, n)
		for i, row := range rows {
			if j >= len(row) {
				return nil, fmt.Errorf("result row %d has %d fields, want %d", i, len(row), len(columns))
			}
			v, err := row[j].Float64()
			if err != nil {
				return nil, fmt.Errorf("result row %d column %s: %w", i, name, err)
			}
			values[i] = v
		}
		cols = append(cols, frame.Column{Name: name, Values: values})
	}
	return frame.New(cols...)
}

// applyHourMask keeps only rows whose isodate hour is in the mask.
func applyHourMask(f *frame.Frame, mask []int) (*frame.Frame, error) {
	times, ok := f.Times("isodate")
	if !ok {
		return f, nil
	}
	allowed := make(map[int]bool, len(mask))
	for _, h := range mask {
		allowed[h] = true
	}
	keep := make([]bool, len(times))
	for i, t := range times {
		keep[i] = allowed[t.Hour()]
	}
	return f.FilterRows(keep)
}

// DobjList returns the atmospheric data products associated with the
// station's ICOS attachment, memoised per station. Stations without an ICOS
// attachment yield an empty list.
func (c *ResultsClient) DobjList(ctx context.Context, station *Station) ([]string, error) {
	if station.ICOS == nil || c.cfg.Lister == nil {
		return nil, nil
	}

	c.mu.Lock()
	if cached, ok := c.dobjMemo[station.ID]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	list, err := c.cfg.Lister.DobjList(ctx, station.ICOS.ID, station.ICOS.SamplingHeight)
	if err != nil {
		return nil, fmt.Errorf("dobj list for %s: %w", station.ID, err)
	}

	c.mu.Lock()
	c.dobjMemo[station.ID] = list
	c.mu.Unlock()
	return list, nil
}
