// Package dobj exposes digital objects: metadata accessors plus a memoised
// tabular data fetch that prefers a locally mirrored binary file and falls
// back to the portal's secured tabular endpoint.
package dobj

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/icos-carbon-portal/cpclient/auth"
	"github.com/icos-carbon-portal/cpclient/config"
	"github.com/icos-carbon-portal/cpclient/frame"
	"github.com/icos-carbon-portal/cpclient/internal/cpb"
	"github.com/icos-carbon-portal/cpclient/internal/portalhttp"
	"github.com/icos-carbon-portal/cpclient/portal"
)

const (
	tabularPath  = "/portal/tabular"
	usageLogPath = "/logs/portaluse"

	libraryName    = "cpclient-go"
	libraryVersion = "0.4.0"
)

// ClientConfig holds configuration for the digital-object client.
type ClientConfig struct {
	// Config supplies the filesystem roots and portal hosts.
	Config config.Config

	// Session supplies the portal cookie for the secured endpoint. May be
	// nil when all objects are read from the local data tree.
	Session *auth.Session

	// Resolver canonicalises PIDs. If nil, a default resolver is created.
	Resolver *portal.Resolver

	// Meta fetches metadata documents. If nil, a default client is created.
	Meta *portal.MetaClient

	// HTTPClient is used for the tabular and usage-log endpoints. If nil, a
	// default resilient client is created.
	HTTPClient portalhttp.Doer

	// DisableTimeConversion keeps TIMESTAMP, date and time columns as raw
	// integers.
	DisableTimeConversion bool

	// DisableCache turns off the per-object data cache.
	DisableCache bool

	// Logger for fetch events.
	Logger zerolog.Logger
}

// Client constructs digital objects and performs their data fetches.
type Client struct {
	cfg        ClientConfig
	resolver   *portal.Resolver
	meta       *portal.MetaClient
	httpClient portalhttp.Doer
	logger     zerolog.Logger
}

// NewClient creates a digital-object client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Resolver == nil {
		cfg.Resolver = portal.NewResolver(portal.ResolverConfig{
			HandleURL: cfg.Config.HandleURL,
			Timeout:   cfg.Config.HTTPTimeout,
			Logger:    cfg.Logger,
		})
	}
	if cfg.Meta == nil {
		cfg.Meta = portal.NewMetaClient(portal.MetaClientConfig{
			Timeout: cfg.Config.HTTPTimeout,
			Logger:  cfg.Logger,
		})
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = portalhttp.New(portalhttp.ClientConfig{
			Name:    "tabular",
			Timeout: cfg.Config.HTTPTimeout,
			Logger:  cfg.Logger,
		})
	}
	return &Client{
		cfg:        cfg,
		resolver:   cfg.Resolver,
		meta:       cfg.Meta,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

// selection is a resolved column choice over the lexicographically sorted
// variable names.
type selection struct {
	names   []string // selected names, sorted
	indices []int    // zero-based indices into the sorted full name list
	all     bool
}

// selectColumns lower-cases and de-duplicates the requested names against
// the sorted full name list. Empty or fully-unmatched input selects all
// columns.
func selectColumns(sortedNames []string, requested []string) selection {
	if len(requested) == 0 {
		return allColumns(sortedNames)
	}

	byLower := make(map[string]int, len(sortedNames))
	for i, name := range sortedNames {
		byLower[strings.ToLower(name)] = i
	}

	seen := make(map[int]bool)
	var indices []int
	for _, r := range requested {
		if i, ok := byLower[strings.ToLower(r)]; ok && !seen[i] {
			seen[i] = true
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return allColumns(sortedNames)
	}

	sort.Ints(indices)
	names := make([]string, len(indices))
	for k, i := range indices {
		names[k] = sortedNames[i]
	}
	return selection{names: names, indices: indices, all: len(indices) == len(sortedNames)}
}

func allColumns(sortedNames []string) selection {
	indices := make([]int, len(sortedNames))
	for i := range sortedNames {
		indices[i] = i
	}
	return selection{names: sortedNames, indices: indices, all: true}
}

// key is the canonical cache key of a selection.
func (s selection) key() string {
	return strings.Join(s.names, ",")
}

// fetchData obtains the decoded frame for an object over the given
// selection.
func (c *Client) fetchData(ctx context.Context, obj *DigitalObject, sel selection) (*frame.Frame, error) {
	sortedNames := frame.SortedNames(obj.colNames)
	schemaByName := make(map[string]cpb.ColumnSchema, len(obj.variables))
	for _, v := range obj.variables {
		schemaByName[v.Name] = cpb.ColumnSchema{
			Name:   v.Name,
			Format: cpb.FormatCode(v.Format),
		}
	}

	fullSchema := make([]cpb.ColumnSchema, len(sortedNames))
	for i, name := range sortedNames {
		fullSchema[i] = schemaByName[name]
	}

	nRows := obj.doc.SpecificInfo.NRows
	convert := !c.cfg.DisableTimeConversion
	hash := portal.Hash(obj.pid)
	subFolder := obj.doc.FormatTail()

	localPath := filepath.Join(c.cfg.Config.LocalDataRoot, subFolder, hash+".cpb")
	if payload, err := os.ReadFile(localPath); err == nil {
		// The local file holds all columns in fixed order; decode them all
		// and project afterwards.
		full, err := cpb.Decode(payload, fullSchema, nRows, convert)
		if err != nil {
			return nil, err
		}
		c.postUsage(ctx, hash, sel.names)
		if sel.all {
			return full, nil
		}
		return full.Select(sel.names...)
	}

	payload, err := c.fetchRemote(ctx, hash, subFolder, fullSchema, nRows, sel)
	if err != nil {
		return nil, err
	}

	selSchema := make([]cpb.ColumnSchema, len(sel.indices))
	for k, i := range sel.indices {
		selSchema[k] = fullSchema[i]
	}
	decoded, err := cpb.Decode(payload, selSchema, nRows, convert)
	if err != nil {
		return nil, err
	}
	c.postUsage(ctx, hash, sel.names)
	return decoded, nil
}

// tabularRequest is the secured endpoint's request body.
type tabularRequest struct {
	TableID       string        `json:"tableId"`
	Schema        tabularSchema `json:"schema"`
	ColumnNumbers []int         `json:"columnNumbers"`
	SubFolder     string        `json:"subFolder"`
}

type tabularSchema struct {
	Columns []string `json:"columns"`
	Size    int      `json:"size"`
}

func (c *Client) fetchRemote(ctx context.Context, hash, subFolder string, fullSchema []cpb.ColumnSchema, nRows int, sel selection) ([]byte, error) {
	formats := make([]string, len(fullSchema))
	for i, col := range fullSchema {
		formats[i] = col.Format
	}

	body, err := json.Marshal(tabularRequest{
		TableID:       hash,
		Schema:        tabularSchema{Columns: formats, Size: nRows},
		ColumnNumbers: sel.indices,
		SubFolder:     subFolder,
	})
	if err != nil {
		return nil, fmt.Errorf("encode tabular request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.Config.DataHost+tabularPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create tabular request: %w", err)
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
		return nil, fmt.Errorf("fetch tabular data: %w", err)
	}
	if err := portalhttp.CheckResponse(resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tabular payload: %w", err)
	}
	return payload, nil
}

// usageRecord is the usage-log telemetry body.
type usageRecord struct {
	ObjID    string   `json:"objId"`
	Columns  []string `json:"columns"`
	Library  string   `json:"library"`
	Version  string   `json:"version"`
	Internal bool     `json:"internal"`
}

// postUsage reports a successful data fetch to the usage log. Failures are
// swallowed.
func (c *Client) postUsage(ctx context.Context, hash string, columns []string) {
	if !c.cfg.Config.UsageTelemetry {
		return
	}

	body, err := json.Marshal(usageRecord{
		ObjID:    hash,
		Columns:  columns,
		Library:  libraryName,
		Version:  libraryVersion,
		Internal: c.cfg.Config.Mode == config.ModeProduction,
	})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.Config.PortalHost+usageLogPath, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Msg("usage log post failed")
		return
	}
	resp.Body.Close()
}
