package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/icos-carbon-portal/cpclient/internal/portalhttp"
)

// Format selects a metadata serialization.
type Format string

const (
	FmtJSON     Format = "json"
	FmtTTL      Format = "ttl"
	FmtXML      Format = "xml"
	FmtISO19115 Format = "iso19115"
)

// metaSuffixes maps a format to the sub-path appended to the landing page.
var metaSuffixes = map[Format]string{
	FmtJSON:     "/meta.json",
	FmtTTL:      "/meta.ttl",
	FmtXML:      "/meta.xml",
	FmtISO19115: "/meta.iso.xml",
}

// MetaClientConfig holds configuration for a MetaClient.
type MetaClientConfig struct {
	// HTTPClient is the HTTP client to use. If nil, a default resilient
	// client is created.
	HTTPClient portalhttp.Doer

	// Timeout for individual requests (default 10s).
	Timeout time.Duration

	// Logger for fetch events.
	Logger zerolog.Logger
}

// MetaClient fetches metadata documents for canonical PIDs.
type MetaClient struct {
	httpClient portalhttp.Doer
	logger     zerolog.Logger
}

// NewMetaClient creates a MetaClient.
func NewMetaClient(cfg MetaClientConfig) *MetaClient {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = portalhttp.New(portalhttp.ClientConfig{
			Name:    "meta",
			Timeout: cfg.Timeout,
			Logger:  cfg.Logger,
		})
	}
	return &MetaClient{httpClient: cfg.HTTPClient, logger: cfg.Logger}
}

// Raw fetches the metadata payload for a canonical PID in the requested
// serialization. An unknown format falls back to JSON with a warning. A 404
// yields a nil payload and no error; other non-success codes error.
func (c *MetaClient) Raw(ctx context.Context, pid string, format Format) ([]byte, error) {
	suffix, ok := metaSuffixes[format]
	if !ok {
		c.logger.Warn().Str("format", string(format)).Msg("unknown metadata format, using json")
		suffix = metaSuffixes[FmtJSON]
	}

	req, err := portalhttp.NewRequest(ctx, http.MethodGet, pid+suffix, nil)
	if err != nil {
		return nil, fmt.Errorf("create metadata request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, nil
	}
	if err := portalhttp.CheckResponse(resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return body, nil
}

// GetDoc fetches and decodes the JSON metadata document for a canonical PID.
// A 404 yields a nil document and no error.
func (c *MetaClient) GetDoc(ctx context.Context, pid string) (*Doc, error) {
	body, err := c.Raw(ctx, pid, FmtJSON)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var doc Doc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode metadata document: %w", err)
	}
	return &doc, nil
}
