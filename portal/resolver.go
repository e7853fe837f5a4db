// Package portal resolves persistent identifiers and fetches digital-object
// metadata from the Carbon Portal.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/icos-carbon-portal/cpclient/internal/portalhttp"
)

// knownHosts are landing-page hosts accepted verbatim.
var knownHosts = []string{"meta.icos-cp.eu", "meta.fieldsites.se", "handle.net"}

// DefaultHandlePrefixes are the handle prefixes tried during resolution.
// 11676 is the ICOS Carbon Portal prefix.
var DefaultHandlePrefixes = []string{"11676"}

// ResolverConfig holds configuration for a Resolver.
type ResolverConfig struct {
	// HandleURL is the handle resolution API base URL.
	HandleURL string

	// Prefixes are the handle prefixes to try, in order.
	Prefixes []string

	// HTTPClient is the HTTP client to use. If nil, a default resilient
	// client is created.
	HTTPClient portalhttp.Doer

	// Timeout for individual requests (default 10s).
	Timeout time.Duration

	// Logger for resolution events.
	Logger zerolog.Logger
}

// Resolver maps user-supplied identifiers to canonical landing-page URLs.
type Resolver struct {
	handleURL  string
	prefixes   []string
	httpClient portalhttp.Doer
	logger     zerolog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.HandleURL == "" {
		cfg.HandleURL = "https://hdl.handle.net/api/handles"
	}
	if len(cfg.Prefixes) == 0 {
		cfg.Prefixes = DefaultHandlePrefixes
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = portalhttp.New(portalhttp.ClientConfig{
			Name:    "handle",
			Timeout: cfg.Timeout,
			Logger:  cfg.Logger,
		})
	}
	return &Resolver{
		handleURL:  strings.TrimSuffix(cfg.HandleURL, "/"),
		prefixes:   cfg.Prefixes,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

// handleResponse is the handle API resolution result.
type handleResponse struct {
	ResponseCode int `json:"responseCode"`
	Values       []struct {
		Data struct {
			Value string `json:"value"`
		} `json:"data"`
	} `json:"values"`
}

// Resolve maps a PID in any accepted form (bare hash, prefix/hash, or full
// landing-page URL) to the canonical landing-page URL. An unresolvable PID
// yields an empty string and no error; only transport failures error.
func (r *Resolver) Resolve(ctx context.Context, pid string) (string, error) {
	pid = strings.TrimSpace(pid)
	if pid == "" {
		return "", nil
	}

	for _, host := range knownHosts {
		if strings.Contains(pid, host) {
			return pid, nil
		}
	}

	suffix := pid
	if i := strings.LastIndexByte(pid, '/'); i >= 0 {
		suffix = pid[i+1:]
	}
	if suffix == "" {
		return "", nil
	}

	for _, prefix := range r.prefixes {
		stored, err := r.queryHandle(ctx, prefix, suffix)
		if err != nil {
			return "", err
		}
		if stored != "" {
			return stored, nil
		}
	}

	r.logger.Debug().Str("pid", pid).Msg("pid did not resolve")
	return "", nil
}

// queryHandle asks the handle service for one prefix/suffix pair. A missing
// handle (404 or responseCode != 1) yields an empty string.
func (r *Resolver) queryHandle(ctx context.Context, prefix, suffix string) (string, error) {
	url := fmt.Sprintf("%s/%s/%s", r.handleURL, prefix, suffix)
	req, err := portalhttp.NewRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create handle request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("handle lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	var result handleResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode handle response: %w", err)
	}
	if result.ResponseCode != 1 || len(result.Values) == 0 {
		return "", nil
	}
	return result.Values[0].Data.Value, nil
}

// Hash extracts the object hash (the last path segment) from a PID in any
// accepted form.
func Hash(pid string) string {
	pid = strings.TrimSuffix(pid, "/")
	if i := strings.LastIndexByte(pid, '/'); i >= 0 {
		return pid[i+1:]
	}
	return pid
}
