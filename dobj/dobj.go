package dobj

import (
	"context"
	"fmt"
	"sync"

	"github.com/icos-carbon-portal/cpclient/cperr"
	"github.com/icos-carbon-portal/cpclient/frame"
	"github.com/icos-carbon-portal/cpclient/portal"
)

// DigitalObject is the user-facing view over one portal object: its
// canonical PID, metadata document, variable table and a single-slot data
// cache. Metadata is fetched exactly once, at construction.
type DigitalObject struct {
	client    *Client
	pid       string
	valid     bool
	doc       *portal.Doc
	variables []portal.Variable
	colNames  []string

	mu       sync.Mutex
	cacheKey string
	cached   *frame.Frame
}

// Get resolves a PID in any accepted form and fetches its metadata. An
// unresolvable PID or a missing metadata document yields an object with
// Valid() == false and no error; transport failures error.
func (c *Client) Get(ctx context.Context, pid string) (*DigitalObject, error) {
	canonical, err := c.resolver.Resolve(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", pid, err)
	}
	if canonical == "" {
		c.logger.Warn().Str("pid", pid).Msg("pid did not resolve")
		return &DigitalObject{client: c}, nil
	}

	doc, err := c.meta.GetDoc(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("metadata for %s: %w", canonical, err)
	}
	if doc == nil {
		c.logger.Warn().Str("pid", canonical).Msg("no metadata document")
		return &DigitalObject{client: c, pid: canonical}, nil
	}

	obj := &DigitalObject{client: c, pid: canonical, valid: true, doc: doc}
	if vars, err := doc.VariableTable(); err == nil {
		obj.variables = vars
		obj.colNames = make([]string, len(vars))
		for i, v := range vars {
			obj.colNames[i] = v.Name
		}
	}
	return obj, nil
}

// Valid reports whether construction resolved the PID and found metadata.
func (o *DigitalObject) Valid() bool { return o.valid }

// PID returns the canonical landing-page URL, or an empty string for an
// invalid object.
func (o *DigitalObject) PID() string { return o.pid }

// Meta returns the metadata document, nil for an invalid object.
func (o *DigitalObject) Meta() *portal.Doc {
	if !o.valid {
		return nil
	}
	return o.doc
}

// VariableTable returns the ordered variable table. It is nil for invalid
// or non-time-series objects.
func (o *DigitalObject) VariableTable() []portal.Variable { return o.variables }

// ColNames returns the name projection of the variable table.
func (o *DigitalObject) ColNames() []string { return o.colNames }

// Location returns the acquisition station's position.
func (o *DigitalObject) Location() (portal.Location, bool) {
	if !o.valid || o.doc.SpecificInfo.Acquisition == nil {
		return portal.Location{}, false
	}
	return o.doc.SpecificInfo.Acquisition.Station.Location, true
}

// Lat returns the acquisition station latitude, zero when absent.
func (o *DigitalObject) Lat() float64 { loc, _ := o.Location(); return loc.Lat }

// Lon returns the acquisition station longitude, zero when absent.
func (o *DigitalObject) Lon() float64 { loc, _ := o.Location(); return loc.Lon }

// Alt returns the acquisition station elevation, zero when absent.
func (o *DigitalObject) Alt() float64 { loc, _ := o.Location(); return loc.Alt }

// Station returns the acquisition station block, nil when absent.
func (o *DigitalObject) Station() *portal.Station {
	if !o.valid || o.doc.SpecificInfo.Acquisition == nil {
		return nil
	}
	station := o.doc.SpecificInfo.Acquisition.Station
	return &station
}

// Citation returns the citation in the requested format: "plain" (or empty),
// "bibtex" or "ris". Unknown formats fail with a FormatError.
func (o *DigitalObject) Citation(format string) (string, error) {
	if !o.valid {
		return "", &cperr.MetaError{Detail: "object is not valid"}
	}
	switch format {
	case "", "plain":
		return o.doc.References.CitationString, nil
	case "bibtex":
		return o.doc.References.CitationBibTex, nil
	case "ris":
		return o.doc.References.CitationRis, nil
	default:
		return "", &cperr.FormatError{Format: format}
	}
}

// Licence returns the object's licence, nil when absent.
func (o *DigitalObject) Licence() *portal.Licence {
	if !o.valid {
		return nil
	}
	return o.doc.References.Licence
}

// Previous returns the PID of the previous object version, empty when none.
func (o *DigitalObject) Previous() string {
	if !o.valid {
		return ""
	}
	return o.doc.PreviousVersion
}

// Next returns the PID of the next object version, empty when none.
func (o *DigitalObject) Next() string {
	if !o.valid {
		return ""
	}
	return o.doc.NextVersion
}

// Data returns the object's tabular data, optionally restricted to a column
// subset (case-insensitive, duplicates collapsed; empty or fully-unmatched
// selects all columns). Repeated calls with an equivalent selection return
// the cached frame unless caching is disabled.
func (o *DigitalObject) Data(ctx context.Context, columns ...string) (*frame.Frame, error) {
	if !o.valid {
		return nil, &cperr.MetaError{Detail: "object is not valid"}
	}
	if len(o.variables) == 0 {
		return nil, &cperr.MetaError{Detail: "object has no column listing"}
	}

	sel := selectColumns(frame.SortedNames(o.colNames), columns)

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.client.cfg.DisableCache && o.cached != nil && o.cacheKey == sel.key() {
		return o.cached, nil
	}

	f, err := o.client.fetchData(ctx, o, sel)
	if err != nil {
		return nil, err
	}
	if !o.client.cfg.DisableCache {
		o.cached = f
		o.cacheKey = sel.key()
	}
	return f, nil
}
