package portal

import (
	"github.com/icos-carbon-portal/cpclient/cperr"
)

// Kind tags the two metadata document variants.
type Kind int

const (
	KindUnknown Kind = iota
	// KindStationTimeSeries marks objects whose columns are time-indexed
	// samples.
	KindStationTimeSeries
	// KindSpatioTemporal marks objects whose variables are grid channels.
	KindSpatioTemporal
)

// Licence describes the data licence of an object.
type Licence struct {
	BaseLicence string `json:"baseLicence,omitempty"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Webpage     string `json:"webpage"`
}

// References holds the citation and licence block of a metadata document.
type References struct {
	CitationString string   `json:"citationString"`
	CitationBibTex string   `json:"citationBibTex"`
	CitationRis    string   `json:"citationRis"`
	Licence        *Licence `json:"licence"`
}

// Location is a station position.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

// Station is the acquisition station block.
type Station struct {
	Name     string   `json:"name"`
	ID       string   `json:"id"`
	Location Location `json:"location"`
}

// Acquisition describes where and how the object's data were sampled.
type Acquisition struct {
	Station Station `json:"station"`
}

// columnMeta mirrors one entry of specificInfo.columns[].
type columnMeta struct {
	Label     string `json:"label"`
	ValueType struct {
		Self struct {
			Label string `json:"label"`
		} `json:"self"`
		Unit *string `json:"unit"`
	} `json:"valueType"`
	ValueFormat string `json:"valueFormat"`
}

// variableMeta mirrors one entry of specificInfo.variables[] on
// spatio-temporal objects.
type variableMeta struct {
	Label     string `json:"label"`
	ValueType struct {
		Self struct {
			Label string `json:"label"`
		} `json:"self"`
		Unit *string `json:"unit"`
	} `json:"valueType"`
}

// SpecificInfo carries the variant-specific part of a document: columns for
// station time series, variables for spatio-temporal objects.
type SpecificInfo struct {
	Columns     []columnMeta   `json:"columns"`
	Variables   []variableMeta `json:"variables"`
	NRows       int            `json:"nRows"`
	Acquisition *Acquisition   `json:"acquisition"`
}

// Specification carries the object specification block.
type Specification struct {
	Format struct {
		URI string `json:"uri"`
	} `json:"format"`
}

// Doc is a decoded metadata document.
type Doc struct {
	References      References    `json:"references"`
	PreviousVersion string        `json:"previousVersion"`
	NextVersion     string        `json:"nextVersion"`
	SpecificInfo    SpecificInfo  `json:"specificInfo"`
	Specification   Specification `json:"specification"`
}

// Kind reports the document variant.
func (d *Doc) Kind() Kind {
	switch {
	case len(d.SpecificInfo.Columns) > 0:
		return KindStationTimeSeries
	case len(d.SpecificInfo.Variables) > 0:
		return KindSpatioTemporal
	default:
		return KindUnknown
	}
}

// Variable is one entry of the variable table: the column name, its optional
// unit, the value type label and the binary value format URI.
type Variable struct {
	Name   string
	Unit   *string
	Type   string
	Format string
}

// VariableTable projects specificInfo.columns[] in document order. It fails
// with a MetaError on non-time-series documents.
func (d *Doc) VariableTable() ([]Variable, error) {
	if d.Kind() != KindStationTimeSeries {
		return nil, &cperr.MetaError{Detail: "object has no column listing"}
	}
	vars := make([]Variable, 0, len(d.SpecificInfo.Columns))
	for _, col := range d.SpecificInfo.Columns {
		vars = append(vars, Variable{
			Name:   col.Label,
			Unit:   col.ValueType.Unit,
			Type:   col.ValueType.Self.Label,
			Format: col.ValueFormat,
		})
	}
	return vars, nil
}

// FormatTail returns the last segment of the specification format URI, the
// sub-folder of the local data tree and the remote request.
func (d *Doc) FormatTail() string {
	return Hash(d.Specification.Format.URI)
}
