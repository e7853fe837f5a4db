package portal_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icos-carbon-portal/cpclient/cperr"
	"github.com/icos-carbon-portal/cpclient/portal"
)

const metaDoc = `{
	"references": {
		"citationString": "Lund University (2021). CH4 at Hyltemossa.",
		"citationBibTex": "@article{hyltemossa2021}",
		"citationRis": "TY  - DATA",
		"licence": {
			"baseLicence": "https://creativecommons.org/licenses/by/4.0",
			"name": "ICOS CCBY4 Data Licence",
			"url": "https://data.icos-cp.eu/licence",
			"webpage": "https://www.icos-cp.eu/data-services/about-data-portal/data-license"
		}
	},
	"previousVersion": "https://meta.icos-cp.eu/objects/previousHash",
	"specificInfo": {
		"nRows": 8806,
		"acquisition": {
			"station": {
				"id": "PUY",
				"name": "Puy de Dome",
				"location": {"lat": 45.7719, "lon": 2.9658, "alt": 1465.0}
			}
		},
		"columns": [
			{"label": "TIMESTAMP", "valueType": {"self": {"label": "time instant"}}, "valueFormat": "http://meta.icos-cp.eu/ontologies/cpmeta/iso8601dateTime"},
			{"label": "ch4", "valueType": {"self": {"label": "CH4 mixing ratio"}, "unit": "nmol mol-1"}, "valueFormat": "http://meta.icos-cp.eu/ontologies/cpmeta/float32"}
		]
	},
	"specification": {
		"format": {"uri": "http://meta.icos-cp.eu/ontologies/cpmeta/asciiAtcProductTimeSer"}
	}
}`

func metaServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/objects/testhash/meta.json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(metaDoc))
		case "/objects/testhash/meta.ttl":
			w.Write([]byte("@prefix cpmeta: <http://meta.icos-cp.eu/ontologies/cpmeta/> ."))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestGetDoc(t *testing.T) {
	server := metaServer(t)
	defer server.Close()

	c := portal.NewMetaClient(portal.MetaClientConfig{})
	doc, err := c.GetDoc(context.Background(), server.URL+"/objects/testhash")
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, portal.KindStationTimeSeries, doc.Kind())
	assert.Equal(t, 8806, doc.SpecificInfo.NRows)
	assert.Equal(t, "ICOS CCBY4 Data Licence", doc.References.Licence.Name)
	assert.Equal(t, "https://meta.icos-cp.eu/objects/previousHash", doc.PreviousVersion)
	assert.Empty(t, doc.NextVersion)
	assert.Equal(t, 45.7719, doc.SpecificInfo.Acquisition.Station.Location.Lat)
	assert.Equal(t, "asciiAtcProductTimeSer", doc.FormatTail())
}

func TestGetDoc_NotFound(t *testing.T) {
	server := metaServer(t)
	defer server.Close()

	c := portal.NewMetaClient(portal.MetaClientConfig{})
	doc, err := c.GetDoc(context.Background(), server.URL+"/objects/nothere")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestRaw_TTL(t *testing.T) {
	server := metaServer(t)
	defer server.Close()

	c := portal.NewMetaClient(portal.MetaClientConfig{})
	body, err := c.Raw(context.Background(), server.URL+"/objects/testhash", portal.FmtTTL)
	require.NoError(t, err)
	assert.Contains(t, string(body), "@prefix cpmeta:")
}

func TestRaw_UnknownFormatFallsBackToJSON(t *testing.T) {
	server := metaServer(t)
	defer server.Close()

	c := portal.NewMetaClient(portal.MetaClientConfig{})
	body, err := c.Raw(context.Background(), server.URL+"/objects/testhash", portal.Format("yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "citationString")
}

func TestVariableTable(t *testing.T) {
	server := metaServer(t)
	defer server.Close()

	c := portal.NewMetaClient(portal.MetaClientConfig{})
	doc, err := c.GetDoc(context.Background(), server.URL+"/objects/testhash")
	require.NoError(t, err)

	vars, err := doc.VariableTable()
	require.NoError(t, err)
	require.Len(t, vars, 2)

	assert.Equal(t, "TIMESTAMP", vars[0].Name)
	assert.Nil(t, vars[0].Unit)
	assert.Equal(t, "time instant", vars[0].Type)

	assert.Equal(t, "ch4", vars[1].Name)
	require.NotNil(t, vars[1].Unit)
	assert.Equal(t, "nmol mol-1", *vars[1].Unit)
	assert.Equal(t, "http://meta.icos-cp.eu/ontologies/cpmeta/float32", vars[1].Format)
}

func TestVariableTable_WrongVariant(t *testing.T) {
	doc := &portal.Doc{}
	_, err := doc.VariableTable()
	require.Error(t, err)
	assert.True(t, cperr.IsMeta(err))
}
