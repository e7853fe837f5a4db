package portal_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icos-carbon-portal/cpclient/portal"
)

const testHash = "9GVNGXhqvmn7UUsxSWp-zLyR"

func handleServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/11676/"+testHash {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"responseCode":1,"values":[{"data":{"value":%q}}]}`,
				"https://meta.icos-cp.eu/objects/"+testHash)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]int{"responseCode": 100})
	}))
}

func TestResolve_BareHash(t *testing.T) {
	server := handleServer(t)
	defer server.Close()

	r := portal.NewResolver(portal.ResolverConfig{HandleURL: server.URL})

	got, err := r.Resolve(context.Background(), testHash)
	require.NoError(t, err)
	assert.Equal(t, "https://meta.icos-cp.eu/objects/"+testHash, got)
}

func TestResolve_PrefixedHash(t *testing.T) {
	server := handleServer(t)
	defer server.Close()

	r := portal.NewResolver(portal.ResolverConfig{HandleURL: server.URL})

	got, err := r.Resolve(context.Background(), "11676/"+testHash)
	require.NoError(t, err)
	assert.Equal(t, "https://meta.icos-cp.eu/objects/"+testHash, got)
}

func TestResolve_KnownHostPassthrough(t *testing.T) {
	r := portal.NewResolver(portal.ResolverConfig{HandleURL: "http://127.0.0.1:1"})

	for _, pid := range []string{
		"https://meta.icos-cp.eu/objects/" + testHash,
		"https://meta.fieldsites.se/objects/abc",
		"https://hdl.handle.net/11676/" + testHash,
	} {
		got, err := r.Resolve(context.Background(), pid)
		require.NoError(t, err)
		assert.Equal(t, pid, got)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	server := handleServer(t)
	defer server.Close()

	r := portal.NewResolver(portal.ResolverConfig{HandleURL: server.URL})

	once, err := r.Resolve(context.Background(), testHash)
	require.NoError(t, err)
	require.NotEmpty(t, once)

	twice, err := r.Resolve(context.Background(), once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestResolve_Gibberish(t *testing.T) {
	server := handleServer(t)
	defer server.Close()

	r := portal.NewResolver(portal.ResolverConfig{HandleURL: server.URL})

	got, err := r.Resolve(context.Background(), "gibberish")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHash(t *testing.T) {
	assert.Equal(t, testHash, portal.Hash("https://meta.icos-cp.eu/objects/"+testHash))
	assert.Equal(t, testHash, portal.Hash("11676/"+testHash))
	assert.Equal(t, testHash, portal.Hash(testHash))
}
