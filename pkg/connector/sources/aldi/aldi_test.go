package aldi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailstream/harvester/pkg/connector/core"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products.json":
			_, _ = w.Write([]byte(`{"productCollections":[
				{"id":"brood-bakkerij","title":"Brood en bakkerij"},
				{"id":"diepvries","title":"Diepvries"},
				{"id":"","title":"broken entry"}
			]}`))

		case "/products/brood-bakkerij.json":
			_, _ = w.Write([]byte(`{"articleGroups":[
				{"articles":[{"articleId":"a-1","title":"Volkoren"},{"articleId":"a-2","title":"Croissant"}]},
				{"articles":[{"articleId":"a-3","title":"Krentenbol"}]}
			]}`))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestConnector(t *testing.T, serverURL string) *Connector {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Credentials["api_url"] = serverURL
	conn, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(context.Background()) })
	return conn.(*Connector)
}

func TestListPartitions(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	c := newTestConnector(t, server.URL)
	require.NoError(t, c.Authenticate(context.Background()))

	partitions, err := c.ListPartitions(context.Background())
	require.NoError(t, err)
	// The entry without an ID is dropped.
	require.Len(t, partitions, 2)
	assert.Equal(t, "brood-bakkerij", partitions[0].ID)
	assert.Equal(t, "Brood en bakkerij", partitions[0].Name)
}

func TestFetchPageFlattensGroupsAndExhausts(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	c := newTestConnector(t, server.URL)
	p := core.Partition{ID: "brood-bakkerij", Name: "Brood en bakkerij"}

	page, err := c.FetchPage(context.Background(), p, core.Cursor{})
	require.NoError(t, err)
	assert.True(t, page.Exhausted, "collections are one-shot")
	require.Len(t, page.Records, 3)
	assert.Equal(t, "a-1", c.KeyOf(page.Records[0]))
	assert.Equal(t, "a-3", c.KeyOf(page.Records[2]))
	assert.Equal(t, "Brood en bakkerij", page.Records[0].Metadata["collection"])
}
