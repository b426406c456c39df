package jumbo

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
		require.Equal(t, "national", r.Header.Get("X-jumbo-store"))

		switch r.URL.Path {
		case "/categories":
			_, _ = w.Write([]byte(`{"categories":{"data":[
				{"id":"category:aardappel-groente-fruit","title":"Aardappel, groente en fruit"},
				{"id":"zuivel-eieren","title":"Zuivel en eieren"}
			]}}`))

		case "/search":
			q := r.URL.Query()
			assert.Equal(t, "30", q.Get("limit"))
			assert.Equal(t, "category:aardappel-groente-fruit", q.Get("filters"))
			switch q.Get("offset") {
			case "0":
				_, _ = w.Write([]byte(`{"products":{"data":[
					{"id":"p-1","title":"Bananen"},
					{"id":"p-2","title":"Appels"}
				]}}`))
			default:
				_, _ = w.Write([]byte(`{"products":{"data":[]}}`))
			}

		case "/products/p-1":
			_, _ = w.Write([]byte(`{"product":{"data":{"id":"p-1","title":"Bananen","prices":{"price":119}}}}`))

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

func TestListPartitionsStripsCategoryPrefix(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	c := newTestConnector(t, server.URL)
	require.NoError(t, c.Authenticate(context.Background()))

	partitions, err := c.ListPartitions(context.Background())
	require.NoError(t, err)
	require.Len(t, partitions, 2)
	assert.Equal(t, "aardappel-groente-fruit", partitions[0].ID)
	assert.Equal(t, "zuivel-eieren", partitions[1].ID)
	assert.Equal(t, "Aardappel, groente en fruit", partitions[0].Name)
}

func TestFetchPageAdvancesByPageLength(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	c := newTestConnector(t, server.URL)
	p := core.Partition{ID: "aardappel-groente-fruit", Name: "Aardappel, groente en fruit"}

	page, err := c.FetchPage(context.Background(), p, core.Cursor{})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.False(t, page.Exhausted)
	assert.Equal(t, core.Cursor{Offset: 2}, page.Next)
	assert.Equal(t, "p-1", c.KeyOf(page.Records[0]))
	assert.Equal(t, "Aardappel, groente en fruit", page.Records[0].Metadata["category"])

	empty, err := c.FetchPage(context.Background(), p, page.Next)
	require.NoError(t, err)
	assert.True(t, empty.Exhausted)
	assert.Empty(t, empty.Records)
}

func TestLookup(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	c := newTestConnector(t, server.URL)

	t.Run("by id", func(t *testing.T) {
		rec, err := c.Lookup(context.Background(), core.RefByID("p-1"))
		require.NoError(t, err)
		assert.Equal(t, "p-1", rec.Key)
		assert.Equal(t, "Bananen", rec.Data["title"])
	})

	t.Run("full record passes through", func(t *testing.T) {
		full := &core.Record{Key: "p-9", Data: map[string]interface{}{"id": "p-9"}}
		rec, err := c.Lookup(context.Background(), core.RefByRecord(full))
		require.NoError(t, err)
		assert.Same(t, full, rec)
	})

	t.Run("empty ref rejected", func(t *testing.T) {
		_, err := c.Lookup(context.Background(), core.RefByID(""))
		require.Error(t, err)
	})
}
