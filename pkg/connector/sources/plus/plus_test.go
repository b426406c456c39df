package plus

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailstream/harvester/pkg/connector/core"
	"github.com/retailstream/harvester/pkg/errors"
	"github.com/retailstream/harvester/pkg/json"
)

// totalPages is configurable per test to exercise the server-side page cap.
func newTestServer(t *testing.T, totalPages int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/moduleservices/moduleversioninfo":
			_, _ = w.Write([]byte(`{"versionToken":"mv-token"}`))

		case "/screenservices/ECP_Product_CW/Categories/CategoryList_TF/DataActionGetMenuCategories":
			req := decodeScreenRequest(t, r)
			assert.Equal(t, "mv-token", req.VersionInfo.ModuleVersion)
			assert.Equal(t, "MainFlow.ProductListPage", req.ViewName)

			embedded := `[
				{"Category_str":{"Name":"Groente","Slug":"groente-fruit"}},
				{"Category_str":{"Name":"Appels","Slug":"appels","ParentName":"Groente"}},
				{"Category_str":{"Name":"Promoties","Slug":"0_promotions"}}
			]`
			payload := map[string]interface{}{
				"data": map[string]interface{}{"CategoriesJson": embedded},
			}
			require.NoError(t, json.NewEncoder(w).Encode(payload))

		case "/screenservices/ECP_Composition_CW/ProductLists/PLP_Content/DataActionGetProductListAndCategoryInfo":
			req := decodeScreenRequest(t, r)
			assert.Equal(t, "mv-token", req.VersionInfo.ModuleVersion)
			pageNumber := int(req.ScreenData.Variables["PageNumber"].(float64))
			require.Equal(t, "groente-fruit", req.ScreenData.Variables["CategorySlug"])

			list := []map[string]interface{}{
				{"SKU": fmt.Sprintf("sku-%d-1", pageNumber), "Name": "Product"},
				{"SKU": fmt.Sprintf("sku-%d-2", pageNumber), "Name": "Product"},
			}
			payload := map[string]interface{}{
				"data": map[string]interface{}{
					"ProductList": map[string]interface{}{"List": list},
					"TotalPages":  totalPages,
				},
			}
			require.NoError(t, json.NewEncoder(w).Encode(payload))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func decodeScreenRequest(t *testing.T, r *http.Request) *screenRequest {
	t.Helper()
	require.Equal(t, http.MethodPost, r.Method)
	req := &screenRequest{}
	require.NoError(t, json.NewDecoder(r.Body).Decode(req))
	return req
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

func TestAuthenticateFetchesVersionToken(t *testing.T) {
	server := newTestServer(t, 2)
	defer server.Close()

	c := newTestConnector(t, server.URL)
	require.NoError(t, c.Authenticate(context.Background()))
	assert.Equal(t, "mv-token", c.versionToken)
}

func TestAuthenticateMissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestConnector(t, server.URL)
	err := c.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
}

func TestListPartitionsTopLevelOnly(t *testing.T) {
	server := newTestServer(t, 2)
	defer server.Close()

	c := newTestConnector(t, server.URL)
	require.NoError(t, c.Authenticate(context.Background()))

	partitions, err := c.ListPartitions(context.Background())
	require.NoError(t, err)
	// Child categories and the promotions pseudo-category are excluded.
	require.Len(t, partitions, 1)
	assert.Equal(t, "groente-fruit", partitions[0].ID)
	assert.Equal(t, "Groente", partitions[0].Name)
}

func TestFetchPagePagination(t *testing.T) {
	server := newTestServer(t, 2)
	defer server.Close()

	c := newTestConnector(t, server.URL)
	require.NoError(t, c.Authenticate(context.Background()))
	p := core.Partition{ID: "groente-fruit", Name: "Groente"}

	first, err := c.FetchPage(context.Background(), p, core.Cursor{})
	require.NoError(t, err)
	require.Len(t, first.Records, 2)
	assert.False(t, first.Exhausted)
	assert.False(t, first.Truncated)
	assert.Equal(t, core.Cursor{Page: 1}, first.Next)
	assert.Equal(t, "sku-1-1", c.KeyOf(first.Records[0]))

	last, err := c.FetchPage(context.Background(), p, first.Next)
	require.NoError(t, err)
	assert.True(t, last.Exhausted, "last reported page ends the partition")
	assert.False(t, last.Truncated)
	assert.Equal(t, "sku-2-1", c.KeyOf(last.Records[0]))
}

func TestFetchPageSurfacesServerPageCap(t *testing.T) {
	// The service reports more pages than it will ever serve.
	server := newTestServer(t, maxServerPages+50)
	defer server.Close()

	c := newTestConnector(t, server.URL)
	require.NoError(t, c.Authenticate(context.Background()))
	p := core.Partition{ID: "groente-fruit", Name: "Groente"}

	mid, err := c.FetchPage(context.Background(), p, core.Cursor{Page: 42})
	require.NoError(t, err)
	assert.False(t, mid.Exhausted)
	assert.False(t, mid.Truncated)

	capped, err := c.FetchPage(context.Background(), p, core.Cursor{Page: maxServerPages - 1})
	require.NoError(t, err)
	assert.True(t, capped.Exhausted)
	assert.True(t, capped.Truncated, "hitting the cap must be surfaced, not silent")
}
