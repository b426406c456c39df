// Package jumbo implements the Jumbo catalog connector. The mobile API
// needs no authentication; categories come from a flat listing and products
// from a search endpoint filtered by category, paginated by offset/limit.
package jumbo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/retailstream/harvester/pkg/config"
	"github.com/retailstream/harvester/pkg/connector/base"
	"github.com/retailstream/harvester/pkg/connector/core"
	"github.com/retailstream/harvester/pkg/connector/registry"
	"github.com/retailstream/harvester/pkg/errors"
)

const (
	defaultAPIURL = "https://mobileapi.jumbo.com/v17"

	// pageLimit is the fixed page size the search endpoint accepts.
	pageLimit = 30
)

func init() {
	registry.MustRegister("jumbo", New)
}

// Connector crawls the Jumbo catalog.
type Connector struct {
	*base.BaseConnector
	apiURL string
}

// New creates a Jumbo connector.
func New(cfg *config.Config) (core.Connector, error) {
	return &Connector{
		BaseConnector: base.NewBaseConnector("jumbo", cfg),
		apiURL:        cfg.Credential("api_url", defaultAPIURL),
	}, nil
}

// DefaultConfig returns the Jumbo source configuration.
func DefaultConfig() *config.Config {
	cfg := config.NewConfig("jumbo", "jumbo")
	cfg.HTTP.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:102.0) Gecko/20100101 Firefox/102.0"
	cfg.Crawl.PageSize = pageLimit
	cfg.Crawl.PageDelay = 200 * time.Millisecond
	return cfg
}

// Authenticate is a no-op; the Jumbo API is anonymous.
func (c *Connector) Authenticate(ctx context.Context) error {
	return nil
}

// ListPartitions fetches the category listing. Category IDs sometimes come
// back already carrying a "category:" prefix; it is stripped here so the
// search filter doesn't end up doubled.
func (c *Connector) ListPartitions(ctx context.Context) ([]core.Partition, error) {
	var resp struct {
		Categories struct {
			Data []struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"data"`
		} `json:"categories"`
	}
	if err := c.GetJSON(ctx, c.apiURL+"/categories", c.headers(), &resp); err != nil {
		return nil, err
	}

	partitions := make([]core.Partition, 0, len(resp.Categories.Data))
	for _, cat := range resp.Categories.Data {
		partitions = append(partitions, core.Partition{
			ID:   strings.TrimPrefix(cat.ID, "category:"),
			Name: cat.Title,
		})
	}
	return partitions, nil
}

// FetchPage searches one category page at the given offset. The cursor
// advances by the number of records actually returned.
func (c *Connector) FetchPage(ctx context.Context, p core.Partition, cursor core.Cursor) (*core.Page, error) {
	q := url.Values{}
	q.Set("offset", fmt.Sprintf("%d", cursor.Offset))
	q.Set("limit", fmt.Sprintf("%d", pageLimit))
	q.Set("sort", "")
	q.Set("filters", "category:"+p.ID)
	q.Set("current_url", p.Name)

	var resp struct {
		Products struct {
			Data []map[string]interface{} `json:"data"`
		} `json:"products"`
	}
	if err := c.GetJSON(ctx, c.apiURL+"/search?"+q.Encode(), c.headers(), &resp); err != nil {
		return nil, err
	}

	page := &core.Page{
		Next:      core.Cursor{Offset: cursor.Offset + len(resp.Products.Data)},
		Exhausted: len(resp.Products.Data) == 0,
	}
	for _, data := range resp.Products.Data {
		rec := &core.Record{Data: data}
		rec.SetMeta("category", p.Name)
		page.Records = append(page.Records, rec)
	}
	return page, nil
}

// Lookup fetches one product. A full reference is returned as-is; a bare ID
// is resolved against the product detail endpoint.
func (c *Connector) Lookup(ctx context.Context, ref core.ProductRef) (*core.Record, error) {
	if rec, ok := ref.Record(); ok {
		return rec, nil
	}
	id := ref.ID()
	if id == "" {
		return nil, errors.New(errors.ErrorTypeInternal, "empty product reference")
	}

	var resp struct {
		Product struct {
			Data map[string]interface{} `json:"data"`
		} `json:"product"`
	}
	if err := c.GetJSON(ctx, c.apiURL+"/products/"+url.PathEscape(id), c.headers(), &resp); err != nil {
		return nil, err
	}
	return &core.Record{Key: id, Source: c.Name(), Data: resp.Product.Data}, nil
}

// KeyOf derives the stable key from the product ID.
func (c *Connector) KeyOf(record *core.Record) string {
	return core.KeyString(record.Data["id"])
}

func (c *Connector) headers() map[string]string {
	return map[string]string{
		"X-jumbo-store": "national",
	}
}
