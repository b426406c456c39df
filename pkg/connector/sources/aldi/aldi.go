// Package aldi implements the Aldi catalog connector. The webservice API is
// anonymous and unpaginated: a collection listing, then one request per
// collection returning article groups that flatten into articles. Every
// partition is exhausted after its single fetch.
package aldi

import (
	"context"
	"net/url"

	"github.com/retailstream/harvester/pkg/config"
	"github.com/retailstream/harvester/pkg/connector/base"
	"github.com/retailstream/harvester/pkg/connector/core"
	"github.com/retailstream/harvester/pkg/connector/registry"
)

const defaultAPIURL = "https://webservice.aldi.nl/api/v1"

func init() {
	registry.MustRegister("aldi", New)
}

// Connector crawls the Aldi catalog.
type Connector struct {
	*base.BaseConnector
	apiURL string
}

// New creates an Aldi connector.
func New(cfg *config.Config) (core.Connector, error) {
	return &Connector{
		BaseConnector: base.NewBaseConnector("aldi", cfg),
		apiURL:        cfg.Credential("api_url", defaultAPIURL),
	}, nil
}

// DefaultConfig returns the Aldi source configuration.
func DefaultConfig() *config.Config {
	cfg := config.NewConfig("aldi", "aldi")
	cfg.HTTP.UserAgent = "ALDINord-App-NL/4.23.0 (nl.aldi.aldinordmobileapp; build:2403140920.292755; iOS 17.4.1) Alamofire/5.5.0"
	return cfg
}

// Authenticate is a no-op; the Aldi API is anonymous.
func (c *Connector) Authenticate(ctx context.Context) error {
	return nil
}

// ListPartitions fetches the product collection listing.
func (c *Connector) ListPartitions(ctx context.Context) ([]core.Partition, error) {
	var resp struct {
		ProductCollections []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"productCollections"`
	}
	if err := c.GetJSON(ctx, c.apiURL+"/products.json", c.headers(), &resp); err != nil {
		return nil, err
	}

	partitions := make([]core.Partition, 0, len(resp.ProductCollections))
	for _, col := range resp.ProductCollections {
		if col.ID == "" {
			continue
		}
		name := col.Title
		if name == "" {
			name = col.ID
		}
		partitions = append(partitions, core.Partition{ID: col.ID, Name: name})
	}
	return partitions, nil
}

// FetchPage fetches the partition's entire collection in one request,
// flattening article groups into individual articles.
func (c *Connector) FetchPage(ctx context.Context, p core.Partition, cursor core.Cursor) (*core.Page, error) {
	var resp struct {
		ArticleGroups []struct {
			Articles []map[string]interface{} `json:"articles"`
		} `json:"articleGroups"`
	}
	u := c.apiURL + "/products/" + url.PathEscape(p.ID) + ".json"
	if err := c.GetJSON(ctx, u, c.headers(), &resp); err != nil {
		return nil, err
	}

	page := &core.Page{Exhausted: true}
	for _, group := range resp.ArticleGroups {
		for _, data := range group.Articles {
			rec := &core.Record{Data: data}
			rec.SetMeta("collection", p.Name)
			page.Records = append(page.Records, rec)
		}
	}
	return page, nil
}

// KeyOf derives the stable key from the article ID.
func (c *Connector) KeyOf(record *core.Record) string {
	return core.KeyString(record.Data["articleId"])
}

func (c *Connector) headers() map[string]string {
	return map[string]string{
		"Accept": "application/json",
	}
}
