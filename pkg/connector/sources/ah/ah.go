// Package ah implements the Albert Heijn catalog connector. AH exposes its
// catalog through the mobile API: an anonymous bearer token, a two-level
// shelf tree (categories and sub-categories), and a product search endpoint
// paginated by page number. Each sub-category is one partition, crawled via
// search on the sub-category name.
package ah

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/retailstream/harvester/pkg/config"
	"github.com/retailstream/harvester/pkg/connector/base"
	"github.com/retailstream/harvester/pkg/connector/core"
	"github.com/retailstream/harvester/pkg/connector/registry"
	"github.com/retailstream/harvester/pkg/errors"
)

const (
	defaultAPIURL = "https://api.ah.nl"
	authPath      = "/mobile-auth/v1/auth/token/anonymous"
	shelvesPath   = "/mobile-services/v1/product-shelves/categories"
	searchPath    = "/mobile-services/product/search/v2"

	clientID    = "appie"
	application = "AHWEBSHOP"
)

func init() {
	registry.MustRegister("ah", New)
}

// Connector crawls the AH catalog.
type Connector struct {
	*base.BaseConnector
	apiURL string
	tokens oauth2.TokenSource
}

// New creates an AH connector.
func New(cfg *config.Config) (core.Connector, error) {
	return &Connector{
		BaseConnector: base.NewBaseConnector("ah", cfg),
		apiURL:        cfg.Credential("api_url", defaultAPIURL),
	}, nil
}

// DefaultConfig returns the AH source configuration with the pacing the API
// tolerates.
func DefaultConfig() *config.Config {
	cfg := config.NewConfig("ah", "ah")
	cfg.HTTP.UserAgent = "AHBot/1.0"
	cfg.Crawl.PageSize = 750
	cfg.Crawl.PageDelay = 500 * time.Millisecond
	return cfg
}

// Authenticate exchanges the anonymous client ID for a bearer token.
func (c *Connector) Authenticate(ctx context.Context) error {
	return c.AuthenticateOnce(ctx, func(ctx context.Context) error {
		var resp struct {
			AccessToken string `json:"access_token"`
		}
		body := map[string]string{"clientId": clientID}
		if err := c.PostJSON(ctx, c.apiURL+authPath, c.headers(), body, &resp); err != nil {
			return err
		}
		if resp.AccessToken == "" {
			return errors.New(errors.ErrorTypeAuthentication, "token exchange returned no access token")
		}
		c.tokens = oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: resp.AccessToken,
			TokenType:   "Bearer",
		})
		return nil
	})
}

// ListPartitions fetches the shelf tree and flattens it. Only sub-categories
// are crawled; a root shelf is an umbrella, not a searchable partition.
func (c *Connector) ListPartitions(ctx context.Context) ([]core.Partition, error) {
	headers, err := c.authHeaders()
	if err != nil {
		return nil, err
	}

	var shelves []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := c.GetJSON(ctx, c.apiURL+shelvesPath, headers, &shelves); err != nil {
		return nil, err
	}

	roots := make([]*core.PartitionNode, 0, len(shelves))
	for _, shelf := range shelves {
		node := &core.PartitionNode{
			Partition: core.Partition{
				ID:   fmt.Sprintf("%d", shelf.ID),
				Name: shelf.Name,
			},
		}

		var sub struct {
			Children []struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
			} `json:"children"`
		}
		subURL := fmt.Sprintf("%s%s/%d/sub-categories", c.apiURL, shelvesPath, shelf.ID)
		if err := c.GetJSON(ctx, subURL, headers, &sub); err != nil {
			return nil, err
		}
		for _, child := range sub.Children {
			node.Children = append(node.Children, &core.PartitionNode{
				Partition: core.Partition{
					ID:   fmt.Sprintf("%d", child.ID),
					Name: child.Name,
				},
			})
		}
		roots = append(roots, node)
	}

	flat := core.FlattenTree(roots, c.GetConfig().Crawl.MaxPartitionDepth)
	partitions := make([]core.Partition, 0, len(flat))
	for _, p := range flat {
		if p.Depth > 0 {
			partitions = append(partitions, p)
		}
	}
	return partitions, nil
}

// FetchPage searches the partition's sub-category name at the given page.
func (c *Connector) FetchPage(ctx context.Context, p core.Partition, cursor core.Cursor) (*core.Page, error) {
	headers, err := c.authHeaders()
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("query", p.Name)
	q.Set("page", fmt.Sprintf("%d", cursor.Page))
	q.Set("size", fmt.Sprintf("%d", c.GetConfig().Crawl.PageSize))

	var resp struct {
		Products []map[string]interface{} `json:"products"`
	}
	if err := c.GetJSON(ctx, c.apiURL+searchPath+"?"+q.Encode(), headers, &resp); err != nil {
		return nil, err
	}

	page := &core.Page{
		Next:      core.Cursor{Page: cursor.Page + 1},
		Exhausted: len(resp.Products) == 0,
	}
	for _, data := range resp.Products {
		rec := &core.Record{Data: data}
		rec.SetMeta("shelf", p.Name)
		page.Records = append(page.Records, rec)
	}
	return page, nil
}

// KeyOf derives the stable key from the product's webshop ID.
func (c *Connector) KeyOf(record *core.Record) string {
	return core.KeyString(record.Data["webshopId"])
}

func (c *Connector) headers() map[string]string {
	return map[string]string{
		"x-application": application,
		"Content-Type":  "application/json; charset=UTF-8",
	}
}

func (c *Connector) authHeaders() (map[string]string, error) {
	if c.tokens == nil {
		return nil, errors.New(errors.ErrorTypeAuthentication, "not authenticated")
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeAuthentication, "token source")
	}
	h := c.headers()
	h["Authorization"] = "Bearer " + tok.AccessToken
	return h, nil
}
