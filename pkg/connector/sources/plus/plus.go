// Package plus implements the Plus catalog connector. The storefront runs
// on OutSystems screen services: every call is a POST carrying a version
// token obtained at startup, categories arrive as a JSON string embedded in
// the response, and product lists paginate by PageNumber against a reported
// TotalPages. The service caps TotalPages, so a large category can be cut
// short; the final page is flagged Truncated when that cap is hit.
package plus

import (
	"context"
	"time"

	"github.com/retailstream/harvester/pkg/config"
	"github.com/retailstream/harvester/pkg/connector/base"
	"github.com/retailstream/harvester/pkg/connector/core"
	"github.com/retailstream/harvester/pkg/connector/registry"
	"github.com/retailstream/harvester/pkg/errors"
	"github.com/retailstream/harvester/pkg/json"
)

const (
	defaultAPIURL = "https://www.plus.nl"

	versionPath    = "/moduleservices/moduleversioninfo"
	categoriesPath = "/screenservices/ECP_Product_CW/Categories/CategoryList_TF/DataActionGetMenuCategories"
	productsPath   = "/screenservices/ECP_Composition_CW/ProductLists/PLP_Content/DataActionGetProductListAndCategoryInfo"

	categoriesAPIVersion = "SpgKBmBbzIq67HF3dBCsXg"
	productsAPIVersion   = "bYh0SIb+kuEKWPesnQKP1A"

	viewName = "MainFlow.ProductListPage"

	// promotionsSlug is a pseudo-category excluded from crawling.
	promotionsSlug = "0_promotions"

	// maxServerPages is the hard page cap the screen service enforces.
	// TotalPages beyond this are never served, so a category reporting
	// more has been truncated.
	maxServerPages = 100
)

func init() {
	registry.MustRegister("plus", New)
}

// Connector crawls the Plus catalog.
type Connector struct {
	*base.BaseConnector
	apiURL       string
	versionToken string
}

// New creates a Plus connector.
func New(cfg *config.Config) (core.Connector, error) {
	return &Connector{
		BaseConnector: base.NewBaseConnector("plus", cfg),
		apiURL:        cfg.Credential("api_url", defaultAPIURL),
	}, nil
}

// DefaultConfig returns the Plus source configuration.
func DefaultConfig() *config.Config {
	cfg := config.NewConfig("plus", "plus")
	cfg.HTTP.UserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 18_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.0 Mobile/15E148 Safari/604.1"
	cfg.Crawl.PageDelay = 200 * time.Millisecond
	return cfg
}

type versionInfo struct {
	ModuleVersion string `json:"moduleVersion"`
	APIVersion    string `json:"apiVersion"`
}

type screenRequest struct {
	VersionInfo versionInfo `json:"versionInfo"`
	ViewName    string      `json:"viewName"`
	ScreenData  struct {
		Variables map[string]interface{} `json:"variables"`
	} `json:"screenData"`
}

func (c *Connector) screenRequest(apiVersion string, vars map[string]interface{}) *screenRequest {
	req := &screenRequest{
		VersionInfo: versionInfo{ModuleVersion: c.versionToken, APIVersion: apiVersion},
		ViewName:    viewName,
	}
	if vars == nil {
		vars = map[string]interface{}{}
	}
	req.ScreenData.Variables = vars
	return req
}

// Authenticate fetches the module version token every screen-service call
// must carry.
func (c *Connector) Authenticate(ctx context.Context) error {
	return c.AuthenticateOnce(ctx, func(ctx context.Context) error {
		var resp struct {
			VersionToken string `json:"versionToken"`
		}
		if err := c.GetJSON(ctx, c.apiURL+versionPath, nil, &resp); err != nil {
			return err
		}
		if resp.VersionToken == "" {
			return errors.New(errors.ErrorTypeAuthentication, "version info returned no token")
		}
		c.versionToken = resp.VersionToken
		return nil
	})
}

// ListPartitions fetches the category menu. Categories arrive double-encoded
// (a JSON string inside the JSON response); top-level entries are those
// without a parent, minus the promotions pseudo-category.
func (c *Connector) ListPartitions(ctx context.Context) ([]core.Partition, error) {
	var resp struct {
		Data struct {
			CategoriesJSON string `json:"CategoriesJson"`
		} `json:"data"`
	}
	req := c.screenRequest(categoriesAPIVersion, nil)
	if err := c.PostJSON(ctx, c.apiURL+categoriesPath, nil, req, &resp); err != nil {
		return nil, err
	}

	var categories []struct {
		Category struct {
			Name       string `json:"Name"`
			Slug       string `json:"Slug"`
			ParentName string `json:"ParentName"`
		} `json:"Category_str"`
	}
	if err := json.Unmarshal([]byte(resp.Data.CategoriesJSON), &categories); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedResponse, "decode embedded category list")
	}

	var partitions []core.Partition
	for _, entry := range categories {
		cat := entry.Category
		if cat.ParentName != "" || cat.Slug == promotionsSlug || cat.Slug == "" {
			continue
		}
		partitions = append(partitions, core.Partition{ID: cat.Slug, Name: cat.Name})
	}
	return partitions, nil
}

// FetchPage fetches one product list page. Pages are 1-based on the wire;
// the cursor stores the last fetched page number.
func (c *Connector) FetchPage(ctx context.Context, p core.Partition, cursor core.Cursor) (*core.Page, error) {
	pageNumber := cursor.Page + 1

	var resp struct {
		Data struct {
			ProductList struct {
				List []map[string]interface{} `json:"List"`
			} `json:"ProductList"`
			TotalPages int `json:"TotalPages"`
		} `json:"data"`
	}
	req := c.screenRequest(productsAPIVersion, map[string]interface{}{
		"PageNumber":   pageNumber,
		"CategorySlug": p.ID,
	})
	if err := c.PostJSON(ctx, c.apiURL+productsPath, nil, req, &resp); err != nil {
		return nil, err
	}

	reachable := resp.Data.TotalPages
	if reachable > maxServerPages {
		reachable = maxServerPages
	}

	page := &core.Page{
		Next:      core.Cursor{Page: pageNumber},
		Exhausted: pageNumber >= reachable || len(resp.Data.ProductList.List) == 0,
		Truncated: pageNumber >= reachable && resp.Data.TotalPages > maxServerPages,
	}
	for _, data := range resp.Data.ProductList.List {
		rec := &core.Record{Data: data}
		rec.SetMeta("category", p.Name)
		page.Records = append(page.Records, rec)
	}
	return page, nil
}

// KeyOf derives the stable key from the product SKU.
func (c *Connector) KeyOf(record *core.Record) string {
	return core.KeyString(record.Data["SKU"])
}
