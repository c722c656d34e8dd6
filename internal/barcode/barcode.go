// Package barcode looks up scanned product barcodes in Open Food Facts.
package barcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/larder/internal/grocery"
)

const (
	DefaultBaseURL = "https://world.openfoodfacts.org"
	cacheTTL       = 12 * time.Hour
	userAgent      = "larder/1.0 (shopping list barcode lookup)"
)

var (
	ErrNotFound       = errors.New("product not found")
	ErrInvalidBarcode = errors.New("invalid barcode")
)

// Product is the subset of a product record used to build a shopping-list item.
type Product struct {
	Barcode  string           `json:"barcode"`
	Name     string           `json:"name"`
	Brand    string           `json:"brand,omitempty"`
	Quantity string           `json:"quantity,omitempty"`
	Category grocery.Category `json:"category"`
}

type cached struct {
	product   *Product
	fetchedAt time.Time
}

// Client fetches products and caches hits and misses in memory.
type Client struct {
	client  *http.Client
	baseURL string
	mu      sync.RWMutex
	cache   map[string]cached
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   make(map[string]cached),
	}
}

// ValidBarcode reports whether code looks like an EAN-8, UPC-A, EAN-13 or
// GTIN-14.
func ValidBarcode(code string) bool {
	if len(code) < 8 || len(code) > 14 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Lookup returns the product for code. Unknown products yield ErrNotFound.
func (c *Client) Lookup(ctx context.Context, code string) (*Product, error) {
	code = strings.TrimSpace(code)
	if !ValidBarcode(code) {
		return nil, ErrInvalidBarcode
	}

	c.mu.RLock()
	entry, ok := c.cache[code]
	c.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < cacheTTL {
		if entry.product == nil {
			return nil, ErrNotFound
		}
		p := *entry.product
		return &p, nil
	}

	p, err := c.fetch(ctx, code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	c.mu.Lock()
	c.cache[code] = cached{product: p, fetchedAt: time.Now()}
	c.mu.Unlock()

	if p == nil {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

type apiResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName    string   `json:"product_name"`
		GenericName    string   `json:"generic_name"`
		Brands         string   `json:"brands"`
		Quantity       string   `json:"quantity"`
		CategoriesTags []string `json:"categories_tags"`
	} `json:"product"`
}

func (c *Client) fetch(ctx context.Context, code string) (*Product, error) {
	url := fmt.Sprintf("%s/api/v2/product/%s.json?fields=product_name,generic_name,brands,quantity,categories_tags", c.baseURL, code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("product API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("product API returned status %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode product response: %w", err)
	}
	if apiResp.Status != 1 {
		return nil, ErrNotFound
	}

	name := strings.TrimSpace(apiResp.Product.ProductName)
	if name == "" {
		name = strings.TrimSpace(apiResp.Product.GenericName)
	}
	if name == "" {
		return nil, ErrNotFound
	}

	brand, _, _ := strings.Cut(apiResp.Product.Brands, ",")
	return &Product{
		Barcode:  code,
		Name:     name,
		Brand:    strings.TrimSpace(brand),
		Quantity: strings.TrimSpace(apiResp.Product.Quantity),
		Category: categoryFromTags(apiResp.Product.CategoriesTags, name),
	}, nil
}

// tagCategories maps Open Food Facts taxonomy tags to store sections. More
// specific tags come later in a product's tag list, so the last match wins.
var tagCategories = map[string]grocery.Category{
	"en:fruits":                      grocery.Produce,
	"en:vegetables":                  grocery.Produce,
	"en:fresh-vegetables":            grocery.Produce,
	"en:fresh-fruits":                grocery.Produce,
	"en:meats":                       grocery.MeatSeafood,
	"en:poultries":                   grocery.MeatSeafood,
	"en:seafood":                     grocery.MeatSeafood,
	"en:fishes":                      grocery.MeatSeafood,
	"en:dairies":                     grocery.Dairy,
	"en:cheeses":                     grocery.Dairy,
	"en:milks":                       grocery.Dairy,
	"en:yogurts":                     grocery.Dairy,
	"en:eggs":                        grocery.Dairy,
	"en:breads":                      grocery.Bakery,
	"en:pastries":                    grocery.Bakery,
	"en:cereals-and-potatoes":        grocery.Pantry,
	"en:pastas":                      grocery.Pantry,
	"en:condiments":                  grocery.Pantry,
	"en:sauces":                      grocery.Pantry,
	"en:canned-foods":                grocery.Pantry,
	"en:spreads":                     grocery.Pantry,
	"en:frozen-foods":                grocery.Frozen,
	"en:ice-creams":                  grocery.Frozen,
	"en:beverages":                   grocery.Beverages,
	"en:waters":                      grocery.Beverages,
	"en:sodas":                       grocery.Beverages,
	"en:coffees":                     grocery.Beverages,
	"en:teas":                        grocery.Beverages,
	"en:snacks":                      grocery.Snacks,
	"en:sweet-snacks":                grocery.Snacks,
	"en:salty-snacks":                grocery.Snacks,
	"en:chocolates":                  grocery.Snacks,
	"en:biscuits-and-cakes":          grocery.Snacks,
	"en:non-food-products":           grocery.Household,
	"en:open-beauty-facts":           grocery.PersonalCare,
	"en:hygiene-and-beauty-products": grocery.PersonalCare,
}

func categoryFromTags(tags []string, name string) grocery.Category {
	var found grocery.Category
	for _, tag := range tags {
		if c, ok := tagCategories[tag]; ok {
			found = c
		}
	}
	if found != "" {
		return found
	}
	return grocery.Categorize(name)
}
