package osrs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	mappingKey         = "mapping"
	mappingTTL         = 24 * time.Hour
	DefaultSearchLimit = 25
)

// CatalogItem is one entry of the item mapping.
type CatalogItem struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Members bool   `json:"members"`
	Limit   int    `json:"limit,omitempty"`
	Value   int    `json:"value,omitempty"`
	Icon    string `json:"icon,omitempty"`
}

// Catalog resolves items by id or name against the mapping endpoint.
type Catalog struct {
	client *Client
	cache  *cache.Cache
	mu     sync.Mutex
}

func NewCatalog(client *Client) *Catalog {
	return &Catalog{
		client: client,
		cache:  cache.New(mappingTTL, time.Hour),
	}
}

func (c *Catalog) items(ctx context.Context) ([]CatalogItem, error) {
	if v, ok := c.cache.Get(mappingKey); ok {
		return v.([]CatalogItem), nil
	}

	// one loader at a time; others reuse its result
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.cache.Get(mappingKey); ok {
		return v.([]CatalogItem), nil
	}

	var items []CatalogItem
	if err := c.client.getJSON(ctx, "/mapping", nil, &items); err != nil {
		return nil, fmt.Errorf("failed to load item mapping: %w", err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	c.cache.Set(mappingKey, items, cache.DefaultExpiration)
	return items, nil
}

// FindByID returns the item with the given id.
func (c *Catalog) FindByID(ctx context.Context, id int) (CatalogItem, bool, error) {
	items, err := c.items(ctx)
	if err != nil {
		return CatalogItem{}, false, err
	}
	i := sort.Search(len(items), func(i int) bool { return items[i].ID >= id })
	if i < len(items) && items[i].ID == id {
		return items[i], true, nil
	}
	return CatalogItem{}, false, nil
}

// FindByName returns the item whose name equals name, ignoring case.
func (c *Catalog) FindByName(ctx context.Context, name string) (CatalogItem, bool, error) {
	items, err := c.items(ctx)
	if err != nil {
		return CatalogItem{}, false, err
	}
	needle := normalizeName(name)
	if needle == "" {
		return CatalogItem{}, false, nil
	}
	for _, it := range items {
		if normalizeName(it.Name) == needle {
			return it, true, nil
		}
	}
	return CatalogItem{}, false, nil
}

// FindByNameFuzzy tolerates partial names and typos. It tries an exact
// match, then the shortest prefix match, then the shortest substring match,
// then the closest name within a small edit distance.
func (c *Catalog) FindByNameFuzzy(ctx context.Context, name string) (CatalogItem, bool, error) {
	items, err := c.items(ctx)
	if err != nil {
		return CatalogItem{}, false, err
	}
	it, ok := fuzzyMatch(items, name)
	return it, ok, nil
}

// Search returns up to limit items whose name contains query, sorted by name.
func (c *Catalog) Search(ctx context.Context, query string, limit int) ([]CatalogItem, error) {
	needle := normalizeName(query)
	if needle == "" {
		return []CatalogItem{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	items, err := c.items(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]CatalogItem, 0)
	for _, it := range items {
		if strings.Contains(normalizeName(it.Name), needle) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
