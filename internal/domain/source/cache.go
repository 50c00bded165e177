package source

import (
	"bytes"
	"io"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"

	"github.com/GriffinCanCode/microfront/internal/shared/dom"
	"github.com/GriffinCanCode/microfront/internal/shared/types"
)

// cachedSource is the serialized form of a loaded source. The HTML
// fragment is stored rendered so entries survive as plain bytes.
type cachedSource struct {
	Links   map[string]*types.Link   `json:"links"`
	Scripts map[string]*types.Script `json:"scripts"`
	Order   []string                 `json:"order"`
	HTML    string                   `json:"html"`
}

// Cache holds prefetched sources keyed by entry URL, gzip-compressed.
// Bundles are mostly text, so compression keeps large prefetch sets cheap.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewCache creates an empty prefetch cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

// Put stores a fully loaded source.
func (c *Cache) Put(url string, src *types.Source) {
	if src.HTML == nil {
		return
	}
	payload := cachedSource{
		Links:   src.Links,
		Scripts: src.Scripts,
		Order:   src.Order,
		HTML:    src.HTML.Render(),
	}
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return
	}
	if err := zw.Close(); err != nil {
		return
	}

	c.mu.Lock()
	c.entries[url] = buf.Bytes()
	c.mu.Unlock()
}

// Get returns a decompressed copy of a cached source, or false.
func (c *Cache) Get(url string) (*types.Source, bool) {
	c.mu.RLock()
	compressed, ok := c.entries[url]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, false
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, false
	}

	var payload cachedSource
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	html, err := dom.Parse(payload.HTML)
	if err != nil {
		return nil, false
	}

	return &types.Source{
		Links:   payload.Links,
		Scripts: payload.Scripts,
		Order:   payload.Order,
		HTML:    html,
	}, true
}

// Has reports whether a URL is cached.
func (c *Cache) Has(url string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[url]
	return ok
}

// Drop removes a cached entry.
func (c *Cache) Drop(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, url)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
