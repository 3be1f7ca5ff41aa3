package schema

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"
)

// FormSelector singles out the survey form in a page. A survey page
// must contain exactly one match.
const FormSelector = "form"

// Cache maps schema references (the "schema" session cookie, e.g.
// "/js101/index.schema.json") to compiled validators, rederiving from
// the survey page whenever its mtime advances past the cached
// watermark. Two concurrent requests for the same stale survey may
// both rederive; the results are identical and the last write wins.
type Cache struct {
	publicDir string

	mu      sync.Mutex
	entries map[string]entry
}

type entry struct {
	mtime     time.Time
	validator *Validator
}

func NewCache(publicDir string) *Cache {
	return &Cache{
		publicDir: publicDir,
		entries:   make(map[string]entry),
	}
}

// Get returns the validator for a schema reference, deriving it from
// the referenced survey's page if the cache is stale or cold.
func (c *Cache) Get(schemaRef string) (*Validator, error) {
	page := filepath.Join(
		c.publicDir,
		filepath.FromSlash(path.Dir(path.Clean("/"+schemaRef))),
		"index.html",
	)

	stat, err := os.Stat(page)
	if err != nil {
		return nil, fmt.Errorf("stat survey page: %w", err)
	}

	c.mu.Lock()
	cached, ok := c.entries[schemaRef]
	c.mu.Unlock()
	if ok && !stat.ModTime().After(cached.mtime) {
		return cached.validator, nil
	}

	document, err := os.ReadFile(page)
	if err != nil {
		return nil, fmt.Errorf("read survey page: %w", err)
	}
	derived, err := Derive(document, FormSelector)
	if err != nil {
		return nil, fmt.Errorf("derive %s: %w", schemaRef, err)
	}
	validator, err := Compile(derived)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", schemaRef, err)
	}

	c.mu.Lock()
	c.entries[schemaRef] = entry{mtime: stat.ModTime(), validator: validator}
	c.mu.Unlock()

	return validator, nil
}
