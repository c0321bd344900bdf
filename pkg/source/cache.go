package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/ritzau/cpg-explorer/pkg/logging"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// OutlineLimit caps the number of outline rows requested per file.
const OutlineLimit = 1200

// Document is a source file together with its structural outline.
type Document struct {
	File    string           `json:"file"`
	Content string           `json:"content"`
	Outline []api.OutlineRow `json:"outline"`
}

// Cache holds every document fetched during a session, keyed by file path.
// Source files are treated as immutable for the session, so entries are
// never invalidated. Concurrent requests for the same file share one fetch.
type Cache struct {
	backend api.SourceAPI

	mu     sync.RWMutex
	docs   map[string]*Document
	flight singleflight.Group
}

// NewCache creates an empty cache over backend.
func NewCache(backend api.SourceAPI) *Cache {
	return &Cache{
		backend: backend,
		docs:    make(map[string]*Document),
	}
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Get returns the document for file, fetching text and outline concurrently
// on a miss. A caller whose ctx ends stops waiting, but the shared fetch
// still completes and fills the cache for later callers.
func (c *Cache) Get(ctx context.Context, file string) (*Document, error) {
	c.mu.RLock()
	doc, ok := c.docs[file]
	c.mu.RUnlock()
	if ok {
		return doc, nil
	}

	ch := c.flight.DoChan(file, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), file)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Document), nil
	}
}

func (c *Cache) fetch(ctx context.Context, file string) (*Document, error) {
	logging.Debug("fetching source", "file", file)

	var (
		src     *api.SourceFile
		outline []api.OutlineRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		src, err = c.backend.GetSource(gctx, file)
		return err
	})
	g.Go(func() error {
		var err error
		outline, err = c.backend.GetFileOutline(gctx, file, OutlineLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading %s: %w", file, err)
	}

	doc := &Document{
		File:    src.File,
		Content: src.Content,
		Outline: outline,
	}
	if doc.File == "" {
		doc.File = file
	}

	c.mu.Lock()
	c.docs[file] = doc
	c.mu.Unlock()
	return doc, nil
}
