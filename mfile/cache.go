package mfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kspect/mfile/internal/medium"
)

// Cache memoizes transform results keyed by Request. Each committed entry
// holds an open read-only handle over a result file in the cache directory
// plus a validity token derived from the source's modification identity;
// Resolve serves the entry only while the token still matches the source.
//
// The cache is an explicitly constructed, explicitly owned object; callers
// needing independent caches (tests included) simply build more of them.
type Cache struct {
	dir    string
	ownDir bool
	reg    *Registry
	log    *zap.Logger

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	req   Request
	path  string
	token medium.Token
	file  *File
}

// NewCache creates a cache writing its result files under dir. An empty dir
// allocates a private temporary directory that Close removes. A nil logger
// disables logging.
func NewCache(dir string, reg *Registry, log *zap.Logger) (*Cache, error) {
	ownDir := false
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "mfile-cache-")
		if err != nil {
			return nil, fmt.Errorf("mfile: cache dir: %w", err)
		}
		ownDir = true
	}
	if reg == nil {
		reg = DefaultRegistry()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		dir:     dir,
		ownDir:  ownDir,
		reg:     reg,
		log:     log,
		entries: make(map[string]*cacheEntry),
	}, nil
}

// sourceToken reads the current modification identity of the request's
// source resource.
func (c *Cache) sourceToken(locator string) (medium.Token, error) {
	b, err := medium.Open(locator, medium.ReadOnly)
	if err != nil {
		return medium.Token{}, err
	}
	defer b.Close()
	return b.Token()
}

// Resolve returns the result of req, serving a committed entry when its
// validity token still matches the source and invoking the transform engine
// otherwise. Concurrent calls with the same request share one engine
// invocation and one result handle.
//
// The returned handle is owned by the cache: callers must not close it.
func (c *Cache) Resolve(req Request) (*File, error) {
	key := req.Key()
	tok, err := c.sourceToken(req.Source)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if e.token == tok {
			c.mu.Unlock()
			c.log.Debug("cache hit", zap.String("source", req.Source), zap.String("op", req.Op.String()))
			return e.file, nil
		}
		// Source changed since the entry was produced.
		delete(c.entries, key)
		c.mu.Unlock()
		c.log.Debug("cache entry stale", zap.String("source", req.Source))
		e.file.Close()
		os.Remove(e.path)
	} else {
		c.mu.Unlock()
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.convert(req, tok)
	})
	if err != nil {
		return nil, err
	}
	return v.(*File), nil
}

// convert runs the transform engine and commits the result. A failure at
// any point removes the partial result file and commits nothing.
func (c *Cache) convert(req Request, tok medium.Token) (*File, error) {
	c.log.Debug("cache miss", zap.String("source", req.Source), zap.String("op", req.Op.String()))

	src, err := Open(req.Source, WithRegistry(c.reg))
	if err != nil {
		return nil, err
	}
	defer src.Close()

	rd, err := ResultDescriptor(src, req, c.reg)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(c.dir, uuid.New().String()+".res")
	dst, err := Create(path, req.Target, rd, WithRegistry(c.reg))
	if err != nil {
		return nil, err
	}
	if err := Run(dst, src, req); err != nil {
		dst.Close()
		os.Remove(path)
		return nil, err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return nil, err
	}

	out, err := Open(path, WithRegistry(c.reg), WithFormat(req.Target))
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	entry := &cacheEntry{req: req, path: path, token: tok, file: out}
	c.mu.Lock()
	if old, ok := c.entries[req.Key()]; ok {
		old.file.Close()
		os.Remove(old.path)
	}
	c.entries[req.Key()] = entry
	c.mu.Unlock()
	return out, nil
}

// InvalidateAll drops every committed entry and releases its backing
// resources. In-flight Resolve calls are not aborted; an entry they commit
// after this call began is preserved.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()

	for _, e := range entries {
		e.file.Close()
		os.Remove(e.path)
	}
	c.log.Debug("cache invalidated", zap.Int("entries", len(entries)))
}

// Len returns the number of committed entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close invalidates the cache and removes its private directory if the
// cache allocated one.
func (c *Cache) Close() error {
	c.InvalidateAll()
	if c.ownDir {
		return os.RemoveAll(c.dir)
	}
	return nil
}
