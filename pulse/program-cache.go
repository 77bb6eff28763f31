package pulse

import (
	"fmt"
	"io/fs"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ProgramCache owns programs shared between models. Models borrow programs
// from the cache, a program is released when it is evicted or the cache is
// purged. Size the cache to hold every program of the scene: loading more
// distinct programs than fit evicts the least recently used one, and its
// borrowers are left with a released program.
type ProgramCache struct {
	dev   Device
	fsys  fs.FS
	cache *lru.Cache[string, *Program]
}

func NewProgramCache(dev Device, fsys fs.FS, size int) *ProgramCache {
	cache, _ := lru.NewWithEvict[string, *Program](size, releaseProgramOnEviction)

	return &ProgramCache{
		dev:   dev,
		fsys:  fsys,
		cache: cache,
	}
}

// Get returns the cached program for path, loading it on first use.
func (c *ProgramCache) Get(path string) (*Program, error) {
	cached, ok := c.cache.Get(path)
	if ok {
		return cached, nil
	}

	program, err := LoadProgram(c.dev, c.fsys, path)
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}

	c.cache.Add(path, program)

	return program, nil
}

func (c *ProgramCache) Purge() {
	c.cache.Purge()
}

func releaseProgramOnEviction(path string, program *Program) {
	slog.Warn("Releasing evicted program, borrowed references become invalid", slog.String("path", path))
	program.Release()
}
