package flash

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache geometry.
const (
	// BlockSize is the size of one cached block in bytes.
	BlockSize = 256

	// DefaultCacheBlocks is the default number of cached blocks.
	DefaultCacheBlocks = 64
)

// CacheStats holds block cache counters.
type CacheStats struct {
	Hits          uint64
	Misses        uint64
	Invalidations uint64
}

// BlockCache is a read-through LRU cache of flash blocks.
type BlockCache struct {
	dev    Reader
	blocks *lru.Cache[uint32, []byte]

	mu    sync.Mutex
	stats CacheStats
}

// NewBlockCache creates a cache holding up to n blocks of dev.
func NewBlockCache(dev Reader, n int) (*BlockCache, error) {
	if n <= 0 {
		n = DefaultCacheBlocks
	}
	blocks, err := lru.New[uint32, []byte](n)
	if err != nil {
		return nil, fmt.Errorf("flash: creating block cache: %w", err)
	}
	return &BlockCache{dev: dev, blocks: blocks}, nil
}

// Read copies len(p) bytes starting at addr into p, filling missing blocks
// from the device.
func (c *BlockCache) Read(addr uint32, p []byte) error {
	for len(p) > 0 {
		base := addr &^ (BlockSize - 1)
		blk, err := c.block(base)
		if err != nil {
			return err
		}
		n := copy(p, blk[addr-base:])
		p = p[n:]
		addr += uint32(n)
	}
	return nil
}

func (c *BlockCache) block(base uint32) ([]byte, error) {
	if blk, ok := c.blocks.Get(base); ok {
		c.count(func(s *CacheStats) { s.Hits++ })
		return blk, nil
	}

	blk := make([]byte, BlockSize)
	if err := c.dev.Read(base, blk); err != nil {
		return nil, err
	}
	c.blocks.Add(base, blk)
	c.count(func(s *CacheStats) { s.Misses++ })
	return blk, nil
}

// Invalidate drops every cached block.
func (c *BlockCache) Invalidate() {
	c.blocks.Purge()
	c.count(func(s *CacheStats) { s.Invalidations++ })
}

// Len returns the number of blocks currently cached.
func (c *BlockCache) Len() int {
	return c.blocks.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *BlockCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *BlockCache) count(f func(*CacheStats)) {
	c.mu.Lock()
	f(&c.stats)
	c.mu.Unlock()
}
