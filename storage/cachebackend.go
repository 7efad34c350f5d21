/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 25 14:31:20 2019 mstenber
 * Last modified: Tue Mar 12 15:50:41 2019 mstenber
 * Edit time:     27 min
 *
 */

package storage

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fingon/go-pagetree/mlog"
)

// cacheBackend keeps the most recently used blocks in memory; the
// tree engine re-reads interior nodes constantly while building and
// diffing, and blocks are immutable so caching them is safe.
// Metadata is not cached as it mutates behind our back.
type cacheBackend struct {
	proxyBackend
	cache *lru.Cache[string, *Block]
}

func NewCacheBackend(backend Backend, size int) Backend {
	cache, err := lru.New[string, *Block](size)
	if err != nil {
		// Only errors on nonsensical size.
		panic(err)
	}
	self := &cacheBackend{}
	self.backend = backend
	self.cache = cache
	return self
}

func (self *cacheBackend) GetBlockById(id string) *Block {
	if b, ok := self.cache.Get(id); ok {
		mlog.Printf2("storage/cachebackend", "cb.GetBlockById %x (hit)", id)
		return b
	}
	b := self.backend.GetBlockById(id)
	if b != nil {
		self.cache.Add(id, b)
	}
	return b
}

func (self *cacheBackend) StoreBlock(b *Block) {
	self.backend.StoreBlock(b)
	self.cache.Add(b.Id, b)
}

func (self *cacheBackend) UpdateBlock(b *Block) {
	// Cached copy may hold stale metadata now.
	self.cache.Remove(b.Id)
	self.backend.UpdateBlock(b)
}

func (self *cacheBackend) DeleteBlock(b *Block) {
	self.cache.Remove(b.Id)
	self.backend.DeleteBlock(b)
}
