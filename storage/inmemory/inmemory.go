/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 25 12:40:08 2019 mstenber
 * Last modified: Tue Mar 12 14:44:21 2019 mstenber
 * Edit time:     31 min
 *
 */

package inmemory

import (
	"log"

	"github.com/fingon/go-pagetree/mlog"
	"github.com/fingon/go-pagetree/storage"
	"github.com/fingon/go-pagetree/util"
)

// inMemoryBackend provides in-memory storage; data is just stored in
// maps. Mostly useful for tests and as the reference implementation
// the on-disk backends are checked against.
type inMemoryBackend struct {
	id2Block map[string]*storage.Block
	name2Id  map[string]string
	lock     util.MutexLocked
}

var _ storage.Backend = &inMemoryBackend{}

func NewInMemoryBackend() storage.Backend {
	self := &inMemoryBackend{}
	self.id2Block = make(map[string]*storage.Block)
	self.name2Id = make(map[string]string)
	return self
}

func (self *inMemoryBackend) Close() {

}

func (self *inMemoryBackend) DeleteBlock(b *storage.Block) {
	defer self.lock.Locked()()
	mlog.Printf2("storage/inmemory/inmemory", "im.DeleteBlock %x", b.Id)
	if self.id2Block[b.Id] == nil {
		log.Panic("Non-existent block id in DeleteBlock")
	}
	delete(self.id2Block, b.Id)
}

func (self *inMemoryBackend) GetBlockById(id string) *storage.Block {
	defer self.lock.Locked()()
	return self.id2Block[id]
}

func (self *inMemoryBackend) GetBlockIdByName(name string) string {
	defer self.lock.Locked()()
	return self.name2Id[name]
}

func (self *inMemoryBackend) SetNameToBlockId(name, blockId string) {
	defer self.lock.Locked()()
	if blockId == "" {
		delete(self.name2Id, name)
		return
	}
	self.name2Id[name] = blockId
}

func (self *inMemoryBackend) StoreBlock(b *storage.Block) {
	defer self.lock.Locked()()
	if self.id2Block[b.Id] != nil {
		// Same id means same content; nothing to do.
		return
	}
	mlog.Printf2("storage/inmemory/inmemory", "im.StoreBlock %x", b.Id)
	nb := *b
	self.id2Block[b.Id] = &nb
}

func (self *inMemoryBackend) UpdateBlock(b *storage.Block) {
	defer self.lock.Locked()()
	ob := self.id2Block[b.Id]
	if ob == nil {
		log.Panic("Non-existent block id in UpdateBlock")
	}
	mlog.Printf2("storage/inmemory/inmemory", "im.UpdateBlock %x", b.Id)
	ob.BlockMetadata = b.BlockMetadata
}
