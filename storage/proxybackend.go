/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 25 12:04:28 2019 mstenber
 * Last modified: Mon Feb 25 12:11:50 2019 mstenber
 * Edit time:     10 min
 *
 */

package storage

// proxyBackend wraps another Backend and passes everything
// through. Wrapper backends embed it and override what they care
// about.
type proxyBackend struct {
	backend Backend
}

func (self *proxyBackend) Close() {
	self.backend.Close()
}

func (self *proxyBackend) GetBlockById(id string) *Block {
	return self.backend.GetBlockById(id)
}

func (self *proxyBackend) GetBlockIdByName(name string) string {
	return self.backend.GetBlockIdByName(name)
}

func (self *proxyBackend) SetNameToBlockId(name, blockId string) {
	self.backend.SetNameToBlockId(name, blockId)
}

func (self *proxyBackend) StoreBlock(b *Block) {
	self.backend.StoreBlock(b)
}

func (self *proxyBackend) UpdateBlock(b *Block) {
	self.backend.UpdateBlock(b)
}

func (self *proxyBackend) DeleteBlock(b *Block) {
	self.backend.DeleteBlock(b)
}
