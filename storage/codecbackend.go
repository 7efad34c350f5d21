/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 25 12:20:31 2019 mstenber
 * Last modified: Tue Mar 12 15:02:17 2019 mstenber
 * Edit time:     22 min
 *
 */

package storage

import (
	"log"

	"github.com/fingon/go-pagetree/codec"
)

// codecBackend transforms block data on its way to and from the
// wrapped backend (compression, encryption); the block id is the
// additional authenticated data, so blocks cannot be swapped around
// undetected.
type codecBackend struct {
	proxyBackend
	codec codec.Codec
}

func NewCodecBackend(backend Backend, c codec.Codec) Backend {
	self := &codecBackend{}
	self.backend = backend
	self.codec = c
	return self
}

func (self *codecBackend) GetBlockById(id string) *Block {
	b := self.backend.GetBlockById(id)
	if b == nil || b.Data == nil {
		return b
	}
	data, err := self.codec.DecodeBytes(b.Data, []byte(b.Id))
	if err != nil {
		log.Panic("codecBackend.GetBlockById decode: ", err)
	}
	nb := *b
	nb.Data = data
	return &nb
}

func (self *codecBackend) StoreBlock(b *Block) {
	data, err := self.codec.EncodeBytes(b.Data, []byte(b.Id))
	if err != nil {
		log.Panic("codecBackend.StoreBlock encode: ", err)
	}
	nb := *b
	nb.Data = data
	self.backend.StoreBlock(&nb)
}
