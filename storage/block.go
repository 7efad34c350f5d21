/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 25 11:31:44 2019 mstenber
 * Last modified: Tue Mar 12 14:20:09 2019 mstenber
 * Edit time:     39 min
 *
 */

package storage

import (
	"fmt"
	"log"

	"github.com/ugorji/go/codec"
)

type BlockType byte

const (
	BlockType_UNSET BlockType = iota
	BlockType_TREE_NODE
	BlockType_VALUE
)

// BlockMetadata is what backends persist alongside the data. The
// reference count is maintained by the external garbage collector;
// this package only stores it.
type BlockMetadata struct {
	RefCount int32
	Type     BlockType
}

func (self *BlockMetadata) ToBytes() []byte {
	var ch codec.CborHandle
	var b []byte
	enc := codec.NewEncoderBytes(&b, &ch)
	if err := enc.Encode(self); err != nil {
		log.Panic(err)
	}
	return b
}

func (self *BlockMetadata) FromBytes(b []byte) error {
	var ch codec.CborHandle
	dec := codec.NewDecoderBytes(b, &ch)
	return dec.Decode(self)
}

// Block is one immutable, content-addressed blob: the id is the hash
// of the data (or at least the backends may trust it to be; the tree
// engine guarantees it).
type Block struct {
	BlockMetadata

	Id   string
	Data []byte
}

func (self *Block) String() string {
	return fmt.Sprintf("block{%x..,%d bytes}", self.Id[:4], len(self.Data))
}
