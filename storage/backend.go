/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 25 11:05:12 2019 mstenber
 * Last modified: Wed Mar 20 09:58:33 2019 mstenber
 * Edit time:     47 min
 *
 */

// storage package holds the content-addressed block store the tree
// engine persists its nodes (and values) into. Blocks are immutable
// once stored; names provide the single mutable mapping (page id ->
// current root block id) the commit layer needs.
package storage

// Backend handles the low-level block operations. Results must be
// consistent with previous calls; how is left as an exercise to the
// implementor. Backends must tolerate concurrent use, as the tree
// builder stores independent subtrees in parallel.
type Backend interface {
	// Close the backend.
	Close()

	// GetBlockById returns the block with data and metadata, or
	// nil if the backend does not have it.
	GetBlockById(id string) *Block

	// GetBlockIdByName returns the block id mapped to the name,
	// or "" if none.
	GetBlockIdByName(name string) string

	// SetNameToBlockId sets the logical name to map to the block
	// id ("" clears it).
	SetNameToBlockId(name, blockId string)

	// StoreBlock adds a new block. Storing the same id again is a
	// no-op: equal ids mean equal content.
	StoreBlock(b *Block)

	// UpdateBlock updates block metadata. The block MUST exist.
	UpdateBlock(b *Block)

	// DeleteBlock removes the block. The block MUST exist.
	DeleteBlock(b *Block)
}

// BackendConfiguration is what the factory needs to assemble a
// Backend stack.
type BackendConfiguration struct {
	// Directory is where on-disk backends keep their state.
	Directory string

	// CacheSize > 0 wraps the backend in an in-memory block cache.
	CacheSize int

	// Password != "" wraps the backend in a compressing,
	// encrypting codec.
	Password string
	Salt     string

	// Iterations of key derivation; defaults to something sane.
	Iterations int
}

// DirectoryBackendBase is the common part of the on-disk backends.
type DirectoryBackendBase struct {
	Dir string
}

func (self *DirectoryBackendBase) Init(dir string) *DirectoryBackendBase {
	self.Dir = dir
	return self
}
