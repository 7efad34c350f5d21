/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 25 15:30:44 2019 mstenber
 * Last modified: Wed Mar 20 10:44:29 2019 mstenber
 * Edit time:     49 min
 *
 */

// nodestore bridges the tree engine and the block store: tree nodes
// are serialized to canonical bytes, content-addressed, and stored as
// immutable blocks. It also keeps the page -> current root identifier
// mapping using the backend name facility.
package nodestore

import (
	"context"
	"fmt"

	"github.com/fingon/go-pagetree/mlog"
	"github.com/fingon/go-pagetree/pagetree"
	"github.com/fingon/go-pagetree/storage"
)

type NodeStore struct {
	backend storage.Backend
}

var _ pagetree.NodeStorage = &NodeStore{}

func New(backend storage.Backend) *NodeStore {
	return &NodeStore{backend: backend}
}

func (self *NodeStore) ReadNode(ctx context.Context, id pagetree.LocatedObjectIdentifier) (*pagetree.TreeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id.Inline {
		return pagetree.NodeFromBytes([]byte(id.Digest))
	}
	b := self.backend.GetBlockById(string(id.Digest))
	if b == nil {
		return nil, fmt.Errorf("%w: %s", pagetree.ErrNodeNotFound, id)
	}
	return pagetree.NodeFromBytes(b.Data)
}

func (self *NodeStore) WriteNode(ctx context.Context, node *pagetree.TreeNode) (pagetree.ObjectIdentifier, error) {
	if err := ctx.Err(); err != nil {
		return pagetree.ObjectIdentifier{}, err
	}
	data := node.ToBytes()
	id := pagetree.IdentifierForContent(data)
	if id.Inline {
		return id, nil
	}
	mlog.Printf2("storage/nodestore/nodestore", "ns.WriteNode %s (%d b)", id, len(data))
	self.backend.StoreBlock(&storage.Block{
		BlockMetadata: storage.BlockMetadata{Type: storage.BlockType_TREE_NODE},
		Id:            string(id.Digest),
		Data:          data})
	return id, nil
}

// StoreValue persists raw value content and returns its identifier;
// small values inline and never hit the backend.
func (self *NodeStore) StoreValue(content []byte) pagetree.ObjectIdentifier {
	id := pagetree.IdentifierForContent(content)
	if id.Inline {
		return id
	}
	self.backend.StoreBlock(&storage.Block{
		BlockMetadata: storage.BlockMetadata{Type: storage.BlockType_VALUE},
		Id:            string(id.Digest),
		Data:          content})
	return id
}

// GetValue fetches value content by identifier, nil if absent.
func (self *NodeStore) GetValue(id pagetree.ObjectIdentifier) []byte {
	if id.Inline {
		return []byte(id.Digest)
	}
	b := self.backend.GetBlockById(string(id.Digest))
	if b == nil {
		return nil
	}
	return b.Data
}

// SetPageRoot points the named page at the given root identifier.
// Inline roots are stored verbatim with a marker prefix as they have
// no block of their own.
func (self *NodeStore) SetPageRoot(name string, id pagetree.ObjectIdentifier) {
	v := string(id.Digest)
	if id.Inline {
		v = "i" + v
	} else {
		v = "h" + v
	}
	self.backend.SetNameToBlockId(name, v)
}

// GetPageRoot returns the current root identifier of the named page;
// ok is false if the page does not exist.
func (self *NodeStore) GetPageRoot(name string) (id pagetree.ObjectIdentifier, ok bool) {
	v := self.backend.GetBlockIdByName(name)
	if v == "" {
		return
	}
	switch v[0] {
	case 'i':
		return pagetree.ObjectIdentifier{Digest: pagetree.ObjectDigest(v[1:]),
			Inline: true}, true
	case 'h':
		return pagetree.ObjectIdentifier{Digest: pagetree.ObjectDigest(v[1:])}, true
	}
	return
}

// DeletePageRoot removes the named page mapping.
func (self *NodeStore) DeletePageRoot(name string) {
	self.backend.SetNameToBlockId(name, "")
}
