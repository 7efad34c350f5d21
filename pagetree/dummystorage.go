/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Feb 21 11:40:15 2019 mstenber
 * Last modified: Tue Mar 19 09:13:52 2019 mstenber
 * Edit time:     34 min
 *
 */

package pagetree

import (
	"fmt"

	"github.com/fingon/go-pagetree/util"

	"context"
)

// DummyStorage is an in-memory NodeStorage for tests and
// benchmarks. It keeps per-operation counters so tests can assert on
// structural sharing and load behavior.
type DummyStorage struct {
	lock   util.MutexLocked
	nodes  map[ObjectDigest][]byte
	Reads  int
	Writes int
}

var _ NodeStorage = &DummyStorage{}

func NewDummyStorage() *DummyStorage {
	return &DummyStorage{nodes: make(map[ObjectDigest][]byte)}
}

func (self *DummyStorage) ReadNode(ctx context.Context, id LocatedObjectIdentifier) (*TreeNode, error) {
	if id.Inline {
		return NodeFromBytes([]byte(id.Digest))
	}
	defer self.lock.Locked()()
	self.Reads++
	b, found := self.nodes[id.Digest]
	if !found {
		return nil, fmt.Errorf("%w: %v", ErrNodeNotFound, id.ObjectIdentifier)
	}
	return NodeFromBytes(b)
}

func (self *DummyStorage) WriteNode(ctx context.Context, node *TreeNode) (ObjectIdentifier, error) {
	b := node.ToBytes()
	id := IdentifierForContent(b)
	if id.Inline {
		return id, nil
	}
	defer self.lock.Locked()()
	self.Writes++
	self.nodes[id.Digest] = b
	return id, nil
}

// NodeCount is the number of distinct persisted nodes.
func (self *DummyStorage) NodeCount() int {
	defer self.lock.Locked()()
	return len(self.nodes)
}
