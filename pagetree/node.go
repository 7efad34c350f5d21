/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 11:02:17 2019 mstenber
 * Last modified: Mon Mar 18 13:20:44 2019 mstenber
 * Edit time:     131 min
 *
 */

// pagetree package provides a versioned, content-addressed,
// copy-on-write B-tree representing the key/value contents of one
// storage page at a given version.
//
// The tree shape is a pure function of the final key set (levels are
// derived from key hashes), so equal contents always produce equal
// root identifiers regardless of mutation history. Persisted nodes
// are immutable; mutation happens on a private builder overlay and
// materializes bottom-up into fresh nodes.
package pagetree

import (
	"context"
	"fmt"
	"sort"

	"github.com/ugorji/go/codec"
)

// TreeNode is one immutable, persisted node: level (0 = leaf),
// strictly key-ordered entries, and a sparse map of child
// identifiers. With n entries there are n+1 child slots (slot i is
// the subtree before entry i, slot n the one after the last entry);
// a slot absent from the map is an empty subtree.
type TreeNode struct {
	Level    uint8
	Entries  []Entry
	Children map[int]ObjectIdentifier
}

// NodeStorage is the boundary to the external node store. Reads fail
// with a not-found or I/O error from the store; writes return the
// content-addressed identifier of the stored node, possibly inlined.
//
// Build issues concurrent WriteNode calls for independent subtrees,
// so implementations must tolerate concurrent use.
type NodeStorage interface {
	ReadNode(ctx context.Context, id LocatedObjectIdentifier) (*TreeNode, error)
	WriteNode(ctx context.Context, node *TreeNode) (ObjectIdentifier, error)
}

// IsEmpty is true for the canonical empty node, the only
// representation an empty tree may persist as.
func (self *TreeNode) IsEmpty() bool {
	return len(self.Entries) == 0 && len(self.Children) == 0
}

func (self *TreeNode) String() string {
	return fmt.Sprintf("node{l%d,%d entries,%d children}",
		self.Level, len(self.Entries), len(self.Children))
}

// lowerBound returns the index of the first entry with key >= target.
// Equal key at the returned index means found. This single rule
// drives all entry and child-slot lookup in the package.
func lowerBound(entries []Entry, key []byte) int {
	return sort.Search(len(entries),
		func(i int) bool {
			return string(entries[i].Key) >= string(key)
		})
}

// Wire form of the node content. Canonical CBOR so that equal
// nodes always produce equal bytes (and therefore equal digests).

type wireObjectId struct {
	Digest []byte
	Inline bool
}

type wireEntry struct {
	Key      []byte
	Digest   []byte
	Inline   bool
	Priority byte
	EntryId  string
}

type wireNode struct {
	Level    uint8
	Entries  []wireEntry
	Children map[uint32]wireObjectId
}

func newCborHandle() *codec.CborHandle {
	var ch codec.CborHandle
	ch.Canonical = true
	return &ch
}

// ToBytes encodes the node content deterministically.
func (self *TreeNode) ToBytes() []byte {
	wn := wireNode{Level: self.Level}
	wn.Entries = make([]wireEntry, len(self.Entries))
	for i, e := range self.Entries {
		wn.Entries[i] = wireEntry{Key: e.Key,
			Digest:   []byte(e.ObjectId.Digest),
			Inline:   e.ObjectId.Inline,
			Priority: byte(e.Priority),
			EntryId:  e.EntryId}
	}
	if len(self.Children) > 0 {
		wn.Children = make(map[uint32]wireObjectId, len(self.Children))
		for i, id := range self.Children {
			wn.Children[uint32(i)] = wireObjectId{Digest: []byte(id.Digest),
				Inline: id.Inline}
		}
	}
	var b []byte
	enc := codec.NewEncoderBytes(&b, newCborHandle())
	if err := enc.Encode(wn); err != nil {
		// Encoding in-memory content cannot legitimately fail.
		panic(err)
	}
	return b
}

// NodeFromBytes decodes persisted node content, validating the
// structural invariants; malformed content is a data-integrity error
// and is never silently repaired.
func NodeFromBytes(b []byte) (*TreeNode, error) {
	var wn wireNode
	dec := codec.NewDecoderBytes(b, newCborHandle())
	if err := dec.Decode(&wn); err != nil {
		return nil, fmt.Errorf("malformed node content: %w", err)
	}
	n := &TreeNode{Level: wn.Level}
	n.Entries = make([]Entry, len(wn.Entries))
	for i, we := range wn.Entries {
		n.Entries[i] = Entry{Key: we.Key,
			ObjectId: ObjectIdentifier{Digest: ObjectDigest(we.Digest),
				Inline: we.Inline},
			Priority: KeyPriority(we.Priority),
			EntryId:  we.EntryId}
		if i > 0 && string(n.Entries[i-1].Key) >= string(we.Key) {
			return nil, fmt.Errorf("malformed node content: unordered keys at %d", i)
		}
	}
	if len(wn.Children) > 0 {
		n.Children = make(map[int]ObjectIdentifier, len(wn.Children))
		for i, wid := range wn.Children {
			if int(i) > len(wn.Entries) {
				return nil, fmt.Errorf("malformed node content: child slot %d of %d entries",
					i, len(wn.Entries))
			}
			n.Children[int(i)] = ObjectIdentifier{Digest: ObjectDigest(wid.Digest),
				Inline: wid.Inline}
		}
	}
	return n, nil
}
