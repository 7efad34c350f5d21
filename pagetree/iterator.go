/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 18 10:33:17 2019 mstenber
 * Last modified: Wed Mar 20 16:55:41 2019 mstenber
 * Edit time:     187 min
 *
 */

package pagetree

import (
	"log"

	"context"
)

type iteratorPhase int

const (
	// phaseDescending: the frame's index addresses a child slot
	// that has not been visited yet.
	phaseDescending iteratorPhase = iota

	// phaseAtEntry: the slot's subtree is exhausted and the index
	// now exposes the entry at that position.
	phaseAtEntry
)

type iteratorFrame struct {
	id    LocatedObjectIdentifier
	node  *TreeNode // lazily loaded
	index int
	phase iteratorPhase
}

func (self *iteratorFrame) load(ctx context.Context, storage NodeStorage) error {
	if self.node != nil {
		return nil
	}
	if err := checkInterrupt(ctx); err != nil {
		return err
	}
	node, err := storage.ReadNode(ctx, self.id)
	if err != nil {
		return err
	}
	self.node = node
	return nil
}

// Iterator is a cursor over one committed tree, held as an explicit
// stack of (node, position) frames rather than a call stack, so it
// can be suspended across node loads and driven in lock-step with
// other iterators by the diff engines.
//
// Each Advance is a single step of the two-phase state machine; a
// step ends either just inside a freshly entered node (IsNewNode), at
// an entry (HasValue), in a between-slots position with neither, or
// with the stack empty (Finished).
type Iterator struct {
	storage NodeStorage
	stack   []*iteratorFrame
}

func NewIterator(storage NodeStorage) *Iterator {
	return &Iterator{storage: storage}
}

// Init positions the iterator at the root frame in descending state.
// The node itself is not loaded until needed. The zero identifier
// stands for "no tree" and starts out finished.
func (self *Iterator) Init(root LocatedObjectIdentifier) {
	if root.Digest == "" {
		self.stack = nil
		return
	}
	self.stack = []*iteratorFrame{{id: root}}
}

func (self *Iterator) top() *iteratorFrame {
	return self.stack[len(self.stack)-1]
}

// Finished is terminal; Advance is illegal thereafter.
func (self *Iterator) Finished() bool {
	return len(self.stack) == 0
}

// IsNewNode is true exactly when a frame has just been entered (or
// just after Init): descending with no slot consumed yet.
func (self *Iterator) IsNewNode() bool {
	if self.Finished() {
		return false
	}
	f := self.top()
	return f.phase == phaseDescending && f.index == 0
}

// CurrentNodeIdentifier returns the identifier of the node the
// cursor is in. Valid whenever not Finished; the diff engines compare
// these at IsNewNode positions to prune identical subtrees.
func (self *Iterator) CurrentNodeIdentifier() ObjectIdentifier {
	return self.top().id.ObjectIdentifier
}

func (self *Iterator) HasValue() bool {
	return !self.Finished() && self.top().phase == phaseAtEntry
}

// CurrentEntry is valid only when HasValue.
func (self *Iterator) CurrentEntry() *Entry {
	f := self.top()
	if f.phase != phaseAtEntry {
		log.Panic("CurrentEntry outside entry state")
	}
	return &f.node.Entries[f.index]
}

// Advance single-steps the traversal.
func (self *Iterator) Advance(ctx context.Context) error {
	if self.Finished() {
		log.Panic("Advance after Finished")
	}
	f := self.top()
	if f.phase == phaseAtEntry {
		f.phase = phaseDescending
		f.index++
		return nil
	}
	if err := f.load(ctx, self.storage); err != nil {
		return err
	}
	if id, found := f.node.Children[f.index]; found {
		self.stack = append(self.stack, &iteratorFrame{id: id.InLocationOf(f.id)})
		return nil
	}
	self.entryOrPop()
	return nil
}

// entryOrPop resolves an exhausted child slot: expose the entry at
// the same index if there is one, otherwise pop and repeat in the
// parent (whose index still addresses the slot we just finished).
func (self *Iterator) entryOrPop() {
	for !self.Finished() {
		f := self.top()
		if f.index < len(f.node.Entries) {
			f.phase = phaseAtEntry
			return
		}
		self.stack = self.stack[:len(self.stack)-1]
	}
}

// SkipNextSubTree advances past the just-entered node without
// visiting any of it. Legal only at IsNewNode positions.
func (self *Iterator) SkipNextSubTree() {
	if !self.IsNewNode() {
		log.Panic("SkipNextSubTree outside new-node state")
	}
	self.stack = self.stack[:len(self.stack)-1]
	self.entryOrPop()
}

// SkipTo narrows the position forward to the first key >= minKey,
// descending as far as needed. Indexes never move backward; on
// return the iterator either sits exactly at minKey, or is
// positioned so that continued traversal only yields greater keys.
func (self *Iterator) SkipTo(ctx context.Context, minKey []byte) error {
	for !self.Finished() {
		f := self.top()
		if f.phase == phaseAtEntry {
			if string(f.node.Entries[f.index].Key) >= string(minKey) {
				return nil
			}
			f.phase = phaseDescending
			f.index++
			continue
		}
		if err := f.load(ctx, self.storage); err != nil {
			return err
		}
		idx := lowerBound(f.node.Entries, minKey)
		if f.index > idx {
			// Already past: everything still ahead is >= minKey.
			return nil
		}
		f.index = idx
		if idx < len(f.node.Entries) &&
			string(f.node.Entries[idx].Key) == string(minKey) {
			// Exact hit; the slot below holds only lesser keys.
			f.phase = phaseAtEntry
			return nil
		}
		if id, found := f.node.Children[f.index]; found {
			self.stack = append(self.stack, &iteratorFrame{id: id.InLocationOf(f.id)})
			continue
		}
		self.entryOrPop()
	}
	return nil
}
