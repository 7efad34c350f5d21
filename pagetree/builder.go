/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Feb 13 09:12:33 2019 mstenber
 * Last modified: Thu Mar 21 11:48:06 2019 mstenber
 * Edit time:     412 min
 *
 */

package pagetree

import (
	"bytes"
	"fmt"
	"log"

	"github.com/fingon/go-pagetree/mlog"
	"github.com/fingon/go-pagetree/util"

	"context"
)

type builderState int

const (
	// stateNull is the unique representation of an empty subtree.
	stateNull builderState = iota

	// stateExisting is backed by a persisted node; content is
	// loaded on demand and the node never needs writing.
	stateExisting

	// stateNew is in-memory mutated content awaiting Build.
	stateNew
)

// nodeBuilder is the mutable copy-on-write overlay of one (sub)tree
// during a single mutation batch. A builder tree is single-owner: it
// is created by its batch, never shared, and consumed by Build.
//
// Invariant: a loaded builder always has len(children) ==
// len(entries)+1; stateNew implies loaded.
type nodeBuilder struct {
	state  builderState
	level  uint8
	object LocatedObjectIdentifier // valid in stateExisting
	loaded bool

	entries  []Entry
	children []*nodeBuilder
}

func newNullBuilder() *nodeBuilder {
	return &nodeBuilder{state: stateNull}
}

// builderFromIdentifier loads the root of a persisted tree as a
// builder. The canonical empty node collapses to the null builder; so
// does the zero identifier, meaning "no tree yet".
func builderFromIdentifier(ctx context.Context, storage NodeStorage, id LocatedObjectIdentifier) (*nodeBuilder, error) {
	if id.Digest == "" {
		return newNullBuilder(), nil
	}
	if err := checkInterrupt(ctx); err != nil {
		return nil, err
	}
	node, err := storage.ReadNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if node.IsEmpty() {
		return newNullBuilder(), nil
	}
	self := &nodeBuilder{state: stateExisting, object: id}
	self.setNode(node)
	return self, nil
}

func (self *nodeBuilder) isNull() bool {
	return self.state == stateNull
}

func (self *nodeBuilder) markNew() {
	self.state = stateNew
	self.object = LocatedObjectIdentifier{}
}

func (self *nodeBuilder) becomeNull() {
	*self = nodeBuilder{state: stateNull}
}

func (self *nodeBuilder) setNode(node *TreeNode) {
	self.level = node.Level
	self.entries = append([]Entry(nil), node.Entries...)
	self.children = make([]*nodeBuilder, len(node.Entries)+1)
	for i := range self.children {
		if id, found := node.Children[i]; found {
			self.children[i] = &nodeBuilder{state: stateExisting,
				level:  node.Level - 1,
				object: id.InLocationOf(self.object)}
		} else {
			self.children[i] = newNullBuilder()
		}
	}
	self.loaded = true
}

func (self *nodeBuilder) ensureLoaded(ctx context.Context, storage NodeStorage) error {
	if self.state != stateExisting || self.loaded {
		return nil
	}
	if err := checkInterrupt(ctx); err != nil {
		return err
	}
	node, err := storage.ReadNode(ctx, self.object)
	if err != nil {
		return err
	}
	if node.Level != self.level {
		return fmt.Errorf("malformed node content: level %d stored at level %d slot",
			node.Level, self.level)
	}
	self.setNode(node)
	return nil
}

// becomeSingleEntry turns a null builder into a fresh one-entry node
// at the given level.
func (self *nodeBuilder) becomeSingleEntry(level uint8, entry Entry) {
	*self = nodeBuilder{state: stateNew, level: level, loaded: true,
		entries:  []Entry{entry},
		children: []*nodeBuilder{newNullBuilder(), newNullBuilder()}}
}

// toLevel re-grows the builder to the target level by wrapping it in
// single-child parents until the levels align. Null stays null: an
// empty subtree fits any level.
func (self *nodeBuilder) toLevel(target uint8) {
	if self.isNull() {
		return
	}
	if self.level > target {
		log.Panic("toLevel shrinking ", self.level, " -> ", target)
	}
	for self.level < target {
		inner := *self
		*self = nodeBuilder{state: stateNew, level: inner.level + 1, loaded: true,
			entries:  nil,
			children: []*nodeBuilder{&inner}}
	}
}

// apply performs one EntryChange by recursive descent, returning
// whether the subtree actually mutated.
func (self *nodeBuilder) apply(ctx context.Context, storage NodeStorage, calc LevelCalculator, diffType DiffType, change *EntryChange) (bool, error) {
	changeLevel := calc(change.Entry.Key)
	mlog.Printf2("pagetree/builder", "nb.apply %v level %d", change, changeLevel)
	if self.isNull() {
		if change.Deleted {
			if diffType == DiffTypeCloud {
				return false, fmt.Errorf("%w: delete of missing key %x",
					ErrInvalidArgument, change.Entry.Key)
			}
			return false, nil
		}
		self.becomeSingleEntry(changeLevel, change.Entry)
		return true, nil
	}
	if err := self.ensureLoaded(ctx, storage); err != nil {
		return false, err
	}
	if changeLevel < self.level {
		idx := lowerBound(self.entries, change.Entry.Key)
		child := self.children[idx]
		mutated, err := child.apply(ctx, storage, calc, diffType, change)
		if err != nil || !mutated {
			return mutated, err
		}
		self.markNew()
		if child.isNull() {
			if len(self.entries) == 0 {
				// Wrapper whose only subtree vanished.
				self.becomeNull()
			}
		} else {
			child.toLevel(self.level - 1)
		}
		return true, nil
	}
	if change.Deleted {
		return self.delete(ctx, storage, changeLevel, diffType, &change.Entry)
	}
	return self.update(ctx, storage, changeLevel, diffType, &change.Entry)
}

// update inserts or overwrites an entry whose level is >= this
// node's level.
func (self *nodeBuilder) update(ctx context.Context, storage NodeStorage, changeLevel uint8, diffType DiffType, entry *Entry) (bool, error) {
	if changeLevel > self.level {
		// The new key towers above the current subtree; split
		// the whole subtree around it and grow a new parent.
		right := newNullBuilder()
		if err := self.split(ctx, storage, entry.Key, right); err != nil {
			return false, err
		}
		left := &nodeBuilder{}
		*left = *self
		left.toLevel(changeLevel - 1)
		right.toLevel(changeLevel - 1)
		*self = nodeBuilder{state: stateNew, level: changeLevel, loaded: true,
			entries:  []Entry{*entry},
			children: []*nodeBuilder{left, right}}
		return true, nil
	}
	idx := lowerBound(self.entries, entry.Key)
	if idx < len(self.entries) && bytes.Equal(self.entries[idx].Key, entry.Key) {
		if diffType == DiffTypeCloud {
			return false, fmt.Errorf("%w: insert of already present key %x",
				ErrInvalidArgument, entry.Key)
		}
		if self.entries[idx].ValueEquals(entry) {
			// Same value and priority; EntryId is
			// provenance only and never mutates the tree
			// on its own.
			return false, nil
		}
		self.entries = append([]Entry(nil), self.entries...)
		self.entries[idx] = *entry
		self.markNew()
		return true, nil
	}
	// New key at exactly this level: split the straddling child
	// and wedge the entry plus the right half in.
	child := self.children[idx]
	right := newNullBuilder()
	if err := child.split(ctx, storage, entry.Key, right); err != nil {
		return false, err
	}
	entries := make([]Entry, 0, len(self.entries)+1)
	entries = append(entries, self.entries[:idx]...)
	entries = append(entries, *entry)
	entries = append(entries, self.entries[idx:]...)
	children := make([]*nodeBuilder, 0, len(self.children)+1)
	children = append(children, self.children[:idx+1]...)
	children = append(children, right)
	children = append(children, self.children[idx+1:]...)
	self.entries = entries
	self.children = children
	self.markNew()
	return true, nil
}

// delete removes the entry for a key whose level is >= this node's
// level, merging the flanking children.
func (self *nodeBuilder) delete(ctx context.Context, storage NodeStorage, keyLevel uint8, diffType DiffType, entry *Entry) (bool, error) {
	if keyLevel > self.level {
		// The key cannot exist anywhere in this subtree.
		if diffType == DiffTypeCloud {
			return false, fmt.Errorf("%w: delete of missing key %x",
				ErrInvalidArgument, entry.Key)
		}
		return false, nil
	}
	idx := lowerBound(self.entries, entry.Key)
	if idx >= len(self.entries) || !bytes.Equal(self.entries[idx].Key, entry.Key) {
		if diffType == DiffTypeCloud {
			return false, fmt.Errorf("%w: delete of missing key %x",
				ErrInvalidArgument, entry.Key)
		}
		return false, nil
	}
	if diffType == DiffTypeCloud && !self.entries[idx].Equals(entry) {
		return false, fmt.Errorf("%w: delete of mismatched entry %x",
			ErrInvalidArgument, entry.Key)
	}
	left := self.children[idx]
	if err := left.merge(ctx, storage, self.children[idx+1]); err != nil {
		return false, err
	}
	entries := make([]Entry, 0, len(self.entries)-1)
	entries = append(entries, self.entries[:idx]...)
	entries = append(entries, self.entries[idx+1:]...)
	children := make([]*nodeBuilder, 0, len(self.children)-1)
	children = append(children, self.children[:idx+1]...)
	children = append(children, self.children[idx+2:]...)
	self.entries = entries
	self.children = children
	self.markNew()
	if len(self.entries) == 0 && left.isNull() {
		self.becomeNull()
	}
	return true, nil
}

// split partitions the subtree at the key boundary: everything less
// than key stays in self, everything greater moves to right. The key
// itself must not be present.
func (self *nodeBuilder) split(ctx context.Context, storage NodeStorage, key []byte, right *nodeBuilder) error {
	if self.isNull() {
		return nil
	}
	if err := self.ensureLoaded(ctx, storage); err != nil {
		return err
	}
	idx := lowerBound(self.entries, key)
	if idx < len(self.entries) && bytes.Equal(self.entries[idx].Key, key) {
		log.Panic("split at existing key")
	}
	straddle := self.children[idx]
	if straddle.isNull() {
		// Boundary falls between entries cleanly; the
		// degenerate extremes keep the node whole (and, when
		// it goes right, still unmodified and shareable).
		if idx == 0 {
			*right = *self
			self.becomeNull()
			return nil
		}
		if idx == len(self.entries) {
			return nil
		}
	}
	childRight := newNullBuilder()
	if err := straddle.split(ctx, storage, key, childRight); err != nil {
		return err
	}
	rightEntries := append([]Entry(nil), self.entries[idx:]...)
	rightChildren := make([]*nodeBuilder, 0, len(self.children)-idx)
	rightChildren = append(rightChildren, childRight)
	rightChildren = append(rightChildren, self.children[idx+1:]...)

	leftEntries := append([]Entry(nil), self.entries[:idx]...)
	leftChildren := make([]*nodeBuilder, 0, idx+1)
	leftChildren = append(leftChildren, self.children[:idx]...)
	leftChildren = append(leftChildren, straddle)

	level := self.level
	if len(rightEntries) == 0 && childRight.isNull() {
		// right stays null
	} else {
		*right = nodeBuilder{state: stateNew, level: level, loaded: true,
			entries: rightEntries, children: rightChildren}
	}
	if len(leftEntries) == 0 && straddle.isNull() {
		self.becomeNull()
	} else {
		self.entries = leftEntries
		self.children = leftChildren
		self.markNew()
	}
	return nil
}

// merge concatenates other (whose keys are all greater) onto self.
// Either side may be null; otherwise levels must match.
func (self *nodeBuilder) merge(ctx context.Context, storage NodeStorage, other *nodeBuilder) error {
	if other.isNull() {
		return nil
	}
	if self.isNull() {
		*self = *other
		return nil
	}
	if err := self.ensureLoaded(ctx, storage); err != nil {
		return err
	}
	if err := other.ensureLoaded(ctx, storage); err != nil {
		return err
	}
	if self.level != other.level {
		log.Panic("merge level mismatch ", self.level, " != ", other.level)
	}
	n := len(self.entries)
	if err := self.children[n].merge(ctx, storage, other.children[0]); err != nil {
		return err
	}
	entries := make([]Entry, 0, n+len(other.entries))
	entries = append(entries, self.entries...)
	entries = append(entries, other.entries...)
	children := make([]*nodeBuilder, 0, len(self.children)+len(other.children)-1)
	children = append(children, self.children...)
	children = append(children, other.children[1:]...)
	self.entries = entries
	self.children = children
	self.markNew()
	return nil
}

// toNode converts a frontier-ready NEW builder to its persistable
// form. All children must be existing or null by now.
func (self *nodeBuilder) toNode() *TreeNode {
	node := &TreeNode{Level: self.level, Entries: self.entries}
	for i, c := range self.children {
		switch c.state {
		case stateExisting:
			if node.Children == nil {
				node.Children = make(map[int]ObjectIdentifier)
			}
			node.Children[i] = c.object.ObjectIdentifier
		case stateNull:
		default:
			log.Panic("toNode with new child")
		}
	}
	return node
}

// collectFrontier gathers the maximal set of NEW nodes with no NEW
// descendants left to resolve.
func (self *nodeBuilder) collectFrontier(out *[]*nodeBuilder) {
	if self.state != stateNew {
		return
	}
	ready := true
	for _, c := range self.children {
		if c.state == stateNew {
			ready = false
			c.collectFrontier(out)
		}
	}
	if ready {
		*out = append(*out, self)
	}
}

// build materializes all NEW nodes bottom-up: each round persists one
// frontier as a batch of concurrent writes, then repeats until the
// root itself is existing. Inlined identifiers are never reported as
// new nodes. The receiver must not be null.
func (self *nodeBuilder) build(ctx context.Context, storage NodeStorage) (ObjectIdentifier, []ObjectIdentifier, error) {
	newIds := []ObjectIdentifier{}
	seen := make(map[ObjectDigest]bool)
	for self.state == stateNew {
		if err := checkInterrupt(ctx); err != nil {
			return ObjectIdentifier{}, nil, err
		}
		var frontier []*nodeBuilder
		self.collectFrontier(&frontier)
		mlog.Printf2("pagetree/builder", "nb.build frontier of %d", len(frontier))
		ids := make([]ObjectIdentifier, len(frontier))
		errs := make([]error, len(frontier))
		var wg util.SimpleWaitGroup
		for i, fb := range frontier {
			i, fb := i, fb
			wg.Go(func() {
				ids[i], errs[i] = storage.WriteNode(ctx, fb.toNode())
			})
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return ObjectIdentifier{}, nil, err
			}
		}
		for i, fb := range frontier {
			fb.state = stateExisting
			fb.object = ids[i].ToLocated()
			if !ids[i].Inline && !seen[ids[i].Digest] {
				seen[ids[i].Digest] = true
				newIds = append(newIds, ids[i])
			}
		}
	}
	if self.state != stateExisting {
		log.Panic("build of null builder")
	}
	return self.object.ObjectIdentifier, newIds, nil
}
