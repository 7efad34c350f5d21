/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 26 09:05:48 2019 mstenber
 * Last modified: Fri Mar 22 14:12:33 2019 mstenber
 * Edit time:     243 min
 *
 */

package pagetree

import (
	"bytes"

	"github.com/fingon/go-pagetree/mlog"

	"context"
)

// EntryCallback consumes one entry; returning false stops the
// enumeration early (without error).
type EntryCallback func(entry *Entry) bool

// NodeCallback consumes one tree-node identifier during traversal.
type NodeCallback func(id ObjectIdentifier) bool

// DiffCallback consumes one two-way difference, expressed as the
// change that turns base into other: an insert/update carries the
// other side's entry, a removal carries the base entry with Deleted
// set.
type DiffCallback func(change *EntryChange) bool

// ThreeWayChange is one key's nullable snapshots in base, left and
// right. At least one of Left/Right differs from Base.
type ThreeWayChange struct {
	Base, Left, Right *Entry
}

// ThreeWayDiffCallback consumes one three-way difference.
type ThreeWayDiffCallback func(change *ThreeWayChange) bool

// ForEachEntry enumerates a tree's entries in strictly increasing key
// order, starting at minKey (nil = from the beginning).
func ForEachEntry(ctx context.Context, storage NodeStorage, root LocatedObjectIdentifier, minKey []byte, onEntry EntryCallback) error {
	return forEach(ctx, storage, root, minKey, onEntry, nil)
}

// ForEachEntryAndNode additionally reports the identifier of every
// node entered during the traversal; sync and GC use it to collect
// all reachable objects in one walk.
func ForEachEntryAndNode(ctx context.Context, storage NodeStorage, root LocatedObjectIdentifier, minKey []byte, onEntry EntryCallback, onNode NodeCallback) error {
	return forEach(ctx, storage, root, minKey, onEntry, onNode)
}

func forEach(ctx context.Context, storage NodeStorage, root LocatedObjectIdentifier, minKey []byte, onEntry EntryCallback, onNode NodeCallback) error {
	it := NewIterator(storage)
	it.Init(root)
	if len(minKey) > 0 {
		if err := it.SkipTo(ctx, minKey); err != nil {
			return err
		}
	}
	for !it.Finished() {
		if onNode != nil && it.IsNewNode() {
			if !onNode(it.CurrentNodeIdentifier()) {
				return nil
			}
		}
		if it.HasValue() {
			if onEntry != nil && !onEntry(it.CurrentEntry()) {
				return nil
			}
		}
		if err := it.Advance(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CollectObjects gathers the identifiers of every node and every
// value object reachable from root.
func CollectObjects(ctx context.Context, storage NodeStorage, root LocatedObjectIdentifier) (map[ObjectDigest]ObjectIdentifier, error) {
	objects := make(map[ObjectDigest]ObjectIdentifier)
	err := forEach(ctx, storage, root, nil,
		func(entry *Entry) bool {
			if !entry.ObjectId.Inline {
				objects[entry.ObjectId.Digest] = entry.ObjectId
			}
			return true
		},
		func(id ObjectIdentifier) bool {
			if !id.Inline {
				objects[id.Digest] = id
			}
			return true
		})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// ValueFetcher is the sync hook used by PrefetchEagerValues.
type ValueFetcher interface {
	FetchValue(ctx context.Context, id LocatedObjectIdentifier) error
}

// PrefetchEagerValues walks the tree and asks the fetcher for every
// KeyPriorityEager value, so a freshly synchronized page has its
// eager values present before it is exposed.
func PrefetchEagerValues(ctx context.Context, storage NodeStorage, root LocatedObjectIdentifier, fetcher ValueFetcher) error {
	var ferr error
	err := ForEachEntry(ctx, storage, root, nil, func(entry *Entry) bool {
		if entry.Priority != KeyPriorityEager || entry.ObjectId.Inline {
			return true
		}
		if ferr = fetcher.FetchValue(ctx, entry.ObjectId.InLocationOf(root)); ferr != nil {
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	return ferr
}

// settle advances an iterator to its next interesting position:
// finished, at an entry, or just inside a new node.
func settle(ctx context.Context, it *Iterator) error {
	for !it.Finished() && !it.HasValue() && !it.IsNewNode() {
		if err := it.Advance(ctx); err != nil {
			return err
		}
	}
	return nil
}

// step moves past the current position and settles again.
func step(ctx context.Context, it *Iterator) error {
	if err := it.Advance(ctx); err != nil {
		return err
	}
	return settle(ctx, it)
}

// ForEachDiff walks base and other in lock-step and emits their
// differences in strictly increasing key order, starting at minKey.
// Subtrees with equal identifiers are skipped without being visited.
func ForEachDiff(ctx context.Context, storage NodeStorage, base, other LocatedObjectIdentifier, minKey []byte, onDiff DiffCallback) error {
	mlog.Printf2("pagetree/diff", "ForEachDiff %v vs %v", base.ObjectIdentifier, other.ObjectIdentifier)
	left := NewIterator(storage)
	left.Init(base)
	right := NewIterator(storage)
	right.Init(other)
	for _, it := range []*Iterator{left, right} {
		if len(minKey) > 0 {
			if err := it.SkipTo(ctx, minKey); err != nil {
				return err
			}
		}
		if err := settle(ctx, it); err != nil {
			return err
		}
	}
	for {
		if left.Finished() && right.Finished() {
			return nil
		}
		if !left.Finished() && !right.Finished() &&
			left.IsNewNode() && right.IsNewNode() {
			if left.CurrentNodeIdentifier() == right.CurrentNodeIdentifier() {
				left.SkipNextSubTree()
				right.SkipNextSubTree()
			} else {
				if err := left.Advance(ctx); err != nil {
					return err
				}
				if err := right.Advance(ctx); err != nil {
					return err
				}
			}
			if err := settle(ctx, left); err != nil {
				return err
			}
			if err := settle(ctx, right); err != nil {
				return err
			}
			continue
		}
		if !left.Finished() && left.IsNewNode() {
			if err := step(ctx, left); err != nil {
				return err
			}
			continue
		}
		if !right.Finished() && right.IsNewNode() {
			if err := step(ctx, right); err != nil {
				return err
			}
			continue
		}
		// Both sides are now at a value or finished.
		var change EntryChange
		emit := true
		advanceLeft, advanceRight := false, false
		switch {
		case right.Finished():
			change = EntryChange{Entry: *left.CurrentEntry(), Deleted: true}
			advanceLeft = true
		case left.Finished():
			change = EntryChange{Entry: *right.CurrentEntry()}
			advanceRight = true
		default:
			cmp := bytes.Compare(left.CurrentEntry().Key, right.CurrentEntry().Key)
			switch {
			case cmp < 0:
				change = EntryChange{Entry: *left.CurrentEntry(), Deleted: true}
				advanceLeft = true
			case cmp > 0:
				change = EntryChange{Entry: *right.CurrentEntry()}
				advanceRight = true
			default:
				advanceLeft, advanceRight = true, true
				if left.CurrentEntry().Equals(right.CurrentEntry()) {
					emit = false
				} else {
					change = EntryChange{Entry: *right.CurrentEntry()}
				}
			}
		}
		if emit {
			if !onDiff(&change) {
				return nil
			}
		}
		if advanceLeft {
			if err := step(ctx, left); err != nil {
				return err
			}
		}
		if advanceRight {
			if err := step(ctx, right); err != nil {
				return err
			}
		}
	}
}

// ForEachThreeWayDiff walks base, left and right in lock-step and
// emits, for every key touched by left or right relative to base,
// one ThreeWayChange with the three nullable snapshots. Keys
// unchanged on both sides produce nothing.
func ForEachThreeWayDiff(ctx context.Context, storage NodeStorage, base, leftRoot, rightRoot LocatedObjectIdentifier, minKey []byte, onDiff ThreeWayDiffCallback) error {
	mlog.Printf2("pagetree/diff", "ForEachThreeWayDiff %v | %v | %v",
		base.ObjectIdentifier, leftRoot.ObjectIdentifier, rightRoot.ObjectIdentifier)
	its := make([]*Iterator, 3)
	for i, root := range []LocatedObjectIdentifier{base, leftRoot, rightRoot} {
		its[i] = NewIterator(storage)
		its[i].Init(root)
		if len(minKey) > 0 {
			if err := its[i].SkipTo(ctx, minKey); err != nil {
				return err
			}
		}
		if err := settle(ctx, its[i]); err != nil {
			return err
		}
	}
	for {
		finished := true
		for _, it := range its {
			if !it.Finished() {
				finished = false
			}
		}
		if finished {
			return nil
		}
		// Identical-subtree pruning is only sound when all
		// three line up: a base/left match, say, still has to
		// be walked for the base snapshots of right's changes.
		allNew := true
		for _, it := range its {
			if it.Finished() || !it.IsNewNode() {
				allNew = false
			}
		}
		if allNew &&
			its[0].CurrentNodeIdentifier() == its[1].CurrentNodeIdentifier() &&
			its[0].CurrentNodeIdentifier() == its[2].CurrentNodeIdentifier() {
			for _, it := range its {
				it.SkipNextSubTree()
				if err := settle(ctx, it); err != nil {
					return err
				}
			}
			continue
		}
		descended := false
		for _, it := range its {
			if !it.Finished() && it.IsNewNode() {
				if err := step(ctx, it); err != nil {
					return err
				}
				descended = true
			}
		}
		if descended {
			continue
		}
		// All three at a value or finished; handle the
		// smallest key present.
		var key []byte
		for _, it := range its {
			if it.Finished() {
				continue
			}
			k := it.CurrentEntry().Key
			if key == nil || bytes.Compare(k, key) < 0 {
				key = k
			}
		}
		snapshots := make([]*Entry, 3)
		for i, it := range its {
			if !it.Finished() && bytes.Equal(it.CurrentEntry().Key, key) {
				e := *it.CurrentEntry()
				snapshots[i] = &e
			}
		}
		leftChanged := !nilableEntryEquals(snapshots[0], snapshots[1])
		rightChanged := !nilableEntryEquals(snapshots[0], snapshots[2])
		if leftChanged || rightChanged {
			change := ThreeWayChange{Base: snapshots[0],
				Left: snapshots[1], Right: snapshots[2]}
			if !onDiff(&change) {
				return nil
			}
		}
		for i, it := range its {
			if snapshots[i] != nil {
				if err := step(ctx, it); err != nil {
					return err
				}
			}
		}
	}
}

func nilableEntryEquals(a, b *Entry) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equals(b)
}
