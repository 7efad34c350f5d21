/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Feb 21 10:28:50 2019 mstenber
 * Last modified: Fri Mar 22 10:07:19 2019 mstenber
 * Edit time:     96 min
 *
 */

package pagetree

import (
	"bytes"

	"github.com/fingon/go-pagetree/mlog"

	"context"
)

// ApplyChanges applies an ordered list of changes to the tree rooted
// at root under the tolerant journal semantics, builds the result,
// and returns the new root identifier plus the identifiers of all
// newly persisted nodes. Any error aborts the whole batch; the
// original tree, being immutable, is unaffected.
func ApplyChanges(ctx context.Context, storage NodeStorage, calc LevelCalculator, root LocatedObjectIdentifier, changes []EntryChange) (ObjectIdentifier, []ObjectIdentifier, error) {
	return applyChanges(ctx, storage, calc, DiffTypeJournal, root, changes)
}

// ApplyChangesFromCloud is ApplyChanges under the strict cloud
// semantics: every change must match the tree state exactly or the
// batch fails with ErrInvalidArgument.
func ApplyChangesFromCloud(ctx context.Context, storage NodeStorage, calc LevelCalculator, root LocatedObjectIdentifier, changes []EntryChange) (ObjectIdentifier, []ObjectIdentifier, error) {
	return applyChanges(ctx, storage, calc, DiffTypeCloud, root, changes)
}

func applyChanges(ctx context.Context, storage NodeStorage, calc LevelCalculator, diffType DiffType, root LocatedObjectIdentifier, changes []EntryChange) (ObjectIdentifier, []ObjectIdentifier, error) {
	mlog.Printf2("pagetree/apply", "ApplyChanges %v, %d changes", root.ObjectIdentifier, len(changes))
	builder, err := builderFromIdentifier(ctx, storage, root)
	if err != nil {
		return ObjectIdentifier{}, nil, err
	}
	for i := range changes {
		if _, err := builder.apply(ctx, storage, calc, diffType, &changes[i]); err != nil {
			return ObjectIdentifier{}, nil, err
		}
	}
	// Deletions may leave single-child wrappers on top; the root
	// is canonically the node at the highest live level.
	for builder.state == stateNew && len(builder.entries) == 0 {
		child := builder.children[0]
		if child.isNull() {
			builder.becomeNull()
			break
		}
		builder = child
	}
	if builder.isNull() {
		// Empty tree: its root is the canonical empty node. The
		// store may inline it, in which case it is not a new node.
		if err := checkInterrupt(ctx); err != nil {
			return ObjectIdentifier{}, nil, err
		}
		id, err := storage.WriteNode(ctx, &TreeNode{})
		if err != nil {
			return ObjectIdentifier{}, nil, err
		}
		newIds := []ObjectIdentifier{}
		if !id.Inline {
			newIds = append(newIds, id)
		}
		return id, newIds, nil
	}
	if builder.state == stateExisting {
		// Net no-op batch: same root, nothing new.
		return builder.object.ObjectIdentifier, []ObjectIdentifier{}, nil
	}
	return builder.build(ctx, storage)
}

// CreateTree builds a fresh tree from scratch out of the given
// (non-deleting) changes.
func CreateTree(ctx context.Context, storage NodeStorage, calc LevelCalculator, changes []EntryChange) (ObjectIdentifier, []ObjectIdentifier, error) {
	return ApplyChanges(ctx, storage, calc, LocatedObjectIdentifier{}, changes)
}

// GetEntry looks up a single key; the entry is nil when the key is
// not present.
func GetEntry(ctx context.Context, storage NodeStorage, root LocatedObjectIdentifier, key []byte) (*Entry, error) {
	it := NewIterator(storage)
	it.Init(root)
	if err := it.SkipTo(ctx, key); err != nil {
		return nil, err
	}
	if it.HasValue() && bytes.Equal(it.CurrentEntry().Key, key) {
		e := *it.CurrentEntry()
		return &e, nil
	}
	return nil, nil
}

// GetEntriesList returns all entries of the tree in key order.
func GetEntriesList(ctx context.Context, storage NodeStorage, root LocatedObjectIdentifier) ([]Entry, error) {
	entries := []Entry{}
	err := ForEachEntry(ctx, storage, root, nil, func(entry *Entry) bool {
		entries = append(entries, *entry)
		return true
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
