/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Fri Mar  1 11:20:02 2019 mstenber
 * Last modified: Fri Mar 22 16:58:33 2019 mstenber
 * Edit time:     74 min
 *
 */

package pagetree

import (
	"context"
	"testing"

	"github.com/stvp/assert"
)

// walk drains the iterator, collecting entry keys and new-node counts.
func walk(t *testing.T, it *Iterator) (keys []string, nodes int) {
	ctx := context.Background()
	for !it.Finished() {
		if it.IsNewNode() {
			nodes++
		}
		if it.HasValue() {
			keys = append(keys, string(it.CurrentEntry().Key))
		}
		err := it.Advance(ctx)
		assert.Nil(t, err)
	}
	return
}

func TestIteratorOrder(t *testing.T) {
	t.Parallel()
	st, root := makeFixtureTree(t)
	it := NewIterator(st)
	it.Init(root)
	keys, nodes := walk(t, it)
	assert.Equal(t, keys, fixtureKeys)
	assert.Equal(t, nodes, 4)
}

func TestIteratorEmpty(t *testing.T) {
	t.Parallel()
	st := NewDummyStorage()

	// No tree at all.
	it := NewIterator(st)
	it.Init(LocatedObjectIdentifier{})
	assert.True(t, it.Finished())

	// The canonical empty tree.
	root, _, err := CreateTree(context.Background(), st, fixtureLevels.calc, nil)
	assert.Nil(t, err)
	it.Init(root.ToLocated())
	keys, nodes := walk(t, it)
	assert.Equal(t, len(keys), 0)
	assert.Equal(t, nodes, 1)
}

func TestIteratorSkipTo(t *testing.T) {
	t.Parallel()
	st, root := makeFixtureTree(t)
	ctx := context.Background()

	// Between keys.
	it := NewIterator(st)
	it.Init(root)
	assert.Nil(t, it.SkipTo(ctx, []byte("045")))
	keys, _ := walk(t, it)
	assert.Equal(t, keys, []string{"05", "06", "07", "08"})

	// Exact hit lands directly on the entry.
	it.Init(root)
	assert.Nil(t, it.SkipTo(ctx, []byte("07")))
	assert.True(t, it.HasValue())
	assert.Equal(t, string(it.CurrentEntry().Key), "07")

	// Past the end.
	it.Init(root)
	assert.Nil(t, it.SkipTo(ctx, []byte("zz")))
	keys, _ = walk(t, it)
	assert.Equal(t, len(keys), 0)

	// SkipTo only narrows; a target behind the cursor is a no-op.
	it.Init(root)
	assert.Nil(t, it.SkipTo(ctx, []byte("06")))
	assert.Nil(t, it.SkipTo(ctx, []byte("02")))
	keys, _ = walk(t, it)
	assert.Equal(t, keys, []string{"06", "07", "08"})
}

func TestIteratorSkipSubTree(t *testing.T) {
	t.Parallel()
	st, root := makeFixtureTree(t)
	ctx := context.Background()

	// Skipping the root subtree skips the whole tree, without a
	// single read.
	it := NewIterator(st)
	it.Init(root)
	reads := st.Reads
	assert.True(t, it.IsNewNode())
	it.SkipNextSubTree()
	assert.True(t, it.Finished())
	assert.Equal(t, st.Reads, reads)

	// Skipping the first leaf resumes at the entry above it.
	it.Init(root)
	assert.Nil(t, it.Advance(ctx)) // descend into first leaf
	assert.True(t, it.IsNewNode())
	it.SkipNextSubTree()
	keys, _ := walk(t, it)
	assert.Equal(t, keys, []string{"03", "04", "05", "06", "07", "08"})
}
