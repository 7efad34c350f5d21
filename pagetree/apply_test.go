/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Fri Mar  1 10:02:18 2019 mstenber
 * Last modified: Fri Mar 22 16:40:09 2019 mstenber
 * Edit time:     131 min
 *
 */

package pagetree

import (
	"context"
	"errors"
	"testing"

	"github.com/stvp/assert"
)

func TestCreateTreeBasic(t *testing.T) {
	t.Parallel()
	st, root := makeFixtureTree(t)
	assertTreeKeys(t, st, root, fixtureKeys)

	node, err := st.ReadNode(context.Background(), root)
	assert.Nil(t, err)
	assert.Equal(t, node.Level, uint8(1))
	assert.Equal(t, len(node.Entries), 2)
	assert.Equal(t, string(node.Entries[0].Key), "03")
	assert.Equal(t, string(node.Entries[1].Key), "07")
	assert.Equal(t, len(node.Children), 3)
	assert.Equal(t, st.NodeCount(), 4)
}

func TestCreateTreeEmpty(t *testing.T) {
	t.Parallel()
	st := NewDummyStorage()
	root, newIds, err := CreateTree(context.Background(), st, fixtureLevels.calc, nil)
	assert.Nil(t, err)
	// The canonical empty node is small enough to inline.
	assert.True(t, root.Inline)
	assert.Equal(t, len(newIds), 0)
	assertTreeKeys(t, st, root.ToLocated(), nil)
}

func TestHistoryIndependence(t *testing.T) {
	t.Parallel()
	st := NewDummyStorage()
	ctx := context.Background()

	// All at once.
	root1, _, err := CreateTree(ctx, st, fixtureLevels.calc, insertChanges(fixtureKeys...))
	assert.Nil(t, err)

	// Reverse order.
	reversed := make([]string, len(fixtureKeys))
	for i, k := range fixtureKeys {
		reversed[len(fixtureKeys)-i-1] = k
	}
	root2, _, err := CreateTree(ctx, st, fixtureLevels.calc, insertChanges(reversed...))
	assert.Nil(t, err)
	assert.Equal(t, root1, root2)

	// One key at a time, with a detour through a key that is
	// deleted again.
	root3, _, err := CreateTree(ctx, st, fixtureLevels.calc, insertChanges("055"))
	assert.Nil(t, err)
	cur := root3.ToLocated()
	for _, k := range fixtureKeys {
		id, _, err := ApplyChanges(ctx, st, fixtureLevels.calc, cur,
			[]EntryChange{insertChange(k)})
		assert.Nil(t, err)
		cur = id.ToLocated()
	}
	id, _, err := ApplyChanges(ctx, st, fixtureLevels.calc, cur,
		[]EntryChange{deleteChange("055")})
	assert.Nil(t, err)
	assert.Equal(t, root1, id)
}

func TestJournalIdempotence(t *testing.T) {
	t.Parallel()
	st, root := makeFixtureTree(t)
	writes := st.Writes

	// Same value, even with a fresh EntryId, is a no-op.
	e := testEntry("05")
	e.EntryId = NewEntryId()
	id, newIds, err := ApplyChanges(context.Background(), st, fixtureLevels.calc, root,
		[]EntryChange{{Entry: e}})
	assert.Nil(t, err)
	assert.Equal(t, id, root.ObjectIdentifier)
	assert.Equal(t, len(newIds), 0)
	assert.Equal(t, st.Writes, writes)

	// So is deleting a key that was never there.
	id, newIds, err = ApplyChanges(context.Background(), st, fixtureLevels.calc, root,
		[]EntryChange{deleteChange("099")})
	assert.Nil(t, err)
	assert.Equal(t, id, root.ObjectIdentifier)
	assert.Equal(t, len(newIds), 0)
}

func TestJournalOverwrite(t *testing.T) {
	t.Parallel()
	st, root := makeFixtureTree(t)

	e := testEntry("05")
	e.ObjectId = IdentifierForContent(bytes100("new value for 05"))
	id, newIds, err := ApplyChanges(context.Background(), st, fixtureLevels.calc, root,
		[]EntryChange{{Entry: e}})
	assert.Nil(t, err)
	assert.NotEqual(t, id, root.ObjectIdentifier)
	// Only the middle leaf and the root are rewritten.
	assert.Equal(t, len(newIds), 2)

	got, err := GetEntry(context.Background(), st, id.ToLocated(), []byte("05"))
	assert.Nil(t, err)
	assert.True(t, got != nil)
	assert.Equal(t, got.ObjectId, e.ObjectId)
}

func TestInsertRewritesSinglePath(t *testing.T) {
	t.Parallel()
	st, root := makeFixtureTree(t)
	count := st.NodeCount()

	id, newIds, err := ApplyChanges(context.Background(), st, fixtureLevels.calc, root,
		[]EntryChange{insertChange("071")})
	assert.Nil(t, err)
	// New last leaf + new root; the other leaves are shared with
	// the old tree.
	assert.Equal(t, len(newIds), 2)
	assert.Equal(t, st.NodeCount(), count+2)
	assertTreeKeys(t, st, id.ToLocated(),
		[]string{"01", "02", "03", "04", "05", "06", "07", "071", "08"})
}

func TestDeleteMergesNeighbors(t *testing.T) {
	t.Parallel()
	st, root := makeFixtureTree(t)
	ctx := context.Background()

	id, newIds, err := ApplyChanges(ctx, st, fixtureLevels.calc, root,
		[]EntryChange{deleteChange("03")})
	assert.Nil(t, err)
	// Merged leaf + new root.
	assert.Equal(t, len(newIds), 2)
	assertTreeKeys(t, st, id.ToLocated(),
		[]string{"01", "02", "04", "05", "06", "07", "08"})

	// The result is indistinguishable from never having had 03.
	fresh, _, err := CreateTree(ctx, st, fixtureLevels.calc,
		insertChanges("01", "02", "04", "05", "06", "07", "08"))
	assert.Nil(t, err)
	assert.Equal(t, id, fresh)
}

func TestDeleteToEmpty(t *testing.T) {
	t.Parallel()
	st, root := makeFixtureTree(t)
	ctx := context.Background()

	changes := make([]EntryChange, 0, len(fixtureKeys))
	for _, k := range fixtureKeys {
		changes = append(changes, deleteChange(k))
	}
	id, _, err := ApplyChanges(ctx, st, fixtureLevels.calc, root, changes)
	assert.Nil(t, err)

	empty, _, err := CreateTree(ctx, st, fixtureLevels.calc, nil)
	assert.Nil(t, err)
	assert.Equal(t, id, empty)
	assertTreeKeys(t, st, id.ToLocated(), nil)
}

func TestHighLevelKey(t *testing.T) {
	t.Parallel()
	st, root := makeFixtureTree(t)
	ctx := context.Background()
	levels := dummyCalculator{"03": 1, "07": 1, "0511": 2}

	// The new key's level exceeds the root's; the tree grows a new
	// top around the split halves.
	id, _, err := ApplyChanges(ctx, st, levels.calc, root,
		[]EntryChange{insertChange("0511")})
	assert.Nil(t, err)
	node, err := st.ReadNode(ctx, id.ToLocated())
	assert.Nil(t, err)
	assert.Equal(t, node.Level, uint8(2))
	assert.Equal(t, len(node.Entries), 1)
	assert.Equal(t, string(node.Entries[0].Key), "0511")
	assertTreeKeys(t, st, id.ToLocated(),
		[]string{"01", "02", "03", "04", "05", "0511", "06", "07", "08"})

	// Deleting it again restores the original root exactly.
	back, _, err := ApplyChanges(ctx, st, levels.calc, id.ToLocated(),
		[]EntryChange{deleteChange("0511")})
	assert.Nil(t, err)
	assert.Equal(t, back, root.ObjectIdentifier)
}

func TestCloudApply(t *testing.T) {
	t.Parallel()
	st, root := makeFixtureTree(t)
	ctx := context.Background()

	// A valid strict batch produces the same tree as the tolerant one.
	id1, _, err := ApplyChangesFromCloud(ctx, st, fixtureLevels.calc, root,
		[]EntryChange{insertChange("099"), deleteChange("02")})
	assert.Nil(t, err)
	id2, _, err := ApplyChanges(ctx, st, fixtureLevels.calc, root,
		[]EntryChange{insertChange("099"), deleteChange("02")})
	assert.Nil(t, err)
	assert.Equal(t, id1, id2)
}

func TestCloudErrors(t *testing.T) {
	t.Parallel()
	st, root := makeFixtureTree(t)
	ctx := context.Background()

	// Insert of an already present key.
	_, _, err := ApplyChangesFromCloud(ctx, st, fixtureLevels.calc, root,
		[]EntryChange{insertChange("05")})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	// Delete of a missing key.
	_, _, err = ApplyChangesFromCloud(ctx, st, fixtureLevels.calc, root,
		[]EntryChange{deleteChange("099")})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	// Delete whose entry does not match the stored one.
	e := testEntry("05")
	e.EntryId = "someone-else"
	_, _, err = ApplyChangesFromCloud(ctx, st, fixtureLevels.calc, root,
		[]EntryChange{{Entry: e, Deleted: true}})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	// Failed batches leave no new root behind.
	assertTreeKeys(t, st, root, fixtureKeys)
}

func TestApplyInterrupt(t *testing.T) {
	t.Parallel()
	st, root := makeFixtureTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := ApplyChanges(ctx, st, fixtureLevels.calc, root,
		[]EntryChange{insertChange("099")})
	assert.True(t, errors.Is(err, ErrInterrupted))
}

func TestGetEntry(t *testing.T) {
	t.Parallel()
	st, root := makeFixtureTree(t)
	ctx := context.Background()

	e, err := GetEntry(ctx, st, root, []byte("04"))
	assert.Nil(t, err)
	assert.True(t, e != nil)
	assert.Equal(t, e.EntryId, "e-04")

	e, err = GetEntry(ctx, st, root, []byte("041"))
	assert.Nil(t, err)
	assert.True(t, e == nil)
}

func bytes100(s string) []byte {
	b := []byte(s)
	for len(b) <= MaxInlineContentLength {
		b = append(b, s...)
	}
	return b
}
