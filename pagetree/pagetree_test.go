/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Fri Mar  1 09:12:41 2019 mstenber
 * Last modified: Fri Mar 22 15:01:12 2019 mstenber
 * Edit time:     58 min
 *
 */

package pagetree

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/stvp/assert"
)

// dummyCalculator assigns levels from a fixed table; unknown keys are
// leaves. Hash-derived levels are unpredictable to write scenarios
// against, so the structural tests pick them explicitly.
type dummyCalculator map[string]uint8

func (self dummyCalculator) calc(key []byte) uint8 {
	return self[string(key)]
}

// The shared fixture tree:
//
//	level 1:         [03       07]
//	level 0:  [01 02]  [04 05 06]  [08]
var fixtureLevels = dummyCalculator{"03": 1, "07": 1}

var fixtureKeys = []string{"01", "02", "03", "04", "05", "06", "07", "08"}

// testEntry derives a deterministic entry for a key. The value
// content is repeated enough to stay out of the inline range.
func testEntry(key string) Entry {
	content := bytes.Repeat([]byte(key), MaxInlineContentLength)
	return Entry{Key: []byte(key),
		ObjectId: IdentifierForContent(content),
		EntryId:  "e-" + key}
}

func insertChange(key string) EntryChange {
	return EntryChange{Entry: testEntry(key)}
}

func deleteChange(key string) EntryChange {
	return EntryChange{Entry: testEntry(key), Deleted: true}
}

func insertChanges(keys ...string) []EntryChange {
	changes := make([]EntryChange, 0, len(keys))
	for _, k := range keys {
		changes = append(changes, insertChange(k))
	}
	return changes
}

// makeFixtureTree builds the shared fixture tree into fresh storage.
func makeFixtureTree(t *testing.T) (*DummyStorage, LocatedObjectIdentifier) {
	st := NewDummyStorage()
	root, newIds, err := CreateTree(context.Background(), st, fixtureLevels.calc,
		insertChanges(fixtureKeys...))
	assert.Nil(t, err)
	assert.Equal(t, len(newIds), 4) // root + 3 leaves
	return st, root.ToLocated()
}

func entryKeys(entries []Entry) []string {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, string(e.Key))
	}
	return keys
}

func assertTreeKeys(t *testing.T, st *DummyStorage, root LocatedObjectIdentifier, keys []string) {
	entries, err := GetEntriesList(context.Background(), st, root)
	assert.Nil(t, err)
	if len(entries) != len(keys) {
		log.Panic("key count mismatch: ", entryKeys(entries), " != ", keys)
	}
	for i, e := range entries {
		assert.Equal(t, string(e.Key), keys[i])
	}
}
