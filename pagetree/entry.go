/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 10:12:40 2019 mstenber
 * Last modified: Fri Mar 15 09:44:21 2019 mstenber
 * Edit time:     58 min
 *
 */

package pagetree

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// KeyPriority hints whether a value should be synchronized eagerly or
// fetched on demand. The tree algorithms themselves never act on it;
// it is stored and carried for the sync layer.
type KeyPriority byte

const (
	KeyPriorityEager KeyPriority = iota
	KeyPriorityLazy
)

// DiffType selects the validation semantics of a mutation batch.
type DiffType int

const (
	// DiffTypeJournal is tolerant: deletes of missing keys and
	// re-inserts of identical values are no-ops.
	DiffTypeJournal DiffType = iota

	// DiffTypeCloud is strict: every change must match the tree
	// state exactly or the batch fails with ErrInvalidArgument.
	DiffTypeCloud
)

// Entry is one key's current binding within a tree.
type Entry struct {
	Key      []byte
	ObjectId ObjectIdentifier
	Priority KeyPriority

	// EntryId is opaque mutation provenance. It is stored, and it
	// participates in node content (and therefore digests), but
	// it is NOT part of value equality: re-setting an identical
	// value with a new EntryId never mutates the tree.
	EntryId string
}

func (self *Entry) String() string {
	return fmt.Sprintf("entry{%x=%v}", self.Key, self.ObjectId)
}

// ValueEquals is value equality as the mutation logic sees it;
// EntryId is provenance only and excluded here.
func (self *Entry) ValueEquals(other *Entry) bool {
	return self.ObjectId == other.ObjectId && self.Priority == other.Priority
}

// Equals is full stored-content equality, EntryId included. Two nodes
// whose entries differ only in EntryId have different digests, so
// diffing uses this rather than ValueEquals.
func (self *Entry) Equals(other *Entry) bool {
	return bytes.Equal(self.Key, other.Key) && self.ObjectId == other.ObjectId &&
		self.Priority == other.Priority && self.EntryId == other.EntryId
}

// EntryChange is one requested mutation: an entry to insert/update,
// or with Deleted set, a key to remove. For deletions under
// DiffTypeCloud the non-key fields are validated against the tree;
// under DiffTypeJournal only the key matters.
type EntryChange struct {
	Entry   Entry
	Deleted bool
}

func (self *EntryChange) String() string {
	if self.Deleted {
		return fmt.Sprintf("change{-%x}", self.Entry.Key)
	}
	return fmt.Sprintf("change{+%v}", &self.Entry)
}

// NewEntryId produces a fresh provenance tag for locally originated
// changes.
func NewEntryId() string {
	return uuid.New().String()
}
