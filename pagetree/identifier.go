/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 09:41:02 2019 mstenber
 * Last modified: Thu Mar 14 10:02:55 2019 mstenber
 * Edit time:     41 min
 *
 */

package pagetree

import (
	"fmt"

	"github.com/minio/sha256-simd"
)

// MaxInlineContentLength is the largest content that is embedded
// directly in its identifier instead of being hashed and persisted.
const MaxInlineContentLength = 64

// ObjectDigest is the content hash of some stored bytes. Two equal
// digests refer to bit-identical content. For small content the bytes
// themselves are embedded in the digest (see ObjectIdentifier.Inline)
// and never hit storage on their own.
type ObjectDigest string

// ObjectIdentifier is an opaque, content-addressed handle to a value
// or a tree node.
type ObjectIdentifier struct {
	Digest ObjectDigest

	// Inline indicates the Digest IS the content; such
	// identifiers are never persisted separately and must not be
	// reported as new objects by Build.
	Inline bool
}

func (self ObjectIdentifier) String() string {
	if self.Inline {
		return fmt.Sprintf("oid{inline,%d bytes}", len(self.Digest))
	}
	return fmt.Sprintf("oid{%x..}", []byte(self.Digest)[:4])
}

// IdentifierForContent derives the content-addressed identifier for
// some bytes: small content inlines, the rest gets its sha256.
func IdentifierForContent(content []byte) ObjectIdentifier {
	if len(content) <= MaxInlineContentLength {
		return ObjectIdentifier{Digest: ObjectDigest(content), Inline: true}
	}
	h := sha256.Sum256(content)
	return ObjectIdentifier{Digest: ObjectDigest(h[:])}
}

// ObjectLocation hints where an object's bytes may be found. It
// affects only the retrieval strategy, never identity; two located
// identifiers with equal digests refer to the same content.
type ObjectLocation int

const (
	// LocationLocal means the object should be present in local storage.
	LocationLocal ObjectLocation = iota

	// LocationCommit means the object may have to be fetched from
	// the remote commit named in LocatedObjectIdentifier.CommitId.
	LocationCommit
)

// LocatedObjectIdentifier is ObjectIdentifier plus its retrieval hint.
type LocatedObjectIdentifier struct {
	ObjectIdentifier
	Location ObjectLocation
	CommitId string
}

// ToLocated wraps an identifier with the local-storage location hint.
func (self ObjectIdentifier) ToLocated() LocatedObjectIdentifier {
	return LocatedObjectIdentifier{ObjectIdentifier: self}
}

// InLocationOf keeps the identifier but takes the retrieval hint of
// other; children of a node are assumed retrievable wherever their
// parent was.
func (self ObjectIdentifier) InLocationOf(other LocatedObjectIdentifier) LocatedObjectIdentifier {
	return LocatedObjectIdentifier{ObjectIdentifier: self,
		Location: other.Location, CommitId: other.CommitId}
}
