/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 10:40:11 2019 mstenber
 * Last modified: Tue Feb 12 10:51:30 2019 mstenber
 * Edit time:     12 min
 *
 */

package pagetree

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument indicates a DiffTypeCloud change that
	// does not match the tree state exactly. The enclosing batch
	// is aborted; no new root is produced.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInterrupted indicates the operation's context was
	// cancelled at a suspension point. Nothing durable happened.
	ErrInterrupted = errors.New("interrupted")

	// ErrNodeNotFound indicates a referenced node is absent from
	// the store.
	ErrNodeNotFound = errors.New("node not found")
)

// checkInterrupt observes cancellation; it is called before every
// node load and persist so that an interrupted operation never half
// finishes.
func checkInterrupt(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInterrupted, err)
	}
	return nil
}
