/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Fri Mar  1 15:10:44 2019 mstenber
 * Last modified: Fri Mar  1 15:31:02 2019 mstenber
 * Edit time:     14 min
 *
 */

package pagetree

import (
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/stvp/assert"
)

func TestDefaultNodeLevel(t *testing.T) {
	t.Parallel()
	// Reference count of leading zero bytes, with the stock
	// library as the independent hash implementation.
	for i := 0; i < 1000; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		h := sha256.Sum256(key)
		var expected uint8
		for _, b := range h {
			if b != 0 {
				break
			}
			expected++
		}
		assert.Equal(t, DefaultNodeLevel(key), expected)
	}
	// Levels depend only on the key.
	assert.Equal(t, DefaultNodeLevel([]byte("foo")), DefaultNodeLevel([]byte("foo")))
}
