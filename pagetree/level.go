/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Feb 12 11:55:48 2019 mstenber
 * Last modified: Tue Feb 19 08:31:12 2019 mstenber
 * Edit time:     24 min
 *
 */

package pagetree

import "github.com/minio/sha256-simd"

// LevelCalculator assigns every key a node level, purely and stably:
// the same key maps to the same level in every tree, forever. Leaves
// are level 0. Tests substitute their own calculator to force
// specific shapes.
type LevelCalculator func(key []byte) uint8

// DefaultNodeLevel is the production calculator: the number of
// leading zero bytes in the key's sha256. Levels are geometrically
// distributed with ratio 1/256, which yields an expected fanout of
// ~256 and, as the level depends on nothing but the key, a tree shape
// that is a pure function of the final key set.
func DefaultNodeLevel(key []byte) uint8 {
	h := sha256.Sum256(key)
	var level uint8
	for _, b := range h {
		if b != 0 {
			break
		}
		level++
	}
	return level
}
