/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 11 15:14:33 2019 mstenber
 * Last modified: Mon Feb 11 15:16:58 2019 mstenber
 * Edit time:     2 min
 *
 */

package util

import "sync"

// SimpleWaitGroup is sync.WaitGroup with the bookkeeping of Go baked
// in; a fan-out of goroutines joined with one Wait.
type SimpleWaitGroup struct {
	sync.WaitGroup
}

func (self *SimpleWaitGroup) Go(cb func()) {
	self.Add(1)
	go func() {
		defer self.Done()
		cb()
	}()
}
