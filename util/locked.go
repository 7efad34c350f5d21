/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 11 15:02:21 2019 mstenber
 * Last modified: Mon Feb 11 15:11:46 2019 mstenber
 * Edit time:     9 min
 *
 */

package util

import "sync"

// MutexLocked is a mutex with the defer x.Locked()() convenience.
type MutexLocked sync.Mutex

func (self *MutexLocked) Locked() (unlock func()) {
	mut := (*sync.Mutex)(self)
	mut.Lock()
	return func() {
		mut.Unlock()
	}
}
