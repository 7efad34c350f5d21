/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar  5 10:33:02 2019 mstenber
 * Last modified: Tue Mar  5 10:35:40 2019 mstenber
 * Edit time:     2 min
 *
 */

package gid

import "testing"

func TestGetGoroutineID(t *testing.T) {
	id := GetGoroutineID()
	if id == 0 {
		t.Fatal("zero goroutine id")
	}
	if GetGoroutineID() != id {
		t.Fatal("id not stable within goroutine")
	}
	done := make(chan uint64)
	go func() {
		done <- GetGoroutineID()
	}()
	if <-done == id {
		t.Fatal("distinct goroutines share an id")
	}
}

func BenchmarkGetGoroutineID(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GetGoroutineID()
	}
}
