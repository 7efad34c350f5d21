/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 11 14:21:08 2019 mstenber
 * Last modified: Tue Mar 19 10:44:30 2019 mstenber
 * Edit time:     71 min
 *
 */

// mlog is maybe-log: a small wrapper of the standard 'log' that
// prints only what the MLOG environment variable (or -mlog flag, or
// SetPattern) selects by file/package regexp. What is not selected
// costs next to nothing.
package mlog

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/fingon/go-pagetree/util/gid"
)

var logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)

const (
	stateUninitialized int32 = iota
	stateDisabled
	stateEnabled
)

var status int32 = stateUninitialized

var mutex sync.Mutex

// Guarded by mutex.
var flagPattern *string
var pattern string
var patternRegexp *regexp.Regexp
var file2Enabled map[string]bool

func init() {
	flagPattern = flag.String("mlog", "",
		"Enable logging based on the given file/line regular expression")
}

// IsEnabled can be used to check whether mlog does anything at all
// before assembling something expensive to log.
func IsEnabled() bool {
	return atomic.LoadInt32(&status) != stateDisabled
}

// SetLogger overrides the output logger; the returned undo function
// restores the previous one.
func SetLogger(l *log.Logger) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	old := logger
	logger = l
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = old
	}
}

// SetPattern overrides the environment-provided pattern; the returned
// undo function restores the old state.
func SetPattern(p string) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	old := pattern
	setPattern(p)
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		setPattern(old)
	}
}

func setPattern(p string) {
	pattern = p
	if p == "" {
		atomic.StoreInt32(&status, stateDisabled)
		return
	}
	patternRegexp = regexp.MustCompile(p)
	file2Enabled = make(map[string]bool)
	atomic.StoreInt32(&status, stateEnabled)
}

func initialize() {
	p := os.Getenv("MLOG")
	if *flagPattern != "" {
		p = *flagPattern
	}
	setPattern(p)
}

// Printf is a drop-in replacement of log.Printf. It still pays for
// runtime.Caller when mlog is enabled at all; prefer Printf2.
func Printf(format string, args ...interface{}) {
	if atomic.LoadInt32(&status) == stateDisabled {
		return
	}
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	Printf2(file, format, args...)
}

// Printf2 is the premier choice: it is supplied the file/package name
// by hand and therefore costs only an atomic load when the name does
// not match.
func Printf2(file string, format string, args ...interface{}) {
	if atomic.LoadInt32(&status) == stateDisabled {
		return
	}
	mutex.Lock()
	defer mutex.Unlock()
	if atomic.LoadInt32(&status) == stateUninitialized {
		initialize()
		if atomic.LoadInt32(&status) == stateDisabled {
			return
		}
	}
	enabled, seen := file2Enabled[file]
	if !seen {
		enabled = patternRegexp.FindString(file) != ""
		file2Enabled[file] = enabled
	}
	if !enabled {
		return
	}
	// Bake in goroutine id so interleaved operations can be told apart.
	logger.Printf(fmt.Sprintf("%8d %s", gid.GetGoroutineID(), format), args...)
}

// Panicf logs (unconditionally) and panics.
func Panicf(format string, args ...interface{}) {
	logger.Printf(format, args...)
	panic(fmt.Sprintf(format, args...))
}
