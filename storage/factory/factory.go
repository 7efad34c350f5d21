/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 25 15:01:10 2019 mstenber
 * Last modified: Wed Mar 20 10:30:11 2019 mstenber
 * Edit time:     34 min
 *
 */

package factory

import (
	"log"
	"sort"

	"github.com/fingon/go-pagetree/codec"
	"github.com/fingon/go-pagetree/mlog"
	"github.com/fingon/go-pagetree/storage"
	"github.com/fingon/go-pagetree/storage/badger"
	"github.com/fingon/go-pagetree/storage/bolt"
	"github.com/fingon/go-pagetree/storage/file"
	"github.com/fingon/go-pagetree/storage/inmemory"
)

type factoryCallback func(config storage.BackendConfiguration) storage.Backend

var backendFactories = map[string]factoryCallback{
	"inmemory": func(config storage.BackendConfiguration) storage.Backend {
		return inmemory.NewInMemoryBackend()
	},
	"badger": func(config storage.BackendConfiguration) storage.Backend {
		return badger.NewBadgerBackend(config.Directory)
	},
	"bolt": func(config storage.BackendConfiguration) storage.Backend {
		return bolt.NewBoltBackend(config.Directory)
	},
	"file": func(config storage.BackendConfiguration) storage.Backend {
		return file.NewFileBackend(config.Directory)
	}}

func List() []string {
	keys := make([]string, 0, len(backendFactories))
	for k := range backendFactories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func New(name, dir string) storage.Backend {
	var config storage.BackendConfiguration
	config.Directory = dir
	return NewWithConfig(name, config)
}

// NewWithConfig assembles the backend stack: named base backend, then
// codec wrapping if a password is set, then cache wrapping if a cache
// size is set. The codec sits below the cache so cached blocks are
// plaintext.
func NewWithConfig(name string, config storage.BackendConfiguration) storage.Backend {
	mlog.Printf2("storage/factory/factory", "f.NewWithConfig %v", name)
	cb := backendFactories[name]
	if cb == nil {
		log.Panicf("unknown backend: %s", name)
	}
	be := cb(config)
	if config.Password != "" {
		iterations := config.Iterations
		if iterations == 0 {
			iterations = 12345
		}
		c := codec.CodecChain{}.Init(
			codec.EncryptingCodec{}.Init(
				[]byte(config.Password), []byte(config.Salt),
				iterations),
			&codec.CompressingCodec{})
		be = storage.NewCodecBackend(be, c)
	}
	if config.CacheSize > 0 {
		be = storage.NewCacheBackend(be, config.CacheSize)
	}
	return be
}
