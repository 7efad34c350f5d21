/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 25 13:02:50 2019 mstenber
 * Last modified: Wed Mar 20 10:12:44 2019 mstenber
 * Edit time:     88 min
 *
 */

package file

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fingon/go-pagetree/mlog"
	"github.com/fingon/go-pagetree/storage"
	"github.com/fingon/go-pagetree/util"
)

// fileBackend stores the blocks in a file directory hierarchy.
//
// Name encoding:
//
// - names/ directory has files with hex encoded name of link,
// containing raw bytes for the block id.
//
// Block encoding:
//
// - blocks/ directory contains data blocks, with hex dumped block ids
// as names, followed by underscore, refcount, underscore, and type.
//
// Few bytes of the block id choose the subdirectory, as keeping all
// blocks in the same directory does not scale.

const directoryBytes = 2 // 65536 subdirs should be plenty

type fileBackend struct {
	storage.DirectoryBackendBase
	created map[string]bool
	lock    util.MutexLocked
}

var _ storage.Backend = &fileBackend{}

func NewFileBackend(dir string) storage.Backend {
	self := &fileBackend{}
	(&self.DirectoryBackendBase).Init(dir)
	return self
}

func (self *fileBackend) Close() {
}

func (self *fileBackend) DeleteBlock(b *storage.Block) {
	defer self.lock.Locked()()
	_, path, ok := self.findBlockPath(b.Id)
	if !ok {
		log.Panic("Non-existent block id in DeleteBlock")
	}
	if err := os.Remove(path); err != nil {
		log.Panic(err)
	}
}

func (self *fileBackend) mkdirAll(path string) {
	if self.created == nil {
		self.created = make(map[string]bool)
	}
	if path == "" || self.created[path] {
		return
	}
	if path != self.Dir {
		dir, _ := filepath.Split(path)
		if len(dir) < len(path) {
			self.mkdirAll(dir)
		}
	}
	os.Mkdir(path, 0700)
	self.created[path] = true
}

func (self *fileBackend) GetBlockById(id string) *storage.Block {
	defer self.lock.Locked()()
	mlog.Printf2("storage/file/file", "fb.GetBlockById %x", id)
	b, path, ok := self.findBlockPath(id)
	if !ok {
		return nil
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		log.Panic(err)
	}
	b.Data = data
	return b
}

func (self *fileBackend) GetBlockIdByName(name string) string {
	defer self.lock.Locked()()
	mlog.Printf2("storage/file/file", "fb.GetBlockIdByName %v", name)
	path := fmt.Sprintf("%s/names/%x", self.Dir, name)
	b, err := ioutil.ReadFile(path)
	if err != nil {
		mlog.Printf2("storage/file/file", " nope, %v", err)
		return ""
	}
	return string(b)
}

func (self *fileBackend) SetNameToBlockId(name, blockId string) {
	defer self.lock.Locked()()
	mlog.Printf2("storage/file/file", "fb.SetNameToBlockId %v %x", name, blockId)
	dir := fmt.Sprintf("%s/names", self.Dir)
	path := fmt.Sprintf("%s/%x", dir, name)
	self.mkdirAll(dir)
	if blockId == "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Panic(err)
		}
		return
	}
	if err := ioutil.WriteFile(path, []byte(blockId), 0600); err != nil {
		log.Panic(err)
	}
}

func (self *fileBackend) StoreBlock(b *storage.Block) {
	defer self.lock.Locked()()
	if _, _, ok := self.findBlockPath(b.Id); ok {
		return
	}
	dir, path := self.blockPath(b.Id, &b.BlockMetadata)
	self.mkdirAll(dir)
	if err := ioutil.WriteFile(path, b.Data, 0600); err != nil {
		log.Panic(err)
	}
	mlog.Printf2("storage/file/file", "fb.StoreBlock %x to %v", b.Id, path)
}

func (self *fileBackend) UpdateBlock(b *storage.Block) {
	defer self.lock.Locked()()
	mlog.Printf2("storage/file/file", "fb.UpdateBlock %x", b.Id)
	_, oldpath, ok := self.findBlockPath(b.Id)
	if !ok {
		log.Panic("Non-existent block id in UpdateBlock")
	}
	_, newpath := self.blockPath(b.Id, &b.BlockMetadata)
	if oldpath == newpath {
		return
	}
	if err := os.Rename(oldpath, newpath); err != nil {
		log.Panic(err)
	}
}

func (self *fileBackend) blockPath(id string, metadata *storage.BlockMetadata) (dir string, full string) {
	dir = fmt.Sprintf("%s/blocks/%x", self.Dir, id[:directoryBytes])
	full = fmt.Sprintf("%s/%x_%v_%v",
		dir, id[directoryBytes:], metadata.RefCount, metadata.Type)
	return
}

// findBlockPath locates the current file of the block, decoding the
// metadata from the file name.
func (self *fileBackend) findBlockPath(id string) (b *storage.Block, path string, ok bool) {
	dir := fmt.Sprintf("%s/blocks/%x", self.Dir, id[:directoryBytes])
	prefix := fmt.Sprintf("%x_", id[directoryBytes:])
	fis, err := ioutil.ReadDir(dir)
	if err != nil {
		// If we cannot access the directory, block does not exist.
		return nil, "", false
	}
	for _, v := range fis {
		n := v.Name()
		if len(n) < len(prefix) || n[:len(prefix)] != prefix {
			continue
		}
		arr := strings.Split(n, "_")
		if len(arr) != 3 {
			continue
		}
		refcount, err := strconv.Atoi(arr[1])
		if err != nil {
			continue
		}
		typ, err := strconv.Atoi(arr[2])
		if err != nil {
			continue
		}
		meta := storage.BlockMetadata{RefCount: int32(refcount),
			Type: storage.BlockType(typ)}
		b = &storage.Block{Id: id, BlockMetadata: meta}
		return b, fmt.Sprintf("%s/%s", dir, n), true
	}
	return nil, "", false
}
