/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 25 14:05:33 2019 mstenber
 * Last modified: Tue Mar 12 15:44:02 2019 mstenber
 * Edit time:     52 min
 *
 */

package badger

import (
	"log"

	"github.com/dgraph-io/badger"

	"github.com/fingon/go-pagetree/mlog"
	"github.com/fingon/go-pagetree/storage"
)

// badgerBackend provides on-disk storage.
//
// - key prefix 1 + block id -> metadata
// - key prefix 2 + block id -> data (immutable)
// - key prefix 3 + name -> block id
type badgerBackend struct {
	storage.DirectoryBackendBase
	db *badger.DB
}

var _ storage.Backend = &badgerBackend{}

func NewBadgerBackend(dir string) storage.Backend {
	self := &badgerBackend{}
	(&self.DirectoryBackendBase).Init(dir)
	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	db, err := badger.Open(opts)
	if err != nil {
		log.Panic("badger.Open", err)
	}
	self.db = db
	return self
}

func (self *badgerBackend) Close() {
	self.db.Close()
}

func (self *badgerBackend) DeleteBlock(b *storage.Block) {
	mlog.Printf2("storage/badger/badger", "bad.DeleteBlock %x", b.Id)
	k := append([]byte("1"), []byte(b.Id)...)
	if err := self.delete(k); err != nil {
		log.Panic("txn.Delete", err)
	}
	k = append([]byte("2"), []byte(b.Id)...)
	if err := self.delete(k); err != nil {
		log.Panic("txn.Delete 2", err)
	}
}

func (self *badgerBackend) getKKValue(prefix, suffix []byte) (v []byte, err error) {
	err = self.db.View(func(txn *badger.Txn) error {
		k := append(prefix, suffix...)
		i, err := txn.Get(k)
		if err == nil {
			v, err = i.ValueCopy(nil)
		}
		return err
	})
	return
}

func (self *badgerBackend) GetBlockById(id string) *storage.Block {
	mv, err := self.getKKValue([]byte("1"), []byte(id))
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		log.Panic("get error:", err)
	}
	dv, err := self.getKKValue([]byte("2"), []byte(id))
	if err != nil && err != badger.ErrKeyNotFound {
		log.Panic("get error:", err)
	}
	b := &storage.Block{Id: id, Data: dv}
	if err := b.BlockMetadata.FromBytes(mv); err != nil {
		log.Panic(err)
	}
	mlog.Printf2("storage/badger/badger", "bad.GetBlockById %x", id)
	return b
}

func (self *badgerBackend) GetBlockIdByName(name string) string {
	bv, err := self.getKKValue([]byte("3"), []byte(name))
	if err == badger.ErrKeyNotFound {
		return ""
	}
	if err != nil {
		log.Panic("get error:", err)
	}
	return string(bv)
}

func (self *badgerBackend) setKKValue(prefix, suffix, value []byte) {
	k := append(prefix, suffix...)
	if err := self.set(k, value); err != nil {
		log.Panic("set", err)
	}
}

func (self *badgerBackend) delete(k []byte) error {
	return self.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(k)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

func (self *badgerBackend) set(k, v []byte) error {
	return self.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
}

func (self *badgerBackend) SetNameToBlockId(name, blockId string) {
	mlog.Printf2("storage/badger/badger", "bad.SetNameToBlockId %s = %x", name, blockId)
	if blockId == "" {
		k := append([]byte("3"), []byte(name)...)
		if err := self.delete(k); err != nil {
			log.Panic("txn.Delete", err)
		}
		return
	}
	self.setKKValue([]byte("3"), []byte(name), []byte(blockId))
}

func (self *badgerBackend) StoreBlock(b *storage.Block) {
	mlog.Printf2("storage/badger/badger", "bad.StoreBlock %x (%d b)", b.Id, len(b.Data))
	if _, err := self.getKKValue([]byte("1"), []byte(b.Id)); err == nil {
		return
	}
	self.setKKValue([]byte("1"), []byte(b.Id), b.BlockMetadata.ToBytes())
	self.setKKValue([]byte("2"), []byte(b.Id), b.Data)
}

func (self *badgerBackend) UpdateBlock(b *storage.Block) {
	mlog.Printf2("storage/badger/badger", "bad.UpdateBlock %x", b.Id)
	self.setKKValue([]byte("1"), []byte(b.Id), b.BlockMetadata.ToBytes())
}
