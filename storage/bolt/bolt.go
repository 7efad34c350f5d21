/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 25 13:40:12 2019 mstenber
 * Last modified: Tue Mar 12 15:28:50 2019 mstenber
 * Edit time:     41 min
 *
 */

package bolt

import (
	"fmt"
	"log"

	bbolt "github.com/coreos/bbolt"

	"github.com/fingon/go-pagetree/mlog"
	"github.com/fingon/go-pagetree/storage"
)

var metadataKey = []byte("metadata")
var dataKey = []byte("data")
var nameKey = []byte("name")

// boltBackend provides on-disk storage in a single bbolt database.
//
// - metadata bucket: block id -> metadata
// - data bucket: block id -> data (immutable)
// - name bucket: name -> block id
type boltBackend struct {
	storage.DirectoryBackendBase

	db *bbolt.DB
}

var _ storage.Backend = &boltBackend{}

func NewBoltBackend(dir string) storage.Backend {
	self := &boltBackend{}
	(&self.DirectoryBackendBase).Init(dir)
	db, err := bbolt.Open(fmt.Sprintf("%s/bbolt.db", dir), 0600, nil)
	if err != nil {
		log.Panic("bbolt.Open", err)
	}
	self.db = db
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, k := range [][]byte{metadataKey, dataKey, nameKey} {
			if _, err := tx.CreateBucketIfNotExists(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Panic(err)
	}
	return self
}

func (self *boltBackend) Close() {
	self.db.Close()
}

func (self *boltBackend) DeleteBlock(b *storage.Block) {
	mlog.Printf2("storage/bolt/bolt", "bb.DeleteBlock %x", b.Id)
	bid := []byte(b.Id)
	self.db.Update(func(tx *bbolt.Tx) error {
		tx.Bucket(metadataKey).Delete(bid)
		tx.Bucket(dataKey).Delete(bid)
		return nil
	})
}

func (self *boltBackend) GetBlockById(id string) *storage.Block {
	bid := []byte(id)
	var mv, dv []byte
	self.db.View(func(tx *bbolt.Tx) error {
		// Get results are valid only within the transaction.
		if v := tx.Bucket(metadataKey).Get(bid); v != nil {
			mv = append([]byte{}, v...)
		}
		if v := tx.Bucket(dataKey).Get(bid); v != nil {
			dv = append([]byte{}, v...)
		}
		return nil
	})
	if mv == nil {
		return nil
	}
	b := &storage.Block{Id: id, Data: dv}
	if err := b.BlockMetadata.FromBytes(mv); err != nil {
		log.Panic(err)
	}
	mlog.Printf2("storage/bolt/bolt", "bb.GetBlockById %x", id)
	return b
}

func (self *boltBackend) GetBlockIdByName(name string) (s string) {
	self.db.View(func(tx *bbolt.Tx) error {
		s = string(tx.Bucket(nameKey).Get([]byte(name)))
		return nil
	})
	return
}

func (self *boltBackend) SetNameToBlockId(name, blockId string) {
	self.db.Update(func(tx *bbolt.Tx) error {
		if blockId == "" {
			return tx.Bucket(nameKey).Delete([]byte(name))
		}
		return tx.Bucket(nameKey).Put([]byte(name), []byte(blockId))
	})
}

func (self *boltBackend) StoreBlock(b *storage.Block) {
	if b.Data == nil {
		log.Panicf("data not set in StoreBlock")
	}
	bid := []byte(b.Id)
	mlog.Printf2("storage/bolt/bolt", "bb.StoreBlock %x (%d b)", bid, len(b.Data))
	self.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(metadataKey).Get(bid) != nil {
			return nil
		}
		tx.Bucket(metadataKey).Put(bid, b.BlockMetadata.ToBytes())
		tx.Bucket(dataKey).Put(bid, b.Data)
		return nil
	})
}

func (self *boltBackend) UpdateBlock(b *storage.Block) {
	mlog.Printf2("storage/bolt/bolt", "bb.UpdateBlock %x", b.Id)
	bid := []byte(b.Id)
	self.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(metadataKey).Get(bid) == nil {
			log.Panic("Non-existent block id in UpdateBlock")
		}
		tx.Bucket(metadataKey).Put(bid, b.BlockMetadata.ToBytes())
		return nil
	})
}
