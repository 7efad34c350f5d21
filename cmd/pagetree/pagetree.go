/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar  6 11:10:31 2019 mstenber
 * Last modified: Fri Mar 22 18:20:14 2019 mstenber
 * Edit time:     84 min
 *
 */

// pagetree command is a small inspection and manipulation tool for
// page trees kept in a local block store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fingon/go-pagetree/pagetree"
	"github.com/fingon/go-pagetree/storage"
	"github.com/fingon/go-pagetree/storage/factory"
	"github.com/fingon/go-pagetree/storage/nodestore"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage:

%s [flags] STORAGEDIR COMMAND [ARGS]

Commands:
  set KEY VALUE   insert or overwrite a key
  get KEY         print a key's value
  delete KEY      remove a key
  list            print all keys
  objects         print the identifiers reachable from the root

`, os.Args[0])
		flag.PrintDefaults()
	}
	password := flag.String("password", "", "Password (empty = stored in the clear)")
	salt := flag.String("salt", "salt", "Salt")
	pageName := flag.String("page", "root", "Name of the page to operate on")
	backendp := flag.String("backend", "badger",
		fmt.Sprintf("Backend to use (possible: %v)", factory.List()))
	cachesize := flag.Int("cachesize", 10000, "Number of blocks to cache")

	flag.Parse()
	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}
	storedir := flag.Arg(0)
	command := flag.Arg(1)
	args := flag.Args()[2:]

	conf := storage.BackendConfiguration{Directory: storedir,
		CacheSize: *cachesize, Password: *password, Salt: *salt}
	be := factory.NewWithConfig(*backendp, conf)
	defer be.Close()
	ns := nodestore.New(be)

	ctx := context.Background()
	root, _ := ns.GetPageRoot(*pageName)

	switch command {
	case "set":
		if len(args) != 2 {
			flag.Usage()
			os.Exit(1)
		}
		entry := pagetree.Entry{Key: []byte(args[0]),
			ObjectId: ns.StoreValue([]byte(args[1])),
			EntryId:  pagetree.NewEntryId()}
		newRoot, newIds, err := pagetree.ApplyChanges(ctx, ns,
			pagetree.DefaultNodeLevel, root.ToLocated(),
			[]pagetree.EntryChange{{Entry: entry}})
		if err != nil {
			log.Fatal(err)
		}
		ns.SetPageRoot(*pageName, newRoot)
		fmt.Printf("%s (%d new nodes)\n", newRoot, len(newIds))
	case "get":
		if len(args) != 1 {
			flag.Usage()
			os.Exit(1)
		}
		entry, err := pagetree.GetEntry(ctx, ns, root.ToLocated(), []byte(args[0]))
		if err != nil {
			log.Fatal(err)
		}
		if entry == nil {
			log.Fatalf("no such key: %s", args[0])
		}
		os.Stdout.Write(ns.GetValue(entry.ObjectId))
	case "delete":
		if len(args) != 1 {
			flag.Usage()
			os.Exit(1)
		}
		change := pagetree.EntryChange{
			Entry:   pagetree.Entry{Key: []byte(args[0])},
			Deleted: true}
		newRoot, _, err := pagetree.ApplyChanges(ctx, ns,
			pagetree.DefaultNodeLevel, root.ToLocated(),
			[]pagetree.EntryChange{change})
		if err != nil {
			log.Fatal(err)
		}
		ns.SetPageRoot(*pageName, newRoot)
		fmt.Printf("%s\n", newRoot)
	case "list":
		err := pagetree.ForEachEntry(ctx, ns, root.ToLocated(), nil,
			func(entry *pagetree.Entry) bool {
				fmt.Printf("%s %s\n", entry.Key, entry.ObjectId)
				return true
			})
		if err != nil {
			log.Fatal(err)
		}
	case "objects":
		objects, err := pagetree.CollectObjects(ctx, ns, root.ToLocated())
		if err != nil {
			log.Fatal(err)
		}
		for _, id := range objects {
			fmt.Printf("%s\n", id)
		}
	default:
		flag.Usage()
		os.Exit(1)
	}
}
