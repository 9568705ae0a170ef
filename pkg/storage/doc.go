/*
Package storage provides the process-local persistent key/value store used by
the cache and the credential store.

Both consumers go through the narrow Store interface (Get/Set/Remove over
strings) and never reach the underlying medium directly, so tests can swap in
MemoryStore without touching disk.

# Backends

	┌──────────── Store ────────────┐
	│  Get(key)  Set(key, v)  Remove │
	└───────┬──────────┬──────────┬──┘
	        │          │          │
	   BoltStore  BadgerStore  MemoryStore
	   (default)

BoltStore:
  - File: <dataDir>/karatekonnect.db
  - Single bucket "kv"
  - Reads in db.View, writes in db.Update (serialized, fsync on commit)

BadgerStore:
  - Directory: <dataDir>/badger
  - LSM tree; suited to frequent overwrites of the cache entry

MemoryStore:
  - Mutex-protected map, lost on exit
  - Used by tests and by --backend memory

# Keys

Two independent entries are stored:

	karatekonnect_cache   JSON {"content": <Document>, "timestamp": <epoch ms>}
	karatekonnect_token   raw bearer token

A missing key is reported as ErrNotFound; every other error is a failure of
the medium itself.
*/
package storage
