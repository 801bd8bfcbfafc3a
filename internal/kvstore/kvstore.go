// Package kvstore provides the persistent key-value store that holds the
// session token, the decoded user claims and the wizard resume point.
//
// Values survive process restarts when the store is opened on disk. The
// in-memory mode exists for tests and for throwaway sessions.
//
// Key types:
//   - [KV] is the contract consumed by the session, router and progress packages
//   - [Store] is the BadgerDB-backed implementation
package kvstore

import (
	"errors"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// Keys used by the onboarding core.
const (
	// KeyToken holds the session credential issued at login.
	KeyToken = "token"

	// KeyUserData holds the serialized claims blob (role, joinee type,
	// edit rights, per-form flags, permissions).
	KeyUserData = "userData"

	// KeyActiveStep holds the wizard resume index as a decimal string.
	KeyActiveStep = "activeStep"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("key not found")

// KV is the get/set/remove/clear contract of the persistent store.
//
// Get returns [ErrNotFound] for missing keys. Clear removes every key and is
// used on logout.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	Clear() error
}

// Options configures a Store.
type Options struct {
	Dir      string // on-disk directory (ignored when InMemory is true)
	InMemory bool   // use in-memory storage (for tests)
}

// Store wraps a Badger database.
type Store struct {
	db *badger.DB
}

var _ KV = (*Store)(nil)

// Open creates or opens a BadgerDB store. A WAL left truncated by an unclean
// shutdown is recovered by reopening once, which lets Badger repair it.
func Open(opts Options) (*Store, error) {
	bopts := badgerOptions(opts)

	db, err := badger.Open(bopts)
	if err != nil && !opts.InMemory && needsTruncation(err) {
		db, err = badger.Open(bopts)
	}
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func badgerOptions(opts Options) badger.Options {
	if opts.InMemory {
		bopts := badger.DefaultOptions("").WithInMemory(true)
		bopts.Logger = nil
		return bopts
	}
	bopts := badger.DefaultOptions(opts.Dir)
	bopts.Logger = nil
	return bopts
}

func needsTruncation(err error) bool {
	return strings.Contains(err.Error(), "Log truncate required")
}

// Get retrieves the value for a key. Returns ErrNotFound if the key does not exist.
func (s *Store) Get(key string) (string, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// Set stores a key-value pair.
func (s *Store) Set(key, value string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
}

// Remove deletes a key. Removing a missing key is not an error.
func (s *Store) Remove(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Clear drops every key in the store.
func (s *Store) Clear() error {
	return s.db.DropAll()
}

// Keys returns all stored keys. Used by the CLI for diagnostics.
func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
