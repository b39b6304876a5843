package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// SystemDir holds library metadata inside the library directory.
	SystemDir = ".notes"

	indexFile   = "index.db"
	notesBucket = "notes" // key: id -> indexEntry JSON
)

// indexEntry is the cached metadata for one package.
type indexEntry struct {
	Name    string    `json:"name"`
	Rel     string    `json:"rel"`
	ModTime time.Time `json:"modTime"`
}

// index persists package metadata so listing does not have to stat every
// package's contents.
type index struct {
	db *bbolt.DB
}

func openIndex(dir string) (*index, error) {
	sys := filepath.Join(dir, SystemDir)
	if err := os.MkdirAll(sys, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", sys, err)
	}

	db, err := bbolt.Open(filepath.Join(sys, indexFile), 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(notesBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init index: %w", err)
	}

	return &index{db: db}, nil
}

func (x *index) Close() error {
	return x.db.Close()
}

// Get returns the entry for id. An undecodable entry is reported as a miss.
func (x *index) Get(id string) (indexEntry, bool) {
	var entry indexEntry
	var ok bool
	_ = x.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(notesBucket)).Get([]byte(id))
		if data == nil {
			return nil
		}
		ok = json.Unmarshal(data, &entry) == nil
		return nil
	})
	return entry, ok
}

func (x *index) Set(id string, entry indexEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return x.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(notesBucket)).Put([]byte(id), data)
	})
}

func (x *index) Delete(id string) error {
	return x.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(notesBucket)).Delete([]byte(id))
	})
}

// Replace stores entries and removes every id not among them, in one
// transaction.
func (x *index) Replace(entries map[string]indexEntry) error {
	return x.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(notesBucket))

		var stale [][]byte
		if err := b.ForEach(func(k, _ []byte) error {
			if _, keep := entries[string(k)]; !keep {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}

		for id, entry := range entries {
			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(id), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Range calls fn for every entry in key order until fn returns false.
func (x *index) Range(fn func(id string, entry indexEntry) bool) error {
	return x.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(notesBucket)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var entry indexEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			if !fn(string(k), entry) {
				break
			}
		}
		return nil
	})
}

func (x *index) Len() int {
	n := 0
	_ = x.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(notesBucket)).Stats().KeyN
		return nil
	})
	return n
}
