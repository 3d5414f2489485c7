// Package memo provides a bbolt-backed persistent implementation of
// [josh.MemoStore], so the same (filter, object) -> object mapping survives
// across invocations of josh-filter against the same repository.
package memo

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/go-git/go-git/v5/plumbing"
	"go.etcd.io/bbolt"

	"github.com/josh-project/josh-go"
)

var ErrNilDB = errors.New("no db")

var treeBucket = []byte("trees")
var commitBucket = []byte("commits")

// Store is a [josh.MemoStore] backed by a single bbolt database file.
type Store struct {
	db        *bbolt.DB
	tmpDBPath string
}

// Open opens (creating if necessary) the bbolt database at dbPath. An empty
// dbPath opens a private temp file that Close removes, for one-shot CLI
// runs that still want the layered in-process cache in front of something
// disk-backed during a single invocation.
func Open(dbPath string) (*Store, error) {
	tmp := ""
	if dbPath == "" {
		dir, err := os.MkdirTemp("", "josh-memo-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create tmp dir for memo db: %w", err)
		}
		tmp = path.Join(dir, "memo.db")
		dbPath = tmp
	}

	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open memo db at %s: %w", dbPath, err)
	}

	return &Store{db: db, tmpDBPath: tmp}, nil
}

// Close closes the underlying database, and removes it if it was a
// temporary one opened via an empty dbPath.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	if s.tmpDBPath != "" {
		_ = os.RemoveAll(path.Dir(s.tmpDBPath))
	}
	return err
}

func bucketFor(kind josh.ObjectKind) []byte {
	if kind == josh.KindCommitObject {
		return commitBucket
	}
	return treeBucket
}

// key is filter-id (32 bytes) || input hash (20 bytes).
func memoKey(filter josh.FilterID, input plumbing.Hash) []byte {
	k := make([]byte, 0, len(filter)+len(input))
	k = append(k, filter[:]...)
	k = append(k, input[:]...)
	return k
}

func (s *Store) Get(filter josh.FilterID, input plumbing.Hash, kind josh.ObjectKind) (plumbing.Hash, bool, error) {
	if s.db == nil {
		return plumbing.ZeroHash, false, ErrNilDB
	}

	var out plumbing.Hash
	var hit bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketFor(kind))
		if b == nil {
			return nil
		}
		v := b.Get(memoKey(filter, input))
		if v == nil {
			return nil
		}
		if len(v) != len(out) {
			return fmt.Errorf("corrupt memo entry: got %d bytes, want %d", len(v), len(out))
		}
		copy(out[:], v)
		hit = true
		return nil
	})
	return out, hit, err
}

func (s *Store) Put(filter josh.FilterID, input plumbing.Hash, kind josh.ObjectKind, output plumbing.Hash) error {
	if s.db == nil {
		return ErrNilDB
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketFor(kind))
		if err != nil {
			return err
		}
		return b.Put(memoKey(filter, input), output[:])
	})
}

// Stats reports the number of memoized entries per bucket.
type Stats struct {
	Trees   int
	Commits int
}

func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(treeBucket); b != nil {
			st.Trees = b.Stats().KeyN
		}
		if b := tx.Bucket(commitBucket); b != nil {
			st.Commits = b.Stats().KeyN
		}
		return nil
	})
	return st, err
}
