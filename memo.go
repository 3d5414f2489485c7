package josh

import (
	"sync"

	"github.com/go-git/go-git/v5/plumbing"
)

// ObjectKind distinguishes the two kinds of memoized objects, per §3's
// memoization key `(filter-id, input-object-id, kind)`.
type ObjectKind byte

const (
	KindTreeObject ObjectKind = iota
	KindCommitObject
)

// MemoStore is the persistent key-value index from §4.5: a mapping
// (filter-id, object-id, kind) -> object-id, with EMPTY represented as
// plumbing.ZeroHash. It is opened once per process and handed to transforms
// as an explicit collaborator (§9), never reached for globally.
//
// Implementations must tolerate concurrent readers; writes for a given key
// are idempotent (I1: the same key always maps to the same value), so
// "last write wins with the same value" is always safe.
type MemoStore interface {
	Get(filter FilterID, input plumbing.Hash, kind ObjectKind) (output plumbing.Hash, hit bool, err error)
	Put(filter FilterID, input plumbing.Hash, kind ObjectKind, output plumbing.Hash) error
}

type memoKey struct {
	filter FilterID
	input  plumbing.Hash
	kind   ObjectKind
}

// memStore is an in-process, map-backed [MemoStore]. It's the "local table"
// §9 describes sitting in front of the persistent store; it is also a
// perfectly good standalone store for one-shot CLI invocations and tests.
type memStore struct {
	mu sync.RWMutex
	m  map[memoKey]plumbing.Hash
}

// NewMemMemoStore returns an in-memory [MemoStore] with no persistence
// across process restarts.
func NewMemMemoStore() MemoStore {
	return &memStore{m: make(map[memoKey]plumbing.Hash)}
}

func (s *memStore) Get(filter FilterID, input plumbing.Hash, kind ObjectKind) (plumbing.Hash, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[memoKey{filter, input, kind}]
	return v, ok, nil
}

func (s *memStore) Put(filter FilterID, input plumbing.Hash, kind ObjectKind, output plumbing.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[memoKey{filter, input, kind}] = output
	return nil
}

// layeredStore checks a fast local store before falling back to (and
// populating) a slower persistent one, mirroring the teacher's own
// upstream/downstream cache layering idea (see original_source's
// view_maps.rs) generalized from a single in-process map to an explicit
// local/persistent pair.
type layeredStore struct {
	local      MemoStore
	persistent MemoStore
}

// NewLayeredMemoStore wraps persistent with an in-memory front so repeated
// lookups within one process don't round-trip through disk.
func NewLayeredMemoStore(persistent MemoStore) MemoStore {
	return &layeredStore{local: NewMemMemoStore(), persistent: persistent}
}

func (s *layeredStore) Get(filter FilterID, input plumbing.Hash, kind ObjectKind) (plumbing.Hash, bool, error) {
	if v, ok, _ := s.local.Get(filter, input, kind); ok {
		return v, true, nil
	}
	v, ok, err := s.persistent.Get(filter, input, kind)
	if err != nil || !ok {
		return v, ok, err
	}
	_ = s.local.Put(filter, input, kind, v)
	return v, true, nil
}

func (s *layeredStore) Put(filter FilterID, input plumbing.Hash, kind ObjectKind, output plumbing.Hash) error {
	if err := s.persistent.Put(filter, input, kind, output); err != nil {
		return err
	}
	return s.local.Put(filter, input, kind, output)
}
