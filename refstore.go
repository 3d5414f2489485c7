package josh

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage"
)

// RefStore is the compare-and-set ref update primitive from §6: update ref
// to point at newHash only if it currently points at oldHash (or is
// absent, when oldHash is the zero hash). It wraps
// [storer.ReferenceStorer.CheckAndSetReference] so callers never race a
// concurrent writer of the same ref without noticing.
type RefStore interface {
	Resolve(ref plumbing.ReferenceName) (plumbing.Hash, error)
	CompareAndSet(ref plumbing.ReferenceName, newHash, oldHash plumbing.Hash) error
}

type storerRefStore struct {
	storer.ReferenceStorer
}

// NewRefStore adapts a go-git reference storer into a [RefStore].
func NewRefStore(s storer.ReferenceStorer) RefStore {
	return &storerRefStore{s}
}

func (r *storerRefStore) Resolve(ref plumbing.ReferenceName) (plumbing.Hash, error) {
	reference, err := r.Reference(ref)
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return plumbing.ZeroHash, nil
		}
		return plumbing.ZeroHash, &IOError{Err: err}
	}
	return reference.Hash(), nil
}

func (r *storerRefStore) CompareAndSet(ref plumbing.ReferenceName, newHash, oldHash plumbing.Hash) error {
	newRef := plumbing.NewHashReference(ref, newHash)

	var oldRef *plumbing.Reference
	if !oldHash.IsZero() {
		oldRef = plumbing.NewHashReference(ref, oldHash)
	}

	if err := r.CheckAndSetReference(newRef, oldRef); err != nil {
		if err == storage.ErrReferenceHasChanged {
			return &RefRaceError{Ref: ref.String()}
		}
		return &IOError{Err: err}
	}
	return nil
}

// UpdateRefWithRetry applies build to the ref's current value and tries to
// compare-and-set the result, retrying on a [RefRaceError] up to maxRetries
// times, per §7's REF_RACE handling: a lost race means someone else moved
// the ref first, so the caller's transform needs to run again against the
// new value, not blindly overwrite it.
func UpdateRefWithRetry(ctx context.Context, rs RefStore, ref plumbing.ReferenceName, maxRetries int, build func(current plumbing.Hash) (plumbing.Hash, error)) (plumbing.Hash, error) {
	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return plumbing.ZeroHash, ctx.Err()
		default:
		}

		current, err := rs.Resolve(ref)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		next, err := build(current)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		if err := rs.CompareAndSet(ref, next, current); err != nil {
			if _, isRace := err.(*RefRaceError); isRace && attempt < maxRetries {
				continue
			}
			return plumbing.ZeroHash, err
		}
		return next, nil
	}
}
