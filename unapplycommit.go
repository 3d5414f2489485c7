package josh

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// UnapplyCommit expands a single edited filtered commit back onto the
// original (unfiltered) history, per §4.4: filteredOrig is the previously
// known filtered view of target, filteredNew is the caller's edited
// version of that same commit, and target is the full original commit it
// was filtered from. The result is a new original-shaped commit with
// target as its sole parent.
//
// This departs from a full three-way tree diff/merge in favor of the
// structural inverse in [UnapplyTree] — grounded directly on the
// recursive per-operator `unapply` in the original implementation rather
// than the teacher's diff-based ExpandTree. See DESIGN.md.
func UnapplyCommit(ctx context.Context, s storer.Storer, memo MemoStore, f *Filter, filteredOrig, filteredNew, target *object.Commit) (*object.Commit, error) {
	return UnapplyCommitMultiParents(ctx, s, memo, f, filteredOrig, filteredNew, []*object.Commit{target})
}

// UnapplyCommitMultiParents is [UnapplyCommit] generalized to multiple
// target parents, for expanding a merge commit made in the filtered
// history back onto the original.
func UnapplyCommitMultiParents(ctx context.Context, s storer.Storer, memo MemoStore, f *Filter, filteredOrig, filteredNew *object.Commit, parents []*object.Commit) (*object.Commit, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if len(parents) == 0 {
		return nil, ErrEmptyToParents
	}

	nf := Normalize(f)

	target := parents[0]
	targetTree, err := target.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain target tree for %s: %w", target.Hash, err)
	}

	newTreeHash, err := UnapplyTree(s, memo, nf, filteredNew.TreeHash, targetTree.Hash)
	if err != nil {
		return nil, errorf("failed to unapply tree for commit %s: %w", filteredNew.Hash, err)
	}

	newCommit := &object.Commit{
		Author:    filteredNew.Author,
		Committer: filteredNew.Committer,
		Message:   filteredNew.Message,
		TreeHash:  newTreeHash,
	}
	for _, p := range parents {
		newCommit.ParentHashes = append(newCommit.ParentHashes, p.Hash)
	}

	obj := s.NewEncodedObject()
	if err := newCommit.Encode(obj); err != nil {
		return nil, &IOError{Err: err}
	}
	hash, err := s.SetEncodedObject(obj)
	if err != nil {
		return nil, &IOError{Err: err}
	}
	newCommit.Hash = hash

	return newCommit, nil
}

// ErrEmptyToParents is returned when UnapplyCommitMultiParents is called
// with no target parents to expand onto.
var ErrEmptyToParents = fmt.Errorf("target commits is empty")

// OriginMap records, for each commit in a filtered history, the original
// (unfiltered) commit it was produced from. [BuildOriginMap] builds one
// while walking forward; [UnapplyHistory] consumes one to find the base to
// expand an edited commit onto.
type OriginMap map[plumbing.Hash]plumbing.Hash

// BuildOriginMap walks history from head (an original, unfiltered commit),
// filtering it with f exactly as [FilterHistory] would, and records the
// filtered-hash -> original-hash mapping for every commit that survives
// filtering. It gives [UnapplyHistory] the "known" side of §4.4's push
// validation: any filtered commit already in this map needs no expansion.
func BuildOriginMap(ctx context.Context, s storer.Storer, memo MemoStore, f *Filter, head *object.Commit) (OriginMap, error) {
	nf := Normalize(f)
	filterID := nf.ID()

	roots, err := knownRoots(memo, filterID, head)
	if err != nil {
		return nil, err
	}

	path, err := GetDFSPath(ctx, head, roots, 0)
	if err != nil {
		return nil, err
	}

	mappedNew := make(map[plumbing.Hash]*object.Commit, len(path))
	origins := make(OriginMap, len(path))

	for _, old := range path {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if memo != nil {
			out, hit, err := memo.Get(filterID, old.Hash, KindCommitObject)
			if err != nil {
				return nil, err
			}
			if hit {
				var newC *object.Commit
				if !out.IsZero() {
					if newC, err = object.GetCommit(s, out); err != nil {
						return nil, &MissingObjectError{ID: out.String(), Kind: "commit", Err: err}
					}
					origins[newC.Hash] = old.Hash
				}
				mappedNew[old.Hash] = newC
				continue
			}
		}

		var parents []*object.Commit
		for _, ph := range old.ParentHashes {
			if p, ok := mappedNew[ph]; ok && p != nil {
				parents = append(parents, p)
			}
		}

		newC, _, err := FilterCommit(ctx, s, memo, nf, old, parents)
		if err != nil {
			return nil, err
		}
		mappedNew[old.Hash] = newC
		if newC != nil {
			origins[newC.Hash] = old.Hash
		}
	}

	return origins, nil
}

// UnapplyHistory walks the pushed filtered history from newHead down to
// (and excluding) any commit already present in origins, expanding every
// new commit it finds back onto the original history it was derived from,
// and returns the resulting new original head.
//
// A merge commit is only expandable when every one of its parents already
// has a known original — a merge that combines histories unknown to
// origins has no single unambiguous target to expand onto, per §4.4's
// push-validation rule, and is reported as an [*UnappliableError].
func UnapplyHistory(ctx context.Context, s storer.Storer, memo MemoStore, f *Filter, origins OriginMap, newHead *object.Commit) (*object.Commit, error) {
	known := make(HashSet, len(origins))
	for filteredHash := range origins {
		known[filteredHash] = empty{}
	}

	path, err := GetDFSPath(ctx, newHead, known, 0)
	if err != nil {
		return nil, err
	}

	for _, newC := range path {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if _, ok := origins[newC.Hash]; ok {
			continue
		}

		parents := make([]*object.Commit, 0, newC.NumParents())
		for _, ph := range newC.ParentHashes {
			origHash, ok := origins[ph]
			if !ok {
				return nil, &UnappliableError{Path: fmt.Sprintf("commit %s has an unknown parent %s", newC.Hash, ph)}
			}
			origParent, err := object.GetCommit(s, origHash)
			if err != nil {
				return nil, &MissingObjectError{ID: origHash.String(), Kind: "commit", Err: err}
			}
			parents = append(parents, origParent)
		}
		if len(parents) == 0 {
			return nil, &UnappliableError{Path: fmt.Sprintf("commit %s has no known original parent", newC.Hash)}
		}

		var filteredOrig *object.Commit
		if len(newC.ParentHashes) > 0 {
			filteredOrig, err = object.GetCommit(s, newC.ParentHashes[0])
			if err != nil {
				return nil, &MissingObjectError{ID: newC.ParentHashes[0].String(), Kind: "commit", Err: err}
			}
		}

		newOriginal, err := UnapplyCommitMultiParents(ctx, s, memo, f, filteredOrig, newC, parents)
		if err != nil {
			return nil, err
		}
		origins[newC.Hash] = newOriginal.Hash
	}

	finalHash, ok := origins[newHead.Hash]
	if !ok {
		return nil, &UnappliableError{Path: "new head has no known original"}
	}
	return object.GetCommit(s, finalHash)
}
