package josh

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// FilterCommit applies f to a single commit c, given its already-filtered
// parents, per §4.3.
//
//   - If the filtered tree is EMPTY, newcommit is nil, isparent is false,
//     and err is nil: the commit is pruned from the filtered history.
//   - If the filtered tree equals one of the filtered parents' trees
//     exactly, that parent is returned verbatim with isparent true: c
//     contributed nothing new, so it collapses into its parent rather than
//     being kept as a no-op merge or no-op commit.
//
// :unsign strips any GPG signature; :author=<name>:<email> overrides
// authorship on the new commit. Both act only here, never on the tree.
func FilterCommit(ctx context.Context, s storer.Storer, memo MemoStore, f *Filter, c *object.Commit, parents []*object.Commit) (*object.Commit, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}

	nf := Normalize(f)

	t, err := c.Tree()
	if err != nil {
		return nil, false, fmt.Errorf("failed to obtain tree for commit %s: %w", c.Hash.String(), err)
	}

	newTreeHash, err := filterTreeMemo(s, memo, nf, t.Hash)
	if err != nil {
		return nil, false, errorf("failed to filter tree for commit %s: %w", c.Hash.String(), err)
	}

	if newTreeHash.IsZero() {
		logger.Debug("pruning empty commit", "commit", c.Hash, "filter", nf.ID())
		return nil, false, nil
	}

	var parentHashes []plumbing.Hash
	seen := make(HashSet, len(parents))
	for _, parent := range parents {
		if parent == nil {
			continue
		}
		if parent.TreeHash == newTreeHash {
			return parent, true, nil
		}
		if _, dup := seen[parent.Hash]; dup {
			continue
		}
		seen[parent.Hash] = empty{}
		parentHashes = append(parentHashes, parent.Hash)
	}

	author := c.Author
	committer := c.Committer
	if av := findAuthorOverride(nf); av != nil {
		author.Name, author.Email = av.Name, av.Email
		committer.Name, committer.Email = av.Name, av.Email
	}

	newCommit := &object.Commit{
		Author:       author,
		Committer:    committer,
		Message:      c.Message,
		TreeHash:     newTreeHash,
		ParentHashes: parentHashes,
	}
	if !hasUnsign(nf) {
		newCommit.PGPSignature = c.PGPSignature
	}

	obj := s.NewEncodedObject()
	if err := newCommit.Encode(obj); err != nil {
		return nil, false, &IOError{Err: err}
	}
	hash, err := s.SetEncodedObject(obj)
	if err != nil {
		return nil, false, &IOError{Err: err}
	}

	stored, err := object.GetCommit(s, hash)
	if err != nil {
		return nil, false, &IOError{Err: err}
	}

	return stored, false, nil
}

// findAuthorOverride looks for a top-level :author= step; chains are
// searched left to right and the last one found wins, matching the order
// in which :author= would actually be applied while walking the chain.
func findAuthorOverride(f *Filter) *Filter {
	switch f.Kind {
	case KindAuthor:
		return f
	case KindChain:
		var found *Filter
		for _, c := range f.Children {
			if a := findAuthorOverride(c); a != nil {
				found = a
			}
		}
		return found
	default:
		return nil
	}
}

func hasUnsign(f *Filter) bool {
	switch f.Kind {
	case KindUnsign:
		return true
	case KindChain:
		for _, c := range f.Children {
			if hasUnsign(c) {
				return true
			}
		}
	}
	return false
}

// knownRoots scans back from head for commits already memoized under
// filterID, without descending past one it finds, and reduces the result
// with [GetRoots] to a minimal stop-set. Feeding this into [GetDFSPath]'s
// roots parameter is the incremental sweep §9 asks for: a history prefix
// FilterHistory has already filtered and cached needs no re-walking, since
// a commit only gets memoized once every one of its ancestors has been.
func knownRoots(memo MemoStore, filterID FilterID, head *object.Commit) (HashSet, error) {
	if memo == nil {
		return nil, nil
	}

	var found []*object.Commit
	seen := make(HashSet)
	stack := []*object.Commit{head}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[c.Hash]; ok {
			continue
		}
		seen[c.Hash] = empty{}

		_, hit, err := memo.Get(filterID, c.Hash, KindCommitObject)
		if err != nil {
			return nil, err
		}
		if hit {
			found = append(found, c)
			continue
		}

		for i := 0; i < c.NumParents(); i++ {
			p, err := c.Parent(i)
			if err != nil {
				return nil, fmt.Errorf("cannot get parent %d for %s: %w", i, c.Hash.String(), err)
			}
			stack = append(stack, p)
		}
	}

	if len(found) == 0 {
		return nil, nil
	}
	roots := make(HashSet, len(found))
	for _, c := range GetRoots(found) {
		roots[c.Hash] = empty{}
	}
	return roots, nil
}

// FilterHistory walks every commit reachable from head and filters it with
// f, memoizing both tree and commit results, and returns the filtered
// head — nil if head's entire history is pruned to EMPTY.
func FilterHistory(ctx context.Context, s storer.Storer, memo MemoStore, f *Filter, head *object.Commit) (*object.Commit, error) {
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

	mapped := make(map[plumbing.Hash]*object.Commit, len(path))
	for _, old := range path {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if memo != nil {
			if out, hit, err := memo.Get(filterID, old.Hash, KindCommitObject); err != nil {
				return nil, err
			} else if hit {
				if out.IsZero() {
					mapped[old.Hash] = nil
					continue
				}
				newC, err := object.GetCommit(s, out)
				if err != nil {
					return nil, &MissingObjectError{ID: out.String(), Kind: "commit", Err: err}
				}
				mapped[old.Hash] = newC
				continue
			}
		}

		var parents []*object.Commit
		for _, ph := range old.ParentHashes {
			if p, ok := mapped[ph]; ok && p != nil {
				parents = append(parents, p)
			}
		}

		newC, _, err := FilterCommit(ctx, s, memo, nf, old, parents)
		if err != nil {
			return nil, err
		}
		mapped[old.Hash] = newC

		if memo != nil {
			out := plumbing.ZeroHash
			if newC != nil {
				out = newC.Hash
			}
			if err := memo.Put(filterID, old.Hash, KindCommitObject, out); err != nil {
				return nil, err
			}
		}
	}

	return mapped[head.Hash], nil
}
