package josh

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// FilterTree applies f to the tree at input, returning the resulting tree's
// id (or the zero hash for EMPTY), per §4.2. Results are memoized in memo
// under the pair (f.ID(), input); callers that don't need persistence can
// pass [NewMemMemoStore].
func FilterTree(s storer.EncodedObjectStorer, memo MemoStore, f *Filter, input plumbing.Hash) (plumbing.Hash, error) {
	nf := Normalize(f)
	return filterTreeMemo(s, memo, nf, input)
}

func filterTreeMemo(s storer.EncodedObjectStorer, memo MemoStore, f *Filter, input plumbing.Hash) (plumbing.Hash, error) {
	id := f.ID()
	if memo != nil {
		if out, hit, err := memo.Get(id, input, KindTreeObject); err != nil {
			return plumbing.ZeroHash, err
		} else if hit {
			return out, nil
		}
	}

	out, err := filterTree(s, memo, f, input)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	if memo != nil {
		if err := memo.Put(id, input, KindTreeObject, out); err != nil {
			return plumbing.ZeroHash, err
		}
	}
	return out, nil
}

func filterTree(s storer.EncodedObjectStorer, memo MemoStore, f *Filter, input plumbing.Hash) (plumbing.Hash, error) {
	switch f.Kind {
	case KindNop:
		return input, nil

	case KindEmpty:
		return plumbing.ZeroHash, nil

	case KindUnsign, KindAuthor:
		// Identity at tree level; these only act on commit metadata.
		return input, nil

	case KindSubdir:
		t, err := getTree(s, input)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		sub, ok, err := subtreeAt(s, t, f.Path)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if !ok {
			return plumbing.ZeroHash, nil
		}
		return writeTree(s, cloneEntries(sub))

	case KindPrefix:
		if input.IsZero() {
			return plumbing.ZeroHash, nil
		}
		return insertAtPath(s, nil, f.Path, input, filemode.Dir)

	case KindGlob:
		t, err := getTree(s, input)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		g, err := compileGlob(f.Pattern)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return globFilterTree(s, "", t, g.Match)

	case KindDirs:
		t, err := getTree(s, input)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return dirsSkeleton(s, "", t)

	case KindWorkspace:
		return filterWorkspace(s, memo, f, input)

	case KindSubtract:
		af, err := filterTreeMemo(s, memo, f.Children[0], input)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		bf, err := filterTreeMemo(s, memo, f.Children[1], input)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		ta, err := getTree(s, af)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		tb, err := getTree(s, bf)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return subtractTrees(s, ta, tb)

	case KindFold:
		return foldTrees(s, memo, f.Children, input)

	case KindChain:
		cur := input
		var err error
		for _, c := range f.Children {
			cur, err = filterTreeMemo(s, memo, c, cur)
			if err != nil {
				return plumbing.ZeroHash, err
			}
		}
		return cur, nil

	default:
		return plumbing.ZeroHash, &ParseError{Expected: "known filter kind", Input: Spec(f)}
	}
}

// foldTrees applies each child to the same input independently, then
// overlays the results left to right: later children win on path
// collisions. See the order-preservation note in normalize.go.
func foldTrees(s storer.EncodedObjectStorer, memo MemoStore, children []*Filter, input plumbing.Hash) (plumbing.Hash, error) {
	var acc plumbing.Hash
	for i, c := range children {
		h, err := filterTreeMemo(s, memo, c, input)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if i == 0 {
			acc = h
			continue
		}
		ta, err := getTree(s, acc)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		tb, err := getTree(s, h)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		acc, err = overlayTrees(s, ta, tb)
		if err != nil {
			return plumbing.ZeroHash, err
		}
	}
	return acc, nil
}

// filterWorkspace reads f.Path/workspace.josh from input, parses it, and
// folds every named mount's filtered subtree into the result at its mount
// point (relative to the workspace root), alongside the workspace's own
// :/<path> content, per §4.1's `:workspace=` semantics.
func filterWorkspace(s storer.EncodedObjectStorer, memo MemoStore, f *Filter, input plumbing.Hash) (plumbing.Hash, error) {
	root, err := filterTreeMemo(s, memo, Subdir(f.Path), input)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	rootTree, err := getTree(s, root)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	entry, ok := lookupEntry(rootTree, workspaceFileName)
	if !ok {
		return root, nil
	}
	blob, err := object.GetBlob(s, entry.Hash)
	if err != nil {
		return plumbing.ZeroHash, &MissingObjectError{ID: entry.Hash.String(), Kind: "blob", Err: err}
	}
	content, err := blobContents(blob)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	mounts, err := parseWorkspace(content)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	acc := root
	for _, m := range mounts {
		mountTree, err := filterTreeMemo(s, memo, m.Filter, input)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if mountTree.IsZero() {
			continue
		}
		placed, err := insertAtPath(s, nil, m.Name, mountTree, filemode.Dir)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		ta, err := getTree(s, acc)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		tb, err := getTree(s, placed)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		acc, err = overlayTrees(s, ta, tb)
		if err != nil {
			return plumbing.ZeroHash, err
		}
	}
	return acc, nil
}
