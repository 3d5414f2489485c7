package josh

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// UnapplyTree computes a tree t such that FilterTree(s, memo, f, t) would
// reproduce filtered, given that the filter previously produced filtered
// from some original tree whose unaffected parts are supplied in base
// (§4.4). It is the structural inverse of FilterTree, node by node. It
// returns an [*UnappliableError] for :workspace=, for a :SUBTRACT that is
// not an :exclude, for a non-empty filtered tree under :empty, and when
// filtered lacks the path of a :prefix= step. Other entries f could not
// have produced are not rejected: a :prefix= step drops whatever lies
// outside its path, and a :glob= step keeps entries that do not match.
// Under :DIRS only marker files are visible, so filtered is not consulted
// and base is returned.
func UnapplyTree(s storer.EncodedObjectStorer, memo MemoStore, f *Filter, filtered, base plumbing.Hash) (plumbing.Hash, error) {
	return unapplyTree(s, memo, Normalize(f), filtered, base)
}

func unapplyTree(s storer.EncodedObjectStorer, memo MemoStore, f *Filter, filtered, base plumbing.Hash) (plumbing.Hash, error) {
	switch f.Kind {
	case KindNop:
		return filtered, nil

	case KindEmpty:
		// Any change under an EMPTY filter is unrepresentable: nothing
		// the caller edited could have come from this filter.
		if filtered.IsZero() {
			return base, nil
		}
		return plumbing.ZeroHash, &UnappliableError{Path: "/"}

	case KindUnsign, KindAuthor:
		// Identity at tree level, so the edited tree is the source tree.
		return filtered, nil

	case KindSubdir:
		baseTree, err := getTree(s, base)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return insertAtPath(s, baseTree, f.Path, filtered, filemode.Dir)

	case KindPrefix:
		t, err := getTree(s, filtered)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		sub, ok, err := subtreeAt(s, t, f.Path)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if !ok {
			return plumbing.ZeroHash, &UnappliableError{Path: f.Path}
		}
		return writeTree(s, cloneEntries(sub))

	case KindGlob:
		// Entries outside the glob are kept from base; base's matching
		// entries are replaced by filtered's, so deletions carry over too.
		rest, err := filterTreeMemo(s, memo, Normalize(Exclude(f)), base)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		baseTree, err := getTree(s, rest)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		filteredTree, err := getTree(s, filtered)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		merged, err := overlayTrees(s, baseTree, filteredTree)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return merged, nil

	case KindDirs:
		// Only JOSH_ORIG_PATH_ marker files are visible through :DIRS; they
		// are discarded and the original directory contents kept from base.
		return base, nil

	case KindWorkspace:
		// The workspace root content is unappliable against a single base
		// because mounts interleave; treat the whole subtree as opaque.
		return plumbing.ZeroHash, &UnappliableError{Path: f.Path}

	case KindSubtract:
		// Only representable in the (Nop, b) == exclude form: put back
		// whatever b would have removed, taken from base.
		a, b := f.Children[0], f.Children[1]
		if a.Kind != KindNop {
			return plumbing.ZeroHash, &UnappliableError{Path: "/"}
		}
		removed, err := filterTreeMemo(s, memo, b, base)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		removedTree, err := getTree(s, removed)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		// filtered is the caller's edited kept portion; restore the
		// excluded portion unchanged alongside it.
		keepTree, err := getTree(s, filtered)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return overlayTrees(s, keepTree, removedTree)

	case KindFold:
		return unapplyFold(s, memo, f.Children, filtered, base)

	case KindChain:
		return unapplyChain(s, memo, f.Children, filtered, base)

	default:
		return plumbing.ZeroHash, &ParseError{Expected: "known filter kind", Input: Spec(f)}
	}
}

func unapplyChain(s storer.EncodedObjectStorer, memo MemoStore, steps []*Filter, filtered, base plumbing.Hash) (plumbing.Hash, error) {
	if len(steps) == 0 {
		return filtered, nil
	}
	if len(steps) == 1 {
		return unapplyTree(s, memo, steps[0], filtered, base)
	}
	head, rest := steps[0], steps[1:]
	intermediateBase, err := filterTreeMemo(s, memo, head, base)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	newIntermediate, err := unapplyChain(s, memo, rest, filtered, intermediateBase)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return unapplyTree(s, memo, head, newIntermediate, base)
}

// unapplyFold unapplies filtered (the caller's edited union) through each
// child against base, then overlays the results in child order, the last
// child dominating on any collision. Children that cannot be unapplied are
// skipped.
func unapplyFold(s storer.EncodedObjectStorer, memo MemoStore, children []*Filter, filtered, base plumbing.Hash) (plumbing.Hash, error) {
	var result plumbing.Hash
	for i, c := range children {
		restored, err := unapplyTree(s, memo, c, filtered, base)
		if err != nil {
			if _, ok := err.(*UnappliableError); ok {
				continue
			}
			return plumbing.ZeroHash, err
		}
		if i == 0 {
			result = restored
			continue
		}
		ra, err := getTree(s, result)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		rb, err := getTree(s, restored)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		result, err = overlayTrees(s, ra, rb)
		if err != nil {
			return plumbing.ZeroHash, err
		}
	}
	return result, nil
}
