package josh

import (
	"crypto/sha256"
)

// Kind tags the closed set of filter AST nodes from the grammar in §4.1.
// Implementers are told to prefer a tagged variant with exhaustive case
// analysis over virtual dispatch, so that normalization and hashing stay
// mechanically checkable; Kind is that tag.
type Kind int

const (
	KindNop Kind = iota
	KindEmpty
	KindSubdir
	KindPrefix
	KindGlob
	KindDirs
	KindFold
	KindWorkspace
	KindSubtract
	KindUnsign
	KindAuthor
	KindChain
)

// Filter is a node in the filter expression AST. Filter values are
// immutable once constructed by the parser or the constructors below; two
// structurally equal filters (after normalization) compare equal by ID.
type Filter struct {
	Kind Kind

	// Path is used by KindSubdir, KindPrefix, KindWorkspace.
	Path string

	// Pattern is used by KindGlob.
	Pattern string

	// Name/Email are used by KindAuthor.
	Name  string
	Email string

	// Children holds the operands: exactly 2 for KindSubtract (A, B), the
	// sequential steps for KindChain, and the folded siblings for KindFold.
	Children []*Filter

	id     FilterID
	idset  bool
	canon  string
	normed bool
}

// FilterID is the content hash of a filter's normalized canonical form —
// the stable identity used as half of every memoization key.
type FilterID [32]byte

// Nop is the identity filter (`:/`).
var Nop = &Filter{Kind: KindNop}

// emptyFilter is a sentinel filter that always yields the empty tree. It is
// written `:empty`; Normalize also produces a KindEmpty node for a FOLD with
// no operands left.
var emptyFilter = &Filter{Kind: KindEmpty}

// Subdir selects the subtree at path and exposes it at the root (`:/<path>`).
func Subdir(path string) *Filter { return &Filter{Kind: KindSubdir, Path: cleanPath(path)} }

// Prefix moves the input under path (`:prefix=<path>`).
func Prefix(path string) *Filter { return &Filter{Kind: KindPrefix, Path: cleanPath(path)} }

// Glob keeps only blob entries whose full path matches pattern (`:glob=<pattern>`).
func Glob(pattern string) *Filter { return &Filter{Kind: KindGlob, Pattern: pattern} }

// Dirs replaces each directory's contents with a skeleton marker file (`:DIRS`).
var Dirs = &Filter{Kind: KindDirs}

// Unsign strips commit signatures (`:unsign`).
var Unsign = &Filter{Kind: KindUnsign}

// Workspace mounts the filter found in path's workspace.josh file (`:workspace=<path>`).
func Workspace(path string) *Filter { return &Filter{Kind: KindWorkspace, Path: cleanPath(path)} }

// Author rewrites commit authorship (`:author=<name>:<email>`).
func Author(name, email string) *Filter {
	return &Filter{Kind: KindAuthor, Name: name, Email: email}
}

// Subtract is the set difference at tree level: everything a selects minus
// everything b selects (`:SUBTRACT[a ~ b]`).
func Subtract(a, b *Filter) *Filter {
	return &Filter{Kind: KindSubtract, Children: []*Filter{a, b}}
}

// Exclude subtracts files selected by f from the input (`:exclude[f]`); it
// normalizes to Subtract(Nop, f).
func Exclude(f *Filter) *Filter { return Subtract(Nop, f) }

// Fold merges the results of every child, applied independently to the
// same input, into a single tree (last writer in composition order wins on
// path collision). See foldTrees for the one place this rule is encoded.
func Fold(children ...*Filter) *Filter {
	return &Filter{Kind: KindFold, Children: children}
}

// Chain composes filters left to right: F1 then F2 then ... (`F1:F2:...`).
func Chain(steps ...*Filter) *Filter {
	flat := make([]*Filter, 0, len(steps))
	for _, s := range steps {
		if s == nil || s.Kind == KindNop {
			continue
		}
		if s.Kind == KindChain {
			flat = append(flat, s.Children...)
			continue
		}
		flat = append(flat, s)
	}
	switch len(flat) {
	case 0:
		return Nop
	case 1:
		return flat[0]
	default:
		return &Filter{Kind: KindChain, Children: flat}
	}
}

func cleanPath(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	for len(p) > 0 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}

// ID returns the filter's content hash, normalizing first. Equal
// expressions up to algebraic normalization share an ID (I1 depends on
// this).
func (f *Filter) ID() FilterID {
	n := Normalize(f)
	if n.idset {
		return n.id
	}
	sum := sha256.Sum256([]byte(n.canonical()))
	n.id = sum
	n.idset = true
	return sum
}

// IsNop reports whether f normalizes to the identity filter.
func (f *Filter) IsNop() bool {
	return Normalize(f).Kind == KindNop
}
