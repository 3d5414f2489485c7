package josh

import (
	"net/url"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// EmptyTreeHash is git's well-known empty tree object id.
var EmptyTreeHash = plumbing.NewHash("4b825dc642cb6eb9a060e54bf8d69288fbee4904")

// getTree loads the tree at h, treating the zero hash and the well-known
// empty tree hash alike as an empty tree rather than an object lookup.
func getTree(s storer.EncodedObjectStorer, h plumbing.Hash) (*object.Tree, error) {
	if h.IsZero() || h == EmptyTreeHash {
		return &object.Tree{}, nil
	}
	t, err := object.GetTree(s, h)
	if err != nil {
		return nil, &MissingObjectError{ID: h.String(), Kind: "tree", Err: err}
	}
	return t, nil
}

// writeTree writes a tree built from entries, normalizing iteration order
// by sorting on name first (§4.2: "must be normalized before hashing any
// intermediate"). An empty entry set returns the zero hash, our EMPTY
// sentinel, rather than writing a real (if content-identical) tree object
// for every empty directory encountered mid-walk.
func writeTree(s storer.EncodedObjectStorer, entries []object.TreeEntry) (plumbing.Hash, error) {
	if len(entries) == 0 {
		return plumbing.ZeroHash, nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	t := &object.Tree{Entries: entries}
	obj := s.NewEncodedObject()
	if err := t.Encode(obj); err != nil {
		return plumbing.ZeroHash, &IOError{Err: err}
	}
	h, err := s.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, &IOError{Err: err}
	}
	return h, nil
}

func writeBlob(s storer.EncodedObjectStorer, content []byte) (plumbing.Hash, error) {
	obj := s.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, &IOError{Err: err}
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return plumbing.ZeroHash, &IOError{Err: err}
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, &IOError{Err: err}
	}
	return s.SetEncodedObject(obj)
}

func lookupEntry(t *object.Tree, name string) (object.TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return object.TreeEntry{}, false
}

// subtreeAt navigates t to the subtree at the slash-separated path,
// returning (nil, false) rather than an error when any component is
// missing — callers treat a missing subdir as EMPTY, not a failure.
func subtreeAt(s storer.EncodedObjectStorer, t *object.Tree, path string) (*object.Tree, bool, error) {
	path = cleanPath(path)
	if path == "" {
		return t, true, nil
	}
	parts := strings.Split(path, "/")
	cur := t
	for _, p := range parts {
		e, ok := lookupEntry(cur, p)
		if !ok || e.Mode != filemode.Dir {
			return nil, false, nil
		}
		next, err := getTree(s, e.Hash)
		if err != nil {
			return nil, false, err
		}
		cur = next
	}
	return cur, true, nil
}

// insertAtPath returns a tree equal to base but with the single entry at
// path replaced by (hash, mode), creating any intermediate directories.
// base may be nil to mean "empty".
func insertAtPath(s storer.EncodedObjectStorer, base *object.Tree, path string, hash plumbing.Hash, mode filemode.FileMode) (plumbing.Hash, error) {
	path = cleanPath(path)
	if path == "" {
		return hash, nil
	}
	if base == nil {
		base = &object.Tree{}
	}
	parts := strings.SplitN(path, "/", 2)
	head := parts[0]

	entries := make([]object.TreeEntry, 0, len(base.Entries)+1)
	var childTree *object.Tree
	replaced := false
	for _, e := range base.Entries {
		if e.Name == head {
			replaced = true
			if len(parts) == 2 {
				if e.Mode == filemode.Dir {
					childTree, _ = getTree(s, e.Hash)
				}
				continue
			}
			continue
		}
		entries = append(entries, e)
	}
	_ = replaced

	if len(parts) == 1 {
		entries = append(entries, object.TreeEntry{Name: head, Mode: mode, Hash: hash})
		return writeTree(s, entries)
	}

	childHash, err := insertAtPath(s, childTree, parts[1], hash, mode)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	entries = append(entries, object.TreeEntry{Name: head, Mode: filemode.Dir, Hash: childHash})
	return writeTree(s, entries)
}

// overlayTrees unions a and b, recursing into directories present on both
// sides; on any other collision b wins. This is the engine for `:FOLD` and
// for workspace mount stitching.
func overlayTrees(s storer.EncodedObjectStorer, a, b *object.Tree) (plumbing.Hash, error) {
	if a == nil || len(a.Entries) == 0 {
		return writeTree(s, cloneEntries(b))
	}
	if b == nil || len(b.Entries) == 0 {
		return writeTree(s, cloneEntries(a))
	}

	byName := make(map[string]object.TreeEntry, len(a.Entries))
	order := make([]string, 0, len(a.Entries)+len(b.Entries))
	for _, e := range a.Entries {
		byName[e.Name] = e
		order = append(order, e.Name)
	}
	for _, eb := range b.Entries {
		ea, exists := byName[eb.Name]
		if !exists {
			byName[eb.Name] = eb
			order = append(order, eb.Name)
			continue
		}
		if ea.Mode == filemode.Dir && eb.Mode == filemode.Dir {
			suba, err := getTree(s, ea.Hash)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			subb, err := getTree(s, eb.Hash)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			merged, err := overlayTrees(s, suba, subb)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			byName[eb.Name] = object.TreeEntry{Name: eb.Name, Mode: filemode.Dir, Hash: merged}
			continue
		}
		byName[eb.Name] = eb // b wins on any other collision
	}

	seen := make(map[string]empty, len(order))
	entries := make([]object.TreeEntry, 0, len(byName))
	for _, n := range order {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = empty{}
		entries = append(entries, byName[n])
	}
	return writeTree(s, entries)
}

func cloneEntries(t *object.Tree) []object.TreeEntry {
	if t == nil {
		return nil
	}
	out := make([]object.TreeEntry, len(t.Entries))
	copy(out, t.Entries)
	return out
}

// subtractTrees returns the entries of a that are not present, identically,
// in b — deep for directories, per §4.2.
func subtractTrees(s storer.EncodedObjectStorer, a, b *object.Tree) (plumbing.Hash, error) {
	if a == nil || len(a.Entries) == 0 {
		return plumbing.ZeroHash, nil
	}
	if b == nil || len(b.Entries) == 0 {
		return writeTree(s, cloneEntries(a))
	}

	entries := make([]object.TreeEntry, 0, len(a.Entries))
	for _, ea := range a.Entries {
		eb, found := lookupEntry(b, ea.Name)
		switch {
		case !found:
			entries = append(entries, ea)
		case ea.Mode == filemode.Dir && eb.Mode == filemode.Dir:
			suba, err := getTree(s, ea.Hash)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			subb, err := getTree(s, eb.Hash)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			h, err := subtractTrees(s, suba, subb)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			if !h.IsZero() {
				entries = append(entries, object.TreeEntry{Name: ea.Name, Mode: filemode.Dir, Hash: h})
			}
		case ea.Mode == eb.Mode && ea.Hash == eb.Hash:
			// fully covered by b, drop.
		default:
			entries = append(entries, ea)
		}
	}
	return writeTree(s, entries)
}

// globFilterTree keeps only blob entries whose full slash-joined path
// matches pattern, reconstructing the minimal enclosing directory
// structure, per §4.2's `:glob=` semantics.
func globFilterTree(s storer.EncodedObjectStorer, prefix string, t *object.Tree, match func(path string) bool) (plumbing.Hash, error) {
	entries := make([]object.TreeEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		full := joinPath(prefix, e.Name)
		if e.Mode == filemode.Dir {
			sub, err := getTree(s, e.Hash)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			h, err := globFilterTree(s, full, sub, match)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			if !h.IsZero() {
				entries = append(entries, object.TreeEntry{Name: e.Name, Mode: filemode.Dir, Hash: h})
			}
			continue
		}
		if match(full) {
			entries = append(entries, e)
		}
	}
	return writeTree(s, entries)
}

const dirsMarkerPrefix = "JOSH_ORIG_PATH_"

// dirsSkeleton implements `:DIRS`: every directory is replaced by a tree
// containing only a JOSH_ORIG_PATH_<percent-encoded-relpath> marker file
// plus the (recursively skeletonized) subdirectories it contained. Blobs
// are dropped, except workspace.josh, which is carried through verbatim so
// a :DIRS view of a workspace still resolves its mounts.
func dirsSkeleton(s storer.EncodedObjectStorer, prefix string, t *object.Tree) (plumbing.Hash, error) {
	entries := make([]object.TreeEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		if e.Mode != filemode.Dir {
			if e.Name == workspaceFileName {
				entries = append(entries, e)
			}
			continue
		}
		full := joinPath(prefix, e.Name)
		sub, err := getTree(s, e.Hash)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		skelHash, err := dirsSkeleton(s, full, sub)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		skel, err := getTree(s, skelHash)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		markerName := dirsMarkerPrefix + percentEncodePath(full)
		markerHash, err := writeBlob(s, []byte(full+"\n"))
		if err != nil {
			return plumbing.ZeroHash, err
		}
		withMarker := append(cloneEntries(skel), object.TreeEntry{Name: markerName, Mode: filemode.Regular, Hash: markerHash})

		h, err := writeTree(s, withMarker)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: e.Name, Mode: filemode.Dir, Hash: h})
	}
	return writeTree(s, entries)
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func percentEncodePath(p string) string {
	return url.QueryEscape(p)
}
