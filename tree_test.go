package josh

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/storage/memory"
)

func buildTree(t *testing.T, s *memory.Storage, files map[string]string) plumbing.Hash {
	t.Helper()
	var root plumbing.Hash
	for path, content := range files {
		blobHash, err := writeBlob(s, []byte(content))
		if err != nil {
			t.Fatalf("writeBlob(%q): %v", path, err)
		}
		baseTree, err := getTree(s, root)
		if err != nil {
			t.Fatalf("getTree: %v", err)
		}
		root, err = insertAtPath(s, baseTree, path, blobHash, filemode.Regular)
		if err != nil {
			t.Fatalf("insertAtPath(%q): %v", path, err)
		}
	}
	return root
}

func listPaths(t *testing.T, s *memory.Storage, root plumbing.Hash, prefix string, out map[string]bool) {
	t.Helper()
	tree, err := getTree(s, root)
	if err != nil {
		t.Fatalf("getTree: %v", err)
	}
	for _, e := range tree.Entries {
		full := joinPath(prefix, e.Name)
		if e.Mode == filemode.Dir {
			listPaths(t, s, e.Hash, full, out)
			continue
		}
		out[full] = true
	}
}

func TestFilterTreeSubdir(t *testing.T) {
	s := memory.NewStorage()
	root := buildTree(t, s, map[string]string{
		"a/one.txt":   "1",
		"a/b/two.txt": "2",
		"c/three.txt": "3",
	})

	memo := NewMemMemoStore()
	out, err := FilterTree(s, memo, Subdir("a"), root)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]bool{}
	listPaths(t, s, out, "", got)
	want := map[string]bool{"one.txt": true, "b/two.txt": true}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for p := range want {
		if !got[p] {
			t.Errorf("missing path %q after :/a filter", p)
		}
	}
}

func TestFilterTreePrefix(t *testing.T) {
	s := memory.NewStorage()
	root := buildTree(t, s, map[string]string{"one.txt": "1"})

	memo := NewMemMemoStore()
	out, err := FilterTree(s, memo, Prefix("lib"), root)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]bool{}
	listPaths(t, s, out, "", got)
	if !got["lib/one.txt"] {
		t.Errorf("expected lib/one.txt, got %v", got)
	}
}

func TestFilterTreeGlobKeepsMatching(t *testing.T) {
	s := memory.NewStorage()
	root := buildTree(t, s, map[string]string{
		"a.go":      "x",
		"b.md":      "y",
		"sub/c.go":  "z",
		"sub/d.txt": "w",
	})

	memo := NewMemMemoStore()
	out, err := FilterTree(s, memo, Glob("**/*.go"), root)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]bool{}
	listPaths(t, s, out, "", got)
	want := map[string]bool{"a.go": true, "sub/c.go": true}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFilterTreeSubtract(t *testing.T) {
	s := memory.NewStorage()
	root := buildTree(t, s, map[string]string{
		"keep.txt":   "k",
		"secret.txt": "s",
	})

	memo := NewMemMemoStore()
	f := Exclude(Glob("secret.txt"))
	out, err := FilterTree(s, memo, f, root)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]bool{}
	listPaths(t, s, out, "", got)
	if got["secret.txt"] {
		t.Errorf("secret.txt should have been removed, got %v", got)
	}
	if !got["keep.txt"] {
		t.Errorf("keep.txt should survive, got %v", got)
	}
}

func TestFilterTreeFoldLastWriterWins(t *testing.T) {
	s := memory.NewStorage()
	root := buildTree(t, s, map[string]string{
		"p1/x": "from-p1",
		"p2/x": "from-p2",
	})

	memo := NewMemMemoStore()
	f := Fold(
		Chain(Subdir("p1"), Prefix("shared")),
		Chain(Subdir("p2"), Prefix("shared")),
	)
	out, err := FilterTree(s, memo, f, root)
	if err != nil {
		t.Fatal(err)
	}

	tree, err := getTree(s, out)
	if err != nil {
		t.Fatal(err)
	}
	shared, ok, err := subtreeAt(s, tree, "shared")
	if err != nil || !ok {
		t.Fatalf("expected shared/ subtree, ok=%v err=%v", ok, err)
	}
	entry, ok := lookupEntry(shared, "x")
	if !ok {
		t.Fatal("expected shared/x")
	}
	blob, err := s.EncodedObject(plumbing.BlobObject, entry.Hash)
	if err != nil {
		t.Fatal(err)
	}
	r, err := blob.Reader()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	buf := make([]byte, 32)
	n, _ := r.Read(buf)
	if got := string(buf[:n]); got != "from-p2" {
		t.Errorf("fold should keep the last child's content on collision, got %q want %q", got, "from-p2")
	}
}

func TestFilterTreeDirsSkeleton(t *testing.T) {
	s := memory.NewStorage()
	root := buildTree(t, s, map[string]string{
		"a/b/file.txt": "content",
	})

	memo := NewMemMemoStore()
	out, err := FilterTree(s, memo, Dirs, root)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]bool{}
	listPaths(t, s, out, "", got)
	found := false
	for p := range got {
		if p == "a/"+dirsMarkerPrefix+percentEncodePath("a") ||
			p == "a/b/"+dirsMarkerPrefix+percentEncodePath("a/b") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a JOSH_ORIG_PATH marker file, got %v", got)
	}
}
