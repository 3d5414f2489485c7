package josh

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/storage/memory"
)

func TestUnapplyTreeSubdirRoundTrip(t *testing.T) {
	s := memory.NewStorage()
	base := buildTree(t, s, map[string]string{
		"keep/a.txt":   "1",
		"other/b.txt":  "2",
	})

	memo := NewMemMemoStore()
	f := Subdir("keep")

	filtered, err := FilterTree(s, memo, f, base)
	if err != nil {
		t.Fatal(err)
	}

	// simulate an edit in the filtered view: change a.txt
	filteredTree, err := getTree(s, filtered)
	if err != nil {
		t.Fatal(err)
	}
	blobHash, err := writeBlob(s, []byte("edited"))
	if err != nil {
		t.Fatal(err)
	}
	edited, err := insertAtPath(s, filteredTree, "a.txt", blobHash, filemode.Regular)
	if err != nil {
		t.Fatal(err)
	}

	newBase, err := UnapplyTree(s, memo, f, edited, base)
	if err != nil {
		t.Fatal(err)
	}

	newTree, err := getTree(s, newBase)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]bool{}
	listPaths(t, s, newTree.Hash, "", got)
	if !got["keep/a.txt"] || !got["other/b.txt"] {
		t.Fatalf("expected both keep/a.txt and untouched other/b.txt to survive, got %v", got)
	}

	keepTree, ok, err := subtreeAt(s, newTree, "keep")
	if err != nil || !ok {
		t.Fatalf("expected keep/ subtree: ok=%v err=%v", ok, err)
	}
	entry, ok := lookupEntry(keepTree, "a.txt")
	if !ok {
		t.Fatal("expected keep/a.txt entry")
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
	buf := make([]byte, 16)
	n, _ := r.Read(buf)
	if string(buf[:n]) != "edited" {
		t.Errorf("expected keep/a.txt to carry the edit, got %q", string(buf[:n]))
	}
}
