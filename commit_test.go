package josh

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

func commitTree(t *testing.T, s *memory.Storage, tree plumbing.Hash, msg string, parents ...plumbing.Hash) *object.Commit {
	t.Helper()
	sig := object.Signature{Name: "tester", Email: "t@example.com", When: time.Unix(0, 0).UTC()}
	c := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      msg,
		TreeHash:     tree,
		ParentHashes: parents,
	}
	obj := s.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		t.Fatal(err)
	}
	h, err := s.SetEncodedObject(obj)
	if err != nil {
		t.Fatal(err)
	}
	stored, err := object.GetCommit(s, h)
	if err != nil {
		t.Fatal(err)
	}
	return stored
}

func TestFilterHistoryPrunesEmptyCommits(t *testing.T) {
	s := memory.NewStorage()

	rootTree := buildTree(t, s, map[string]string{"keep/a.txt": "1", "drop/b.txt": "2"})
	root := commitTree(t, s, rootTree, "root")

	// second commit only touches drop/, so under :/keep it contributes
	// nothing new and should collapse into its parent.
	secondTree := buildTree(t, s, map[string]string{"keep/a.txt": "1", "drop/b.txt": "3"})
	second := commitTree(t, s, secondTree, "touch drop", root.Hash)

	thirdTree := buildTree(t, s, map[string]string{"keep/a.txt": "2", "drop/b.txt": "3"})
	third := commitTree(t, s, thirdTree, "touch keep", second.Hash)

	memo := NewMemMemoStore()
	newHead, err := FilterHistory(context.Background(), s, memo, Subdir("keep"), third)
	if err != nil {
		t.Fatal(err)
	}
	if newHead == nil {
		t.Fatal("expected a non-nil filtered head")
	}
	if newHead.NumParents() != 1 {
		t.Fatalf("expected exactly one ancestor (root) after pruning the no-op commit, got %d parents", newHead.NumParents())
	}
	parent, err := newHead.Parent(0)
	if err != nil {
		t.Fatal(err)
	}
	if parent.Message != "root" {
		t.Errorf("expected the filtered history to collapse straight to root, got parent message %q", parent.Message)
	}
}

func TestFilterHistoryUnsignStripsSignature(t *testing.T) {
	s := memory.NewStorage()
	tree := buildTree(t, s, map[string]string{"a.txt": "1"})
	c := commitTree(t, s, tree, "signed")
	c.PGPSignature = "-----BEGIN PGP SIGNATURE-----\nbogus\n-----END PGP SIGNATURE-----"

	obj := s.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		t.Fatal(err)
	}
	h, err := s.SetEncodedObject(obj)
	if err != nil {
		t.Fatal(err)
	}
	c.Hash = h

	memo := NewMemMemoStore()
	newHead, err := FilterHistory(context.Background(), s, memo, Unsign, c)
	if err != nil {
		t.Fatal(err)
	}
	if newHead.PGPSignature != "" {
		t.Errorf("expected :unsign to strip the PGP signature, got %q", newHead.PGPSignature)
	}
}

func TestFilterHistoryAuthorOverride(t *testing.T) {
	s := memory.NewStorage()
	tree := buildTree(t, s, map[string]string{"a.txt": "1"})
	c := commitTree(t, s, tree, "msg")

	memo := NewMemMemoStore()
	f := Chain(Author("Rewritten", "rewritten@example.com"))
	newHead, err := FilterHistory(context.Background(), s, memo, f, c)
	if err != nil {
		t.Fatal(err)
	}
	if newHead.Author.Name != "Rewritten" || newHead.Author.Email != "rewritten@example.com" {
		t.Errorf("expected author override, got %+v", newHead.Author)
	}
}
