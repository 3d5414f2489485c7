package josh

import (
	"testing"

	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParseWorkspace(t *testing.T) {
	content := "# comment\nlib = :/src/lib\nutil = :/src/util # trailing comment\n\n"
	mounts, err := parseWorkspace(content)
	if err != nil {
		t.Fatal(err)
	}
	if len(mounts) != 2 {
		t.Fatalf("expected 2 mounts, got %d", len(mounts))
	}
	gotNames := []string{mounts[0].Name, mounts[1].Name}
	wantNames := []string{"lib", "util"}
	if diff := cmp.Diff(wantNames, gotNames, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("mount names mismatch (-want +got):\n%s", diff)
	}
	if Spec(mounts[0].Filter) != ":/src/lib" {
		t.Errorf("unexpected first mount filter: %+v", mounts[0])
	}
	if Spec(mounts[1].Filter) != ":/src/util" {
		t.Errorf("unexpected second mount filter: %+v", mounts[1])
	}
}

func TestParseWorkspaceRejectsMissingEquals(t *testing.T) {
	if _, err := parseWorkspace("lib :/src/lib\n"); err == nil {
		t.Fatal("expected a parse error for a mount line missing '='")
	}
}

func TestFilterTreeWorkspaceMountsSubtree(t *testing.T) {
	s := memory.NewStorage()
	root := buildTree(t, s, map[string]string{
		"ws/workspace.josh": "lib = :/other/lib\n",
		"ws/own.txt":         "own",
		"other/lib/x.txt":   "libx",
	})

	memo := NewMemMemoStore()
	out, err := FilterTree(s, memo, Workspace("ws"), root)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]bool{}
	listPaths(t, s, out, "", got)
	if !got["own.txt"] {
		t.Errorf("expected own.txt from the workspace root, got %v", got)
	}
	if !got["lib/x.txt"] {
		t.Errorf("expected lib/x.txt mounted from other/lib, got %v", got)
	}
}
