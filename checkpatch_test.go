package josh

import "testing"

func TestTranslatePath(t *testing.T) {
	cases := []struct {
		filter   *Filter
		path     string
		wantOK   bool
		wantPath string
	}{
		{Subdir("lib"), "lib/a.go", true, "a.go"},
		{Subdir("lib"), "other/a.go", false, ""},
		{Prefix("vendor"), "a.go", true, "vendor/a.go"},
		{Glob("**/*.go"), "a.go", true, "a.go"},
		{Glob("**/*.go"), "a.md", false, ""},
		{Exclude(Glob("secret.txt")), "secret.txt", false, ""},
		{Exclude(Glob("secret.txt")), "keep.txt", true, "keep.txt"},
		{Chain(Subdir("lib"), Prefix("vendor")), "lib/a.go", true, "vendor/a.go"},
		{Fold(Subdir("a"), Subdir("b")), "b/x.go", true, "x.go"},
		{Dirs, "a.go", false, ""},
	}

	for _, c := range cases {
		got, ok := translatePath(Normalize(c.filter), c.path)
		if ok != c.wantOK {
			t.Errorf("translatePath(%s, %q): ok = %v, want %v", Spec(c.filter), c.path, ok, c.wantOK)
			continue
		}
		if ok && got != c.wantPath {
			t.Errorf("translatePath(%s, %q) = %q, want %q", Spec(c.filter), c.path, got, c.wantPath)
		}
	}
}
