package josh

import (
	"strings"

	"github.com/gobwas/glob"
)

// compileGlob compiles pattern for matching full slash-separated blob paths.
// '/' is treated as a literal separator: '*' stays within one path
// component and only '**' crosses directory boundaries. A leading "**/" also
// matches zero directories, as in git's pathspec globs, so "**/*.go" matches
// a top-level "a.go" as well as "sub/c.go".
func compileGlob(pattern string) (glob.Glob, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil || !strings.HasPrefix(pattern, "**/") {
		return g, err
	}
	top, err := glob.Compile(strings.TrimPrefix(pattern, "**/"), '/')
	if err != nil {
		return nil, err
	}
	return anyGlob{g, top}, nil
}

// anyGlob matches a path when any of its globs does.
type anyGlob []glob.Glob

func (a anyGlob) Match(s string) bool {
	for _, g := range a {
		if g.Match(s) {
			return true
		}
	}
	return false
}
