package josh

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/diff"
)

// FilePatchError reports a patch's from/to path that a filter would not
// have let through, grounded on the same diagnostic shape the teacher
// returns from its own per-path filter check.
type FilePatchError struct {
	FromFile string
	ToFile   string
}

func (e *FilePatchError) ErrorFiles() []string {
	if e == nil {
		return nil
	}
	switch {
	case e.FromFile != "" && e.ToFile != "":
		return []string{e.FromFile, e.ToFile}
	case e.FromFile != "":
		return []string{e.FromFile}
	case e.ToFile != "":
		return []string{e.ToFile}
	default:
		return nil
	}
}

func (e *FilePatchError) Error() string {
	errfs := make([]string, 0, 2)
	if e.FromFile != "" {
		errfs = append(errfs, fmt.Sprintf("invalid from path: %s", e.FromFile))
	}
	if e.ToFile != "" {
		errfs = append(errfs, fmt.Sprintf("invalid to path: %s", e.ToFile))
	}
	return strings.Join(errfs, "|")
}

// FilePatchCheckResult is the outcome of [CheckFilePatchAgainstFilter].
type FilePatchCheckResult struct {
	Errors []*FilePatchError
}

func (r *FilePatchCheckResult) ErrorSlice() []error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return errs
}

func (r *FilePatchCheckResult) ToError() error {
	errs := r.ErrorSlice()
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// CheckFilePatchAgainstFilter validates that every file touched by
// filepatches is reachable under f, ahead of actually materializing a
// push — the cheap reject-early path of §4.4's push validation, before
// falling back to the full tree-level [UnapplyTree] for patches that pass.
func CheckFilePatchAgainstFilter(filepatches []diff.FilePatch, f *Filter) *FilePatchCheckResult {
	nf := Normalize(f)
	r := &FilePatchCheckResult{}

	for _, afile := range filepatches {
		fromfile, tofile := afile.Files()

		fromfilename, tofilename := "", ""
		if fromfile != nil {
			fromfilename = fromfile.Path()
		}
		if tofile != nil {
			tofilename = tofile.Path()
		}

		var thiserr *FilePatchError
		if fromfile != nil {
			if _, ok := translatePath(nf, fromfilename); !ok {
				thiserr = &FilePatchError{FromFile: fromfilename}
			}
		}
		if tofile != nil {
			if _, ok := translatePath(nf, tofilename); !ok {
				if thiserr == nil {
					thiserr = &FilePatchError{}
				}
				thiserr.ToFile = tofilename
			}
		}
		if thiserr != nil {
			r.Errors = append(r.Errors, thiserr)
		}
	}

	return r
}

// translatePath maps a slash-separated blob path through f the way
// FilterTree would map the blob that lives there, without touching the
// object database — used for patch-level pre-checks where materializing a
// tree would be wasteful. It returns ok=false wherever the path would not
// survive filtering at all.
func translatePath(f *Filter, path string) (string, bool) {
	switch f.Kind {
	case KindNop:
		return path, true

	case KindEmpty, KindDirs:
		return "", false

	case KindUnsign, KindAuthor:
		return path, true

	case KindSubdir:
		rest, ok := stripPrefixPath(path, f.Path)
		if !ok {
			return "", false
		}
		return rest, true

	case KindPrefix:
		return joinPath(f.Path, path), true

	case KindGlob:
		g, err := compileGlob(f.Pattern)
		if err != nil || !g.Match(path) {
			return "", false
		}
		return path, true

	case KindWorkspace:
		// Approximates the workspace root's own :/<path> selection; mount
		// points added by workspace.josh aren't visible without reading
		// the tree, so a patch under a mount's source is rejected here
		// even where the full tree-level filter would keep it.
		rest, ok := stripPrefixPath(path, f.Path)
		if !ok {
			return "", false
		}
		return rest, true

	case KindSubtract:
		if _, ok := translatePath(f.Children[1], path); ok {
			return "", false
		}
		return translatePath(f.Children[0], path)

	case KindFold:
		for _, c := range f.Children {
			if out, ok := translatePath(c, path); ok {
				return out, true
			}
		}
		return "", false

	case KindChain:
		cur := path
		for _, c := range f.Children {
			out, ok := translatePath(c, cur)
			if !ok {
				return "", false
			}
			cur = out
		}
		return cur, true

	default:
		return "", false
	}
}

func stripPrefixPath(path, prefix string) (string, bool) {
	if prefix == "" {
		return path, true
	}
	if path == prefix {
		return "", true
	}
	if strings.HasPrefix(path, prefix+"/") {
		return path[len(prefix)+1:], true
	}
	return "", false
}
