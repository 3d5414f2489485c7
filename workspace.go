package josh

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// workspaceFileName is the descriptor filename §4.1's `:workspace=<path>`
// reads out of the selected subtree.
const workspaceFileName = "workspace.josh"

// Mount is one `name = filter-expression` line of a workspace descriptor.
type Mount struct {
	Name   string
	Filter *Filter
}

// parseWorkspace parses a workspace.josh file's contents: one mount per
// non-blank, non-comment line, `name = filter-expression`; `#` starts a
// line comment.
func parseWorkspace(content string) ([]Mount, error) {
	var mounts []Mount
	sc := bufio.NewScanner(strings.NewReader(content))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, &ParseError{Offset: lineNo, Expected: "'=' in workspace mount line", Input: line}
		}
		name := strings.TrimSpace(line[:eq])
		expr := strings.TrimSpace(line[eq+1:])
		if name == "" {
			return nil, &ParseError{Offset: lineNo, Expected: "non-empty mount name", Input: line}
		}
		f, err := Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("workspace.josh line %d: %w", lineNo, err)
		}
		mounts = append(mounts, Mount{Name: cleanPath(name), Filter: f})
	}
	if err := sc.Err(); err != nil {
		return nil, &IOError{Err: err}
	}
	return mounts, nil
}

func blobContents(b *object.Blob) (string, error) {
	r, err := b.Reader()
	if err != nil {
		return "", &IOError{Err: err}
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", &IOError{Err: err}
	}
	return string(data), nil
}
