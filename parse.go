package josh

import (
	"strings"
)

// Parse parses the textual filter language from §4.1/§6 into an AST.
// A filter ending a line ends parsing; callers pass a single line.
func Parse(s string) (*Filter, error) {
	s = strings.TrimRight(s, "\r\n")
	fragments, err := splitAtoms(s)
	if err != nil {
		return nil, err
	}
	if len(fragments) == 0 {
		return Nop, nil
	}

	steps := make([]*Filter, 0, len(fragments))
	pending := make([]*Filter, 0) // atoms accumulated since the last FOLD boundary

	flushPending := func() {
		steps = append(steps, pending...)
		pending = nil
	}

	for i := 0; i < len(fragments); i++ {
		frag := fragments[i]
		body := strings.TrimSpace(frag.text[1:]) // strip leading ':'

		if body == "FOLD" {
			if len(pending) == 0 {
				return nil, &ParseError{Offset: frag.offset, Expected: "at least one filter before :FOLD", Input: s}
			}
			steps = append(steps, Fold(pending...))
			pending = nil
			continue
		}

		if strings.HasPrefix(body, "author=") {
			name := body[len("author="):]
			if i+1 >= len(fragments) {
				return nil, &ParseError{Offset: frag.offset, Expected: "email segment after :author=<name>", Input: s}
			}
			i++
			email := strings.TrimSpace(fragments[i].text[1:])
			pending = append(pending, Author(name, email))
			continue
		}

		f, err := parseAtomBody(body, frag.offset, s)
		if err != nil {
			return nil, err
		}
		pending = append(pending, f)
	}
	flushPending()

	return Chain(steps...), nil
}

type atomFragment struct {
	text   string
	offset int
}

// splitAtoms splits a colon-composed filter string into atom fragments,
// each still carrying its leading ':'. Colons inside [...] brackets do not
// split.
func splitAtoms(s string) ([]atomFragment, error) {
	if s == "" {
		return nil, nil
	}
	if s[0] != ':' {
		return nil, &ParseError{Offset: 0, Expected: "':' to start a filter atom", Input: s}
	}

	var frags []atomFragment
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return nil, &ParseError{Offset: i, Expected: "matching '['", Input: s}
			}
		case ':':
			if depth == 0 && i != start {
				frags = append(frags, atomFragment{text: s[start:i], offset: start})
				start = i
			}
		}
	}
	if depth != 0 {
		return nil, &ParseError{Offset: len(s), Expected: "matching ']'", Input: s}
	}
	frags = append(frags, atomFragment{text: s[start:], offset: start})
	return frags, nil
}

// parseAtomBody parses the content of a single atom, excluding the leading
// ':' and excluding the FOLD/author special forms handled by the caller.
func parseAtomBody(body string, offset int, full string) (*Filter, error) {
	switch {
	case body == "":
		return Nop, nil
	case body == "/":
		return Nop, nil
	case body == "DIRS":
		return Dirs, nil
	case body == "unsign":
		return Unsign, nil
	case body == "empty":
		return emptyFilter, nil
	case strings.HasPrefix(body, "/"):
		return Subdir(body[1:]), nil
	case strings.HasPrefix(body, "prefix="):
		return Prefix(body[len("prefix="):]), nil
	case strings.HasPrefix(body, "glob="):
		return Glob(body[len("glob="):]), nil
	case strings.HasPrefix(body, "workspace="):
		return Workspace(body[len("workspace="):]), nil
	case strings.HasPrefix(body, "exclude["):
		inner, err := bracketBody(body, "exclude[", offset, full)
		if err != nil {
			return nil, err
		}
		innerFilter, err := Parse(inner)
		if err != nil {
			return nil, err
		}
		return Exclude(innerFilter), nil
	case strings.HasPrefix(body, "SUBTRACT["):
		inner, err := bracketBody(body, "SUBTRACT[", offset, full)
		if err != nil {
			return nil, err
		}
		a, b, err := splitSubtract(inner, offset, full)
		if err != nil {
			return nil, err
		}
		af, err := Parse(a)
		if err != nil {
			return nil, err
		}
		bf, err := Parse(b)
		if err != nil {
			return nil, err
		}
		return Subtract(af, bf), nil
	default:
		// bare path navigation: `:<path>` is equivalent to `:/<path>`.
		if isBareToken(body) {
			return nil, &ParseError{Offset: offset, Expected: "known atom keyword or bare path", Input: full}
		}
		return Subdir(body), nil
	}
}

func bracketBody(body, prefix string, offset int, full string) (string, error) {
	if !strings.HasSuffix(body, "]") {
		return "", &ParseError{Offset: offset, Expected: "closing ']'", Input: full}
	}
	return body[len(prefix) : len(body)-1], nil
}

// splitSubtract splits "A~B" (bracket depth respected) into its two operands.
func splitSubtract(s string, offset int, full string) (string, string, error) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case '~':
			if depth == 0 {
				return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), nil
			}
		}
	}
	return "", "", &ParseError{Offset: offset, Expected: "'~' separating SUBTRACT operands", Input: full}
}

// isBareToken rejects tokens that look like a malformed keyword instead of
// silently treating them as a path, per §4.1: "Unknown atoms are a parse
// error, never silently ignored."
func isBareToken(body string) bool {
	if strings.ContainsAny(body, "=[]~") {
		return true
	}
	if body == strings.ToUpper(body) && strings.TrimFunc(body, isUpperLetter) == "" {
		return true
	}
	return false
}

func isUpperLetter(r rune) bool { return r >= 'A' && r <= 'Z' }
