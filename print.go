package josh

import (
	"fmt"
	"strings"
)

// canonical returns the single-line, reversible string form used for
// filter-id hashing: parse(spec(F)) == F. f must already be normalized.
func (f *Filter) canonical() string {
	if f.canon != "" {
		return f.canon
	}
	s := specString(f)
	f.canon = s
	return s
}

func specString(f *Filter) string {
	switch f.Kind {
	case KindNop:
		return ":/"
	case KindEmpty:
		return ":empty"
	case KindDirs:
		return ":DIRS"
	case KindUnsign:
		return ":unsign"
	case KindSubdir:
		return ":/" + f.Path
	case KindPrefix:
		return ":prefix=" + f.Path
	case KindWorkspace:
		return ":workspace=" + f.Path
	case KindGlob:
		return ":glob=" + f.Pattern
	case KindAuthor:
		return fmt.Sprintf(":author=%s:%s", f.Name, f.Email)
	case KindSubtract:
		a, b := f.Children[0], f.Children[1]
		if Normalize(a).Kind == KindNop {
			return ":exclude[" + specString(Normalize(b)) + "]"
		}
		return fmt.Sprintf(":SUBTRACT[%s~%s]", specString(Normalize(a)), specString(Normalize(b)))
	case KindFold:
		parts := make([]string, 0, len(f.Children)+1)
		for _, c := range f.Children {
			parts = append(parts, specString(Normalize(c)))
		}
		parts = append(parts, ":FOLD")
		return strings.Join(parts, "")
	case KindChain:
		parts := make([]string, 0, len(f.Children))
		for _, c := range f.Children {
			parts = append(parts, specString(Normalize(c)))
		}
		return strings.Join(parts, "")
	default:
		return ":/"
	}
}

// Spec prints f's single-line canonical form after normalizing.
func Spec(f *Filter) string {
	return specString(Normalize(f))
}

// Pretty prints f as multiple lines with a per-node depth tag, for the
// CLI's -s flag.
func Pretty(f *Filter, indent int) string {
	return prettyNode(Normalize(f), indent)
}

func prettyNode(f *Filter, indent int) string {
	pad := strings.Repeat(" ", indent)
	switch f.Kind {
	case KindChain:
		lines := make([]string, 0, len(f.Children))
		for _, c := range f.Children {
			lines = append(lines, prettyNode(Normalize(c), indent+4))
		}
		return pad + ":chain[\n" + strings.Join(lines, "\n") + "\n" + pad + "]"
	case KindFold:
		lines := make([]string, 0, len(f.Children))
		for _, c := range f.Children {
			lines = append(lines, prettyNode(Normalize(c), indent+4))
		}
		return pad + ":FOLD[\n" + strings.Join(lines, "\n") + "\n" + pad + "]"
	case KindSubtract:
		return pad + ":SUBTRACT[\n" +
			prettyNode(Normalize(f.Children[0]), indent+4) + "\n" +
			pad + "    ~\n" +
			prettyNode(Normalize(f.Children[1]), indent+4) + "\n" +
			pad + "]"
	default:
		return pad + specString(f)
	}
}
