package josh

import "testing"

func TestParseSpecRoundTrip(t *testing.T) {
	cases := []string{
		":/",
		":/sub/dir",
		":prefix=vendor/lib",
		":glob=**/*.go",
		":DIRS",
		":unsign",
		":workspace=ws",
		":exclude[:/secrets]",
		":SUBTRACT[:/a~:/b]",
		":/a:/b",
		":author=Jane Doe:jane@example.com",
	}

	for _, c := range cases {
		f, err := Parse(c)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c, err)
		}
		roundtripped := Spec(f)

		f2, err := Parse(roundtripped)
		if err != nil {
			t.Fatalf("Parse(Spec(Parse(%q))) = Parse(%q): %v", c, roundtripped, err)
		}
		if f2.ID() != f.ID() {
			t.Errorf("%q: filter-id changed across round trip: %x != %x", c, f.ID(), f2.ID())
		}
	}
}

func TestParseFold(t *testing.T) {
	f, err := Parse(":/a:/b:FOLD")
	if err != nil {
		t.Fatal(err)
	}
	if f.Kind != KindFold {
		t.Fatalf("expected KindFold, got %v", f.Kind)
	}
	if len(f.Children) != 2 {
		t.Fatalf("expected 2 fold children, got %d", len(f.Children))
	}
}

func TestParseRejectsUnknownAtom(t *testing.T) {
	if _, err := Parse(":BOGUS"); err == nil {
		t.Fatal("expected parse error for unknown all-caps atom")
	}
}

func TestFilterIDStable(t *testing.T) {
	a := Subdir("a/b")
	b := Subdir("/a/b/")
	if a.ID() != b.ID() {
		t.Errorf("Subdir paths should normalize to the same filter-id regardless of surrounding slashes")
	}
}

func TestChainFlattensAndDropsNop(t *testing.T) {
	c := Chain(Nop, Chain(Subdir("a"), Nop, Prefix("b")), Nop)
	n := Normalize(c)
	if n.Kind != KindChain {
		t.Fatalf("expected KindChain after flattening, got %v", n.Kind)
	}
	if len(n.Children) != 2 {
		t.Fatalf("expected 2 children after dropping Nop steps, got %d", len(n.Children))
	}
}

func TestExcludeNormalizesToSubtractFromNop(t *testing.T) {
	f := Exclude(Subdir("secret"))
	n := Normalize(f)
	if n.Kind != KindSubtract {
		t.Fatalf("expected KindSubtract, got %v", n.Kind)
	}
	if n.Children[0].Kind != KindNop {
		t.Fatalf("expected exclude's first operand to normalize to Nop, got %v", n.Children[0].Kind)
	}
}

func TestFoldOrderAffectsFilterID(t *testing.T) {
	// Two folds differing only in child order must NOT collapse to the
	// same filter-id, since fold is order-sensitive on path collisions
	// (see the note in normalize.go).
	a := Fold(Subdir("x"), Subdir("y"))
	b := Fold(Subdir("y"), Subdir("x"))
	if a.ID() == b.ID() {
		t.Error("fold operand order should be preserved in the filter-id")
	}
}
