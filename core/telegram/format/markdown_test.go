package format

import (
	"strings"
	"testing"
)

func TestSplitFencedAlternation(t *testing.T) {
	segs := SplitFenced("before ```code``` after")
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	if segs[0].Code || !segs[1].Code || segs[2].Code {
		t.Fatalf("segments must alternate prose/code/prose, got %+v", segs)
	}
	if segs[1].Text != "code" {
		t.Fatalf("code segment = %q, want %q", segs[1].Text, "code")
	}
}

func TestSplitFencedUnterminated(t *testing.T) {
	segs := SplitFenced("prose ```dangling")
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if !segs[1].Code {
		t.Fatal("trailing unmatched fence must open a code segment")
	}
	if segs[1].Text != "dangling" {
		t.Fatalf("tail = %q, want %q", segs[1].Text, "dangling")
	}
}

func TestEscapeReservedCharacters(t *testing.T) {
	got := Escape("Hello_World!")
	want := `Hello\_World\!`
	if got != want {
		t.Fatalf("Escape = %q, want %q", got, want)
	}
}

func TestEscapeLeavesCodeVerbatim(t *testing.T) {
	got := Escape("use ```a_b.c``` here!")
	if !strings.Contains(got, "`a_b.c`") {
		t.Fatalf("code body must stay unescaped, got %q", got)
	}
	if !strings.HasSuffix(got, `here\!`) {
		t.Fatalf("prose tail must be escaped, got %q", got)
	}
}

func TestRefineHeadingsAndBullets(t *testing.T) {
	in := "# Title\n## Section\n### Sub\n#### Deep\n- item\n2. second"
	got := Refine(in)
	for _, want := range []string{"🟣 Title", "🔷 Section", "⭐ Sub", "🔶 Deep", "🔹 item", "🔹 second"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Refine output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "#") {
		t.Fatalf("no heading marker may survive, got %q", got)
	}
}

func TestRefinePreservesBoldEscapesUnderscore(t *testing.T) {
	got := Refine("**bold** and _ignored_")
	want := `*bold* and \_ignored\_`
	if got != want {
		t.Fatalf("Refine = %q, want %q", got, want)
	}
}

func TestRefineEmphasisConversion(t *testing.T) {
	got := Refine("*soft* and ~~gone~~")
	if !strings.Contains(got, "_soft_") {
		t.Fatalf("single-star italic must become underscore italic, got %q", got)
	}
	if !strings.Contains(got, "~gone~") {
		t.Fatalf("strikethrough must collapse to single tildes, got %q", got)
	}
}

func TestRefineInlineCodeAndLink(t *testing.T) {
	got := Refine("run `go_test.sh` or see [docs v1.2](https://example.com/a_b)")
	if !strings.Contains(got, "`go_test.sh`") {
		t.Fatalf("inline code body must stay verbatim, got %q", got)
	}
	if !strings.Contains(got, `[docs v1\.2](https://example.com/a_b)`) {
		t.Fatalf("link text escaped and URL preserved, got %q", got)
	}
}

func TestRefineFencedCodeUntouched(t *testing.T) {
	code := "def f():\n    return a_b # trailing!"
	got := Refine("intro\n```" + code + "```\noutro.")
	if !strings.Contains(got, code) {
		t.Fatalf("fenced body must pass through byte-for-byte:\n%s", got)
	}
	if !strings.Contains(got, `outro\.`) {
		t.Fatalf("prose around the fence must still be escaped, got %q", got)
	}
}

func TestRefineTotality(t *testing.T) {
	inputs := []string{
		"",
		"```",
		"``` ``` ```",
		"**unbalanced",
		"_ _ _ _",
		"[broken](link",
		strings.Repeat("#*_~`", 50),
	}
	for _, in := range inputs {
		_ = Refine(in) // must not panic for any input
	}
}
