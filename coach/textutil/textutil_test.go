package textutil

import "testing"

func TestCleanCollapsesWhitespace(t *testing.T) {
	got := Clean("  سلام   دنیا \n\t خوبی؟ ")
	want := "سلام دنیا خوبی؟"
	if got != want {
		t.Fatalf("Clean = %q, want %q", got, want)
	}
}

func TestCleanDropsDisallowedRunes(t *testing.T) {
	got := Clean("tone🙂 = friendly*")
	want := "tone friendly"
	if got != want {
		t.Fatalf("Clean = %q, want %q", got, want)
	}
}

func TestIsValid(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"   \n\t ", false},
		{"ab", false},
		{"🙂🙂🙂", false},
		{"دوستانه", true},
		{"ok!", true},
	}
	for _, tc := range cases {
		if got := IsValid(tc.in); got != tc.want {
			t.Fatalf("IsValid(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
