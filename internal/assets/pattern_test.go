package assets

import (
	"regexp"
	"testing"
)

func TestStaticPathsSkipsAppPrefix(t *testing.T) {
	got := StaticPaths([]string{"_app/start.js", "robots.txt", "/favicon.png", "robots.txt", "_app/x/y.css"})
	want := []string{"favicon.png", "robots.txt"}

	if len(got) != len(want) {
		t.Fatalf("StaticPaths() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("StaticPaths() = %v, want %v", got, want)
		}
	}
}

func TestPatternEscapesAndMatches(t *testing.T) {
	pattern := Pattern([]string{"_app/start.js", "robots.txt", "img/logo(1).png", "a+b.txt"})

	want := `a\+b\.txt|img\/logo\(1\)\.png|robots\.txt`
	if pattern != want {
		t.Fatalf("Pattern() = %q, want %q", pattern, want)
	}

	re := regexp.MustCompile(`^/(?:` + pattern + `)$`)
	for _, path := range []string{"/robots.txt", "/img/logo(1).png", "/a+b.txt"} {
		if !re.MatchString(path) {
			t.Fatalf("expected %q to match", path)
		}
	}
	for _, path := range []string{"/robotsXtxt", "/aab.txt", "/_app/start.js", "/robots.txt/"} {
		if re.MatchString(path) {
			t.Fatalf("expected %q not to match", path)
		}
	}
}

func TestPatternEmpty(t *testing.T) {
	if got := Pattern([]string{"_app/a.js"}); got != "" {
		t.Fatalf("Pattern() = %q, want empty", got)
	}
}
