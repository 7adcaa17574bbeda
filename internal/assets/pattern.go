package assets

import (
	"regexp"
	"sort"
	"strings"
)

// AppPrefix holds the framework's hashed build output. Everything under it is
// static by construction, so it never needs to be listed explicitly.
const AppPrefix = "_app/"

// StaticPaths returns the sorted, de-duplicated paths that live outside
// AppPrefix. These are the app-level files (favicon, robots.txt, ...) the
// dispatcher can only recognise through the embedded list.
func StaticPaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	result := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimPrefix(p, "/")
		if p == "" || strings.HasPrefix(p, AppPrefix) {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		result = append(result, p)
	}
	sort.Strings(result)
	return result
}

// Pattern joins the escaped StaticPaths into a regular-expression alternation.
// An empty set yields an empty string.
func Pattern(paths []string) string {
	static := StaticPaths(paths)
	escaped := make([]string, 0, len(static))
	for _, p := range static {
		escaped = append(escaped, escapePath(p))
	}
	return strings.Join(escaped, "|")
}

// escapePath quotes regexp metacharacters and '/', so the pattern is also
// valid inside a JavaScript regular-expression literal.
func escapePath(p string) string {
	return strings.ReplaceAll(regexp.QuoteMeta(p), "/", `\/`)
}
