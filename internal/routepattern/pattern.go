// Package routepattern matches navigation paths against route patterns.
// Patterns are exact paths, plus a trailing "/*" wildcard for subtree routes
// ("/admin/*" matches "/admin" and "/admin/dashboard").
package routepattern

import "strings"

func Match(pattern, path string) bool {
	pattern = normalize(pattern)
	path = normalize(path)

	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}

	return pattern == path
}

// normalize strips a query/fragment and a trailing slash, keeping "/" intact.
func normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	if p == "" {
		p = "/"
	}
	return p
}
