package remote

import "strings"

// JoinPath appends a child segment to an object path. A "/" is inserted
// before the child unless the parent is empty or already ends with one.
// Segments are used as received from the server and never re-escaped.
func JoinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	if !strings.HasSuffix(parent, "/") {
		parent += "/"
	}
	return parent + name
}

// NormalizePath strips stray trailing slashes from an object path.
func NormalizePath(path string) string {
	return strings.TrimRight(path, "/")
}

// PathID turns an object path into an identifier usable as a UI element id
// by replacing every "/" with "_". The transform is lossy: "A/B" and "A_B"
// map to the same id. It must never be used to address the server.
func PathID(path string) string {
	return strings.ReplaceAll(path, "/", "_")
}
