package xar

import "strings"

// NormalizePath converts a user-provided path to the form used for entry lookups.
//
// Leading, trailing and repeated slashes are removed: "/dir//a.txt/" becomes
// "dir/a.txt". An empty result stays empty, since archives have no root entry.
// "." and ".." elements are kept and will simply not match any entry.
func NormalizePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" || !strings.Contains(p, "//") {
		return p
	}
	parts := strings.Split(p, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	return strings.Join(result, "/")
}
