package utils

import "path/filepath"

// ResolveRelative rewrites each relative path in place so it is rooted at
// baseDir. Empty and absolute paths are left alone.
func ResolveRelative(baseDir string, paths ...*string) {
	for _, p := range paths {
		if p == nil || *p == "" || filepath.IsAbs(*p) {
			continue
		}
		*p = filepath.Join(baseDir, *p)
	}
}
