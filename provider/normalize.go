package provider

import "path"

// Normalize returns path in the canonical form every Provider method and
// every model.FileResource.Path must use: a single leading slash,
// cleaned of "." and ".." segments, "//" collapsed, and no trailing
// slash except for the root itself. Two backends producing resources for
// the same logical file must agree on this string, since FileState and
// the decision table match entries by path equality alone.
//
// Generalized from memfs's clean helper (path.Clean("/" + p)), the one
// place in the original tree that already normalized consistently; every
// backend now routes its path construction through this same function.
func Normalize(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}
