package josh

import "github.com/go-git/go-git/v5/plumbing/object"

// GetRoots returns the commits in commits that have no parent also present
// in commits — the boundary of a partial history slice.
func GetRoots(commits []*object.Commit) []*object.Commit {
	result := make([]*object.Commit, 0, 1)
	all := make(HashSet, len(commits))
	for _, c := range commits {
		if c == nil || c.Hash.IsZero() {
			continue
		}
		all[c.Hash] = empty{}
	}

	for _, c := range commits {
		if c == nil {
			continue
		}
		n := 0
		for _, p := range c.ParentHashes {
			if _, in := all[p]; in {
				n++
			}
		}
		if n == 0 {
			result = append(result, c)
		}
	}

	return result
}
