package josh

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type empty = struct{}

// HashSet is simply a map from [plumbing.Hash] to [empty], used throughout
// the history walk as a seen/known/roots set.
type HashSet = map[plumbing.Hash]empty

// NewHashSet creates a new set of hashes.
func NewHashSet(hashes ...plumbing.Hash) HashSet {
	result := make(HashSet, len(hashes))
	for _, h := range hashes {
		result[h] = empty{}
	}
	return result
}

// NewHashSetFromStrings decodes the input hex strings and creates a new [HashSet].
func NewHashSetFromStrings(strs ...string) (HashSet, error) {
	hashes, err := DecodeHashHexes(strs...)
	if err != nil {
		return nil, err
	}
	return NewHashSet(hashes...), nil
}

// NewHashSetFromCommits collects the hashes of the commits into a [HashSet].
func NewHashSetFromCommits(commits []*object.Commit) HashSet {
	result := make(HashSet, len(commits))
	for _, c := range commits {
		if c == nil {
			continue
		}
		result[c.Hash] = empty{}
	}
	return result
}

// CombineHashSets unions any number of hash sets without mutating its
// arguments.
func CombineHashSets(sets ...HashSet) HashSet {
	result := make(HashSet)
	for _, s := range sets {
		for h := range s {
			result[h] = empty{}
		}
	}
	return result
}
