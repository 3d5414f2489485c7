package josh

import (
	"context"
	"fmt"
	"math"

	"github.com/go-git/go-git/v5/plumbing/object"
)

type dfsBuilderNode struct {
	data       *object.Commit
	nparent    int
	nextvisit  int
	generation int
}

type dfsBuilder struct {
	seen  HashSet
	stack []*dfsBuilderNode
}

func newDFSBuilder() *dfsBuilder {
	return &dfsBuilder{
		stack: make([]*dfsBuilderNode, 0),
		seen:  make(HashSet),
	}
}

func (gb *dfsBuilder) add(v *object.Commit, generation int) {
	hash := v.Hash
	if _, seen := gb.seen[hash]; seen {
		return
	}

	gb.seen[hash] = empty{}
	gb.stack = append(gb.stack, &dfsBuilderNode{
		data:       v,
		nparent:    v.NumParents(),
		nextvisit:  0,
		generation: generation,
	})
}

func (gb *dfsBuilder) pop() error {
	if len(gb.stack) == 0 {
		return fmt.Errorf("failed to pop empty dfs stack")
	}
	gb.stack = gb.stack[:len(gb.stack)-1]
	return nil
}

func (gb *dfsBuilder) top() *dfsBuilderNode {
	if len(gb.stack) == 0 {
		return nil
	}
	return gb.stack[len(gb.stack)-1]
}

// GetDFSPath walks the history reachable from head using an explicit
// work-stack rather than native recursion (§9's note on bounded stack
// depth for deep histories), visiting parents in order so the result is a
// deterministic --first-parent-first ordering with head last.
//
// roots, when non-nil, stops the walk along any path that reaches one of
// those commits, treating it as already-known rather than descending
// further. maxGeneration, when positive, caps how many generations back
// the walk goes.
func GetDFSPath(ctx context.Context, head *object.Commit, roots HashSet, maxGeneration int) ([]*object.Commit, error) {
	result := make([]*object.Commit, 0)
	gb := newDFSBuilder()
	gb.add(head, 0)

	if roots == nil {
		roots = make(HashSet)
	}
	if maxGeneration <= 0 {
		maxGeneration = math.MaxInt
	}

addloop:
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		current := gb.top()
		if current == nil {
			break addloop
		}

		_, isroot := roots[current.data.Hash]
		switch {
		case current.nextvisit == current.nparent:
			result = append(result, current.data)
			if err := gb.pop(); err != nil {
				return nil, err
			}
		case isroot:
			result = append(result, current.data)
			if err := gb.pop(); err != nil {
				return nil, err
			}
		case current.generation >= maxGeneration-1:
			result = append(result, current.data)
			if err := gb.pop(); err != nil {
				return nil, err
			}
		default:
			p, err := current.data.Parent(current.nextvisit)
			if err != nil {
				return nil, fmt.Errorf("cannot get parent %d for %s: %w", current.nextvisit, current.data.Hash.String(), err)
			}
			current.nextvisit++
			gb.add(p, current.generation+1)
		}
	}

	return result, nil
}
