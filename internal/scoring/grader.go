// internal/scoring/grader.go
package scoring

import (
	"fmt"
)

type FinalizePolicy string

const (
	// PolicyAll requires every child subtree to be complete.
	PolicyAll FinalizePolicy = "all"
	// PolicyAny accepts a single DONE node anywhere below.
	PolicyAny FinalizePolicy = "any"
)

func ParsePolicy(s string) (FinalizePolicy, error) {
	switch FinalizePolicy(s) {
	case "", PolicyAll:
		return PolicyAll, nil
	case PolicyAny:
		return PolicyAny, nil
	default:
		return "", fmt.Errorf("unknown finalize policy %q", s)
	}
}

// Grader gates finalize transitions of grade types and structures.
type Grader struct {
	Policy FinalizePolicy
}

func NewGrader(policy FinalizePolicy) *Grader {
	if policy == "" {
		policy = PolicyAll
	}
	return &Grader{Policy: policy}
}

// CanFinalize reports whether a node owning children may be marked DONE.
// A node without children can always be finalized.
func (g *Grader) CanFinalize(children []*Node) bool {
	if len(children) == 0 {
		return true
	}

	if g.Policy == PolicyAny {
		for _, c := range children {
			if CanFinalize(c) {
				return true
			}
		}
		return false
	}

	for _, c := range children {
		if !Complete(c) {
			return false
		}
	}
	return true
}

// CanFinalizeType gates a single grade type.
func (g *Grader) CanFinalizeType(n *Node) bool {
	return g.CanFinalize(n.Children)
}

// CanFinalizeStructure gates the whole structure.
func (g *Grader) CanFinalizeStructure(t *Tree) bool {
	return g.CanFinalize(t.Roots)
}
