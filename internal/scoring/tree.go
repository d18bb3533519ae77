// internal/scoring/tree.go
package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

var (
	ErrUnknownParent  = errors.New("parent grade type not found")
	ErrInvalidParent  = errors.New("sub grade type must belong to a parent grade type")
	ErrDuplicateLabel = errors.New("label already used by a sibling")
)

// Node owns its children in display order.
type Node struct {
	Type     models.GradeType
	Children []*Node
}

func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Tree is the grading hierarchy of one structure.
type Tree struct {
	Roots []*Node
	byID  map[string]*Node
}

// BuildTree links flat grade types into a tree. Siblings are ordered by
// position, then creation time.
func BuildTree(types []models.GradeType) (*Tree, error) {
	t := &Tree{byID: make(map[string]*Node, len(types))}

	sorted := make([]models.GradeType, len(types))
	copy(sorted, types)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	for _, gt := range sorted {
		t.byID[gt.ID] = &Node{Type: gt}
	}

	for _, gt := range sorted {
		node := t.byID[gt.ID]
		if gt.IsTopLevel() {
			if gt.Kind == models.GradeKindSub {
				return nil, fmt.Errorf("%w: %s has no parent", ErrInvalidParent, gt.Label)
			}
			if err := checkLabel(t.Roots, gt.Label); err != nil {
				return nil, err
			}
			t.Roots = append(t.Roots, node)
			continue
		}

		parent, ok := t.byID[*gt.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParent, *gt.ParentID)
		}
		if parent.Type.Kind != models.GradeKindParent {
			return nil, fmt.Errorf("%w: %s under %s", ErrInvalidParent, gt.Label, parent.Type.Label)
		}
		if err := checkLabel(parent.Children, gt.Label); err != nil {
			return nil, err
		}
		parent.Children = append(parent.Children, node)
	}

	return t, nil
}

func checkLabel(siblings []*Node, label string) error {
	for _, s := range siblings {
		if s.Type.Label == label {
			return fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
		}
	}
	return nil
}

// Find returns the node with the given grade type id.
func (t *Tree) Find(id string) (*Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// Walk visits every node depth first, parents before children. Returning
// false from fn skips the node's subtree.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	for _, r := range t.Roots {
		walk(r, 0, fn)
	}
}

func walk(n *Node, depth int, fn func(*Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}

// Fold reduces a subtree bottom-up. combine receives the results of n's
// children in the same order as n.Children.
func Fold[T any](n *Node, leaf func(*Node) T, combine func(*Node, []T) T) T {
	if n.IsLeaf() {
		return leaf(n)
	}
	results := make([]T, len(n.Children))
	for i, c := range n.Children {
		results[i] = Fold(c, leaf, combine)
	}
	return combine(n, results)
}

// Depth is the number of levels of the tree; zero for an empty tree.
func (t *Tree) Depth() int {
	depth := 0
	for _, r := range t.Roots {
		d := Fold(r,
			func(*Node) int { return 1 },
			func(_ *Node, children []int) int {
				deepest := 0
				for _, c := range children {
					if c > deepest {
						deepest = c
					}
				}
				return deepest + 1
			},
		)
		if d > depth {
			depth = d
		}
	}
	return depth
}

// Leaves returns the leaf nodes under n in column order.
func Leaves(n *Node) []*Node {
	return Fold(n,
		func(l *Node) []*Node { return []*Node{l} },
		func(_ *Node, children [][]*Node) []*Node {
			var out []*Node
			for _, c := range children {
				out = append(out, c...)
			}
			return out
		},
	)
}

// Warnings lists sibling groups whose weights do not add up to 100.
// Rollups still use the weights as they are.
func (t *Tree) Warnings() []string {
	var warnings []string
	check := func(owner string, siblings []*Node) {
		if len(siblings) == 0 {
			return
		}
		sum := 0.0
		for _, s := range siblings {
			sum += s.Type.Percentage
		}
		if math.Abs(sum-100) > 1e-9 {
			warnings = append(warnings, fmt.Sprintf("weights under %s sum to %.2f%%", owner, sum))
		}
	}

	check("structure", t.Roots)
	t.Walk(func(n *Node, _ int) bool {
		check(n.Type.Label, n.Children)
		return true
	})
	return warnings
}
