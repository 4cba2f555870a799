// Package workspace holds a user's graph of block instances and converts
// it to and from the persisted snapshot format.
package workspace

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lacquerai/blocksmith/internal/block"
)

// Workspace exclusively owns a graph of block instances. Roots are the
// instances with no previous connection, kept in visual order.
type Workspace struct {
	roots []*block.Instance
}

// New creates an empty workspace
func New() *Workspace {
	return &Workspace{}
}

// NewInstance creates an unattached instance of schema with default fields
func NewInstance(schema *block.Schema) *block.Instance {
	return &block.Instance{
		ID:     uuid.NewString(),
		Type:   schema.Name,
		Fields: schema.DefaultFields(),
	}
}

// Roots returns the top-level instances in order
func (w *Workspace) Roots() []*block.Instance {
	return w.roots
}

// Add appends a top-level instance
func (w *Workspace) Add(inst *block.Instance) {
	w.roots = append(w.roots, inst)
}

// Remove deletes the instance with the given id and everything attached
// below it. Removing a block from the middle of a chain reattaches the
// rest of the chain to its predecessor.
func (w *Workspace) Remove(id string) bool {
	for i, root := range w.roots {
		if root.ID == id {
			head := w.roots[:i:i]
			if root.Next != nil {
				head = append(head, root.Next)
			}
			w.roots = append(head, w.roots[i+1:]...)
			return true
		}
	}

	for _, root := range w.roots {
		if detach(root, id) {
			return true
		}
	}
	return false
}

func detach(parent *block.Instance, id string) bool {
	for cur := parent; cur != nil; cur = cur.Next {
		if cur.Next != nil && cur.Next.ID == id {
			cur.Next = cur.Next.Next
			return true
		}

		for _, slot := range cur.InputOrder {
			child := cur.Inputs[slot]
			if child == nil {
				continue
			}
			if child.ID == id {
				cur.Inputs[slot] = child.Next
				return true
			}
			if detach(child, id) {
				return true
			}
		}
	}
	return false
}

// Find returns the instance with the given id anywhere in the graph
func (w *Workspace) Find(id string) (*block.Instance, bool) {
	var found *block.Instance
	for _, root := range w.roots {
		root.Walk(func(inst *block.Instance) bool {
			if inst.ID == id {
				found = inst
				return false
			}
			return true
		})
		if found != nil {
			return found, true
		}
	}
	return nil, false
}

// Connect attaches child to a slot of the parent with the given id.
// Attaching to a statement slot that already has children appends the
// child to the end of the chain.
func (w *Workspace) Connect(parentID, slot string, child *block.Instance) error {
	parent, ok := w.Find(parentID)
	if !ok {
		return fmt.Errorf("block %s not found", parentID)
	}

	existing := parent.Input(slot)
	if existing == nil {
		parent.SetInput(slot, child)
		return nil
	}

	tail := existing
	for tail.Next != nil {
		tail = tail.Next
	}
	tail.Next = child
	return nil
}

// Clear removes every instance
func (w *Workspace) Clear() {
	w.roots = nil
}

// Len counts every instance in the graph, nested ones included
func (w *Workspace) Len() int {
	count := 0
	for _, root := range w.roots {
		root.Walk(func(*block.Instance) bool {
			count++
			return true
		})
	}
	return count
}

// IsEmpty reports whether the workspace has no instances
func (w *Workspace) IsEmpty() bool {
	return len(w.roots) == 0
}
