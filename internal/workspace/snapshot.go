package workspace

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lacquerai/blocksmith/internal/block"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// maxDepth bounds nesting so hostile snapshots cannot exhaust the stack
const maxDepth = 512

// ErrInvalidSnapshot is wrapped by every deserialization failure
var ErrInvalidSnapshot = errors.New("invalid workspace snapshot")

// InvalidSnapshotError describes why a snapshot was rejected
type InvalidSnapshotError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InvalidSnapshotError) Error() string {
	msg := e.Reason
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return "invalid workspace snapshot: " + msg
}

func (e *InvalidSnapshotError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidSnapshot, e.Err}
	}
	return []error{ErrInvalidSnapshot}
}

// Snapshot is the persisted form of a workspace:
// {"blocks": {"languageVersion": 0, "blocks": [...]}}
type Snapshot struct {
	Blocks *BlockList `json:"blocks,omitempty"`
}

// BlockList holds the top-level nodes of a snapshot
type BlockList struct {
	LanguageVersion int     `json:"languageVersion"`
	Blocks          []*Node `json:"blocks"`
}

// Node is one serialized block instance
type Node struct {
	Type   string                                      `json:"type"`
	ID     string                                      `json:"id,omitempty"`
	X      float64                                     `json:"x,omitempty"`
	Y      float64                                     `json:"y,omitempty"`
	Fields map[string]any                              `json:"fields,omitempty"`
	Inputs *orderedmap.OrderedMap[string, *Connection] `json:"inputs,omitempty"`
	Next   *Connection                                 `json:"next,omitempty"`
}

// Connection wraps the block attached to an input or next link. Shadow
// blocks are read as ordinary blocks.
type Connection struct {
	Block  *Node `json:"block,omitempty"`
	Shadow *Node `json:"shadow,omitempty"`
}

// Target returns the block attached to the connection
func (c *Connection) Target() *Node {
	if c == nil {
		return nil
	}
	if c.Block != nil {
		return c.Block
	}
	return c.Shadow
}

// Input returns the block connected to the named slot of n
func (n *Node) Input(slot string) *Node {
	if n.Inputs == nil {
		return nil
	}
	conn, ok := n.Inputs.Get(slot)
	if !ok {
		return nil
	}
	return conn.Target()
}

// Roots returns the top-level nodes
func (s *Snapshot) Roots() []*Node {
	if s == nil || s.Blocks == nil {
		return nil
	}
	return s.Blocks.Blocks
}

// IsEmpty reports whether the snapshot has no blocks
func (s *Snapshot) IsEmpty() bool {
	return len(s.Roots()) == 0
}

// Walk visits every node depth first: a node, its inputs in key order,
// then its next block. Returning false from fn stops the walk.
func (s *Snapshot) Walk(fn func(*Node) bool) {
	for _, root := range s.Roots() {
		if !walkNode(root, fn, 0) {
			return
		}
	}
}

func walkNode(n *Node, fn func(*Node) bool, depth int) bool {
	for cur := n; cur != nil; cur = cur.Next.Target() {
		if depth > maxDepth {
			return false
		}
		if !fn(cur) {
			return false
		}
		if cur.Inputs != nil {
			for pair := cur.Inputs.Oldest(); pair != nil; pair = pair.Next() {
				if child := pair.Value.Target(); child != nil {
					if !walkNode(child, fn, depth+1) {
						return false
					}
				}
			}
		}
	}
	return true
}

// ParseSnapshot decodes snapshot JSON without resolving block types
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &InvalidSnapshotError{Reason: "malformed JSON", Err: err}
	}
	return &snap, nil
}

// Serialize converts the workspace graph into a snapshot
func Serialize(w *Workspace) *Snapshot {
	list := &BlockList{Blocks: make([]*Node, 0, len(w.roots))}
	for _, root := range w.roots {
		node := serializeInstance(root)
		node.X, node.Y = root.X, root.Y
		list.Blocks = append(list.Blocks, node)
	}
	return &Snapshot{Blocks: list}
}

// Marshal serializes the workspace to JSON
func Marshal(w *Workspace) ([]byte, error) {
	return json.Marshal(Serialize(w))
}

func serializeInstance(inst *block.Instance) *Node {
	node := &Node{
		Type: inst.Type,
		ID:   inst.ID,
	}

	if len(inst.Fields) > 0 {
		node.Fields = make(map[string]any, len(inst.Fields))
		for k, v := range inst.Fields {
			node.Fields[k] = v
		}
	}

	for _, slot := range inst.InputOrder {
		child := inst.Inputs[slot]
		if child == nil {
			continue
		}
		if node.Inputs == nil {
			node.Inputs = orderedmap.New[string, *Connection]()
		}
		node.Inputs.Set(slot, &Connection{Block: serializeInstance(child)})
	}

	if inst.Next != nil {
		node.Next = &Connection{Block: serializeInstance(inst.Next)}
	}

	return node
}

// Unmarshal decodes snapshot JSON and builds a workspace from it
func Unmarshal(data []byte, registry *block.Registry) (*Workspace, error) {
	snap, err := ParseSnapshot(data)
	if err != nil {
		return nil, err
	}
	return Deserialize(snap, registry)
}

// Deserialize builds a new workspace from a snapshot. Every referenced type
// must be registered; on any error no workspace is returned.
func Deserialize(snap *Snapshot, registry *block.Registry) (*Workspace, error) {
	d := &decoder{registry: registry, seen: make(map[string]bool)}

	w := New()
	for i, node := range snap.Roots() {
		if node == nil {
			return nil, &InvalidSnapshotError{Path: fmt.Sprintf("blocks[%d]", i), Reason: "block is null"}
		}
		inst, err := d.instance(node, fmt.Sprintf("blocks[%d]", i), 0)
		if err != nil {
			return nil, err
		}
		inst.X, inst.Y = node.X, node.Y
		w.roots = append(w.roots, inst)
	}
	return w, nil
}

// Load replaces the workspace contents with the snapshot. The current
// graph is left untouched when the snapshot is rejected.
func (w *Workspace) Load(snap *Snapshot, registry *block.Registry) error {
	loaded, err := Deserialize(snap, registry)
	if err != nil {
		return err
	}
	w.roots = loaded.roots
	return nil
}

type decoder struct {
	registry *block.Registry
	seen     map[string]bool
}

// instance decodes a block and its next chain. Only nesting through inputs
// counts towards maxDepth; chains are followed iteratively.
func (d *decoder) instance(node *Node, base string, depth int) (*block.Instance, error) {
	if depth > maxDepth {
		return nil, &InvalidSnapshotError{Path: base, Reason: "blocks nested too deeply"}
	}

	var head, prev *block.Instance

	path := base
	for i, cur := 0, node; cur != nil; i, cur = i+1, cur.Next.Target() {
		if i > 0 {
			path = fmt.Sprintf("%s.next[%d]", base, i)
		}

		inst, err := d.single(cur, path, depth)
		if err != nil {
			return nil, err
		}

		if head == nil {
			head = inst
		} else {
			prev.Next = inst
		}
		prev = inst
	}

	return head, nil
}

func (d *decoder) single(node *Node, path string, depth int) (*block.Instance, error) {
	if node.Type == "" {
		return nil, &InvalidSnapshotError{Path: path, Reason: "block type is required"}
	}

	schema, ok := d.registry.Schema(node.Type)
	if !ok {
		return nil, &InvalidSnapshotError{
			Path:   path,
			Reason: fmt.Sprintf("unknown block type %q", node.Type),
		}
	}

	id := node.ID
	if id == "" {
		id = uuid.NewString()
	}
	if d.seen[id] {
		return nil, &InvalidSnapshotError{Path: path, Reason: fmt.Sprintf("duplicate block id %q", id)}
	}
	d.seen[id] = true

	inst := &block.Instance{
		ID:     id,
		Type:   node.Type,
		Fields: make(map[string]any, len(node.Fields)),
	}
	for k, v := range node.Fields {
		switch v.(type) {
		case map[string]any, []any:
			return nil, &InvalidSnapshotError{
				Path:   path + ".fields." + k,
				Reason: "field values must be scalars",
			}
		}
		inst.Fields[k] = v
	}

	if node.Inputs != nil {
		for pair := node.Inputs.Oldest(); pair != nil; pair = pair.Next() {
			slot := pair.Key
			arg, ok := schema.Shape.Arg(slot)
			if !ok || !arg.Kind.IsSlot() {
				return nil, &InvalidSnapshotError{
					Path:   path + ".inputs",
					Reason: fmt.Sprintf("block type %q has no input %q", node.Type, slot),
				}
			}

			target := pair.Value.Target()
			if target == nil {
				continue
			}

			child, err := d.instance(target, path+".inputs."+slot, depth+1)
			if err != nil {
				return nil, err
			}
			inst.SetInput(slot, child)
		}
	}

	return inst, nil
}
