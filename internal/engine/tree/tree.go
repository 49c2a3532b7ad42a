// Package tree implements an ordered tree of identity-bearing nodes stored as
// an arena: a node table keyed by id with explicit child id lists.
//
// A Model is not safe for concurrent use; owners guard it with their own lock.
package tree

import (
	"errors"
	"fmt"

	"github.com/Tilix4/kdenlive/internal/engine/ident"
)

// Errors returned by tree operations.
var (
	ErrNodeNotFound      = errors.New("node not found")
	ErrLeafHasNoChildren = errors.New("leaf node cannot have children")
	ErrDuplicateID       = errors.New("node id already registered")
	ErrRootImmutable     = errors.New("root node cannot be changed")
	ErrRowOutOfRange     = errors.New("row out of range")
	ErrCycle             = errors.New("node cannot be moved into its own subtree")
)

// Kind tags a node.
type Kind uint8

const (
	KindRoot Kind = iota
	KindGroup
	KindLeaf
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindGroup:
		return "group"
	case KindLeaf:
		return "leaf"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Hooks let the owner of a model observe node registration.
// Registered runs after a node is inserted. Deregistered runs before a node
// leaves the table; for a subtree, descendants are deregistered first.
type Hooks[T any] struct {
	Registered   func(id ident.ID, data T)
	Deregistered func(id ident.ID, data T)
}

type node[T any] struct {
	kind     Kind
	parent   ident.ID
	children []ident.ID
	data     T
}

// Model is an ordered tree with a permanent root.
type Model[T any] struct {
	root  ident.ID
	nodes map[ident.ID]*node[T]
	hooks Hooks[T]
}

// New creates a model holding only a root node.
func New[T any](rootData T, hooks Hooks[T]) *Model[T] {
	root := ident.Next()
	return &Model[T]{
		root: root,
		nodes: map[ident.ID]*node[T]{
			root: {kind: KindRoot, parent: ident.Invalid, data: rootData},
		},
		hooks: hooks,
	}
}

// Root returns the root id.
func (m *Model[T]) Root() ident.ID {
	return m.root
}

// Len returns the number of nodes, excluding the root.
func (m *Model[T]) Len() int {
	return len(m.nodes) - 1
}

// Has reports whether id is registered.
func (m *Model[T]) Has(id ident.ID) bool {
	_, ok := m.nodes[id]
	return ok
}

func (m *Model[T]) lookup(id ident.ID) (*node[T], error) {
	n, ok := m.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	return n, nil
}

// Insert adds a node under parent at row. A row of -1 appends.
// The id is supplied by the caller so undo can restore a node under its
// original id.
func (m *Model[T]) Insert(parent ident.ID, row int, id ident.ID, kind Kind, data T) error {
	if kind == KindRoot {
		return ErrRootImmutable
	}
	if _, exists := m.nodes[id]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	p, err := m.lookup(parent)
	if err != nil {
		return err
	}
	if p.kind == KindLeaf {
		return fmt.Errorf("%w: %d", ErrLeafHasNoChildren, parent)
	}
	if row == -1 {
		row = len(p.children)
	}
	if row < 0 || row > len(p.children) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrRowOutOfRange, row, len(p.children))
	}

	p.children = insertAt(p.children, row, id)
	m.nodes[id] = &node[T]{kind: kind, parent: parent, data: data}

	if m.hooks.Registered != nil {
		m.hooks.Registered(id, data)
	}
	return nil
}

// Remove deletes id and its whole subtree.
func (m *Model[T]) Remove(id ident.ID) error {
	if id == m.root {
		return ErrRootImmutable
	}
	n, err := m.lookup(id)
	if err != nil {
		return err
	}

	p := m.nodes[n.parent]
	p.children = removeID(p.children, id)
	m.deregister(id)
	return nil
}

// deregister drops id and its descendants, deepest first.
func (m *Model[T]) deregister(id ident.ID) {
	n := m.nodes[id]
	for _, child := range n.children {
		m.deregister(child)
	}
	if m.hooks.Deregistered != nil {
		m.hooks.Deregistered(id, n.data)
	}
	delete(m.nodes, id)
}

// Move changes the row of id within its current parent.
func (m *Model[T]) Move(id ident.ID, row int) error {
	if id == m.root {
		return ErrRootImmutable
	}
	n, err := m.lookup(id)
	if err != nil {
		return err
	}
	p := m.nodes[n.parent]
	if row < 0 || row >= len(p.children) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrRowOutOfRange, row, len(p.children))
	}
	p.children = insertAt(removeID(p.children, id), row, id)
	return nil
}

// Reparent moves id under another parent at row (-1 appends).
func (m *Model[T]) Reparent(id, parent ident.ID, row int) error {
	if id == m.root {
		return ErrRootImmutable
	}
	n, err := m.lookup(id)
	if err != nil {
		return err
	}
	p, err := m.lookup(parent)
	if err != nil {
		return err
	}
	if p.kind == KindLeaf {
		return fmt.Errorf("%w: %d", ErrLeafHasNoChildren, parent)
	}
	for cur := parent; cur != ident.Invalid; cur = m.nodes[cur].parent {
		if cur == id {
			return ErrCycle
		}
	}

	old := m.nodes[n.parent]
	siblings := removeID(old.children, id)
	target := p.children
	if n.parent == parent {
		target = siblings
	}
	if row == -1 {
		row = len(target)
	}
	if row < 0 || row > len(target) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrRowOutOfRange, row, len(target))
	}
	old.children = siblings
	p.children = insertAt(target, row, id)
	n.parent = parent
	return nil
}

// Get returns the payload of id.
func (m *Model[T]) Get(id ident.ID) (T, bool) {
	n, ok := m.nodes[id]
	if !ok {
		var zero T
		return zero, false
	}
	return n.data, true
}

// Set replaces the payload of id.
func (m *Model[T]) Set(id ident.ID, data T) error {
	n, err := m.lookup(id)
	if err != nil {
		return err
	}
	n.data = data
	return nil
}

// Kind returns the kind of id.
func (m *Model[T]) Kind(id ident.ID) (Kind, bool) {
	n, ok := m.nodes[id]
	if !ok {
		return 0, false
	}
	return n.kind, true
}

// Parent returns the parent of id. The root has no parent.
func (m *Model[T]) Parent(id ident.ID) (ident.ID, bool) {
	n, ok := m.nodes[id]
	if !ok || id == m.root {
		return ident.Invalid, false
	}
	return n.parent, true
}

// Row returns the position of id among its siblings, or -1.
func (m *Model[T]) Row(id ident.ID) int {
	n, ok := m.nodes[id]
	if !ok || id == m.root {
		return -1
	}
	return indexOf(m.nodes[n.parent].children, id)
}

// Child returns the child of parent at row.
func (m *Model[T]) Child(parent ident.ID, row int) (ident.ID, bool) {
	p, ok := m.nodes[parent]
	if !ok || row < 0 || row >= len(p.children) {
		return ident.Invalid, false
	}
	return p.children[row], true
}

// ChildCount returns the number of direct children of id.
func (m *Model[T]) ChildCount(id ident.ID) int {
	n, ok := m.nodes[id]
	if !ok {
		return 0
	}
	return len(n.children)
}

// Children returns a copy of the child list of id.
func (m *Model[T]) Children(id ident.ID) []ident.ID {
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	out := make([]ident.ID, len(n.children))
	copy(out, n.children)
	return out
}

// Walk visits the subtree below the root in depth-first pre-order.
// Returning false from fn skips the children of that node.
func (m *Model[T]) Walk(fn func(id ident.ID, kind Kind, depth int) bool) {
	var visit func(id ident.ID, depth int)
	visit = func(id ident.ID, depth int) {
		n := m.nodes[id]
		if !fn(id, n.kind, depth) {
			return
		}
		for _, child := range n.children {
			visit(child, depth+1)
		}
	}
	for _, child := range m.nodes[m.root].children {
		visit(child, 0)
	}
}

// Leaves returns every leaf id in depth-first order.
func (m *Model[T]) Leaves() []ident.ID {
	var out []ident.ID
	m.Walk(func(id ident.ID, kind Kind, _ int) bool {
		if kind == KindLeaf {
			out = append(out, id)
		}
		return true
	})
	return out
}

// CheckConsistency audits parent and child links. It returns a description
// of the first broken link found.
func (m *Model[T]) CheckConsistency() error {
	root, ok := m.nodes[m.root]
	if !ok || root.kind != KindRoot {
		return errors.New("tree: root missing")
	}
	seen := map[ident.ID]bool{m.root: true}
	var visit func(id ident.ID) error
	visit = func(id ident.ID) error {
		n := m.nodes[id]
		if n.kind == KindLeaf && len(n.children) > 0 {
			return fmt.Errorf("tree: leaf %d has %d children", id, len(n.children))
		}
		for _, child := range n.children {
			c, ok := m.nodes[child]
			if !ok {
				return fmt.Errorf("tree: node %d lists unknown child %d", id, child)
			}
			if seen[child] {
				return fmt.Errorf("tree: node %d reached twice", child)
			}
			if c.parent != id {
				return fmt.Errorf("tree: node %d has parent %d but is listed under %d", child, c.parent, id)
			}
			if c.kind == KindRoot {
				return fmt.Errorf("tree: root kind on inner node %d", child)
			}
			seen[child] = true
			if err := visit(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(m.root); err != nil {
		return err
	}
	if len(seen) != len(m.nodes) {
		return fmt.Errorf("tree: %d of %d nodes unreachable", len(m.nodes)-len(seen), len(m.nodes))
	}
	return nil
}

func indexOf(ids []ident.ID, id ident.ID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func insertAt(ids []ident.ID, row int, id ident.ID) []ident.ID {
	ids = append(ids, ident.Invalid)
	copy(ids[row+1:], ids[row:])
	ids[row] = id
	return ids
}

func removeID(ids []ident.ID, id ident.ID) []ident.ID {
	i := indexOf(ids, id)
	if i < 0 {
		return ids
	}
	out := make([]ident.ID, 0, len(ids)-1)
	out = append(out, ids[:i]...)
	return append(out, ids[i+1:]...)
}
