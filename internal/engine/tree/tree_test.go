package tree

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Tilix4/kdenlive/internal/engine/ident"
)

func newTestModel(t *testing.T) (*Model[string], *[]ident.ID, *[]ident.ID) {
	t.Helper()
	var registered, deregistered []ident.ID
	m := New("root", Hooks[string]{
		Registered:   func(id ident.ID, _ string) { registered = append(registered, id) },
		Deregistered: func(id ident.ID, _ string) { deregistered = append(deregistered, id) },
	})
	return m, &registered, &deregistered
}

func mustInsert(t *testing.T, m *Model[string], parent ident.ID, row int, kind Kind, data string) ident.ID {
	t.Helper()
	id := ident.Next()
	if err := m.Insert(parent, row, id, kind, data); err != nil {
		t.Fatalf("Insert(%s): %v", data, err)
	}
	return id
}

func TestInsertOrder(t *testing.T) {
	m, registered, _ := newTestModel(t)
	root := m.Root()

	a := mustInsert(t, m, root, -1, KindLeaf, "a")
	b := mustInsert(t, m, root, -1, KindLeaf, "b")
	c := mustInsert(t, m, root, 0, KindLeaf, "c")

	want := []ident.ID{c, a, b}
	if got := m.Children(root); !reflect.DeepEqual(got, want) {
		t.Errorf("Children = %v, want %v", got, want)
	}
	if m.Row(b) != 2 {
		t.Errorf("Row(b) = %d, want 2", m.Row(b))
	}
	if m.Len() != 3 {
		t.Errorf("Len = %d, want 3", m.Len())
	}
	if len(*registered) != 3 {
		t.Errorf("registered %d nodes, want 3", len(*registered))
	}
	if got, ok := m.Child(root, 1); !ok || got != a {
		t.Errorf("Child(root, 1) = %d, %v", got, ok)
	}
}

func TestInsertErrors(t *testing.T) {
	m, _, _ := newTestModel(t)
	root := m.Root()
	leaf := mustInsert(t, m, root, -1, KindLeaf, "leaf")

	tests := []struct {
		name   string
		parent ident.ID
		row    int
		id     ident.ID
		kind   Kind
		want   error
	}{
		{"leaf parent", leaf, -1, ident.Next(), KindLeaf, ErrLeafHasNoChildren},
		{"unknown parent", ident.Next(), -1, ident.Next(), KindLeaf, ErrNodeNotFound},
		{"duplicate id", root, -1, leaf, KindLeaf, ErrDuplicateID},
		{"row too large", root, 5, ident.Next(), KindLeaf, ErrRowOutOfRange},
		{"root kind", root, -1, ident.Next(), KindRoot, ErrRootImmutable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Insert(tt.parent, tt.row, tt.id, tt.kind, tt.name)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestRemoveSubtree(t *testing.T) {
	m, _, deregistered := newTestModel(t)
	root := m.Root()

	group := mustInsert(t, m, root, -1, KindGroup, "group")
	inner := mustInsert(t, m, group, -1, KindLeaf, "inner")
	other := mustInsert(t, m, root, -1, KindLeaf, "other")

	if err := m.Remove(group); err != nil {
		t.Fatal(err)
	}
	if m.Has(group) || m.Has(inner) {
		t.Error("subtree still registered")
	}
	want := []ident.ID{inner, group}
	if !reflect.DeepEqual(*deregistered, want) {
		t.Errorf("deregistered = %v, want %v", *deregistered, want)
	}
	if got := m.Children(root); !reflect.DeepEqual(got, []ident.ID{other}) {
		t.Errorf("Children = %v", got)
	}

	if err := m.Remove(root); !errors.Is(err, ErrRootImmutable) {
		t.Errorf("Remove(root) err = %v", err)
	}
	if err := m.Remove(group); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Remove(gone) err = %v", err)
	}
}

func TestMove(t *testing.T) {
	m, _, _ := newTestModel(t)
	root := m.Root()
	a := mustInsert(t, m, root, -1, KindLeaf, "a")
	b := mustInsert(t, m, root, -1, KindLeaf, "b")
	c := mustInsert(t, m, root, -1, KindLeaf, "c")

	if err := m.Move(c, 0); err != nil {
		t.Fatal(err)
	}
	if got, want := m.Children(root), []ident.ID{c, a, b}; !reflect.DeepEqual(got, want) {
		t.Errorf("after Move(c, 0) = %v, want %v", got, want)
	}
	if err := m.Move(c, 2); err != nil {
		t.Fatal(err)
	}
	if got, want := m.Children(root), []ident.ID{a, b, c}; !reflect.DeepEqual(got, want) {
		t.Errorf("after Move(c, 2) = %v, want %v", got, want)
	}
	if err := m.Move(a, 3); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("err = %v, want ErrRowOutOfRange", err)
	}
}

func TestReparent(t *testing.T) {
	m, _, _ := newTestModel(t)
	root := m.Root()
	group := mustInsert(t, m, root, -1, KindGroup, "group")
	a := mustInsert(t, m, root, -1, KindLeaf, "a")
	sub := mustInsert(t, m, group, -1, KindGroup, "sub")

	if err := m.Reparent(a, group, 0); err != nil {
		t.Fatal(err)
	}
	if p, _ := m.Parent(a); p != group {
		t.Errorf("Parent(a) = %d, want %d", p, group)
	}
	if m.Row(a) != 0 || m.Row(sub) != 1 {
		t.Errorf("rows a=%d sub=%d", m.Row(a), m.Row(sub))
	}
	if err := m.Reparent(group, sub, -1); !errors.Is(err, ErrCycle) {
		t.Errorf("err = %v, want ErrCycle", err)
	}
	if err := m.Reparent(sub, a, -1); !errors.Is(err, ErrLeafHasNoChildren) {
		t.Errorf("err = %v, want ErrLeafHasNoChildren", err)
	}
	if err := m.Reparent(a, group, 9); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("err = %v, want ErrRowOutOfRange", err)
	}
	if m.ChildCount(group) != 2 {
		t.Errorf("failed reparent lost a child: ChildCount = %d", m.ChildCount(group))
	}
	if err := m.CheckConsistency(); err != nil {
		t.Error(err)
	}
}

func TestLeavesDepthFirst(t *testing.T) {
	m, _, _ := newTestModel(t)
	root := m.Root()
	a := mustInsert(t, m, root, -1, KindLeaf, "a")
	group := mustInsert(t, m, root, -1, KindGroup, "group")
	b := mustInsert(t, m, group, -1, KindLeaf, "b")
	c := mustInsert(t, m, group, -1, KindLeaf, "c")
	d := mustInsert(t, m, root, -1, KindLeaf, "d")

	want := []ident.ID{a, b, c, d}
	if got := m.Leaves(); !reflect.DeepEqual(got, want) {
		t.Errorf("Leaves = %v, want %v", got, want)
	}

	var depths []int
	m.Walk(func(_ ident.ID, _ Kind, depth int) bool {
		depths = append(depths, depth)
		return true
	})
	if want := []int{0, 0, 1, 1, 0}; !reflect.DeepEqual(depths, want) {
		t.Errorf("depths = %v, want %v", depths, want)
	}
}

func TestGetSet(t *testing.T) {
	m, _, _ := newTestModel(t)
	a := mustInsert(t, m, m.Root(), -1, KindLeaf, "a")

	if err := m.Set(a, "renamed"); err != nil {
		t.Fatal(err)
	}
	if got, ok := m.Get(a); !ok || got != "renamed" {
		t.Errorf("Get = %q, %v", got, ok)
	}
	if k, _ := m.Kind(a); k != KindLeaf {
		t.Errorf("Kind = %v", k)
	}
	if _, ok := m.Get(ident.Next()); ok {
		t.Error("Get of unknown id should fail")
	}
	if _, ok := m.Parent(m.Root()); ok {
		t.Error("root has no parent")
	}
}

func TestCheckConsistencyDetectsMalformedLeaf(t *testing.T) {
	m, _, _ := newTestModel(t)
	a := mustInsert(t, m, m.Root(), -1, KindLeaf, "a")
	if err := m.CheckConsistency(); err != nil {
		t.Fatal(err)
	}

	// Bypass Insert to build a leaf with a child.
	child := ident.Next()
	m.nodes[child] = &node[string]{kind: KindLeaf, parent: a}
	m.nodes[a].children = append(m.nodes[a].children, child)

	if err := m.CheckConsistency(); err == nil {
		t.Error("expected leaf-with-children failure")
	}
}

func TestCheckConsistencyDetectsOrphan(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.nodes[ident.Next()] = &node[string]{kind: KindLeaf, parent: m.Root()}

	if err := m.CheckConsistency(); err == nil {
		t.Error("expected unreachable node failure")
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindRoot, "root"},
		{KindGroup, "group"},
		{KindLeaf, "leaf"},
		{Kind(9), "kind(9)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
