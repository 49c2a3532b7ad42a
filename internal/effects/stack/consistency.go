package stack

import (
	"fmt"

	"github.com/Tilix4/kdenlive/internal/effects/asset"
	"github.com/Tilix4/kdenlive/internal/engine/ident"
	"github.com/Tilix4/kdenlive/internal/engine/tree"
)

// CheckConsistency audits the tree and compares its leaves, in depth-first
// order, with the filters attached to the service. The error describes the
// first divergence found.
func (s *Stack) CheckConsistency() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.tree.CheckConsistency(); err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistent, err)
	}

	var shapeErr error
	s.tree.Walk(func(id ident.ID, kind tree.Kind, _ int) bool {
		if shapeErr != nil {
			return false
		}
		n, _ := s.tree.Get(id)
		switch {
		case kind == tree.KindLeaf && !n.leaf():
			shapeErr = fmt.Errorf("%w: leaf %d has no filter", ErrInconsistent, id)
		case kind == tree.KindGroup && n.leaf():
			shapeErr = fmt.Errorf("%w: group %d carries a filter", ErrInconsistent, id)
		}
		return shapeErr == nil
	})
	if shapeErr != nil {
		return shapeErr
	}

	svc, ok := s.service.Lock()
	if !ok {
		return ErrServiceGone
	}
	leaves := s.tree.Leaves()
	if got := svc.FilterCount(); got != len(leaves) {
		return fmt.Errorf("%w: %d effects but %d attached filters", ErrInconsistent, len(leaves), got)
	}
	for i, id := range leaves {
		n, _ := s.tree.Get(id)
		if f := svc.FilterAt(i); f != n.filter {
			got := "<nil>"
			if f != nil {
				got = f.Asset()
			}
			return fmt.Errorf("%w: position %d holds %s, want %s (%d)", ErrInconsistent, i, got, n.asset, id)
		}
	}

	for id := range s.fadeIns {
		if _, dup := s.fadeOuts[id]; dup {
			return fmt.Errorf("%w: %d is both a fade in and a fade out", ErrInconsistent, id)
		}
		if n, ok := s.tree.Get(id); !ok || !asset.IsFadeIn(n.asset) {
			return fmt.Errorf("%w: stale fade in %d", ErrInconsistent, id)
		}
	}
	for id := range s.fadeOuts {
		if n, ok := s.tree.Get(id); !ok || !asset.IsFadeOut(n.asset) {
			return fmt.Errorf("%w: stale fade out %d", ErrInconsistent, id)
		}
	}
	return nil
}
