package store

import (
	"context"
	"fmt"
	"log"

	"clicker/internal/coords"
)

// Confirmer is asked before destructive operations; false aborts
type Confirmer func(summary string) bool

// PurgeMethod removes every entry of label produced by method. Other entries
// keep their order and values. It returns the number removed.
func (s *Store) PurgeMethod(ctx context.Context, label string, method coords.Method, confirm Confirmer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.get(ctx, label)
	if err != nil {
		return 0, err
	}
	n := set.CountByMethod()[method]
	if n == 0 {
		return 0, nil
	}

	summary := fmt.Sprintf("Remove %d %s entries from %q (%d will remain)?", n, method, label, len(set.Entries)-n)
	if confirm == nil || !confirm(summary) {
		return 0, ErrAborted
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE set_label = ? AND method = ?`, label, string(method))
	if err != nil {
		return 0, fmt.Errorf("failed to purge %s entries of %s: %w", method, label, err)
	}
	removed, _ := res.RowsAffected()
	log.Printf("Store: Purged %d %s entries from %s", removed, method, label)
	return int(removed), nil
}

// PurgeAll removes the whole set stored under label
func (s *Store) PurgeAll(ctx context.Context, label string, confirm Confirmer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.get(ctx, label)
	if err != nil {
		return 0, err
	}

	summary := fmt.Sprintf("Remove all %d entries of %q?", len(set.Entries), label)
	if confirm == nil || !confirm(summary) {
		return 0, ErrAborted
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sets WHERE label = ?`, label); err != nil {
		return 0, fmt.Errorf("failed to purge %s: %w", label, err)
	}
	log.Printf("Store: Purged set %s (%d entries)", label, len(set.Entries))
	return len(set.Entries), nil
}
