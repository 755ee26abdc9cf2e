package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clicker/internal/coords"
)

// Save replaces the set stored under label
func (s *Store) Save(ctx context.Context, set coords.CoordinateSet, label string) error {
	if err := set.Validate(); err != nil {
		return fmt.Errorf("refusing to save %s: %w", label, err)
	}
	if set.SavedAt.IsZero() {
		set.SavedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE set_label = ?`, label); err != nil {
		return fmt.Errorf("failed to clear entries of %s: %w", label, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sets WHERE label = ?`, label); err != nil {
		return fmt.Errorf("failed to clear set %s: %w", label, err)
	}

	g := set.Geometry
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sets (label, origin_x, origin_y, width, height, process, title, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, label, g.Origin.X, g.Origin.Y, g.Width, g.Height, g.ProcessLabel, g.Title, set.SavedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert set %s: %w", label, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries
		(id, set_label, position, value, kind, rel_x, rel_y, abs_x, abs_y, method, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range set.Entries {
		_, err := stmt.ExecContext(ctx,
			e.ID,
			label,
			i,
			e.Value,
			string(e.Kind),
			e.Relative.X,
			e.Relative.Y,
			e.AbsoluteAtCapture.X,
			e.AbsoluteAtCapture.Y,
			string(e.Method),
			e.CapturedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry %d of %s: %w", i+1, label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit set %s: %w", label, err)
	}
	return nil
}

// Get retrieves the set stored under label
func (s *Store) Get(ctx context.Context, label string) (coords.CoordinateSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(ctx, label)
}

func (s *Store) get(ctx context.Context, label string) (coords.CoordinateSet, error) {
	set := coords.CoordinateSet{Label: label}
	var savedAt string
	var process, title sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT origin_x, origin_y, width, height, process, title, saved_at
		FROM sets
		WHERE label = ?
	`, label).Scan(
		&set.Geometry.Origin.X,
		&set.Geometry.Origin.Y,
		&set.Geometry.Width,
		&set.Geometry.Height,
		&process,
		&title,
		&savedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return coords.CoordinateSet{}, fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	if err != nil {
		return coords.CoordinateSet{}, fmt.Errorf("failed to get set %s: %w", label, err)
	}
	set.Geometry.ProcessLabel = process.String
	set.Geometry.Title = title.String
	set.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return coords.CoordinateSet{}, fmt.Errorf("failed to parse saved_at for %s: %w", label, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, value, kind, rel_x, rel_y, abs_x, abs_y, method, captured_at
		FROM entries
		WHERE set_label = ?
		ORDER BY position
	`, label)
	if err != nil {
		return coords.CoordinateSet{}, fmt.Errorf("failed to list entries of %s: %w", label, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e coords.CoordinateEntry
		var kind, method, capturedAt string
		err := rows.Scan(
			&e.ID,
			&e.Value,
			&kind,
			&e.Relative.X,
			&e.Relative.Y,
			&e.AbsoluteAtCapture.X,
			&e.AbsoluteAtCapture.Y,
			&method,
			&capturedAt,
		)
		if err != nil {
			return coords.CoordinateSet{}, fmt.Errorf("failed to scan entry of %s: %w", label, err)
		}
		e.Kind = coords.Kind(kind)
		e.Method = coords.Method(method)
		e.CapturedAt, err = time.Parse(time.RFC3339Nano, capturedAt)
		if err != nil {
			return coords.CoordinateSet{}, fmt.Errorf("failed to parse captured_at of %s: %w", e.ID, err)
		}
		set.Entries = append(set.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return coords.CoordinateSet{}, fmt.Errorf("error iterating entries of %s: %w", label, err)
	}
	return set, nil
}

// SetSummary describes one stored set
type SetSummary struct {
	Label   string
	Entries int
	SavedAt time.Time
}

// Labels lists stored sets, most recently saved first
func (s *Store) Labels(ctx context.Context) ([]SetSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.label, s.saved_at, COUNT(e.id)
		FROM sets s
		LEFT JOIN entries e ON e.set_label = s.label
		GROUP BY s.label, s.saved_at
		ORDER BY s.saved_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sets: %w", err)
	}
	defer rows.Close()

	var out []SetSummary
	for rows.Next() {
		var sum SetSummary
		var savedAt string
		if err := rows.Scan(&sum.Label, &savedAt, &sum.Entries); err != nil {
			return nil, fmt.Errorf("failed to scan set: %w", err)
		}
		sum.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse saved_at for %s: %w", sum.Label, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the set stored under label
func (s *Store) Delete(ctx context.Context, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sets WHERE label = ?`, label)
	if err != nil {
		return fmt.Errorf("failed to delete set %s: %w", label, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	return nil
}
