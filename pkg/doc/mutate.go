package doc

import (
	"encoding/json"
	"fmt"

	"github.com/automerge/automerge-go"

	"github.com/astromechza/automerge-whiteboard/pkg/board"
)

// Tx groups list operations into one automerge change.
type Tx struct {
	d       *Doc
	ops     int
	touched map[board.Collection]bool
	view    bool
}

// Mutate runs fn against the document and commits everything it did as one change
// tagged with src. Observers are notified once, after the lock is released. Operations
// that succeeded before fn returned an error are still committed: they are already in
// the replica and peers must see the same state.
func (d *Doc) Mutate(src Source, fn func(tx *Tx) error) error {
	d.mu.Lock()
	tx := &Tx{d: d, touched: make(map[board.Collection]bool)}
	fnErr := fn(tx)
	if tx.ops == 0 {
		d.mu.Unlock()
		return fnErr
	}
	if _, err := d.am.Commit(src.String()); err != nil {
		d.mu.Unlock()
		return fmt.Errorf("failed to commit %s change: %w", src, err)
	}
	d.mu.Unlock()

	change := Change{Source: src, View: tx.view}
	for _, c := range board.Collections {
		if tx.touched[c] {
			change.Collections = append(change.Collections, c)
		}
	}
	d.notify(change)
	return fnErr
}

func (tx *Tx) list(c board.Collection) (*automerge.List, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", board.ErrUnknownCollection, c)
	}
	l, ok := listAt(tx.d.am, c)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMissingSchema, c)
	}
	return l, nil
}

func (tx *Tx) mark(c board.Collection) {
	tx.ops++
	tx.touched[c] = true
}

func encode(e board.Entity) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if s, ok := e.(board.Stroke); ok && !board.ShouldSyncLine(s) {
		return "", fmt.Errorf("%w: %s", ErrNotShareable, s.ID)
	}
	if t, ok := e.(board.Text); ok {
		t.IsEditing = false
		e = t
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", e.EntityID(), err)
	}
	return string(raw), nil
}

// Push appends an entity to its collection.
func (tx *Tx) Push(e board.Entity) error {
	l, err := tx.list(e.Collection())
	if err != nil {
		return err
	}
	raw, err := encode(e)
	if err != nil {
		return err
	}
	if err := l.Append(raw); err != nil {
		return fmt.Errorf("failed to append to %s: %w", e.Collection(), err)
	}
	tx.mark(e.Collection())
	return nil
}

// Insert places an entity at index in its collection.
func (tx *Tx) Insert(index int, e board.Entity) error {
	l, err := tx.list(e.Collection())
	if err != nil {
		return err
	}
	if index < 0 || index > l.Len() {
		return fmt.Errorf("%w: insert at %d into %s of %d", ErrIndexOutOfRange, index, e.Collection(), l.Len())
	}
	raw, err := encode(e)
	if err != nil {
		return err
	}
	if err := l.Insert(index, raw); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", e.Collection(), err)
	}
	tx.mark(e.Collection())
	return nil
}

// Delete removes the element at index.
func (tx *Tx) Delete(c board.Collection, index int) error {
	l, err := tx.list(c)
	if err != nil {
		return err
	}
	if index < 0 || index >= l.Len() {
		return fmt.Errorf("%w: delete %d from %s of %d", ErrIndexOutOfRange, index, c, l.Len())
	}
	if err := l.Delete(index); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", c, err)
	}
	tx.mark(c)
	return nil
}

// DeleteIDs removes every element whose id is in ids and returns how many went.
// Malformed elements are left alone.
func (tx *Tx) DeleteIDs(c board.Collection, ids map[string]struct{}) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	l, err := tx.list(c)
	if err != nil {
		return 0, err
	}
	removed := 0
	for i := l.Len() - 1; i >= 0; i-- {
		id, ok := elementID(l, i)
		if !ok {
			continue
		}
		if _, hit := ids[id]; !hit {
			continue
		}
		if err := l.Delete(i); err != nil {
			return removed, fmt.Errorf("failed to delete %s from %s: %w", id, c, err)
		}
		removed++
		tx.mark(c)
	}
	return removed, nil
}

// Update replaces the element with e's id by e, keeping its position. It is a delete
// followed by an insert so the replication log only ever carries whole records.
func (tx *Tx) Update(e board.Entity) error {
	l, err := tx.list(e.Collection())
	if err != nil {
		return err
	}
	raw, err := encode(e)
	if err != nil {
		return err
	}
	for i := 0; i < l.Len(); i++ {
		id, ok := elementID(l, i)
		if !ok || id != e.EntityID() {
			continue
		}
		if err := l.Delete(i); err != nil {
			return fmt.Errorf("failed to remove %s: %w", id, err)
		}
		tx.mark(e.Collection())
		if err := l.Insert(i, raw); err != nil {
			return fmt.Errorf("failed to reinsert %s: %w", id, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s in %s", ErrNotFound, e.EntityID(), e.Collection())
}

// Clear empties one collection.
func (tx *Tx) Clear(c board.Collection) error {
	l, err := tx.list(c)
	if err != nil {
		return err
	}
	for n := l.Len(); n > 0; n = l.Len() {
		if err := l.Delete(n - 1); err != nil {
			return fmt.Errorf("failed to clear %s: %w", c, err)
		}
		tx.mark(c)
	}
	// an already empty list still counts as touched so replace notifies every list
	tx.touched[c] = true
	return nil
}

// Replace clears all four collections and bulk-inserts the snapshot's entities in
// order. Entities that fail validation are skipped and logged.
func (tx *Tx) Replace(s board.Snapshot) error {
	for _, c := range board.Collections {
		if err := tx.Clear(c); err != nil {
			return err
		}
		for _, e := range s.Entities(c) {
			if err := tx.Push(e); err != nil {
				tx.d.log.Warn("skipping entity during replace", "collection", c, "id", e.EntityID(), "err", err)
			}
		}
	}
	return nil
}

// SetView overwrites the shared view register. Concurrent writes resolve last-writer-
// wins.
func (tx *Tx) SetView(v board.ViewState) error {
	raw, err := encodeView(v)
	if err != nil {
		return err
	}
	if err := tx.d.am.Path(viewKey).Set(raw); err != nil {
		return fmt.Errorf("failed to set view: %w", err)
	}
	tx.ops++
	tx.view = true
	return nil
}

func encodeView(v board.ViewState) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode view: %w", err)
	}
	return string(raw), nil
}

// Push appends a local entity.
func (d *Doc) Push(e board.Entity) error {
	return d.Mutate(SourceLocal, func(tx *Tx) error { return tx.Push(e) })
}

// Insert places a local entity at index.
func (d *Doc) Insert(index int, e board.Entity) error {
	return d.Mutate(SourceLocal, func(tx *Tx) error { return tx.Insert(index, e) })
}

// Delete removes the element at index of c.
func (d *Doc) Delete(c board.Collection, index int) error {
	return d.Mutate(SourceLocal, func(tx *Tx) error { return tx.Delete(c, index) })
}

// Update replaces an entity in place (delete + reinsert).
func (d *Doc) Update(e board.Entity) error {
	return d.Mutate(SourceLocal, func(tx *Tx) error { return tx.Update(e) })
}

// SetView writes the shared pan offset.
func (d *Doc) SetView(v board.ViewState) error {
	return d.Mutate(SourceLocal, func(tx *Tx) error { return tx.SetView(v) })
}

// ReplaceAll swaps the whole canvas for s in one change tagged src.
func (d *Doc) ReplaceAll(s board.Snapshot, src Source) error {
	return d.Mutate(src, func(tx *Tx) error { return tx.Replace(s) })
}
