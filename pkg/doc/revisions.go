package doc

import (
	"fmt"

	"github.com/astromechza/automerge-whiteboard/pkg/board"
)

// Revision is one change of the document together with the canvas size as of that
// change.
type Revision struct {
	ChangeInfo
	DependsOn []string                 `json:"dependsOn"`
	Counts    map[board.Collection]int `json:"counts"`
}

// Revisions walks the change history in causal order.
func (d *Doc) Revisions() ([]Revision, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	changes, err := d.am.Changes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate changes: %w", err)
	}
	out := make([]Revision, 0, len(changes))
	for _, change := range changes {
		at, err := d.am.Fork(change.Hash())
		if err != nil {
			return nil, fmt.Errorf("failed to checkout %s: %w", change.Hash(), err)
		}
		rev := Revision{ChangeInfo: describe(change), Counts: make(map[board.Collection]int, len(board.Collections))}
		for _, h := range change.Dependencies() {
			rev.DependsOn = append(rev.DependsOn, h.String())
		}
		for _, c := range board.Collections {
			if l, ok := listAt(at, c); ok {
				rev.Counts[c] = l.Len()
			}
		}
		out = append(out, rev)
	}
	return out, nil
}
