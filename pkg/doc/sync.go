package doc

import (
	"fmt"

	"github.com/automerge/automerge-go"

	"github.com/astromechza/automerge-whiteboard/pkg/board"
)

// SyncSession tracks what one peer is known to have. A session belongs to exactly one
// connection; create a new one on reconnect.
type SyncSession struct {
	d  *Doc
	ss *automerge.SyncState
}

func (d *Doc) NewSyncSession() *SyncSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &SyncSession{d: d, ss: automerge.NewSyncState(d.am)}
}

// Receive applies a sync message from the peer. Observers hear about it as a remote
// change only when the document's heads moved, so duplicate or metadata-only messages
// are silent.
func (s *SyncSession) Receive(msg []byte) error {
	d := s.d
	d.mu.Lock()
	before := d.am.Heads()
	if _, err := s.ss.ReceiveMessage(msg); err != nil {
		d.mu.Unlock()
		return fmt.Errorf("failed to receive message: %w", err)
	}
	after := d.am.Heads()
	if sameHeads(before, after) {
		d.mu.Unlock()
		return nil
	}
	applied, err := changesSince(d.am, before)
	if err != nil {
		d.log.Warn("failed to list merged changes", "err", err)
	}
	d.mu.Unlock()

	d.notify(Change{Source: SourceRemote, Collections: board.Collections, View: true, Applied: applied})
	return nil
}

// Generate returns the next message for the peer, or false when the peer is up to date.
func (s *SyncSession) Generate() ([]byte, bool) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	msg, ok := s.ss.GenerateMessage()
	if !ok || msg == nil {
		return nil, false
	}
	return msg.Bytes(), true
}

func sameHeads(a, b []automerge.ChangeHash) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, h := range a {
		seen[h.String()] = struct{}{}
	}
	for _, h := range b {
		if _, ok := seen[h.String()]; !ok {
			return false
		}
	}
	return true
}

func changesSince(am *automerge.Doc, heads []automerge.ChangeHash) ([]ChangeInfo, error) {
	changes, err := am.Changes(heads...)
	if err != nil {
		return nil, err
	}
	out := make([]ChangeInfo, 0, len(changes))
	for _, c := range changes {
		out = append(out, describe(c))
	}
	return out, nil
}

func describe(c *automerge.Change) ChangeInfo {
	return ChangeInfo{
		Hash:  c.Hash().String(),
		Actor: c.ActorID(),
		Seq:   uint64(c.ActorSeq()),
		Deps:  len(c.Dependencies()),
	}
}
