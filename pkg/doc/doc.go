// Package doc is the replicated canvas document.
//
// The canvas lives in an automerge document with one list per entity collection
// ("lines", "images", "shapes", "texts") and a "view" register. List elements are
// JSON-encoded entity records. Updates are delete + reinsert, so every element is
// written once and never edited in place. Concurrent inserts from different replicas
// all survive and concurrent deletes of one element collapse into one; the ordering of
// concurrent inserts is automerge's and only has to be stable per replica.
//
// Nothing outside this package touches the automerge lists. Consumers mutate through
// Doc.Mutate (or the helpers built on it) and learn about changes through Subscribe.
// Each mutation carries a Source so observers can tell a user's edit from a history
// restore or a merge from a peer.
package doc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/automerge/automerge-go"
	"github.com/google/uuid"

	"github.com/astromechza/automerge-whiteboard/pkg/board"
)

const viewKey = "view"

var (
	ErrUnknownObserver = errors.New("observer is not subscribed")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNotFound        = errors.New("entity not found")
	ErrNotShareable    = errors.New("stroke has fewer than two points")
	ErrMissingSchema   = errors.New("document has no canvas schema")
)

// Source says where a change came from.
type Source int

const (
	// SourceLocal is a user edit on this replica.
	SourceLocal Source = iota
	// SourceRestore is an undo/redo replacing the canvas with a history snapshot.
	SourceRestore
	// SourceRemote is a merge of changes received from a peer.
	SourceRemote
)

func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceRestore:
		return "restore"
	case SourceRemote:
		return "remote"
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// ChangeInfo summarises one automerge change.
type ChangeInfo struct {
	Hash  string `json:"hash"`
	Actor string `json:"actor"`
	Seq   uint64 `json:"seq"`
	Deps  int    `json:"deps"`
}

// Change is delivered to observers after every mutation or merge that moved the
// document.
type Change struct {
	Source      Source
	Collections []board.Collection
	View        bool
	// Applied lists the changes merged from a peer; empty for local sources.
	Applied []ChangeInfo
}

// Touches reports whether the change may have modified collection c.
func (c Change) Touches(col board.Collection) bool {
	for _, t := range c.Collections {
		if t == col {
			return true
		}
	}
	return false
}

type Observer func(Change)

// Doc is a replica of the shared canvas. It is safe for concurrent use.
type Doc struct {
	mu  sync.Mutex
	am  *automerge.Doc
	log *slog.Logger

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

type Option func(*Doc)

func WithLogger(l *slog.Logger) Option {
	return func(d *Doc) {
		if l != nil {
			d.log = l
		}
	}
}

func wrap(am *automerge.Doc, opts []Option) *Doc {
	d := &Doc{am: am, log: slog.Default(), observers: make(map[int]Observer)}
	for _, o := range opts {
		o(d)
	}
	return d
}

// NewActorID returns a random automerge actor id.
func NewActorID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// New creates the authoritative document with an empty canvas schema. Only the relay
// calls this: replicas that created their own lists would each hold a different list
// object under the same key and lose one side's entities when they merge.
func New(opts ...Option) (*Doc, error) {
	am := automerge.New()
	if err := am.SetActorID(NewActorID()); err != nil {
		return nil, fmt.Errorf("failed to set actor: %w", err)
	}
	for _, c := range board.Collections {
		if err := am.Path(string(c)).Set(automerge.NewList()); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", c, err)
		}
	}
	raw, err := encodeView(board.ViewState{})
	if err != nil {
		return nil, err
	}
	if err := am.Path(viewKey).Set(raw); err != nil {
		return nil, fmt.Errorf("failed to create view: %w", err)
	}
	if _, err := am.Commit("create canvas"); err != nil {
		return nil, fmt.Errorf("failed to commit schema: %w", err)
	}
	return wrap(am, opts), nil
}

// Load opens a replica from a saved document. An empty actorID keeps automerge's
// random one.
func Load(raw []byte, actorID string, opts ...Option) (*Doc, error) {
	am, err := automerge.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load doc: %w", err)
	}
	if actorID != "" {
		if err := am.SetActorID(actorID); err != nil {
			return nil, fmt.Errorf("failed to set actor: %w", err)
		}
	}
	for _, c := range board.Collections {
		if _, ok := listAt(am, c); !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrMissingSchema, c)
		}
	}
	return wrap(am, opts), nil
}

// Fork returns an independent replica with its own actor id.
func (d *Doc) Fork() (*Doc, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	am, err := d.am.Fork()
	if err != nil {
		return nil, fmt.Errorf("failed to fork: %w", err)
	}
	if err := am.SetActorID(NewActorID()); err != nil {
		return nil, fmt.Errorf("failed to set actor: %w", err)
	}
	return wrap(am, []Option{WithLogger(d.log)}), nil
}

// Save serialises the whole document.
func (d *Doc) Save() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.am.Save()
}

func (d *Doc) ActorID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.am.ActorID()
}

// Heads returns the current heads as hex strings.
func (d *Doc) Heads() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	heads := d.am.Heads()
	out := make([]string, len(heads))
	for i, h := range heads {
		out[i] = h.String()
	}
	return out
}

// Subscribe registers an observer. The returned cancel func fails with
// ErrUnknownObserver when called for an observer that is already gone.
func (d *Doc) Subscribe(o Observer) (cancel func() error) {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	id := d.nextObs
	d.nextObs++
	d.observers[id] = o
	return func() error {
		d.obsMu.Lock()
		defer d.obsMu.Unlock()
		if _, ok := d.observers[id]; !ok {
			return ErrUnknownObserver
		}
		delete(d.observers, id)
		return nil
	}
}

// notify runs observers in subscription order. It must be called without d.mu held so
// observers can read the document.
func (d *Doc) notify(c Change) {
	d.obsMu.Lock()
	ids := make([]int, 0, len(d.observers))
	for id := range d.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	obs := make([]Observer, 0, len(ids))
	for _, id := range ids {
		obs = append(obs, d.observers[id])
	}
	d.obsMu.Unlock()

	for _, o := range obs {
		o(c)
	}
}

func listAt(am *automerge.Doc, c board.Collection) (*automerge.List, bool) {
	v, err := am.Path(string(c)).Get()
	if err != nil || v.Kind() != automerge.KindList {
		return nil, false
	}
	return v.List(), true
}
