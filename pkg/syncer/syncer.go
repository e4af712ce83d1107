// Package syncer runs the automerge sync protocol for a document over message
// connections and republishes document changes to the rest of the process.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/astromechza/automerge-whiteboard/pkg/board"
	"github.com/astromechza/automerge-whiteboard/pkg/doc"
)

// Conn is a message connection. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// State is what subscribers see after every change.
type State struct {
	Snapshot board.Snapshot
	View     board.ViewState
	Change   doc.Change
}

type Options struct {
	Logger *slog.Logger
	// Interval is the periodic flush and the reconnect delay. Defaults to one second.
	Interval time.Duration
}

// Engine connects one document to any number of peers.
type Engine struct {
	doc      *doc.Doc
	log      *slog.Logger
	interval time.Duration

	mu     sync.Mutex
	next   int
	wakers map[int]chan struct{}
	subs   map[int]func(State)

	unsubscribe func() error
}

func NewEngine(d *doc.Doc, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	e := &Engine{
		doc:      d,
		log:      opts.Logger,
		interval: opts.Interval,
		wakers:   make(map[int]chan struct{}),
		subs:     make(map[int]func(State)),
	}
	e.unsubscribe = d.Subscribe(e.onChange)
	return e
}

func (e *Engine) Doc() *doc.Doc { return e.doc }

func (e *Engine) onChange(c doc.Change) {
	e.mu.Lock()
	for _, w := range e.wakers {
		kick(w)
	}
	subs := make([]func(State), 0, len(e.subs))
	for _, s := range e.subs {
		subs = append(subs, s)
	}
	e.mu.Unlock()

	if len(subs) == 0 {
		return
	}
	st := State{Snapshot: e.doc.Snapshot(), View: e.doc.View(), Change: c}
	for _, s := range subs {
		s(st)
	}
}

// Subscribe registers fn for every state change and returns its cancel func.
func (e *Engine) Subscribe(fn func(State)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.next
	e.next++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

// Sessions returns how many peers are connected.
func (e *Engine) Sessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.wakers)
}

// Close detaches the engine from its document.
func (e *Engine) Close() {
	if err := e.unsubscribe(); err != nil {
		e.log.Warn("failed to detach sync engine", "err", err)
	}
}

func kick(c chan struct{}) {
	select {
	case c <- struct{}{}:
	default:
	}
}

func (e *Engine) register() (int, chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.next
	e.next++
	w := make(chan struct{}, 1)
	e.wakers[id] = w
	return id, w
}

func (e *Engine) deregister(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.wakers, id)
}

func readAndReceiveMessage(conn Conn, session *doc.SyncSession) error {
	mt, p, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}
	switch mt {
	case websocket.BinaryMessage:
		if err := session.Receive(p); err != nil {
			return err
		}
	default:
	}
	return nil
}

func generateAndWriteMessages(conn Conn, session *doc.SyncSession) error {
	for {
		msg, ok := session.Generate()
		if !ok {
			return nil
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			return fmt.Errorf("failed to write message: %w", err)
		}
	}
}

// Sync runs one sync session over conn until the connection fails or ctx is done. The
// reader applies incoming messages; the writer flushes whenever the document changes,
// after every received message, and on the interval ticker. Duplicated or reordered
// messages are absorbed by the sync state.
func (e *Engine) Sync(ctx context.Context, conn Conn) error {
	session := e.doc.NewSyncSession()
	id, wake := e.register()
	defer e.deregister(id)

	var readErr error
	wg := new(sync.WaitGroup)
	readDone := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(readDone)
		defer conn.Close()
		for {
			if err := readAndReceiveMessage(conn, session); err != nil {
				readErr = err
				return
			}
			kick(wake)
		}
	}()

	var writeErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer conn.Close()

		if err := generateAndWriteMessages(conn, session); err != nil {
			writeErr = err
			return
		}

		t := time.NewTicker(e.interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
			case <-wake:
			case <-readDone:
				return
			case <-ctx.Done():
				return
			}
			if err := generateAndWriteMessages(conn, session); err != nil {
				writeErr = err
				return
			}
		}
	}()

	wg.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return errors.Join(writeErr, readErr)
}

// Dialer opens a connection to the relay.
type Dialer func(ctx context.Context) (Conn, error)

// WebsocketDialer dials url with the default websocket dialer.
func WebsocketDialer(url string) Dialer {
	return func(ctx context.Context) (Conn, error) {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", url, err)
		}
		return conn, nil
	}
}

// RunClient keeps a session to the relay alive until ctx is done, redialling on the
// interval after every lost connection. Local edits made while disconnected stay in
// the replica and go out with the next session's first exchange.
func (e *Engine) RunClient(ctx context.Context, dial Dialer) error {
	t := time.NewTicker(e.interval)
	defer t.Stop()
	for {
		conn, err := dial(ctx)
		if err != nil {
			e.log.Warn("failed to connect", "err", err)
		} else {
			e.log.Info("syncing")
			if err := e.Sync(ctx, conn); err != nil {
				e.log.Warn("sync session ended", "err", err)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
