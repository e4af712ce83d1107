package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/astromechza/automerge-whiteboard/pkg/config"
	"github.com/astromechza/automerge-whiteboard/pkg/discovery"
	"github.com/astromechza/automerge-whiteboard/pkg/doc"
	"github.com/astromechza/automerge-whiteboard/pkg/history"
	"github.com/astromechza/automerge-whiteboard/pkg/syncer"
	"github.com/astromechza/automerge-whiteboard/pkg/tools"
	"github.com/astromechza/automerge-whiteboard/pkg/whiteboard"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	cfg, err := config.LoadClient(os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := cfg.Relay
	if cfg.Discover {
		found, err := discovery.Browse(ctx, cfg.Room, 3*time.Second)
		if err != nil {
			return err
		}
		addr = found.Addr
	}
	baseUrl, err := url.Parse("http://" + addr)
	if err != nil {
		return err
	}
	roomUrl := baseUrl.JoinPath("rooms", cfg.Room)

	d, err := fetchLatest(ctx, roomUrl.JoinPath("latest").String())
	if err != nil {
		return err
	}
	slog.Info("established base doc", "heads", d.Heads(), "actor", d.ActorID())

	engine := syncer.NewEngine(d, syncer.Options{Logger: slog.Default()})
	defer engine.Close()
	unsubscribe := engine.Subscribe(func(s syncer.State) {
		if s.Change.Source == doc.SourceRemote {
			slog.Info("merged remote changes", "changes", len(s.Change.Applied), "lines", len(s.Snapshot.Lines),
				"shapes", len(s.Snapshot.Shapes), "texts", len(s.Snapshot.Texts), "images", len(s.Snapshot.Images))
		}
	})
	defer unsubscribe()

	b := whiteboard.New(d, whiteboard.Options{Logger: slog.Default()})
	defer b.Close()
	b.Baseline()

	syncUrl := roomUrl.JoinPath("sync")
	syncUrl.Scheme = "ws"

	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.RunClient(ctx, syncer.WebsocketDialer(syncUrl.String())); err != nil {
			slog.Error("sync stopped", "err", err)
		}
	}()

	finished := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(finished)
		(&artist{board: b}).drawContinuously(ctx, cfg.Gestures, cfg.Every)
	}()

	exit := make(chan os.Signal, 1) // we need to reserve to buffer size 1, so the notifier are not blocked
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-exit:
		slog.Info("Signal caught", "sig", sig)
	case <-finished:
		slog.Info("finished drawing, waiting for a final sync")
		select {
		case <-time.After(cfg.Every):
		case <-exit:
		}
	}
	cancel()

	wg.Wait()

	tf := filepath.Join(os.TempDir(), d.ActorID()+".automerge")
	if err := os.WriteFile(tf, d.Save(), 0o600); err != nil {
		return err
	}
	slog.Info("dumped", "dump", tf)
	return nil
}

func fetchLatest(ctx context.Context, u string) (*doc.Doc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body from get: %w", err)
	}
	return doc.Load(raw, doc.NewActorID(), doc.WithLogger(slog.Default()))
}

var palette = []string{"#000000", "#e03131", "#1971c2", "#2f9e44", "#f08c00"}

// artist drives the board with synthetic pointer gestures.
type artist struct {
	board *whiteboard.Board
	clock time.Duration
	drawn int
}

func (a *artist) drawContinuously(ctx context.Context, limit int, every time.Duration) {
	for limit == 0 || a.drawn < limit {
		t := time.NewTimer(every/2 + time.Duration(rand.Int63n(int64(every))))
		select {
		case <-t.C:
			if err := a.gesture(); err != nil {
				slog.Error("gesture failed", "err", err)
			}
			a.drawn++
		case <-ctx.Done():
			t.Stop()
			slog.Info("stopping scheduled drawing")
			return
		}
	}
}

// tick advances the synthetic pointer clock by n milliseconds.
func (a *artist) tick(n int) time.Duration {
	a.clock += time.Duration(n) * time.Millisecond
	return a.clock
}

func (a *artist) gesture() error {
	if rand.Intn(6) == 0 {
		err := a.board.Undo()
		if errors.Is(err, history.ErrNothingToUndo) {
			return nil
		} else if err != nil {
			return err
		}
		slog.Info("undid", "history", a.board.History().Len())
		return nil
	}

	kinds := []tools.Kind{tools.Pen, tools.Pen, tools.Rectangle, tools.Circle, tools.Ellipse, tools.Line, tools.Text}
	kind := kinds[rand.Intn(len(kinds))]
	if err := a.board.SetTool(kind); err != nil {
		return err
	}
	style := tools.DefaultStyle()
	style.Color = palette[rand.Intn(len(palette))]
	a.board.SetStyle(style)

	x, y := float64(rand.Intn(800)), float64(rand.Intn(600))
	a.board.PointerDown(tools.At(x, y, a.tick(16)))
	switch kind {
	case tools.Pen:
		for i := 0; i < 5+rand.Intn(10); i++ {
			x += float64(rand.Intn(41) - 20)
			y += float64(rand.Intn(41) - 20)
			a.board.PointerMove(tools.At(x, y, a.tick(10+rand.Intn(40))))
		}
	case tools.Text:
	default:
		x += float64(20 + rand.Intn(150))
		y += float64(20 + rand.Intn(150))
		a.board.PointerMove(tools.At(x, y, a.tick(50)))
	}
	if err := a.board.PointerUp(tools.At(x, y, a.tick(16))); err != nil {
		return err
	}
	if kind == tools.Text {
		if err := a.board.FinishText(fmt.Sprintf("note %d", a.drawn)); err != nil {
			return err
		}
	}

	s := a.board.Scene().Snapshot
	slog.Info("drew", "tool", kind, "lines", len(s.Lines), "shapes", len(s.Shapes), "texts", len(s.Texts))
	return nil
}
