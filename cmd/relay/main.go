package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/astromechza/automerge-whiteboard/pkg/config"
	"github.com/astromechza/automerge-whiteboard/pkg/discovery"
	"github.com/astromechza/automerge-whiteboard/pkg/journal"
	"github.com/astromechza/automerge-whiteboard/pkg/relay"
	"github.com/astromechza/automerge-whiteboard/pkg/syncer"
	"github.com/astromechza/automerge-whiteboard/pkg/viz"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	cfg, err := config.LoadRelay(os.Args[1:], os.Getenv)
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

	slog.Info("Opening journal")
	j, err := journal.Open(ctx, journal.MemoryDSN("relay-"+cfg.Room))
	if err != nil {
		return err
	}
	defer j.Close()

	s, err := relay.New(cfg.Room, j, relay.Options{Logger: slog.Default(), Sync: syncer.Options{Logger: slog.Default()}})
	if err != nil {
		return err
	}
	slog.Info("serving room", "room", cfg.Room, "heads", s.Doc().Heads())

	if cfg.MDNS {
		_, rawPort, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			return fmt.Errorf("failed to parse addr: %w", err)
		}
		port, err := strconv.Atoi(rawPort)
		if err != nil {
			return fmt.Errorf("failed to parse port: %w", err)
		}
		adv, err := discovery.Advertise(port, cfg.Room)
		if err != nil {
			return err
		}
		defer func() {
			if err := adv.Shutdown(); err != nil {
				slog.Error("failed to stop advertising", "err", err)
			}
		}()
		slog.Info("advertising", "service", discovery.ServiceType, "port", port)
	}

	httpServer := &http.Server{Addr: cfg.Addr, Handler: s.Handler()}

	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server listen failed", "err", err)
		}
	}()

	exit := make(chan os.Signal, 1) // we need to reserve to buffer size 1, so the notifier are not blocked
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-exit
	slog.Info("Signal caught", "sig", sig)
	s.Close()
	_ = httpServer.Close()

	wg.Wait()

	if n, err := j.Count(ctx, cfg.Room); err != nil {
		slog.Error("failed to count changes", "err", err)
	} else {
		slog.Info("journaled", "room", cfg.Room, "changes", n)
	}

	tf := filepath.Join(os.TempDir(), s.Doc().ActorID()+".automerge")
	if err := os.WriteFile(tf, s.Doc().Save(), 0o600); err != nil {
		slog.Error("failed to dump", "room", cfg.Room, "err", err)
	} else {
		slog.Info("dumped", "room", cfg.Room, "path", tf)
	}
	if svgPath, err := viz.RenderToTemp(s.Doc()); err != nil {
		slog.Error("failed to render", "room", cfg.Room, "err", err)
	} else {
		slog.Info("rendered", "room", cfg.Room, "path", "file://"+svgPath)
	}
	return nil
}
