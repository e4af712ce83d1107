// Package relay serves one room's authoritative canvas document over HTTP and
// websockets.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/astromechza/automerge-whiteboard/pkg/doc"
	"github.com/astromechza/automerge-whiteboard/pkg/export"
	"github.com/astromechza/automerge-whiteboard/pkg/journal"
	"github.com/astromechza/automerge-whiteboard/pkg/syncer"
	"github.com/astromechza/automerge-whiteboard/pkg/viz"
)

type Options struct {
	Logger *slog.Logger
	Sync   syncer.Options
}

type Server struct {
	room    string
	doc     *doc.Doc
	engine  *syncer.Engine
	journal *journal.Journal
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	unsubscribe func() error
}

// New creates the room's document and starts journaling the changes merged into it.
func New(room string, j *journal.Journal, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Sync.Logger == nil {
		opts.Sync.Logger = opts.Logger
	}
	d, err := doc.New(doc.WithLogger(opts.Logger))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		room:    room,
		doc:     d,
		engine:  syncer.NewEngine(d, opts.Sync),
		journal: j,
		log:     opts.Logger.With("room", room),
		ctx:     ctx,
		cancel:  cancel,
	}

	revisions, err := d.Revisions()
	if err != nil {
		cancel()
		return nil, err
	}
	initial := make([]doc.ChangeInfo, 0, len(revisions))
	for _, r := range revisions {
		initial = append(initial, r.ChangeInfo)
	}
	if err := j.Record(ctx, room, initial); err != nil {
		cancel()
		return nil, err
	}
	s.unsubscribe = d.Subscribe(s.onChange)
	return s, nil
}

func (s *Server) onChange(c doc.Change) {
	if len(c.Applied) == 0 {
		return
	}
	if err := s.journal.Record(s.ctx, s.room, c.Applied); err != nil {
		s.log.Error("failed to journal changes", "err", err)
		return
	}
	s.log.Debug("merged changes", "count", len(c.Applied), "heads", s.doc.Heads())
}

func (s *Server) Doc() *doc.Doc { return s.doc }

func (s *Server) Room() string { return s.room }

// Close ends every sync session and detaches from the document.
func (s *Server) Close() {
	s.cancel()
	s.engine.Close()
	if err := s.unsubscribe(); err != nil {
		s.log.Warn("failed to detach journal", "err", err)
	}
}

// Handler returns the relay's routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			m := httpsnoop.CaptureMetrics(handler, writer, request)
			s.log.Info("handled", "method", request.Method, "url", request.URL, "duration", m.Duration, "status", m.Code)
		})
	})

	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.health)
	r.Methods(http.MethodGet).Path("/rooms/{room}/latest").HandlerFunc(s.inRoom(s.getLatest))
	r.Methods(http.MethodGet).Path("/rooms/{room}/sync").HandlerFunc(s.inRoom(s.syncRoom))
	r.Methods(http.MethodGet).Path("/rooms/{room}/changes").HandlerFunc(s.inRoom(s.getChanges))
	r.Methods(http.MethodGet).Path("/rooms/{room}/export.pdf").HandlerFunc(s.inRoom(s.getPDF))
	r.Methods(http.MethodGet).Path("/rooms/{room}/history.svg").HandlerFunc(s.inRoom(s.getHistory))
	return r
}

func (s *Server) inRoom(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		if mux.Vars(request)["room"] != s.room {
			writer.WriteHeader(http.StatusNotFound)
			return
		}
		next(writer, request)
	}
}

func (s *Server) writeJSON(writer http.ResponseWriter, v any) {
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(v); err != nil {
		s.log.Error("failed to write out", "err", err)
	}
}

func (s *Server) health(writer http.ResponseWriter, _ *http.Request) {
	s.writeJSON(writer, map[string]any{
		"status":   "ok",
		"room":     s.room,
		"sessions": s.engine.Sessions(),
		"heads":    s.doc.Heads(),
	})
}

func (s *Server) getLatest(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Add("Content-Type", "application/octet-stream")
	if _, err := writer.Write(s.doc.Save()); err != nil {
		s.log.Error("failed to write out", "err", err)
	}
}

func (s *Server) syncRoom(writer http.ResponseWriter, request *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	conn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		s.log.Error("failed to upgrade", "err", err)
		return
	}
	defer conn.Close()

	s.log.Info("peer connected", "remote", request.RemoteAddr)
	if err := s.engine.Sync(s.ctx, conn); err != nil {
		s.log.Info("peer disconnected", "remote", request.RemoteAddr, "err", err)
	}
}

func (s *Server) getChanges(writer http.ResponseWriter, request *http.Request) {
	limit := 0
	if raw := request.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(writer, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := s.journal.List(request.Context(), s.room, limit)
	if err != nil {
		s.log.Error("failed to list changes", "err", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	s.writeJSON(writer, entries)
}

func (s *Server) getPDF(writer http.ResponseWriter, _ *http.Request) {
	var buff bytes.Buffer
	if err := export.WritePDF(&buff, s.doc.Snapshot()); err != nil {
		s.log.Error("failed to export", "err", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "application/pdf")
	if _, err := writer.Write(buff.Bytes()); err != nil {
		s.log.Error("failed to write out", "err", err)
	}
}

func (s *Server) getHistory(writer http.ResponseWriter, _ *http.Request) {
	revisions, err := s.doc.Revisions()
	if err != nil {
		s.log.Error("failed to walk history", "err", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	var buff bytes.Buffer
	if err := viz.RenderSVG(revisions, &buff); err != nil {
		s.log.Error("failed to render", "err", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "image/svg+xml")
	if _, err := writer.Write(buff.Bytes()); err != nil {
		s.log.Error("failed to write out", "err", err)
	}
}
