// Package api provides HTTP handlers and the main API server logic for CradleLog.
//
// It exposes RESTful endpoints for recording feeding and sleep events,
// browsing history, and messaging between caregivers and specialists.
// The API integrates with the store, realtime, and genai modules.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/NestNote/CradleLog/internal/chat"
	"github.com/NestNote/CradleLog/internal/events"
	"github.com/NestNote/CradleLog/internal/genai"
	"github.com/NestNote/CradleLog/internal/realtime"
	"github.com/NestNote/CradleLog/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// DefaultRequestTimeout bounds handler work that calls external services.
const DefaultRequestTimeout = 30 * time.Second

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the HTTP listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server wires the HTTP surface to the storage, realtime, and AI layers.
type Server struct {
	st       store.Store
	hub      *realtime.Hub
	bus      *events.Bus
	backend  *chat.StoreBackend
	gaClient *genai.Client
	addr     string
}

// NewServer creates an API server. The GenAI client may be nil; the summary
// endpoint degrades with a 503 response.
func NewServer(st store.Store, hub *realtime.Hub, bus *events.Bus, gaClient *genai.Client, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		st:       st,
		hub:      hub,
		bus:      bus,
		backend:  chat.NewStoreBackend(st, hub),
		gaClient: gaClient,
		addr:     cfg.Addr,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/profiles", s.profilesHandler)
	mux.HandleFunc("/profiles/", s.profileHandler)
	mux.HandleFunc("/children", s.childrenHandler)
	mux.HandleFunc("/children/", s.childHandler)
	mux.HandleFunc("/record/", s.recordHandler)
	mux.HandleFunc("/history/", s.historyHandler)
	mux.HandleFunc("/chat/rooms", s.resolveRoomHandler)
	mux.HandleFunc("/chat/rooms/", s.roomHandler)
	mux.HandleFunc("/chat/ws", s.wsHandler)
	mux.HandleFunc("/summary/", s.summaryHandler)
	return mux
}

// Run starts the HTTP server and blocks until it exits.
func (s *Server) Run() error {
	slog.Info("CradleLog API running", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}
