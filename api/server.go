package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/wricardo/parques-server/game/sala"
	"github.com/wricardo/parques-server/game/service"
)

// MessageHandler answers one MCP JSON-RPC message
type MessageHandler interface {
	HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage
}

// Server represents the admin API server
type Server struct {
	service service.LobbyService
	ws      http.Handler
	mcp     MessageHandler
	router  *mux.Router
	logger  *zap.Logger
}

// Option configures optional routes
type Option func(*Server)

// WithWebSocket mounts h at /ws
func WithWebSocket(h http.Handler) Option {
	return func(s *Server) { s.ws = h }
}

// WithMCP mounts h at /mcp
func WithMCP(h MessageHandler) Option {
	return func(s *Server) { s.mcp = h }
}

// WithLogger sets the request logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new API server
func NewServer(lobby service.LobbyService, opts ...Option) *Server {
	s := &Server{
		service: lobby,
		router:  mux.NewRouter(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("api")

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/salas", s.handleListRooms).Methods("GET")
	api.HandleFunc("/salas/{id}", s.handleGetRoom).Methods("GET")

	if s.ws != nil {
		s.router.Handle("/ws", s.ws)
	}
	if s.mcp != nil {
		s.router.HandleFunc("/mcp", s.handleMCP).Methods("POST")
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Stats(r.Context()))
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.ListRooms(r.Context()))
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	room, err := s.service.GetRoom(r.Context(), id)
	if err != nil {
		if errors.Is(err, sala.ErrRoomNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("GetRoom failed", zap.String("sala", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, room)
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request")
		return
	}
	defer r.Body.Close()

	response := s.mcp.HandleMessage(r.Context(), body)
	if response == nil {
		// Notifications get no reply.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	respondJSON(w, http.StatusOK, response)
}
