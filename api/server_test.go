package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/parques-server/game/protocol"
	"github.com/wricardo/parques-server/game/sala"
	"github.com/wricardo/parques-server/game/service"
	"github.com/wricardo/parques-server/game/session"
	"github.com/wricardo/parques-server/game/session/sessiontest"
)

// MockLobbyService implements service.LobbyService for testing
type MockLobbyService struct {
	StatsFunc     func(ctx context.Context) service.Stats
	ListRoomsFunc func(ctx context.Context) []protocol.RoomState
	GetRoomFunc   func(ctx context.Context, id string) (protocol.RoomState, error)
}

func (m *MockLobbyService) Connect(conn session.Conn) *session.Session { return session.New(conn, nil) }
func (m *MockLobbyService) Handle(ctx context.Context, sess *session.Session, env protocol.Envelope) {
}
func (m *MockLobbyService) Disconnect(sess *session.Session) {}

func (m *MockLobbyService) Stats(ctx context.Context) service.Stats {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return service.Stats{}
}

func (m *MockLobbyService) ListRooms(ctx context.Context) []protocol.RoomState {
	if m.ListRoomsFunc != nil {
		return m.ListRoomsFunc(ctx)
	}
	return []protocol.RoomState{}
}

func (m *MockLobbyService) GetRoom(ctx context.Context, id string) (protocol.RoomState, error) {
	if m.GetRoomFunc != nil {
		return m.GetRoomFunc(ctx, id)
	}
	return protocol.RoomState{}, sala.ErrRoomNotFound
}

// stubMCP echoes the request method back
type stubMCP struct{}

func (stubMCP) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	var req struct {
		ID     any    `json:"id"`
		Method string `json:"method"`
	}
	json.Unmarshal(message, &req)
	if req.ID == nil {
		return nil
	}
	return map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": map[string]string{"method": req.Method}}
}

func makeRequest(method, path string, body string) *http.Request {
	return httptest.NewRequest(method, path, bytes.NewBufferString(body))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	server := NewServer(&MockLobbyService{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/health", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var body map[string]string
	decodeBody(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body)
	}
}

func TestStats(t *testing.T) {
	mockService := &MockLobbyService{
		StatsFunc: func(ctx context.Context) service.Stats {
			return service.Stats{Sesiones: 7, Salas: 2}
		},
	}
	server := NewServer(mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/stats", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != "{\"sesiones\":7,\"salas\":2}\n" {
		t.Errorf("Unexpected body %q", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}
}

func TestListRooms(t *testing.T) {
	tests := []struct {
		name      string
		rooms     []protocol.RoomState
		wantCount int
	}{
		{"no rooms", []protocol.RoomState{}, 0},
		{"two rooms", []protocol.RoomState{
			{SalaID: "aaaa0000", Modo: "1v1v1v1", Jugadores: []string{"ana"}, Listos: []bool{false}, Colores: []string{"azul"}, Max: 4},
			{SalaID: "bbbb1111", Modo: "2v2", Jugadores: []string{"beto"}, Listos: []bool{true}, Colores: []string{"azul"}, Max: 4},
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer(&MockLobbyService{
				ListRoomsFunc: func(ctx context.Context) []protocol.RoomState { return tt.rooms },
			})

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/salas", ""))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			var rooms []protocol.RoomState
			decodeBody(t, w, &rooms)
			if len(rooms) != tt.wantCount {
				t.Errorf("Expected %d rooms, got %d", tt.wantCount, len(rooms))
			}
		})
	}
}

func TestGetRoom(t *testing.T) {
	mockService := &MockLobbyService{
		GetRoomFunc: func(ctx context.Context, id string) (protocol.RoomState, error) {
			switch id {
			case "aaaa0000":
				return protocol.RoomState{SalaID: id, Jugadores: []string{"ana"}, Max: 4}, nil
			case "broken":
				return protocol.RoomState{}, errors.New("boom")
			default:
				return protocol.RoomState{}, fmt.Errorf("room %s: %w", id, sala.ErrRoomNotFound)
			}
		},
	}
	server := NewServer(mockService)

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"existing room", "aaaa0000", http.StatusOK},
		{"unknown room", "zzzz9999", http.StatusNotFound},
		{"internal failure", "broken", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/salas/"+tt.id, ""))

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus != http.StatusOK {
				var body map[string]string
				decodeBody(t, w, &body)
				if body["error"] == "" {
					t.Error("Expected error message in body")
				}
				return
			}
			var room protocol.RoomState
			decodeBody(t, w, &room)
			if room.SalaID != tt.id {
				t.Errorf("Expected room %s, got %s", tt.id, room.SalaID)
			}
		})
	}
}

func TestUnknownRoutes(t *testing.T) {
	server := NewServer(&MockLobbyService{})

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{"GET", "/nope", http.StatusNotFound},
		{"POST", "/api/stats", http.StatusMethodNotAllowed},
		{"POST", "/mcp", http.StatusNotFound},
		{"GET", "/ws", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest(tt.method, tt.path, ""))
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestWebSocketRoute(t *testing.T) {
	called := false
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusSwitchingProtocols)
	})
	server := NewServer(&MockLobbyService{}, WithWebSocket(ws))

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/ws", ""))

	if !called {
		t.Error("Expected /ws to reach the WebSocket handler")
	}
}

func TestMCPRoute(t *testing.T) {
	server := NewServer(&MockLobbyService{}, WithMCP(stubMCP{}))

	t.Run("request", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/mcp", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var body struct {
			Result map[string]string `json:"result"`
		}
		decodeBody(t, w, &body)
		if body.Result["method"] != "tools/list" {
			t.Errorf("Unexpected response %s", w.Body.String())
		}
	})

	t.Run("notification", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/mcp", `{"jsonrpc":"2.0","method":"notifications/initialized"}`))
		if w.Code != http.StatusAccepted {
			t.Errorf("Expected status 202, got %d", w.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/mcp", ""))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, got %d", w.Code)
		}
	})
}

func TestAgainstRealLobby(t *testing.T) {
	reg := session.NewRegistry(nil)
	dir := sala.NewDirectory()
	lobby := service.NewLobbyService(reg, dir, nil)
	server := NewServer(lobby)

	sess := lobby.Connect(sessiontest.NewConn())
	for _, line := range []string{`{"tipo":"LOGIN","data":{"nombre":"ana"}}`, `{"tipo":"CREAR_PARTIDA","data":{}}`} {
		env, _ := protocol.DecodeEnvelope([]byte(line))
		lobby.Handle(context.Background(), sess, env)
	}

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/salas/"+sess.RoomID(), ""))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var room protocol.RoomState
	decodeBody(t, w, &room)
	if len(room.Jugadores) != 1 || room.Jugadores[0] != "ana" || room.Colores[0] != "azul" {
		t.Errorf("Unexpected room %+v", room)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/stats", ""))
	var stats service.Stats
	decodeBody(t, w, &stats)
	if stats != (service.Stats{Sesiones: 1, Salas: 1}) {
		t.Errorf("Unexpected stats %+v", stats)
	}
}
