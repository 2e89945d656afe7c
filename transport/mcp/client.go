package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/parques-server/game/board"
	"github.com/wricardo/parques-server/game/protocol"
	"github.com/wricardo/parques-server/game/sala"
	"github.com/wricardo/parques-server/game/service"
)

// Client is a thin MCP client that proxies to the admin REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the admin API at baseURL
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Parqués Session Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Parqués Session Server - MCP Interface

Read-only view of a running Parqués lobby. All tools proxy the admin REST API.

AVAILABLE TOOLS:
- list_salas: List every open room with its players and readiness
- get_sala: Inspect one room by id (requires id_sala)
- server_stats: Count connected sessions and open rooms
- game_rules: Explain the board, dice and turn rules`),
	)

	c.registerTools()
}

func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_salas",
		Description: "List all open rooms in creation order",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_sala",
		Description: "Get the snapshot of a specific room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id_sala": map[string]interface{}{
					"type":        "string",
					"description": "Room ID to inspect",
				},
			},
			Required: []string{"id_sala"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_stats",
		Description: "Get connected session and open room counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Get the Parqués rules the server enforces",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var rooms []protocol.RoomState
	if err := c.apiCall(ctx, "GET", "/api/salas", nil, &rooms); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(rooms) == 0 {
		return mcp.NewToolResultText("Open Rooms (0):\n\nNo rooms yet. A player creates one with CREAR_PARTIDA.\n"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Open Rooms (%d):\n\n", len(rooms))
	for _, r := range rooms {
		status := "forming"
		if r.EnJuego {
			status = "in game, turn: " + r.Turno
		}
		fmt.Fprintf(&b, "- %s [%s] %d/%d players, %s\n", r.SalaID, r.Modo, len(r.Jugadores), r.Max, status)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id_sala")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var room protocol.RoomState
	if err := c.apiCall(ctx, "GET", "/api/salas/"+url.PathEscape(id), nil, &room); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoom(room)), nil
}

func (c *Client) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats service.Stats
	if err := c.apiCall(ctx, "GET", "/api/stats", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Connected sessions: %d\nOpen rooms: %d\n", stats.Sesiones, stats.Salas)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameRules()), nil
}

func formatRoom(r protocol.RoomState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room %s\n", r.SalaID)
	fmt.Fprintf(&b, "Mode: %s\n", r.Modo)
	fmt.Fprintf(&b, "Players: %d/%d\n", len(r.Jugadores), r.Max)
	if r.EnJuego {
		fmt.Fprintf(&b, "Status: in game\nTurn: %s\n", r.Turno)
	} else {
		b.WriteString("Status: waiting for players\n")
	}

	b.WriteString("\nSeats:\n")
	for i, name := range r.Jugadores {
		color := ""
		if i < len(r.Colores) {
			color = r.Colores[i]
		}
		ready := "not ready"
		if i < len(r.Listos) && r.Listos[i] {
			ready = "ready"
		}
		marker := ""
		if r.EnJuego && name == r.Turno {
			marker = "  <- turn"
		}
		fmt.Fprintf(&b, "  %d. %s (%s, %s)%s\n", i+1, name, color, ready, marker)
	}
	return b.String()
}

func gameRules() string {
	colors := make([]string, len(board.Colors))
	for i, c := range board.Colors {
		off, _ := board.EntryOffset(c)
		colors[i] = fmt.Sprintf("%s (seat %d, enters track at cell %d)", c, i+1, off)
	}

	return fmt.Sprintf(`PARQUÉS RULES

ROOMS:
- Up to %d players per room. Seats are filled in join order.
- Seat colors: %s.
- The game starts when the room is full and every player is ready.
- Players may join a room that is already playing while seats remain.

TURNS:
- The first seated player starts. Turns rotate in seat order.
- Only the turn holder may roll (LANZAR_DADO) or pass (TERMINAR_TURNO).
- Rolling does not pass the turn.
- When a player leaves, the turn moves to the next seat if they held it.

BOARD:
- The die rolls %d to %d.
- The shared track has %d cells and wraps around.
- A piece leaves base only on a 1 or a 6 and lands on its color's entry cell.
- Each color has a home stretch of %d cells. A roll that would overshoot it does not move the piece.
`,
		sala.Capacity,
		strings.Join(colors, ", "),
		board.MinRoll, board.MaxRoll,
		board.TrackLength,
		board.HomeStretchLength,
	)
}
