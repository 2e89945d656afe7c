// Package mcp exposes the admin API of a running Parqués server as Model
// Context Protocol tools.
//
// The Client is a thin proxy: every tool issues one request against the REST
// API and formats the JSON reply as text for the agent. API failures come back
// as tool errors, never as Go errors, so the MCP session survives them.
//
// Tools:
//   - list_salas: all open rooms in creation order
//   - get_sala: one room snapshot (requires id_sala)
//   - server_stats: connected sessions and open rooms
//   - game_rules: the board, dice and turn rules
//
// The same server is reachable two ways. The HTTP server mounts it on
// POST /mcp, and the stdio-mcp command serves it over stdin/stdout:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
