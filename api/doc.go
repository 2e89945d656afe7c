// Package api provides the admin HTTP surface of the Parqués server.
//
// Endpoints:
//   - GET /health - Liveness probe
//   - GET /api/stats - Connected sessions and open rooms
//   - GET /api/salas - Snapshot of every open room
//   - GET /api/salas/{id} - Snapshot of one room, 404 when unknown
//   - GET /ws - WebSocket gateway for browser clients
//   - POST /mcp - Model Context Protocol JSON-RPC endpoint
//
// Every JSON error body has the shape {"error": "..."}.
//
// The API is read-only: game state only changes through the socket and
// WebSocket protocols.
package api
