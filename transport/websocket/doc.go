// Package websocket carries the Parqués line protocol over WebSocket.
//
// Browser clients cannot open raw sockets, so the admin HTTP server upgrades
// /ws and hands each connection to the Hub. The frames are the same
// {"tipo","data"} envelopes the socket gateway reads; a text message may hold
// several of them separated by '\n'. Every outbound message is sent as its
// own text message.
//
// Usage:
//
//	hub := websocket.NewHub(lobby, logger)
//	go hub.Run(ctx)
//	router.HandleFunc("/ws", hub.ServeWS)
//
// Connection Lifecycle:
//
// 1. The upgrade registers the client with the hub and the lobby
// 2. readPump decodes frames and dispatches them
// 3. writePump drains the send queue and pings the peer
// 4. Either pump ending closes the socket; the session is torn down once
package websocket
