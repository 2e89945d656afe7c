// Package client speaks the Parqués line protocol from the player side.
//
// Client owns one TCP connection. A receiver goroutine decodes each inbound
// line into a protocol.Envelope and publishes it on Messages; Send encodes a
// protocol.Command as one frame. Malformed inbound lines are logged and
// skipped.
//
// Bot builds on Client to play automatically: it logs in, creates or joins a
// room, declares itself ready and then rolls and passes whenever the turn is
// its own, moving a single token with board.Resolver.
package client
