// Package protocol defines the wire contract between Parqués clients and the
// session server.
//
// Every frame is a single line of UTF-8 JSON terminated by '\n':
//
//	{"tipo": "UNIR_PARTIDA", "data": {"id_sala": "3f2a9c1d"}}
//
// Inbound frames are decoded in two steps. DecodeEnvelope turns a line into an
// Envelope (kind plus raw payload); anything that is not a JSON object fails
// with ErrProtocol and is dropped by the gateways. ParseCommand then maps the
// envelope onto the closed set of Command types, failing with
// ErrUnknownCommand for kinds the server does not handle.
//
// Outbound frames are Message values built with the New* helpers and encoded
// with Message.Encode.
package protocol
