// Package service is the dispatch layer of the Parqués server.
//
// The gateways hand every decoded frame to LobbyService.Handle together with
// the Session of the connection it came from. The service parses the frame
// into a typed command, applies it to the Registry or to one Room, and pushes
// the resulting messages once the room lock has been released.
//
// Rejected commands are answered with an ERROR frame carrying a Spanish,
// human-readable message. Two rejections are silent: a turn command from a
// seat that does not hold the turn, and global chat from a session that has
// not logged in.
//
// Usage:
//
//	svc := service.NewLobbyService(session.NewRegistry(log), sala.NewDirectory(), log)
//
//	sess := svc.Connect(conn)
//	defer svc.Disconnect(sess)
//	for each line {
//		env, err := protocol.DecodeEnvelope(line)
//		...
//		svc.Handle(ctx, sess, env)
//	}
package service
