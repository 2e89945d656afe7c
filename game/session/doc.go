// Package session tracks the clients connected to the Parqués server.
//
// A Session wraps one live connection. It carries the display name chosen by
// LOGIN (set once, never changed) and the id of the room the client is seated
// in, if any. The Conn behind it is owned by whichever gateway accepted the
// connection; sessions only ever enqueue messages on it.
//
// The Registry is the process-wide directory of sessions. It serves global
// chat fan-out and the counters exposed by the admin API.
//
// Concurrency:
//
// Session fields are guarded by a per-session mutex and the Registry by a
// RWMutex. BroadcastGlobal copies the recipient list under the read lock and
// sends after releasing it, so a slow or broken client never blocks
// registration of others.
//
// Usage:
//
//	reg := session.NewRegistry(logger)
//	sess := session.New(conn, logger)
//	reg.Register(sess)
//	defer reg.Unregister(sess)
//
//	if err := sess.SetName("ana"); err != nil {
//		// ErrInvalidName or ErrAlreadyLoggedIn
//	}
//	reg.BroadcastGlobal(protocol.NewGlobalMessage("ana", "hola"))
package session
