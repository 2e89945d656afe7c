// Package tcp is the socket gateway of the Parqués server.
//
// Each accepted connection gets a read loop and a write pump. The read loop
// splits the stream on '\n', skips blank lines, decodes each line as a
// {"tipo","data"} envelope and hands it to the lobby service. Lines that are
// not JSON objects are dropped. The write pump drains a bounded queue and
// writes each message as one line under a write deadline.
//
// A full queue, a write error, a read error or a line longer than the frame
// limit closes the connection, and the session is torn down exactly once.
// No read timeout is applied, so an idle client stays connected until it
// hangs up.
package tcp
