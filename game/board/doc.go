// Package board provides the path arithmetic of the Parqués board.
//
// The board is a shared circular track of TrackLength cells. Each color enters
// the track at its own offset and owns a private home stretch of
// HomeStretchLength cells. The package is pure: it holds no state and performs
// no I/O, so callers may use it from any goroutine.
//
// Core Types:
//
// Color identifies one of the four player colors. Position is where a token
// currently sits (base, track or home stretch). PathResolver is the contract
// turn logic calls to move a token; Resolver is the default implementation.
//
// Usage:
//
//	var r board.Resolver
//	next, ok := r.Resolve(board.BasePosition(), 6, board.Rojo)
//	if !ok {
//		// the roll does not move this token
//	}
//
// Movement Rules:
//
// A token in base leaves only on a roll of 1 or 6 and lands on its color's
// entry cell. A token on the track advances modulo TrackLength. A token in the
// home stretch advances within it; a roll that would overshoot the stretch is
// not a move.
package board
