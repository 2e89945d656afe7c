// Package sala implements Parqués rooms and the directory that owns them.
//
// A Room seats up to four sessions in arrival order. That order is also the
// turn order and decides each seat's color. Seated players toggle a ready
// flag; when four seats are all ready the room starts and the turn cursor
// cycles round-robin from seat 0. Only the turn holder may roll the die or
// end the turn.
//
// Room methods never write to the network. They mutate state under the
// room's own mutex and return the Deliveries the caller must push once the
// lock is released.
package sala
