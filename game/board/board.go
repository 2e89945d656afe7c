package board

import "fmt"

const (
	// TrackLength is the number of cells on the shared circular track.
	TrackLength = 52
	// HomeStretchLength is the number of cells in each color's private stretch.
	HomeStretchLength = 6
	// MinRoll and MaxRoll bound a single die roll.
	MinRoll = 1
	MaxRoll = 6
)

// Color represents a player color
type Color string

const (
	Azul     Color = "azul"
	Rojo     Color = "rojo"
	Amarillo Color = "amarillo"
	Verde    Color = "verde"
)

// Colors lists the colors in seating order. Seat i plays Colors[i].
var Colors = []Color{Azul, Rojo, Amarillo, Verde}

var entryOffsets = map[Color]int{
	Azul:     0,
	Rojo:     13,
	Amarillo: 26,
	Verde:    39,
}

// EntryOffset returns the track cell where a color leaves base.
func EntryOffset(c Color) (int, bool) {
	off, ok := entryOffsets[c]
	return off, ok
}

// ColorForSeat returns the color assigned to a seat index, or "" when the
// index is outside the four seats.
func ColorForSeat(seat int) Color {
	if seat < 0 || seat >= len(Colors) {
		return ""
	}
	return Colors[seat]
}

// Zone is the part of the board a token is in
type Zone int

const (
	InBase Zone = iota
	OnTrack
	InHomeStretch
)

func (z Zone) String() string {
	switch z {
	case InBase:
		return "base"
	case OnTrack:
		return "track"
	case InHomeStretch:
		return "home"
	default:
		return "unknown"
	}
}

// Position represents where a token sits. Cell is meaningless in base,
// 0..TrackLength-1 on the track and 1..HomeStretchLength in the stretch.
type Position struct {
	Zone Zone `json:"zone"`
	Cell int  `json:"cell"`
}

// BasePosition returns the position of a token that has not left base.
func BasePosition() Position {
	return Position{Zone: InBase}
}

// TrackPosition returns a position on the shared track.
func TrackPosition(cell int) Position {
	return Position{Zone: OnTrack, Cell: cell}
}

// HomePosition returns a position inside the home stretch.
func HomePosition(cell int) Position {
	return Position{Zone: InHomeStretch, Cell: cell}
}

func (p Position) String() string {
	if p.Zone == InBase {
		return "base"
	}
	return fmt.Sprintf("%s:%d", p.Zone, p.Cell)
}

// PathResolver maps a token position, a roll and a color to the new position.
// The boolean is false when the roll does not move the token.
type PathResolver interface {
	Resolve(pos Position, steps int, color Color) (Position, bool)
}

// Resolver implements PathResolver with the standard Parqués board
type Resolver struct{}

var _ PathResolver = Resolver{}

// Resolve computes the new position of a token
func (Resolver) Resolve(pos Position, steps int, color Color) (Position, bool) {
	if steps < MinRoll || steps > MaxRoll {
		return pos, false
	}

	switch pos.Zone {
	case InBase:
		if !CanLeaveBase(steps) {
			return pos, false
		}
		off, ok := EntryOffset(color)
		if !ok {
			return pos, false
		}
		return TrackPosition(off), true

	case OnTrack:
		return TrackPosition(MoveOnTrack(pos.Cell, steps)), true

	case InHomeStretch:
		next, ok := MoveInHomeStretch(pos.Cell, steps)
		if !ok {
			return pos, false
		}
		return HomePosition(next), true
	}

	return pos, false
}

// CanLeaveBase reports whether a roll lets a token leave base
func CanLeaveBase(steps int) bool {
	return steps == 1 || steps == 6
}

// MoveOnTrack advances a track cell, wrapping around the circuit
func MoveOnTrack(cell, steps int) int {
	return ((cell+steps)%TrackLength + TrackLength) % TrackLength
}

// MoveInHomeStretch advances within the home stretch. Overshooting the last
// cell is not a move.
func MoveInHomeStretch(cell, steps int) (int, bool) {
	next := cell + steps
	if next > HomeStretchLength {
		return cell, false
	}
	return next, true
}
