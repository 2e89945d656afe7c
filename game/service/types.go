package service

import (
	"errors"
	"fmt"

	"github.com/wricardo/parques-server/game/protocol"
	"github.com/wricardo/parques-server/game/sala"
	"github.com/wricardo/parques-server/game/session"
)

// ErrNotAuthenticated rejects room commands sent before LOGIN
var ErrNotAuthenticated = errors.New("login required")

// Stats holds the live counters
type Stats struct {
	Sesiones int `json:"sesiones"`
	Salas    int `json:"salas"`
}

// errorMessage returns the text of the ERROR frame for err, and false when
// err must not be reported to the client
func errorMessage(cmd protocol.Command, tipo string, err error) (string, bool) {
	switch {
	case errors.Is(err, sala.ErrNotYourTurn):
		return "", false
	case errors.Is(err, protocol.ErrUnknownCommand):
		return fmt.Sprintf("Tipo de mensaje desconocido: %s", tipo), true
	case errors.Is(err, protocol.ErrMissingField):
		var fe *protocol.MissingFieldError
		if errors.As(err, &fe) {
			return fe.Field + " requerido", true
		}
		return "Falta un campo obligatorio", true
	case errors.Is(err, ErrNotAuthenticated):
		return notAuthenticatedMessage(cmd), true
	case errors.Is(err, session.ErrInvalidName):
		return "Nombre no valido", true
	case errors.Is(err, session.ErrAlreadyLoggedIn):
		return "Ya hiciste LOGIN", true
	case errors.Is(err, sala.ErrDuplicateName):
		return "Ya hay un jugador con ese nombre en la sala", true
	case errors.Is(err, sala.ErrRoomFull):
		return "Sala llena", true
	case errors.Is(err, sala.ErrRoomNotFound):
		return "Sala inexistente", true
	case errors.Is(err, sala.ErrAlreadySeated):
		return "Ya estás en una sala", true
	case errors.Is(err, sala.ErrNotSeated):
		return "No estás en esa sala", true
	default:
		return "Error interno del servidor", true
	}
}

func notAuthenticatedMessage(cmd protocol.Command) string {
	switch cmd.(type) {
	case protocol.CreateRoom:
		return "Debes hacer LOGIN antes de crear partida"
	case protocol.JoinRoom:
		return "Debes hacer LOGIN antes de unirte a una partida"
	case protocol.RoomChat:
		return "Debes hacer LOGIN antes de chatear"
	default:
		return "Debes hacer LOGIN primero"
	}
}
