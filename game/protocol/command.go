package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrProtocol       = errors.New("malformed frame")
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingField   = errors.New("missing required field")
)

// Inbound command kinds
const (
	KindLogin         = "LOGIN"
	KindCreateRoom    = "CREAR_PARTIDA"
	KindListRooms     = "LISTAR_PARTIDAS"
	KindJoinRoom      = "UNIR_PARTIDA"
	KindSetReady      = "CAMBIAR_LISTO"
	KindEndTurn       = "TERMINAR_TURNO"
	KindRollDie       = "LANZAR_DADO"
	KindGlobalChat    = "MENSAJE_GENERAL"
	KindGlobalChatAlt = "CHAT_GENERAL"
	KindRoomChat      = "CHAT_SALA"
	KindLeaveRoom     = "SALIR_PARTIDA"

	// DefaultMode is used when CREAR_PARTIDA omits modo
	DefaultMode = "1v1v1v1"
)

// Envelope is one decoded frame: the kind and its still-encoded payload
type Envelope struct {
	Tipo string          `json:"tipo"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodeEnvelope parses a single line. Blank lines and anything that is not
// a JSON object yield ErrProtocol.
func DecodeEnvelope(line []byte) (Envelope, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return Envelope{}, ErrProtocol
	}

	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return env, nil
}

// Command is the closed set of client requests. Only types in this package
// implement it.
type Command interface {
	Kind() string
	isCommand()
}

// Login assigns the session's display name
type Login struct {
	Nombre string `json:"nombre"`
}

// CreateRoom opens a new room and seats the caller
type CreateRoom struct {
	Modo string `json:"modo"`
}

// ListRooms asks for the joinable rooms
type ListRooms struct{}

// JoinRoom seats the caller in an existing room
type JoinRoom struct {
	SalaID string `json:"id_sala"`
}

// SetReady toggles the caller's readiness flag
type SetReady struct {
	SalaID string `json:"id_sala"`
	Listo  bool   `json:"listo"`
}

// EndTurn passes the turn to the next seat
type EndTurn struct {
	SalaID string `json:"id_sala"`
}

// RollDie rolls the die for the current turn holder
type RollDie struct {
	SalaID string `json:"id_sala"`
}

// GlobalChat is a lobby-wide chat line
type GlobalChat struct {
	Texto string `json:"texto"`
}

// RoomChat is a chat line scoped to one room
type RoomChat struct {
	SalaID string `json:"id_sala"`
	Texto  string `json:"texto"`
}

// LeaveRoom unseats the caller voluntarily
type LeaveRoom struct {
	SalaID string `json:"id_sala"`
}

func (Login) Kind() string      { return KindLogin }
func (CreateRoom) Kind() string { return KindCreateRoom }
func (ListRooms) Kind() string  { return KindListRooms }
func (JoinRoom) Kind() string   { return KindJoinRoom }
func (SetReady) Kind() string   { return KindSetReady }
func (EndTurn) Kind() string    { return KindEndTurn }
func (RollDie) Kind() string    { return KindRollDie }
func (GlobalChat) Kind() string { return KindGlobalChat }
func (RoomChat) Kind() string   { return KindRoomChat }
func (LeaveRoom) Kind() string  { return KindLeaveRoom }

func (Login) isCommand()      {}
func (CreateRoom) isCommand() {}
func (ListRooms) isCommand()  {}
func (JoinRoom) isCommand()   {}
func (SetReady) isCommand()   {}
func (EndTurn) isCommand()    {}
func (RollDie) isCommand()    {}
func (GlobalChat) isCommand() {}
func (RoomChat) isCommand()   {}
func (LeaveRoom) isCommand()  {}

// ParseCommand maps an envelope onto its Command type. Payload fields with
// the wrong JSON type fail with ErrProtocol; required fields that are absent
// fail with ErrMissingField.
func ParseCommand(env Envelope) (Command, error) {
	switch env.Tipo {
	case KindLogin:
		var c Login
		if err := decodeData(env.Data, &c); err != nil {
			return nil, err
		}
		return c, nil

	case KindCreateRoom:
		var c CreateRoom
		if err := decodeData(env.Data, &c); err != nil {
			return nil, err
		}
		if c.Modo == "" {
			c.Modo = DefaultMode
		}
		return c, nil

	case KindListRooms:
		return ListRooms{}, nil

	case KindJoinRoom:
		var c JoinRoom
		if err := decodeData(env.Data, &c); err != nil {
			return nil, err
		}
		return c, requireField("id_sala", c.SalaID)

	case KindSetReady:
		var raw struct {
			SalaID string `json:"id_sala"`
			Listo  *bool  `json:"listo"`
		}
		if err := decodeData(env.Data, &raw); err != nil {
			return nil, err
		}
		if err := requireField("id_sala", raw.SalaID); err != nil {
			return nil, err
		}
		if raw.Listo == nil {
			return nil, &MissingFieldError{Field: "listo"}
		}
		return SetReady{SalaID: raw.SalaID, Listo: *raw.Listo}, nil

	case KindEndTurn:
		var c EndTurn
		if err := decodeData(env.Data, &c); err != nil {
			return nil, err
		}
		return c, requireField("id_sala", c.SalaID)

	case KindRollDie:
		var c RollDie
		if err := decodeData(env.Data, &c); err != nil {
			return nil, err
		}
		return c, requireField("id_sala", c.SalaID)

	case KindGlobalChat, KindGlobalChatAlt:
		var c GlobalChat
		if err := decodeData(env.Data, &c); err != nil {
			return nil, err
		}
		return c, nil

	case KindRoomChat:
		var c RoomChat
		if err := decodeData(env.Data, &c); err != nil {
			return nil, err
		}
		return c, requireField("id_sala", c.SalaID)

	case KindLeaveRoom:
		var c LeaveRoom
		if err := decodeData(env.Data, &c); err != nil {
			return nil, err
		}
		return c, requireField("id_sala", c.SalaID)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Tipo)
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return nil
}

// MissingFieldError names the required field a command omitted. It matches
// ErrMissingField with errors.Is.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string { return ErrMissingField.Error() + ": " + e.Field }
func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

func requireField(name, value string) error {
	if value == "" {
		return &MissingFieldError{Field: name}
	}
	return nil
}
