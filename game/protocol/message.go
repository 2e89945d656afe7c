package protocol

import "encoding/json"

// Outbound message kinds
const (
	KindLoginOK       = "LOGIN_OK"
	KindRoomCreated   = "PARTIDA_CREADA"
	KindRoomList      = "PARTIDAS_DISPONIBLES"
	KindJoined        = "UNIDO_A_PARTIDA"
	KindRoomState     = "ESTADO_SALA"
	KindGameStarted   = "INICIAR_PARTIDA"
	KindTurnChanged   = "CAMBIO_TURNO"
	KindDieResult     = "RESULTADO_DADO"
	KindRoomMessage   = "MENSAJE_SALA"
	KindLeft          = "PARTIDA_ABANDONADA"
	KindError         = "ERROR"
	KindGlobalMessage = KindGlobalChat
)

// Message is one outbound frame
type Message struct {
	Tipo string `json:"tipo"`
	Data any    `json:"data"`
}

// Encode renders the message as a single newline-terminated line
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RoomSummary is the lobby listing entry for a room
type RoomSummary struct {
	ID        string `json:"id"`
	Modo      string `json:"modo"`
	Jugadores int    `json:"jugadores"`
	Max       int    `json:"max"`
}

// RoomCreated answers CREAR_PARTIDA. ID and SalaID carry the same value; the
// original clients read id_sala.
type RoomCreated struct {
	ID        string `json:"id"`
	SalaID    string `json:"id_sala"`
	Modo      string `json:"modo"`
	Jugadores int    `json:"jugadores"`
	Max       int    `json:"max"`
}

// Joined lists the room's seats in seating order
type Joined struct {
	SalaID    string   `json:"id_sala"`
	Jugadores []string `json:"jugadores"`
}

// RoomState is the full room snapshot pushed as ESTADO_SALA
type RoomState struct {
	SalaID    string   `json:"id_sala"`
	Modo      string   `json:"modo"`
	Jugadores []string `json:"jugadores"`
	Listos    []bool   `json:"listos"`
	Colores   []string `json:"colores"`
	Max       int      `json:"max"`
	EnJuego   bool     `json:"en_juego"`
	Turno     string   `json:"turno,omitempty"`
}

// GameStarted announces the first turn holder
type GameStarted struct {
	SalaID    string   `json:"id_sala"`
	Turno     string   `json:"turno"`
	Jugadores []string `json:"jugadores"`
}

// TurnChanged names the new turn holder
type TurnChanged struct {
	SalaID string `json:"id_sala"`
	Turno  string `json:"turno"`
}

// DieResult reports a roll
type DieResult struct {
	SalaID  string `json:"id_sala"`
	Jugador string `json:"jugador"`
	Valor   int    `json:"valor"`
}

// ChatLine is a chat message for MENSAJE_GENERAL and MENSAJE_SALA
type ChatLine struct {
	Autor string `json:"autor"`
	Texto string `json:"texto"`
}

// Left confirms SALIR_PARTIDA to the caller
type Left struct {
	SalaID string `json:"id_sala"`
}

// ErrorData is the payload of ERROR. It carries no machine-readable code.
type ErrorData struct {
	Mensaje string `json:"mensaje"`
}

func NewLoginOK(nombre string) Message {
	return Message{Tipo: KindLoginOK, Data: map[string]string{"nombre": nombre}}
}

func NewRoomCreated(s RoomSummary) Message {
	return Message{Tipo: KindRoomCreated, Data: RoomCreated{
		ID:        s.ID,
		SalaID:    s.ID,
		Modo:      s.Modo,
		Jugadores: s.Jugadores,
		Max:       s.Max,
	}}
}

// NewRoomList always encodes a JSON array, never null
func NewRoomList(rooms []RoomSummary) Message {
	if rooms == nil {
		rooms = []RoomSummary{}
	}
	return Message{Tipo: KindRoomList, Data: rooms}
}

func NewJoined(salaID string, jugadores []string) Message {
	return Message{Tipo: KindJoined, Data: Joined{SalaID: salaID, Jugadores: jugadores}}
}

func NewRoomState(st RoomState) Message {
	return Message{Tipo: KindRoomState, Data: st}
}

func NewGameStarted(salaID, turno string, jugadores []string) Message {
	return Message{Tipo: KindGameStarted, Data: GameStarted{SalaID: salaID, Turno: turno, Jugadores: jugadores}}
}

func NewTurnChanged(salaID, turno string) Message {
	return Message{Tipo: KindTurnChanged, Data: TurnChanged{SalaID: salaID, Turno: turno}}
}

func NewDieResult(salaID, jugador string, valor int) Message {
	return Message{Tipo: KindDieResult, Data: DieResult{SalaID: salaID, Jugador: jugador, Valor: valor}}
}

func NewGlobalMessage(autor, texto string) Message {
	return Message{Tipo: KindGlobalMessage, Data: ChatLine{Autor: autor, Texto: texto}}
}

func NewRoomMessage(autor, texto string) Message {
	return Message{Tipo: KindRoomMessage, Data: ChatLine{Autor: autor, Texto: texto}}
}

func NewLeft(salaID string) Message {
	return Message{Tipo: KindLeft, Data: Left{SalaID: salaID}}
}

func NewError(mensaje string) Message {
	return Message{Tipo: KindError, Data: ErrorData{Mensaje: mensaje}}
}
