package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/parques-server/game/board"
	"github.com/wricardo/parques-server/game/protocol"
	"github.com/wricardo/parques-server/game/sala"
	"github.com/wricardo/parques-server/game/service"
	"github.com/wricardo/parques-server/game/session"
	"github.com/wricardo/parques-server/transport/tcp"
)

func startServer(t *testing.T, opts ...sala.Option) (*tcp.Gateway, service.LobbyService, string) {
	t.Helper()
	svc := service.NewLobbyService(session.NewRegistry(nil), sala.NewDirectory(opts...), nil)
	gw := tcp.NewGateway(svc, tcp.DefaultOptions(), nil)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go gw.Serve(context.Background(), l)
	t.Cleanup(func() { gw.Close() })
	return gw, svc, l.Addr().String()
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_SendAndAwait(t *testing.T) {
	_, _, addr := startServer(t)
	ctx := testContext(t)

	c, err := Dial(ctx, addr, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(protocol.Login{Nombre: "ana"}))
	env, err := c.Await(ctx, protocol.KindLoginOK)
	require.NoError(t, err)

	var data map[string]string
	require.NoError(t, Decode(env, &data))
	assert.Equal(t, "ana", data["nombre"])
}

func TestClient_AwaitServerError(t *testing.T) {
	_, _, addr := startServer(t)
	ctx := testContext(t)

	c, err := Dial(ctx, addr, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(protocol.JoinRoom{SalaID: "nope"}))
	_, err = c.Await(ctx, protocol.KindJoined)

	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, ErrServerError)
	assert.Contains(t, se.Mensaje, "LOGIN")
}

func TestClient_AwaitCanReturnErrorFrames(t *testing.T) {
	_, _, addr := startServer(t)
	ctx := testContext(t)

	c, err := Dial(ctx, addr, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(protocol.EndTurn{SalaID: "x"}))
	env, err := c.Await(ctx, protocol.KindError)
	require.NoError(t, err)
	assert.Equal(t, protocol.KindError, env.Tipo)
}

func TestClient_ServerGoesAway(t *testing.T) {
	gw, _, addr := startServer(t)
	ctx := testContext(t)

	c, err := Dial(ctx, addr, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(protocol.Login{Nombre: "ana"}))
	_, err = c.Await(ctx, protocol.KindLoginOK)
	require.NoError(t, err)

	require.NoError(t, gw.Close())
	_, err = c.Await(ctx, protocol.KindLoginOK)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestClient_SendAfterClose(t *testing.T) {
	server, other := net.Pipe()
	defer other.Close()

	c := New(server, nil)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.ErrorIs(t, c.Send(protocol.ListRooms{}), ErrClosed)

	_, open := <-c.Messages()
	assert.False(t, open, "Messages should close after Close")
}

func TestClient_SkipsMalformedFrames(t *testing.T) {
	local, remote := net.Pipe()
	c := New(local, nil)
	defer c.Close()

	go func() {
		fmt.Fprint(remote, "hola\n\n[1,2]\n")
		fmt.Fprint(remote, `{"tipo":"LOGIN_OK","data":{"nombre":"ana"}}`+"\n")
		remote.Close()
	}()

	env, err := c.Await(testContext(t), protocol.KindLoginOK)
	require.NoError(t, err)
	assert.Equal(t, protocol.KindLoginOK, env.Tipo)

	_, open := <-c.Messages()
	assert.False(t, open)
	assert.NoError(t, c.Err())
}

func TestClient_AwaitGarbledErrorFrame(t *testing.T) {
	local, remote := net.Pipe()
	c := New(local, nil)
	defer c.Close()

	go fmt.Fprint(remote, `{"tipo":"ERROR","data":{"mensaje":42}}`+"\n")

	_, err := c.Await(testContext(t), protocol.KindLoginOK)
	require.ErrorIs(t, err, ErrServerError)
	var se *ServerError
	assert.False(t, errors.As(err, &se), "garbled payload must not look like an empty server message")
	assert.Contains(t, err.Error(), "decode ERROR")
}

func TestClient_SendEncodesOneLine(t *testing.T) {
	local, remote := net.Pipe()
	c := New(local, nil)
	defer c.Close()

	lines := make(chan string, 1)
	go func() {
		scan := bufio.NewScanner(remote)
		if scan.Scan() {
			lines <- scan.Text()
		}
	}()

	require.NoError(t, c.Send(protocol.SetReady{SalaID: "abc", Listo: false}))
	select {
	case line := <-lines:
		assert.JSONEq(t, `{"tipo":"CAMBIAR_LISTO","data":{"id_sala":"abc","listo":false}}`, line)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame written")
	}
}

func TestMatch_FourBots(t *testing.T) {
	sixes := sala.DiceFunc(func() int { return 6 })
	_, svc, addr := startServer(t, sala.WithDice(sixes))

	bots, err := Match(testContext(t), MatchOptions{
		Addr:  addr,
		Names: []string{"ana", "beto", "caro", "dani"},
		Mode:  "1v1v1v1",
		Turns: 3,
	}, nil)
	require.NoError(t, err)
	require.Len(t, bots, 4)

	// One six leaves base, two more advance twelve cells.
	want := []board.Position{
		board.TrackPosition(12),
		board.TrackPosition(25),
		board.TrackPosition(38),
		board.TrackPosition(51),
	}
	for i, b := range bots {
		assert.Equal(t, 3, b.Turns(), b.Name())
		assert.Equal(t, board.ColorForSeat(i), b.Color(), b.Name())
		assert.Equal(t, want[i], b.Position(), b.Name())
		assert.Empty(t, b.RoomID(), "%s should have left", b.Name())
	}

	assert.Eventually(t, func() bool {
		return svc.Stats(context.Background()).Salas == 0
	}, 2*time.Second, 10*time.Millisecond, "room should close once every bot left")
}

func TestMatch_JoinUnknownRoom(t *testing.T) {
	_, _, addr := startServer(t)

	_, err := Match(testContext(t), MatchOptions{
		Addr:   addr,
		Names:  []string{"ana"},
		RoomID: "zzzzzzzz",
		Turns:  1,
	}, nil)
	assert.ErrorIs(t, err, ErrServerError)
}

func TestMatch_Validation(t *testing.T) {
	_, err := Match(context.Background(), MatchOptions{Addr: "127.0.0.1:1"}, nil)
	assert.Error(t, err)

	_, err = Match(testContext(t), MatchOptions{Addr: "127.0.0.1:1", Names: []string{"ana"}}, nil)
	var opErr *net.OpError
	assert.True(t, errors.As(err, &opErr), "expected dial error, got %v", err)
}
