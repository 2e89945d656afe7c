package session_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/wricardo/parques-server/game/protocol"
	"github.com/wricardo/parques-server/game/session"
	"github.com/wricardo/parques-server/game/session/sessiontest"
)

func TestSession_SetName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  error
	}{
		{"plain name", "ana", "ana", nil},
		{"trimmed name", "  beto \n", "beto", nil},
		{"empty name", "", "", session.ErrInvalidName},
		{"blank name", "   ", "", session.ErrInvalidName},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := session.New(sessiontest.NewConn(), nil)
			err := s.SetName(test.input)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("Expected error %v, got %v", test.wantErr, err)
			}
			if s.Name() != test.expected {
				t.Errorf("Expected name %q, got %q", test.expected, s.Name())
			}
			if s.LoggedIn() != (test.expected != "") {
				t.Errorf("Unexpected LoggedIn() = %v", s.LoggedIn())
			}
		})
	}
}

func TestSession_NameIsImmutable(t *testing.T) {
	s := session.New(sessiontest.NewConn(), nil)
	if err := s.SetName("ana"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if err := s.SetName("beto"); !errors.Is(err, session.ErrAlreadyLoggedIn) {
		t.Fatalf("Expected ErrAlreadyLoggedIn, got %v", err)
	}
	if s.Name() != "ana" {
		t.Errorf("Name changed to %q", s.Name())
	}
}

func TestSession_RoomID(t *testing.T) {
	s := session.New(sessiontest.NewConn(), nil)
	if s.RoomID() != "" {
		t.Fatal("New session should not be in a room")
	}

	s.SetRoomID("abc")
	if s.ClearRoomID("other") {
		t.Error("ClearRoomID should ignore a different room")
	}
	if s.RoomID() != "abc" {
		t.Errorf("Expected room abc, got %q", s.RoomID())
	}
	if !s.ClearRoomID("abc") {
		t.Error("ClearRoomID should clear the current room")
	}
	if s.RoomID() != "" {
		t.Errorf("Expected no room, got %q", s.RoomID())
	}
}

func TestSession_SendFailureClosesConn(t *testing.T) {
	conn := sessiontest.NewConn()
	s := session.New(conn, nil)

	s.Send(protocol.NewError("uno"))
	if conn.Closed() {
		t.Fatal("Successful send should not close the connection")
	}

	conn.FailSends()
	s.Send(protocol.NewError("dos"))
	if !conn.Closed() {
		t.Error("Failed send should close the connection")
	}
	if got := len(conn.Messages()); got != 1 {
		t.Errorf("Expected 1 delivered message, got %d", got)
	}
}

func TestSession_ConcurrentLogin(t *testing.T) {
	s := session.New(sessiontest.NewConn(), nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.SetName(fmt.Sprintf("p%d", i)); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("Expected exactly one successful login, got %d", winners)
	}
}
