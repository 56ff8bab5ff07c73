package game

import (
	"context"
	"errors"
	"testing"
)

func TestNewClientRejectsStranger(t *testing.T) {
	g := newTestGame(t)
	if _, err := NewClient(g, "p3"); !errors.Is(err, ErrUnknownParticipant) {
		t.Fatalf("err = %v, want %v", err, ErrUnknownParticipant)
	}
	if _, err := NewClient(nil, "p1"); !errors.Is(err, ErrUnknownParticipant) {
		t.Fatalf("nil game err = %v, want %v", err, ErrUnknownParticipant)
	}
}

func TestClientBindsIdentity(t *testing.T) {
	g := newTestGame(t)
	white, err := NewClient(g, "p1")
	if err != nil {
		t.Fatalf("white client: %v", err)
	}
	black, err := NewClient(g, "p2")
	if err != nil {
		t.Fatalf("black client: %v", err)
	}

	if !white.IsFirstMover() || black.IsFirstMover() {
		t.Fatal("only p1 should move first")
	}
	if white.Opponent() != "p2" || black.Opponent() != "p1" {
		t.Fatalf("opponents = %q/%q, want p2/p1", white.Opponent(), black.Opponent())
	}
	if white.GameID() != g.ID() || white.Identity() != "p1" {
		t.Fatalf("client bound to %q/%q", white.GameID(), white.Identity())
	}

	if err := black.MakeMove("e7e5"); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("black first move err = %v, want %v", err, ErrNotYourTurn)
	}
	if err := white.MakeMove("e2e4"); err != nil {
		t.Fatalf("white move: %v", err)
	}
	got, err := black.WaitForMove(context.Background())
	if err != nil || got != "e2e4" {
		t.Fatalf("black WaitForMove = (%q, %v), want (e2e4, nil)", got, err)
	}

	white.Abort(nil)
	select {
	case <-black.Done():
	default:
		t.Fatal("abort through one client should end the game for both")
	}
	if !black.Result().Aborted {
		t.Fatal("expected aborted result")
	}
	if _, err := white.WaitForMove(context.Background()); !errors.Is(err, ErrGameAborted) {
		t.Fatalf("white WaitForMove err = %v, want %v", err, ErrGameAborted)
	}
}
