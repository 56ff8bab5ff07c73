package chess

import (
	"strings"
	"testing"

	"github.com/louisbranch/duel/internal/services/duel/domain/rules"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestNewPositionStartsOngoing(t *testing.T) {
	engine := New()
	if engine.Name() != EngineName {
		t.Fatalf("name = %q, want %q", engine.Name(), EngineName)
	}
	pos := engine.NewPosition()
	if got := pos.Outcome(); got != rules.Ongoing {
		t.Fatalf("outcome = %q, want %q", got, rules.Ongoing)
	}
	if got := pos.Method(); got != "" {
		t.Fatalf("method = %q, want empty", got)
	}
	if got := pos.String(); got != startFEN {
		t.Fatalf("fen = %q, want %q", got, startFEN)
	}
}

func TestApplyRejectsIllegalMoveWithoutChangingPosition(t *testing.T) {
	pos := New().NewPosition()
	for _, move := range []string{"", "e2e5", "e7e5", "zz"} {
		if err := pos.Apply(move); err == nil {
			t.Fatalf("Apply(%q) expected error", move)
		}
	}
	if got := pos.String(); got != startFEN {
		t.Fatalf("position changed after rejected moves: %q", got)
	}
}

func TestApplyLegalMove(t *testing.T) {
	pos := New().NewPosition()
	if err := pos.Apply("e2e4"); err != nil {
		t.Fatalf("apply e2e4: %v", err)
	}
	if !strings.HasPrefix(pos.String(), "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b") {
		t.Fatalf("unexpected fen after e2e4: %q", pos.String())
	}
}

func TestFoolsMateIsTerminal(t *testing.T) {
	pos := New().NewPosition()
	for _, move := range []string{"f2f3", "e7e5", "g2g4"} {
		if err := pos.Apply(move); err != nil {
			t.Fatalf("apply %s: %v", move, err)
		}
		if pos.Outcome().Terminal() {
			t.Fatalf("terminal after %s", move)
		}
	}
	if err := pos.Apply("d8h4"); err != nil {
		t.Fatalf("apply d8h4: %v", err)
	}
	if got := pos.Outcome(); got != rules.SecondWon {
		t.Fatalf("outcome = %q, want %q", got, rules.SecondWon)
	}
	if got := pos.Method(); got != "checkmate" {
		t.Fatalf("method = %q, want %q", got, "checkmate")
	}
	if err := pos.Apply("a2a3"); err == nil {
		t.Fatal("expected move after mate to fail")
	}
}
