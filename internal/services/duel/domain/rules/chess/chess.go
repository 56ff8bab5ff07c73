// Package chess adapts github.com/notnil/chess to the rules interfaces.
// Moves use UCI long algebraic notation ("e2e4", "e7e8q").
package chess

import (
	"fmt"
	"strings"

	nchess "github.com/notnil/chess"

	"github.com/louisbranch/duel/internal/services/duel/domain/rules"
)

// EngineName identifies the chess engine in telemetry and logs.
const EngineName = "chess"

// Engine creates standard chess positions.
type Engine struct{}

// New returns a chess engine.
func New() Engine {
	return Engine{}
}

// Name implements rules.Engine.
func (Engine) Name() string {
	return EngineName
}

// NewPosition implements rules.Engine.
func (Engine) NewPosition() rules.Position {
	return &position{game: nchess.NewGame(nchess.UseNotation(nchess.UCINotation{}))}
}

type position struct {
	game *nchess.Game
}

func (p *position) Apply(notation string) error {
	notation = strings.TrimSpace(notation)
	if notation == "" {
		return fmt.Errorf("move is required")
	}
	if p.game.Outcome() != nchess.NoOutcome {
		return fmt.Errorf("game is already decided")
	}
	if err := p.game.MoveStr(notation); err != nil {
		return fmt.Errorf("apply %q: %w", notation, err)
	}
	return nil
}

func (p *position) Outcome() rules.Outcome {
	switch p.game.Outcome() {
	case nchess.WhiteWon:
		return rules.FirstWon
	case nchess.BlackWon:
		return rules.SecondWon
	case nchess.Draw:
		return rules.Drawn
	default:
		return rules.Ongoing
	}
}

func (p *position) Method() string {
	switch p.game.Method() {
	case nchess.Checkmate:
		return "checkmate"
	case nchess.Stalemate:
		return "stalemate"
	case nchess.FivefoldRepetition:
		return "fivefold_repetition"
	case nchess.SeventyFiveMoveRule:
		return "seventy_five_move_rule"
	case nchess.InsufficientMaterial:
		return "insufficient_material"
	case nchess.Resignation:
		return "resignation"
	case nchess.DrawOffer:
		return "draw_offer"
	case nchess.ThreefoldRepetition:
		return "threefold_repetition"
	case nchess.FiftyMoveRule:
		return "fifty_move_rule"
	default:
		return ""
	}
}

// String returns the position in FEN.
func (p *position) String() string {
	return p.game.Position().String()
}
