// Package rules defines the boundary between the turn protocol and the game
// rules. The protocol treats a position as an oracle: it can apply a move or
// reject it, and it can say whether play is over.
package rules

// Outcome is the result of a position in PGN result notation.
type Outcome string

const (
	// Ongoing means play continues.
	Ongoing Outcome = "*"
	// FirstWon means the first mover won.
	FirstWon Outcome = "1-0"
	// SecondWon means the second mover won.
	SecondWon Outcome = "0-1"
	// Drawn means neither side won.
	Drawn Outcome = "1/2-1/2"
)

// Terminal reports whether the outcome ends play.
func (o Outcome) Terminal() bool {
	return o != "" && o != Ongoing
}

// Engine creates starting positions for one game type.
type Engine interface {
	Name() string
	NewPosition() Position
}

// Position is the mutable state of one game.
//
// Implementations are called with the session lock held and must not block.
type Position interface {
	// Apply plays notation or returns an error and leaves the position
	// unchanged.
	Apply(notation string) error
	Outcome() Outcome
	// Method names how a terminal outcome was reached, or "" while ongoing.
	Method() string
	// String describes the position, for logs and diagnostics.
	String() string
}
