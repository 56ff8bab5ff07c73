package game

import (
	"context"
	"time"
)

// Client is one participant's view of a game. Every call is made on behalf
// of the bound identity.
type Client struct {
	game     *Game
	identity string
}

// NewClient binds identity to g.
func NewClient(g *Game, identity string) (*Client, error) {
	if g == nil {
		return nil, ErrUnknownParticipant
	}
	if g.Opponent(identity) == "" {
		return nil, ErrUnknownParticipant
	}
	return &Client{game: g, identity: identity}, nil
}

// GameID returns the bound game's identifier.
func (c *Client) GameID() string { return c.game.ID() }

// Identity returns the bound participant.
func (c *Client) Identity() string { return c.identity }

// Opponent returns the other participant.
func (c *Client) Opponent() string { return c.game.Opponent(c.identity) }

// IsFirstMover reports whether the bound participant moves first.
func (c *Client) IsFirstMover() bool { return c.identity == c.game.First() }

// WaitForStart arrives at the start gate and waits for it to open.
func (c *Client) WaitForStart(ctx context.Context) (time.Time, error) {
	return c.game.WaitForStart(ctx, c.identity)
}

// MakeMove submits a move for the bound participant.
func (c *Client) MakeMove(move string) error {
	return c.game.MakeMove(c.identity, move)
}

// WaitForMove waits for the opponent's next move.
func (c *Client) WaitForMove(ctx context.Context) (string, error) {
	return c.game.WaitForMove(ctx, c.identity)
}

// Result reports the game outcome so far.
func (c *Client) Result() Result { return c.game.Result() }

// Done is closed when the game is over or aborted.
func (c *Client) Done() <-chan struct{} { return c.game.Done() }

// Abort tears the game down for both participants.
func (c *Client) Abort(reason error) { c.game.Abort(reason) }
