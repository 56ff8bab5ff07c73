// Package game implements the two-party turn handoff for one paired session.
//
// A move travels through a single-slot future: the mover fills it in
// MakeMove and the opponent drains it in WaitForMove. Only the receiver flips
// the turn, after it has taken the move, so the mover cannot run ahead of an
// undelivered move. A three-way latch marks the start of play once the
// session and both join paths have arrived.
package game

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	apperrors "github.com/louisbranch/duel/internal/platform/errors"
	"github.com/louisbranch/duel/internal/platform/rendezvous"
	"github.com/louisbranch/duel/internal/services/duel/domain/rules"
)

// startArrivals is the session start task plus one join path per participant.
const startArrivals = 3

// Result summarizes how a game ended.
type Result struct {
	Outcome rules.Outcome
	// Method is the rules' name for how the outcome was reached.
	Method   string
	Winner   string
	LastMove string
	Aborted  bool
	Reason   error
}

// Option customizes a Game.
type Option func(*Game)

// WithClock sets the clock used to stamp the start instant.
func WithClock(clock func() time.Time) Option {
	return func(g *Game) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// Game is one paired session between two identities.
type Game struct {
	id     string
	first  string
	second string
	engine string
	clock  func() time.Time

	gate    *rendezvous.Latch
	done    chan struct{}
	aborted chan struct{}

	mu           sync.Mutex
	position     rules.Position
	turn         string
	move         *rendezvous.Future[string]
	lastMove     string
	turnChanged  chan struct{}
	arrived      map[string]bool
	startArrived bool
	ended        bool
	abortErr     error
	receivers    int
}

// New creates a game in which first moves first.
func New(id, first, second string, engine rules.Engine, opts ...Option) (*Game, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("game id is required")
	}
	if first == "" || second == "" {
		return nil, fmt.Errorf("both participants are required")
	}
	if first == second {
		return nil, fmt.Errorf("participants must be distinct: %q", first)
	}
	if engine == nil {
		return nil, fmt.Errorf("rules engine is required")
	}

	g := &Game{
		id:          id,
		first:       first,
		second:      second,
		engine:      engine.Name(),
		clock:       time.Now,
		done:        make(chan struct{}),
		aborted:     make(chan struct{}),
		position:    engine.NewPosition(),
		turn:        first,
		move:        rendezvous.NewFuture[string](),
		turnChanged: make(chan struct{}),
		arrived:     make(map[string]bool, 2),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.gate = rendezvous.NewLatch(startArrivals, g.clock)
	return g, nil
}

// ID returns the game identifier.
func (g *Game) ID() string { return g.id }

// First returns the identity that moves first.
func (g *Game) First() string { return g.first }

// Second returns the identity that moves second.
func (g *Game) Second() string { return g.second }

// Engine returns the rules engine name.
func (g *Game) Engine() string { return g.engine }

// Done is closed when the game reaches a terminal position or is aborted.
func (g *Game) Done() <-chan struct{} { return g.done }

// Opponent returns the other participant, or "" for a stranger.
func (g *Game) Opponent(identity string) string {
	switch identity {
	case g.first:
		return g.second
	case g.second:
		return g.first
	default:
		return ""
	}
}

// CurrentTurn returns the identity expected to move next.
func (g *Game) CurrentTurn() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turn
}

// Position describes the current position.
func (g *Game) Position() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position.String()
}

// StartTime returns the committed start instant once all arrivals are in.
func (g *Game) StartTime() (time.Time, bool) {
	return g.gate.Time()
}

// Start is the session's own arrival at the start gate. It blocks until both
// participants have arrived too.
func (g *Game) Start(ctx context.Context) (time.Time, error) {
	g.mu.Lock()
	first := !g.startArrived
	g.startArrived = true
	g.mu.Unlock()
	if first {
		g.gate.Arrive()
	}

	at, err := g.waitGate(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if first {
		log.Printf("game: %s started (%s vs %s)", g.id, g.first, g.second)
	}
	return at, nil
}

// WaitForStart is a participant's arrival at the start gate. Repeated calls
// from the same identity only wait.
func (g *Game) WaitForStart(ctx context.Context, identity string) (time.Time, error) {
	if g.Opponent(identity) == "" {
		return time.Time{}, ErrUnknownParticipant
	}
	g.mu.Lock()
	first := !g.arrived[identity]
	g.arrived[identity] = true
	g.mu.Unlock()
	if first {
		g.gate.Arrive()
	}
	return g.waitGate(ctx)
}

func (g *Game) waitGate(ctx context.Context) (time.Time, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-g.gate.Done():
	case <-g.aborted:
		if at, ok := g.gate.Time(); ok {
			return at, nil
		}
		return time.Time{}, g.abortError()
	case <-ctx.Done():
		if at, ok := g.gate.Time(); ok {
			return at, nil
		}
		return time.Time{}, ctx.Err()
	}
	at, _ := g.gate.Time()
	return at, nil
}

// MakeMove submits notation for identity. The move is placed in the pending
// slot for the opponent; the turn does not change until the opponent
// receives it. When the move ends the game it is still delivered and
// ErrGameOver is returned.
func (g *Game) MakeMove(identity, notation string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Opponent(identity) == "" {
		return ErrUnknownParticipant
	}
	if g.abortErr != nil {
		return g.abortErrorLocked()
	}
	if g.position.Outcome().Terminal() {
		return ErrGameOver
	}
	if g.move.Resolved() {
		return ErrMoveNotConsumed
	}
	if identity != g.turn {
		return ErrNotYourTurn
	}
	if err := g.position.Apply(notation); err != nil {
		return apperrors.Wrap(apperrors.CodeIllegalMove, "illegal move", err)
	}

	g.move.Resolve(notation)
	g.lastMove = notation
	if g.position.Outcome().Terminal() {
		g.endLocked()
		return ErrGameOver
	}
	return nil
}

// WaitForMove blocks until the opponent's move is available and returns it.
// A participant waits for its own turn to pass first, so calling it right
// after MakeMove waits for the opponent to take that move and reply.
func (g *Game) WaitForMove(ctx context.Context, identity string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if g.Opponent(identity) == "" {
		return "", ErrUnknownParticipant
	}

	g.mu.Lock()
	for {
		for g.turn == identity && !g.ended {
			changed := g.turnChanged
			g.mu.Unlock()
			select {
			case <-changed:
			case <-g.aborted:
			case <-ctx.Done():
				return "", ctx.Err()
			}
			g.mu.Lock()
		}
		if g.abortErr != nil {
			err := g.abortErrorLocked()
			g.mu.Unlock()
			return "", err
		}
		if g.position.Outcome().Terminal() {
			g.mu.Unlock()
			return "", ErrGameOver
		}

		slot := g.move
		g.receivers++
		g.mu.Unlock()

		var waitErr error
		select {
		case <-slot.Done():
		case <-g.aborted:
			waitErr = ErrGameAborted
		case <-ctx.Done():
			waitErr = ctx.Err()
		}

		g.mu.Lock()
		g.receivers--
		if waitErr != nil {
			if g.abortErr != nil {
				waitErr = g.abortErrorLocked()
			}
			g.mu.Unlock()
			return "", waitErr
		}
		if slot != g.move {
			// Another receiver for this identity took the move.
			continue
		}

		notation, _, _ := slot.Value()
		g.move = rendezvous.NewFuture[string]()
		g.turn = identity
		g.broadcastLocked()
		g.mu.Unlock()
		return notation, nil
	}
}

// ParkedReceivers returns the number of WaitForMove calls blocked on the
// pending move.
func (g *Game) ParkedReceivers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.receivers
}

// Abort ends the game without a result. It is a no-op once the game is over.
func (g *Game) Abort(reason error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ended {
		return
	}
	if reason == nil {
		reason = ErrGameAborted
	}
	g.abortErr = reason
	released := g.receivers
	close(g.aborted)
	g.endLocked()
	log.Printf("game: %s aborted: %v (%d waiting receivers released)", g.id, reason, released)
}

// Result reports the outcome so far.
func (g *Game) Result() Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	outcome := g.position.Outcome()
	result := Result{
		Outcome:  outcome,
		Method:   g.position.Method(),
		LastMove: g.lastMove,
		Aborted:  g.abortErr != nil,
		Reason:   g.abortErr,
	}
	switch outcome {
	case rules.FirstWon:
		result.Winner = g.first
	case rules.SecondWon:
		result.Winner = g.second
	}
	return result
}

func (g *Game) endLocked() {
	g.ended = true
	close(g.done)
	g.broadcastLocked()
}

func (g *Game) broadcastLocked() {
	close(g.turnChanged)
	g.turnChanged = make(chan struct{})
}

func (g *Game) abortError() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.abortErrorLocked()
}

func (g *Game) abortErrorLocked() error {
	if g.abortErr == nil || g.abortErr == ErrGameAborted {
		return ErrGameAborted
	}
	return apperrors.Wrap(apperrors.CodeGameAborted, "game aborted", g.abortErr)
}

