// Package lobby pairs waiting participants into games.
//
// Joins are served in arrival order. A background loop takes the first two
// waiting tickets, creates a game for them and hands each joiner its client.
// The joiner then waits at the game's start gate, so Join only returns once
// play has officially begun.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/duel/internal/platform/errors"
	"github.com/louisbranch/duel/internal/platform/id"
	"github.com/louisbranch/duel/internal/platform/rendezvous"
	"github.com/louisbranch/duel/internal/platform/timeouts"
	"github.com/louisbranch/duel/internal/services/duel/domain/game"
	"github.com/louisbranch/duel/internal/services/duel/domain/rules"
	"github.com/louisbranch/duel/internal/services/duel/storage"
	"github.com/louisbranch/duel/internal/telemetry"
)

const tracerName = "github.com/louisbranch/duel/internal/services/duel/domain/lobby"

// Config configures a Manager.
type Config struct {
	// Engine creates positions for new games. Required.
	Engine rules.Engine
	// JoinTimeout bounds how long a joiner waits for an opponent.
	JoinTimeout time.Duration
	// Emitter records operational telemetry. Optional.
	Emitter *telemetry.Emitter
	Clock   func() time.Time
	NewID   func() (string, error)
}

type ticket struct {
	identity string
	result   *rendezvous.Future[*game.Client]
}

// Manager is the lobby. It owns the waiting queue and the live games.
type Manager struct {
	engine      rules.Engine
	joinTimeout time.Duration
	emitter     *telemetry.Emitter
	clock       func() time.Time
	newID       func() (string, error)
	tracer      trace.Tracer

	mu       sync.Mutex
	queue    []*ticket
	pending  map[string]*ticket
	games    map[string]*game.Game
	wake     chan struct{}
	cancel   context.CancelFunc
	loopDone chan struct{}
	stopped  bool

	watchers sync.WaitGroup
}

// NewManager builds a lobby from cfg.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("rules engine is required")
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = timeouts.Join
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = id.NewID
	}
	return &Manager{
		engine:      cfg.Engine,
		joinTimeout: cfg.JoinTimeout,
		emitter:     cfg.Emitter,
		clock:       cfg.Clock,
		newID:       cfg.NewID,
		tracer:      otel.Tracer(tracerName),
		pending:     make(map[string]*ticket),
		games:       make(map[string]*game.Game),
		wake:        make(chan struct{}),
	}, nil
}

// Start launches the pairing loop. The loop runs until Stop or until ctx
// ends; either way the lobby closes and pending joins fail with
// ErrLobbyClosed.
func (m *Manager) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return ErrLobbyClosed
	}
	if m.cancel != nil {
		return errors.New("lobby already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.loopDone = make(chan struct{})
	go m.run(runCtx)
	return nil
}

// Stop ends the pairing loop and waits for it to exit. Pending joins fail
// with ErrLobbyClosed and live games are aborted. Stop is idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, loopDone := m.cancel, m.loopDone
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-loopDone
	}
	m.shutdown()
	m.watchers.Wait()
}

// shutdown closes the lobby: queued tickets are rejected and live games
// aborted. Only the first call does anything.
func (m *Manager) shutdown() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	queued := m.queue
	m.queue = nil
	m.pending = make(map[string]*ticket)
	games := make([]*game.Game, 0, len(m.games))
	for _, g := range m.games {
		games = append(games, g)
	}
	m.wakeLocked()
	m.mu.Unlock()

	for _, t := range queued {
		t.result.Reject(ErrLobbyClosed)
	}
	for _, g := range games {
		g.Abort(ErrLobbyClosed)
	}
	log.Printf("lobby: closed (%d pending joins released, %d games aborted)", len(queued), len(games))
}

// Waiting returns the number of queued joiners.
func (m *Manager) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// ActiveGames returns the number of games that have not ended.
func (m *Manager) ActiveGames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.games)
}

// Join queues identity and waits for an opponent. It returns once the game
// has started. A joiner that gives up is removed from the queue before it
// can be paired; if pairing already took it, it receives the client anyway.
func (m *Manager) Join(ctx context.Context, identity string) (*game.Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := m.tracer.Start(ctx, "lobby.Join", trace.WithAttributes(attribute.String("duel.identity", identity)))
	defer span.End()

	client, err := m.join(ctx, identity)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("duel.error_code", string(apperrors.CodeOf(err))))
		return nil, err
	}
	span.SetAttributes(attribute.String("duel.game_id", client.GameID()))
	return client, nil
}

func (m *Manager) join(ctx context.Context, identity string) (*game.Client, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, ErrInvalidIdentity
	}

	t := &ticket{identity: identity, result: rendezvous.NewFuture[*game.Client]()}
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil, ErrLobbyClosed
	}
	if _, ok := m.pending[identity]; ok {
		m.mu.Unlock()
		return nil, ErrAlreadyQueued
	}
	m.queue = append(m.queue, t)
	m.pending[identity] = t
	m.wakeLocked()
	m.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, m.joinTimeout)
	defer cancel()
	_, _ = t.result.Wait(waitCtx)
	if !t.result.Resolved() && m.withdraw(t) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Printf("lobby: %s timed out after %s", identity, m.joinTimeout)
		m.emit(ctx, storage.TelemetryEvent{
			EventName:  telemetry.EventJoinTimeout,
			Severity:   string(telemetry.SeverityWarn),
			ActorID:    identity,
			Attributes: map[string]any{"join_timeout_ms": m.joinTimeout.Milliseconds()},
		})
		return nil, ErrJoinTimeout
	}

	// The ticket left the queue through pairing or Stop, both of which
	// settle it promptly.
	client, err := t.result.Wait(context.Background())
	if err != nil {
		return nil, err
	}
	if _, err := client.WaitForStart(ctx); err != nil {
		client.Abort(apperrors.Wrap(apperrors.CodePlayerDisconnected, identity+" left before start", err))
		return nil, err
	}
	return client, nil
}

// withdraw removes t from the queue. It reports false when t already left.
func (m *Manager) withdraw(t *ticket) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending[t.identity] != t {
		return false
	}
	delete(m.pending, t.identity)
	for i, queued := range m.queue {
		if queued == t {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			break
		}
	}
	return true
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.loopDone)
	log.Printf("lobby: pairing loop started")
	for {
		first, second, ok := m.nextPair(ctx)
		if !ok {
			log.Printf("lobby: pairing loop stopped")
			m.shutdown()
			return
		}
		m.pair(ctx, first, second)
	}
}

// nextPair blocks until two tickets are queued and removes them in arrival
// order.
func (m *Manager) nextPair(ctx context.Context) (*ticket, *ticket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.queue) < 2 {
		if m.stopped || ctx.Err() != nil {
			return nil, nil, false
		}
		wake := m.wake
		m.mu.Unlock()
		select {
		case <-wake:
		case <-ctx.Done():
		}
		m.mu.Lock()
	}
	if m.stopped || ctx.Err() != nil {
		return nil, nil, false
	}

	first, second := m.queue[0], m.queue[1]
	m.queue = append(m.queue[:0:0], m.queue[2:]...)
	delete(m.pending, first.identity)
	delete(m.pending, second.identity)
	return first, second, true
}

func (m *Manager) pair(ctx context.Context, first, second *ticket) {
	ctx, span := m.tracer.Start(ctx, "lobby.pair", trace.WithAttributes(
		attribute.String("duel.first", first.identity),
		attribute.String("duel.second", second.identity),
	))
	defer span.End()

	g, clients, err := m.newGame(first.identity, second.identity)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Printf("lobby: pair %s and %s: %v", first.identity, second.identity, err)
		failure := apperrors.Wrap(apperrors.CodeUnknown, "create game", err)
		first.result.Reject(failure)
		second.result.Reject(failure)
		return
	}
	span.SetAttributes(attribute.String("duel.game_id", g.ID()))

	m.mu.Lock()
	m.games[g.ID()] = g
	m.mu.Unlock()

	m.watchers.Add(1)
	go m.watch(g)
	go func() {
		if _, err := g.Start(context.Background()); err != nil {
			log.Printf("lobby: game %s did not start: %v", g.ID(), err)
		}
	}()

	first.result.Resolve(clients[0])
	second.result.Resolve(clients[1])

	log.Printf("lobby: paired %s and %s in game %s", first.identity, second.identity, g.ID())
	m.emit(context.WithoutCancel(ctx), storage.TelemetryEvent{
		EventName: telemetry.EventLobbyPaired,
		Severity:  string(telemetry.SeverityInfo),
		GameID:    g.ID(),
		ActorID:   first.identity,
		Attributes: map[string]any{
			"first":  first.identity,
			"second": second.identity,
			"engine": g.Engine(),
		},
	})
}

func (m *Manager) newGame(first, second string) (*game.Game, [2]*game.Client, error) {
	var clients [2]*game.Client
	gameID, err := m.newID()
	if err != nil {
		return nil, clients, err
	}
	g, err := game.New(gameID, first, second, m.engine, game.WithClock(m.clock))
	if err != nil {
		return nil, clients, err
	}
	for i, identity := range []string{first, second} {
		client, err := game.NewClient(g, identity)
		if err != nil {
			return nil, clients, err
		}
		clients[i] = client
	}
	return g, clients, nil
}

// watch forgets g once it ends and records how it ended.
func (m *Manager) watch(g *game.Game) {
	defer m.watchers.Done()
	<-g.Done()

	m.mu.Lock()
	delete(m.games, g.ID())
	m.mu.Unlock()

	result := g.Result()
	evt := storage.TelemetryEvent{
		GameID: g.ID(),
		Attributes: map[string]any{
			"first":     g.First(),
			"second":    g.Second(),
			"outcome":   string(result.Outcome),
			"method":    result.Method,
			"last_move": result.LastMove,
		},
	}
	if result.Aborted {
		evt.EventName = telemetry.EventGameAborted
		evt.Severity = string(telemetry.SeverityWarn)
		evt.Attributes["reason"] = fmt.Sprint(result.Reason)
		evt.Attributes["reason_code"] = string(apperrors.CodeOf(result.Reason))
	} else {
		evt.EventName = telemetry.EventGameFinished
		evt.Severity = string(telemetry.SeverityInfo)
		evt.ActorID = result.Winner
	}
	m.emit(context.Background(), evt)
}

func (m *Manager) emit(ctx context.Context, evt storage.TelemetryEvent) {
	if err := m.emitter.Emit(ctx, evt); err != nil {
		log.Printf("lobby: emit %s: %v", evt.EventName, err)
	}
}

func (m *Manager) wakeLocked() {
	close(m.wake)
	m.wake = make(chan struct{})
}
