package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	apperrors "github.com/louisbranch/duel/internal/platform/errors"
	"github.com/louisbranch/duel/internal/services/duel/domain/game"
)

var errPlayerDisconnected = apperrors.New(apperrors.CodePlayerDisconnected, "player disconnected")

// StartInfo is what a participant learns when play begins.
type StartInfo struct {
	GameID       string
	StartTime    time.Time
	FirstMover   bool
	OpponentName string
}

// Player is one connected participant, whatever the transport.
type Player interface {
	Name() string
	SendStartInfo(ctx context.Context, info StartInfo) error
	// ReceiveMove returns the participant's next move.
	ReceiveMove(ctx context.Context) (string, error)
	SendOpponentMove(ctx context.Context, move string) error
	SendGameOver(ctx context.Context, result game.Result) error
	SendMoveRejected(ctx context.Context, move string, err error) error
	SendAbort(ctx context.Context, reason error) error
	IsConnected() bool
}

// wsPlayer is a Player over a websocket. Moves that arrive before the
// participant's turn wait in a small queue.
type wsPlayer struct {
	name     string
	peer     *wsPeer
	moves    chan string
	gone     chan struct{}
	goneOnce sync.Once
}

var _ Player = (*wsPlayer)(nil)

func newWSPlayer(name string, peer *wsPeer) *wsPlayer {
	return &wsPlayer{
		name:  name,
		peer:  peer,
		moves: make(chan string, maxQueuedMoves),
		gone:  make(chan struct{}),
	}
}

func (p *wsPlayer) Name() string { return p.name }

func (p *wsPlayer) IsConnected() bool {
	select {
	case <-p.gone:
		return false
	default:
		return true
	}
}

func (p *wsPlayer) disconnect() {
	p.goneOnce.Do(func() { close(p.gone) })
}

func (p *wsPlayer) SendStartInfo(ctx context.Context, info StartInfo) error {
	return p.send(ctx, "game.started", gameStartedPayload{
		GameID:       info.GameID,
		StartTime:    info.StartTime.UTC().Format(time.RFC3339Nano),
		AmIWhite:     info.FirstMover,
		OpponentName: info.OpponentName,
	})
}

func (p *wsPlayer) ReceiveMove(ctx context.Context) (string, error) {
	select {
	case move := <-p.moves:
		return move, nil
	case <-p.gone:
		return "", errPlayerDisconnected
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *wsPlayer) SendOpponentMove(ctx context.Context, move string) error {
	return p.send(ctx, "move", movePayload{UCI: move})
}

func (p *wsPlayer) SendGameOver(ctx context.Context, result game.Result) error {
	return p.send(ctx, "game.over", gameOverPayload{
		Result:   string(result.Outcome),
		Method:   result.Method,
		Winner:   result.Winner,
		LastMove: result.LastMove,
	})
}

func (p *wsPlayer) SendMoveRejected(ctx context.Context, move string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return writeWSErrorCode(p.peer, "", apperrors.CodeOf(err), err.Error(), map[string]any{"uci": move})
}

func (p *wsPlayer) SendAbort(ctx context.Context, reason error) error {
	payload := gameAbortedPayload{Reason: string(apperrors.CodeGameAborted)}
	if reason != nil {
		payload.Reason = string(apperrors.CodeOf(reason))
		payload.Message = reason.Error()
	}
	return p.send(ctx, "game.aborted", payload)
}

func (p *wsPlayer) send(ctx context.Context, frameType string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.peer.writeFrame(wsFrame{Type: frameType, Payload: mustJSON(payload)}); err != nil {
		p.disconnect()
		return fmt.Errorf("write %s: %w", frameType, err)
	}
	return nil
}

// readLoop decodes inbound frames until the connection drops or breaks a
// frame limit.
func (p *wsPlayer) readLoop(conn *websocket.Conn) error {
	defer p.disconnect()

	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var raw []byte
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			return errPlayerDisconnected
		}

		var frame wsFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			decodeErrors++
			_ = writeWSErrorCode(p.peer, "", apperrors.CodeInvalidArgument, "invalid frame payload", nil)
			if decodeErrors >= maxDecodeErrorsPerConn {
				return errPlayerDisconnected
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSErrorCode(p.peer, frame.RequestID, apperrors.CodeInvalidArgument, "payload too large", nil)
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			_ = writeWSErrorCode(p.peer, frame.RequestID, apperrors.CodeResourceExhausted, "rate limit exceeded", nil)
			return errPlayerDisconnected
		}

		switch frame.Type {
		case "move":
			p.handleMoveFrame(frame)
		case "pong":
		default:
			_ = writeWSErrorCode(p.peer, frame.RequestID, apperrors.CodeInvalidArgument, "unsupported frame type", nil)
		}
	}
}

func (p *wsPlayer) handleMoveFrame(frame wsFrame) {
	var payload movePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSErrorCode(p.peer, frame.RequestID, apperrors.CodeInvalidArgument, "invalid move payload", nil)
		return
	}
	move := strings.TrimSpace(payload.UCI)
	if move == "" {
		_ = writeWSErrorCode(p.peer, frame.RequestID, apperrors.CodeInvalidArgument, "uci is required", nil)
		return
	}
	select {
	case p.moves <- move:
	default:
		_ = writeWSErrorCode(p.peer, frame.RequestID, apperrors.CodeResourceExhausted, "too many queued moves", map[string]any{"uci": move})
	}
}

// heartbeat pings the participant on every tick. A failed write is treated
// as a disconnect.
func (p *wsPlayer) heartbeat(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.gone:
			return nil
		case <-ticker.C:
			if err := p.peer.writeFrame(wsFrame{Type: "ping", Payload: mustJSON(struct{}{})}); err != nil {
				p.disconnect()
				return errPlayerDisconnected
			}
		}
	}
}
