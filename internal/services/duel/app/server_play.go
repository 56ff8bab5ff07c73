package server

import (
	"context"
	"errors"

	apperrors "github.com/louisbranch/duel/internal/platform/errors"
	"github.com/louisbranch/duel/internal/services/duel/domain/game"
)

// playSession drives one participant through a game. It alternates between
// reading the participant's move and relaying the opponent's, based on who
// moves first, until the game ends. The player's connection is checked
// before every relay and every read of its own move. A session that ends for any reason other
// than game over or abort aborts the game so the opponent is released.
func playSession(ctx context.Context, client *game.Client, player Player) error {
	startTime, err := client.WaitForStart(ctx)
	if err != nil {
		return finishSession(ctx, client, player, err)
	}
	if err := player.SendStartInfo(ctx, StartInfo{
		GameID:       client.GameID(),
		StartTime:    startTime,
		FirstMover:   client.IsFirstMover(),
		OpponentName: client.Opponent(),
	}); err != nil {
		return finishSession(ctx, client, player, err)
	}

	// Waiting for the participant's own move ends when the game does.
	moveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-client.Done():
			cancel()
		case <-moveCtx.Done():
		}
	}()

	myTurn := client.IsFirstMover()
	for {
		if !myTurn {
			move, err := client.WaitForMove(ctx)
			if err != nil {
				return finishSession(ctx, client, player, err)
			}
			if !player.IsConnected() {
				return finishSession(ctx, client, player, endedErr(client, errPlayerDisconnected))
			}
			if err := player.SendOpponentMove(ctx, move); err != nil {
				return finishSession(ctx, client, player, err)
			}
			myTurn = true
			continue
		}

		if !player.IsConnected() {
			return finishSession(ctx, client, player, endedErr(client, errPlayerDisconnected))
		}
		move, err := player.ReceiveMove(moveCtx)
		if err != nil {
			return finishSession(ctx, client, player, endedErr(client, err))
		}
		err = client.MakeMove(move)
		switch {
		case err == nil:
			myTurn = false
		case errors.Is(err, game.ErrIllegalMove),
			errors.Is(err, game.ErrNotYourTurn),
			errors.Is(err, game.ErrMoveNotConsumed):
			if err := player.SendMoveRejected(ctx, move, err); err != nil {
				return finishSession(ctx, client, player, err)
			}
		default:
			return finishSession(ctx, client, player, err)
		}
	}
}

// endedErr maps a wait that stopped because the game ended to the game's own
// terminal error.
func endedErr(client *game.Client, err error) error {
	select {
	case <-client.Done():
	default:
		return err
	}
	if result := client.Result(); result.Aborted {
		return game.ErrGameAborted
	}
	return game.ErrGameOver
}

func finishSession(ctx context.Context, client *game.Client, player Player, err error) error {
	switch {
	case errors.Is(err, game.ErrGameOver):
		return player.SendGameOver(ctx, client.Result())
	case errors.Is(err, game.ErrGameAborted):
		return player.SendAbort(ctx, client.Result().Reason)
	default:
		client.Abort(apperrors.Wrap(apperrors.CodePlayerDisconnected, player.Name()+" disconnected", err))
		return err
	}
}
