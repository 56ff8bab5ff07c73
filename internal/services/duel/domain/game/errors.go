package game

import apperrors "github.com/louisbranch/duel/internal/platform/errors"

var (
	// ErrNotYourTurn indicates a move from the participant who is not on turn.
	ErrNotYourTurn = apperrors.New(apperrors.CodeNotYourTurn, "not your turn")
	// ErrIllegalMove indicates the rules rejected a move.
	ErrIllegalMove = apperrors.New(apperrors.CodeIllegalMove, "illegal move")
	// ErrMoveNotConsumed indicates the previous move has not been received yet.
	ErrMoveNotConsumed = apperrors.New(apperrors.CodeMoveNotConsumed, "previous move not yet received")
	// ErrUnknownParticipant indicates an identity that does not play in the game.
	ErrUnknownParticipant = apperrors.New(apperrors.CodeUnknownParticipant, "identity is not a participant")
	// ErrGameOver indicates the position is terminal.
	ErrGameOver = apperrors.New(apperrors.CodeGameOver, "game over")
	// ErrGameAborted indicates the game was torn down before a result.
	ErrGameAborted = apperrors.New(apperrors.CodeGameAborted, "game aborted")
)
