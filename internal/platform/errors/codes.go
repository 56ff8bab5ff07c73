// Package errors provides structured domain errors for the duel relay.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Lobby errors
	CodeJoinTimeout     Code = "JOIN_TIMEOUT"
	CodeLobbyClosed     Code = "LOBBY_CLOSED"
	CodeAlreadyQueued   Code = "ALREADY_QUEUED"
	CodeInvalidIdentity Code = "INVALID_IDENTITY"

	// Turn protocol errors
	CodeNotYourTurn        Code = "NOT_YOUR_TURN"
	CodeIllegalMove        Code = "ILLEGAL_MOVE"
	CodeMoveNotConsumed    Code = "MOVE_NOT_CONSUMED"
	CodeUnknownParticipant Code = "UNKNOWN_PARTICIPANT"

	// Session lifecycle
	CodeGameOver           Code = "GAME_OVER"
	CodeGameAborted        Code = "GAME_ABORTED"
	CodePlayerDisconnected Code = "PLAYER_DISCONNECTED"

	// Transport frame errors
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeResourceExhausted Code = "RESOURCE_EXHAUSTED"
)

// Retryable reports whether a caller may repeat the same request later and
// expect a different result.
func (c Code) Retryable() bool {
	switch c {
	case CodeJoinTimeout, CodeResourceExhausted:
		return true
	default:
		return false
	}
}

// Terminal reports whether the code ends the session for the caller.
func (c Code) Terminal() bool {
	switch c {
	case CodeGameOver, CodeGameAborted, CodePlayerDisconnected, CodeLobbyClosed:
		return true
	default:
		return false
	}
}
