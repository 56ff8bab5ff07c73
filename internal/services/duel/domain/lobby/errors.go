package lobby

import apperrors "github.com/louisbranch/duel/internal/platform/errors"

var (
	// ErrJoinTimeout indicates no opponent was found within the join window.
	ErrJoinTimeout = apperrors.New(apperrors.CodeJoinTimeout, "no opponent found in time")
	// ErrLobbyClosed indicates the lobby stopped before the join completed.
	ErrLobbyClosed = apperrors.New(apperrors.CodeLobbyClosed, "lobby is closed")
	// ErrAlreadyQueued indicates the identity already has a pending join.
	ErrAlreadyQueued = apperrors.New(apperrors.CodeAlreadyQueued, "identity is already waiting for an opponent")
	// ErrInvalidIdentity indicates an empty identity.
	ErrInvalidIdentity = apperrors.New(apperrors.CodeInvalidIdentity, "identity is required")
)
