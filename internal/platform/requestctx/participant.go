// Package requestctx carries per-connection values through request contexts.
package requestctx

import (
	"context"
	"strings"
)

type participantContextKey struct{}

// WithParticipant stores the participant name the connection joined under.
func WithParticipant(ctx context.Context, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, participantContextKey{}, strings.TrimSpace(name))
}

// ParticipantFromContext returns the stored participant name, or "".
func ParticipantFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	name, _ := ctx.Value(participantContextKey{}).(string)
	return name
}
