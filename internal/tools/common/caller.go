package common

import (
	"context"

	"github.com/teemow/ticktick-mcp/internal/mcp/oauth"
)

// LocalCaller is the caller identity used when no authenticated user is
// present, i.e. for stdio transport or unauthenticated HTTP.
const LocalCaller = "local"

// CallerFromContext returns the identity of the caller for audit logging.
// For OAuth-authenticated HTTP requests this is the validated user's
// email; otherwise it is LocalCaller.
func CallerFromContext(ctx context.Context) string {
	if user, ok := oauth.GetUserFromContext(ctx); ok && user != nil && user.Email != "" {
		return user.Email
	}
	return LocalCaller
}
