package transport

import "context"

type contextKey string

const contextPublicKey contextKey = "publicCall"

// Public marks the call as not needing credentials: no Authorization header
// is attached and a 401 is returned as is. Used for register, login,
// send-otp and the refresh endpoint.
func Public(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextPublicKey, true)
}

func isPublic(ctx context.Context) bool {
	public, _ := ctx.Value(contextPublicKey).(bool)
	return public
}
