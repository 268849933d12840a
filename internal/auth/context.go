package auth

import "context"

type tokenContextKey struct{}

func contextWithToken(ctx context.Context, token Token) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the validated token carried by the request, if
// the bearer middleware saw one.
func TokenFromContext(ctx context.Context) (Token, bool) {
	token, ok := ctx.Value(tokenContextKey{}).(Token)
	return token, ok
}
