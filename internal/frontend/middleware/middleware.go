package middleware

import (
	"context"
	"net/http"
)

type authCtxKey struct{}

type authCtx struct {
	authenticated bool
}

func withAuthenticated(ctx context.Context) context.Context {
	return context.WithValue(ctx, authCtxKey{}, &authCtx{authenticated: true})
}

func isAuthenticated(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	auth, ok := ctx.Value(authCtxKey{}).(*authCtx)
	return ok && auth.authenticated
}

var (
	authBasic *AuthBasic
	authToken *AuthToken
)

// Options holds the authentication configuration consulted by the
// middlewares.
type Options struct {
	AuthBasic *AuthBasic
	AuthToken *AuthToken
}

// AuthBasic carries credentials for HTTP basic authentication.
type AuthBasic struct {
	Username string
	Password string
}

// AuthToken carries the static bearer token.
type AuthToken struct {
	Token string
}

// Setup stores the authentication configuration. Call it once before
// building the auth chain.
func Setup(opts *Options) {
	authBasic = opts.AuthBasic
	authToken = opts.AuthToken
}

// AuthChain returns the configured auth middlewares in application
// order. Basic auth runs first so a request carrying a bearer token
// falls through to token auth, and a request authenticated by
// credentials skips the token check.
func AuthChain() []func(http.Handler) http.Handler {
	var chain []func(http.Handler) http.Handler
	if authBasic != nil {
		chain = append(chain, BasicAuth(
			"restricted",
			map[string]string{authBasic.Username: authBasic.Password},
		))
	}
	if authToken != nil {
		chain = append(chain, TokenAuth("restricted", authToken.Token))
	}
	return chain
}
