// Package auth extracts a bearer token from an inbound transport exchange
// and attaches it to the request context for handlers to forward upstream.
// Per spec.md §1, authentication *policy* is explicitly out of scope: this
// package never accepts or rejects a request on the token's account. It
// only opportunistically decodes the token's claims, unverified, so they
// can be logged for correlation.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey struct{ name string }

var tokenContextKey = contextKey{"mcp-peer-passthrough-token"}

// Token holds the raw bearer token and whatever claims could be decoded
// from it without verifying a signature. Subject and Claims are best-effort
// and MUST NOT be used to make an authorization decision.
type Token struct {
	Raw     string
	Subject string
	Claims  jwt.MapClaims
}

// ExtractBearer pulls the bearer token out of the named header (typically
// "Authorization"). It returns ok=false if the header is absent or not in
// "Bearer <token>" form; callers treat that as "no token", not as an error,
// since this package enforces no policy.
func ExtractBearer(headerName, headerValue string) (string, bool) {
	if headerValue == "" {
		return "", false
	}
	parts := strings.SplitN(headerValue, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	_ = headerName
	return token, true
}

// Decode opportunistically parses token as an unverified JWT for log
// correlation (subject claim). Tokens that aren't JWTs at all (an opaque
// bearer string, say) decode to a Token with only Raw set.
func Decode(rawToken string) Token {
	t := Token{Raw: rawToken}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	// ParseUnverified never checks a signature; it exists precisely for
	// "read the claims, don't trust them" use cases like this one.
	if _, _, err := parser.ParseUnverified(rawToken, claims); err != nil {
		return t
	}
	t.Claims = claims
	if sub, ok := claims["sub"].(string); ok {
		t.Subject = sub
	}
	return t
}

// ContextWithToken attaches tok to ctx.
func ContextWithToken(ctx context.Context, tok Token) context.Context {
	return context.WithValue(ctx, tokenContextKey, tok)
}

// TokenFromContext retrieves a Token attached by ContextWithToken.
func TokenFromContext(ctx context.Context) (Token, bool) {
	tok, ok := ctx.Value(tokenContextKey).(Token)
	return tok, ok
}

// Middleware extracts and decodes the bearer token from headerName on every
// request and attaches it to the request context; requests without a token,
// or with one that doesn't parse as a JWT, proceed unchanged. It never
// produces a 401/403 — that policy decision is explicitly out of scope.
func Middleware(headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = "Authorization"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw, ok := ExtractBearer(headerName, r.Header.Get(headerName)); ok {
				r = r.WithContext(ContextWithToken(r.Context(), Decode(raw)))
			}
			next.ServeHTTP(w, r)
		})
	}
}
