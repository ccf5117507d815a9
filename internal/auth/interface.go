package auth

// TokenVerifier validates bearer tokens and extracts the claims the
// middleware needs to identify the caller.
type TokenVerifier interface {
	// VerifyToken validates a JWT and returns its claims. Returns an
	// error if the token is invalid, expired, or badly signed.
	VerifyToken(tokenString string) (*Claims, error)

	// Close releases any resources held by the verifier.
	Close() error
}
